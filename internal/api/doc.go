// Package api hosts the HTTP server, middleware, and handlers of the
// harvester. Notable routes:
//   - GET /industries, POST /companies for listing scrapes.
//   - POST /emails, POST /companypdfurl for single-company mining.
//   - POST /company (archive only) and POST /industries_data (full run).
//   - GET /runs/{run_id} for the ledger of a run.
//   - GET /healthz, /readyz for health checks and GET /metrics for Prometheus.
package api
