// Package harvest defines the core types shared across the annual-report
// harvester: listings scraped from the exchange site, mined contact records,
// archive identifiers, and the collaborator interfaces the pipeline
// orchestrator sequences.
package harvest
