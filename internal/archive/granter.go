package archive

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/annual-report-harvester/internal/metrics"
)

// DefaultRole is the write-capable role granted to recipients.
const DefaultRole = "writer"

// Granter implements harvest.Granter.
type Granter struct {
	backend Backend
	role    string
	logger  *zap.Logger
}

// NewGranter constructs a Granter.
func NewGranter(backend Backend, role string, logger *zap.Logger) *Granter {
	if role == "" {
		role = DefaultRole
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Granter{backend: backend, role: role, logger: logger}
}

// Grant shares folderID with recipient. Failures are logged and reported as
// false.
func (g *Granter) Grant(ctx context.Context, folderID, recipient string) bool {
	if g.backend == nil || folderID == "" || recipient == "" {
		g.logger.Warn("grant skipped", zap.String("folder", folderID), zap.String("recipient", recipient))
		metrics.ObserveGrant(false)
		return false
	}
	err := g.backend.CreatePermission(ctx, folderID, Permission{
		Role:         g.role,
		Type:         "user",
		EmailAddress: recipient,
	})
	metrics.ObserveGrant(err == nil)
	if err != nil {
		g.logger.Error("grant failed", zap.String("folder", folderID), zap.String("recipient", recipient), zap.Error(err))
		return false
	}
	g.logger.Info("folder shared", zap.String("folder", folderID), zap.String("recipient", recipient), zap.String("role", g.role))
	return true
}
