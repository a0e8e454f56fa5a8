package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
)

// Hierarchy implements harvest.FolderResolver on top of a Backend.
type Hierarchy struct {
	backend   Backend
	logger    *zap.Logger
	serialize bool
	group     singleflight.Group
}

// HierarchyOption customises a Hierarchy.
type HierarchyOption func(*Hierarchy)

// WithSerializedCreates collapses concurrent lookups of the same
// (parent, name) pair into one find-or-create round trip.
func WithSerializedCreates(enabled bool) HierarchyOption {
	return func(h *Hierarchy) {
		h.serialize = enabled
	}
}

// NewHierarchy constructs a Hierarchy. Serialization is on unless disabled.
func NewHierarchy(backend Backend, logger *zap.Logger, opts ...HierarchyOption) *Hierarchy {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hierarchy{
		backend:   backend,
		logger:    logger,
		serialize: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Ensure walks segments from rootParentID, creating each missing level, and
// returns the id of the last one.
func (h *Hierarchy) Ensure(ctx context.Context, segments []string, rootParentID string) (string, error) {
	nodes, err := h.EnsurePath(ctx, segments, rootParentID)
	if err != nil {
		return "", err
	}
	h.logger.Debug("folder path resolved", zap.Any("path", nodes))
	return nodes[len(nodes)-1].RemoteID, nil
}

// EnsurePath is Ensure returning every resolved level, root first.
func (h *Hierarchy) EnsurePath(ctx context.Context, segments []string, rootParentID string) ([]harvest.FolderNode, error) {
	if h.backend == nil {
		return nil, errors.New("archive backend is not configured")
	}
	if len(segments) == 0 {
		return nil, errors.New("at least one folder segment is required")
	}
	nodes := make([]harvest.FolderNode, 0, len(segments))
	parent := rootParentID
	for _, name := range segments {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("empty folder segment in %q", strings.Join(segments, "/"))
		}
		id, err := h.ensureOne(ctx, name, parent)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, harvest.FolderNode{Name: name, RemoteID: id, ParentID: parent})
		parent = id
	}
	return nodes, nil
}

func (h *Hierarchy) ensureOne(ctx context.Context, name, parentID string) (string, error) {
	if !h.serialize {
		return h.findOrCreate(ctx, name, parentID)
	}
	v, err, shared := h.group.Do(parentID+"/"+name, func() (any, error) {
		return h.findOrCreate(ctx, name, parentID)
	})
	if err != nil {
		return "", err //nolint:wrapcheck
	}
	if shared {
		h.logger.Debug("folder resolution shared", zap.String("folder", name), zap.String("parent", parentID))
	}
	id, _ := v.(string)
	return id, nil
}

func (h *Hierarchy) findOrCreate(ctx context.Context, name, parentID string) (string, error) {
	id, found, err := h.backend.FindFolder(ctx, name, parentID)
	if err != nil {
		return "", fmt.Errorf("find folder %q: %w", name, err)
	}
	if found {
		return id, nil
	}
	id, err = h.backend.CreateFolder(ctx, name, parentID)
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	h.logger.Info("folder created", zap.String("folder", name), zap.String("parent", parentID), zap.String("id", id))
	return id, nil
}
