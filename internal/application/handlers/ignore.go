package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/pvandijk/housekeeper/internal/domain/ports"
)

// IgnoreHandler manages the persistent fingerprint ignore list.
type IgnoreHandler struct {
	store ports.SessionStore
}

// NewIgnoreHandler creates a new ignore handler.
func NewIgnoreHandler(store ports.SessionStore) *IgnoreHandler {
	return &IgnoreHandler{
		store: store,
	}
}

// HandleAdd records fingerprints so matching actions stop appearing in plans.
func (h *IgnoreHandler) HandleAdd(ctx context.Context, fingerprints []string) error {
	cleaned := make([]string, 0, len(fingerprints))
	for _, fp := range fingerprints {
		fp = strings.TrimSpace(fp)
		if fp == "" {
			continue
		}
		cleaned = append(cleaned, fp)
	}
	if len(cleaned) == 0 {
		return fmt.Errorf("no fingerprints given")
	}
	return h.store.AddIgnored(ctx, cleaned)
}

// HandleRemove drops fingerprints from the ignore list.
func (h *IgnoreHandler) HandleRemove(ctx context.Context, fingerprints []string) error {
	return h.store.RemoveIgnored(ctx, fingerprints)
}

// HandleList returns the ignore list, sorted.
func (h *IgnoreHandler) HandleList(ctx context.Context) ([]string, error) {
	return h.store.ListIgnored(ctx)
}

// HandleClear empties the ignore list.
func (h *IgnoreHandler) HandleClear(ctx context.Context) error {
	return h.store.ClearIgnored(ctx)
}
