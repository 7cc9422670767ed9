package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"watchparty/internal/core"
	"watchparty/internal/domain"
)

// Directory is a process-local identity/display lookup. Real deployments
// would sit this in front of the user service; the core only sees the
// IdentityResolver interface either way.
type Directory struct {
	mu   sync.RWMutex
	byID map[string]domain.Profile
}

func NewDirectory() *Directory {
	return &Directory{byID: make(map[string]domain.Profile)}
}

// Register adds a user and returns its id (generated when absent).
func (d *Directory) Register(profile domain.Profile) domain.Profile {
	if profile.UserID == "" {
		profile.UserID = uuid.NewString()
	}
	d.mu.Lock()
	d.byID[profile.UserID] = profile
	d.mu.Unlock()
	return profile
}

func (d *Directory) Resolve(_ context.Context, userID string) (*domain.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if p, ok := d.byID[userID]; ok {
		return &p, nil
	}
	return nil, fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
}
