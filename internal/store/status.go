package store

import (
	"context"
	"sort"

	commonerrors "rental-genie/internal/common/errors"
	"rental-genie/internal/models"
)

// UpdateStatus sets the lifecycle status of an existing session's profile.
// Unlike auto-qualification this is driven by the management surface, so
// any valid status is accepted in any direction. The change is mirrored to
// the repository like a merge.
func (s *Store) UpdateStatus(ctx context.Context, sessionID string, status models.TenantStatus) error {
	if !status.IsValid() {
		return commonerrors.NewInvalidStatusError(string(status))
	}

	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return commonerrors.NewSessionMissingError(sessionID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Profile.Status = status
	e.session.Profile.LastUpdated = s.now()
	s.persistAsync(sessionID, e.session.Profile)
	return nil
}

// SessionsByStatus returns the IDs of in-memory sessions whose profile is
// in the given status, sorted for stable output.
func (s *Store) SessionsByStatus(status models.TenantStatus) []string {
	s.mu.RLock()
	entries := make(map[string]*entry, len(s.sessions))
	for id, e := range s.sessions {
		entries[id] = e
	}
	s.mu.RUnlock()

	var ids []string
	for id, e := range entries {
		e.mu.Lock()
		if e.session.Profile.Status == status {
			ids = append(ids, id)
		}
		e.mu.Unlock()
	}
	sort.Strings(ids)
	return ids
}
