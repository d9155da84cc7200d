// Package store owns every session: the tenant profiles, their conversation
// history, and the handoff flag. Callers only ever reach this state through
// the store's methods; all operations on one session are serialized while
// unrelated sessions proceed in parallel. Multi-step turns run inside
// WithSession, which holds the session's lock for the whole callback.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"rental-genie/internal/common/logger"
	"rental-genie/internal/common/metrics"
	"rental-genie/internal/models"
)

// Repository is the external persistence a store syncs profiles to. Load
// returns (nil, nil) when no profile exists for the session.
type Repository interface {
	Load(ctx context.Context, sessionID string) (*models.TenantProfile, error)
	Save(ctx context.Context, sessionID string, profile *models.TenantProfile) error
	Delete(ctx context.Context, sessionID string) error
}

const persistTimeout = 5 * time.Second

// entry pairs a session with its own lock so two sessions never contend.
type entry struct {
	mu      sync.Mutex
	session *models.Session
}

// Store is the in-process source of truth for sessions. The repository is
// an eventually-consistent mirror: hydration on first sight, best-effort
// sync after every merge.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	repo Repository
	log  logger.Logger
	now  func() time.Time

	// persistWG lets tests and shutdown wait for in-flight syncs.
	persistWG sync.WaitGroup
}

func New(repo Repository, log logger.Logger) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		repo:     repo,
		log:      log,
		now:      time.Now,
	}
}

// SessionView is a borrowed view of one session whose lock is held by the
// surrounding WithSession call. It must not escape the callback: every
// method, and the profile pointer it hands out, is only valid until the
// callback returns.
type SessionView struct {
	s       *Store
	id      string
	session *models.Session
}

// WithSession runs fn with exclusive ownership of the session, hydrating it
// first if it has never been seen. Everything fn does through the view is
// one critical section: no other operation on the same session can
// interleave with it, including the handoff-flag check-then-act.
func (s *Store) WithSession(ctx context.Context, sessionID string, fn func(view *SessionView)) {
	e := s.entryFor(ctx, sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&SessionView{s: s, id: sessionID, session: e.session})
}

// GetOrCreate returns the session for sessionID, hydrating the profile from
// the repository on first sight. Conversation history is never rebuilt from
// storage; it lives only for the process lifetime. The returned pointer is
// live state: it is safe to read only while no other goroutine is operating
// on the same session. Concurrent callers use WithSession instead.
func (s *Store) GetOrCreate(ctx context.Context, sessionID string) *models.Session {
	e := s.entryFor(ctx, sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

func (s *Store) entryFor(ctx context.Context, sessionID string) *entry {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[sessionID]; ok {
		return e
	}

	now := s.now()
	session := &models.Session{
		ID:        sessionID,
		Profile:   s.hydrate(ctx, sessionID, now),
		CreatedAt: now,
	}
	e = &entry{session: session}
	s.sessions[sessionID] = e
	return e
}

func (s *Store) hydrate(ctx context.Context, sessionID string, now time.Time) *models.TenantProfile {
	if s.repo != nil {
		profile, err := s.repo.Load(ctx, sessionID)
		if err != nil {
			s.log.WithError(err).Warn("profile hydration failed, starting empty", map[string]interface{}{
				"session_id": sessionID,
			})
			metrics.PersistenceFailures.WithLabelValues("load").Inc()
		} else if profile != nil {
			s.log.Info("profile hydrated from repository", map[string]interface{}{
				"session_id": sessionID,
				"status":     string(profile.Status),
			})
			return profile
		}
	}
	return models.NewTenantProfile(now)
}

// Profile exposes the session's profile for reads and extraction context
// while the view's lock is held.
func (v *SessionView) Profile() *models.TenantProfile {
	return v.session.Profile
}

// HandoffCompleted reports whether the session is terminal.
func (v *SessionView) HandoffCompleted() bool {
	return v.session.HandoffCompleted
}

// MarkHandoff closes the session permanently. Further messages get only the
// fixed closing reply from the orchestrator.
func (v *SessionView) MarkHandoff() {
	v.session.HandoffCompleted = true
}

// MergeUpdate applies extracted fields onto the session's profile. Absent
// fields are untouched, last_updated is always refreshed, the turn counter
// advances, and a prospect whose six required fields are now all present is
// auto-qualified. The repository sync runs in the background; its failure
// is logged, never raised.
func (v *SessionView) MergeUpdate(updates models.FieldUpdates) *models.TenantProfile {
	profile := v.session.Profile
	updates.Apply(profile)
	profile.LastUpdated = v.s.now()
	profile.ConversationTurns++

	if profile.Status == models.StatusProspect && profile.Complete() {
		profile.Status = models.StatusQualified
		metrics.ProfilesQualified.Inc()
		v.s.log.Info("profile auto-qualified", map[string]interface{}{
			"session_id": v.id,
			"turns":      profile.ConversationTurns,
		})
	}

	v.s.persistAsync(v.id, profile)
	return profile
}

// AppendTurn records one completed exchange. The profile's turn counter is
// reconciled to the history length so the two never drift apart.
func (v *SessionView) AppendTurn(userMessage, reply string, extracted models.FieldUpdates) {
	v.session.History = append(v.session.History, models.ConversationTurn{
		Timestamp:     v.s.now(),
		UserMessage:   userMessage,
		AgentResponse: reply,
		Extracted:     extracted,
	})
	v.session.Profile.ConversationTurns = len(v.session.History)
}

// MissingFields reports which required fields the session still lacks, in
// canonical order.
func (v *SessionView) MissingFields() []string {
	return v.session.Profile.MissingFields()
}

// RecentTurns returns up to n most recent turns, oldest first.
func (v *SessionView) RecentTurns(n int) []models.ConversationTurn {
	history := v.session.History
	if len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]models.ConversationTurn, len(history))
	copy(out, history)
	return out
}

// Summary renders the collected profile fields and the last few exchanges
// as plain text for notification payloads.
func (v *SessionView) Summary() string {
	var b strings.Builder
	b.WriteString("Collected information:\n")
	snap := v.session.Profile.Snapshot()
	if len(snap) == 0 {
		b.WriteString("  (nothing yet)\n")
	} else {
		keys := make([]string, 0, len(snap))
		for k := range snap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %v\n", k, snap[k])
		}
	}

	history := v.session.History
	if len(history) > 3 {
		history = history[len(history)-3:]
	}
	if len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "  Tenant: %s\n  Agent: %s\n", turn.UserMessage, turn.AgentResponse)
		}
	}
	return b.String()
}

// MergeUpdate is the single-operation form of SessionView.MergeUpdate.
func (s *Store) MergeUpdate(ctx context.Context, sessionID string, updates models.FieldUpdates) *models.TenantProfile {
	var profile *models.TenantProfile
	s.WithSession(ctx, sessionID, func(view *SessionView) {
		profile = view.MergeUpdate(updates)
	})
	return profile
}

// persistAsync mirrors the profile to the repository without blocking the
// turn. Callers hold the session lock, so the profile is copied first.
func (s *Store) persistAsync(sessionID string, profile *models.TenantProfile) {
	if s.repo == nil {
		return
	}
	snapshot := *profile
	if profile.ViewingInterest != nil {
		v := *profile.ViewingInterest
		snapshot.ViewingInterest = &v
	}

	s.persistWG.Add(1)
	go func() {
		defer s.persistWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.repo.Save(ctx, sessionID, &snapshot); err != nil {
			metrics.PersistenceFailures.WithLabelValues("save").Inc()
			s.log.WithError(err).Error("profile sync failed", map[string]interface{}{
				"session_id": sessionID,
			})
		}
	}()
}

// Flush waits for all in-flight repository syncs. Used on shutdown and in
// tests; normal request handling never calls it.
func (s *Store) Flush() {
	s.persistWG.Wait()
}

// AppendTurn is the single-operation form of SessionView.AppendTurn.
func (s *Store) AppendTurn(ctx context.Context, sessionID, userMessage, reply string, extracted models.FieldUpdates) {
	s.WithSession(ctx, sessionID, func(view *SessionView) {
		view.AppendTurn(userMessage, reply, extracted)
	})
}

// MissingFields is the single-operation form of SessionView.MissingFields.
func (s *Store) MissingFields(ctx context.Context, sessionID string) []string {
	var missing []string
	s.WithSession(ctx, sessionID, func(view *SessionView) {
		missing = view.MissingFields()
	})
	return missing
}

// RecentTurns is the single-operation form of SessionView.RecentTurns.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, n int) []models.ConversationTurn {
	var turns []models.ConversationTurn
	s.WithSession(ctx, sessionID, func(view *SessionView) {
		turns = view.RecentTurns(n)
	})
	return turns
}

// Summary is the single-operation form of SessionView.Summary.
func (s *Store) Summary(ctx context.Context, sessionID string) string {
	var summary string
	s.WithSession(ctx, sessionID, func(view *SessionView) {
		summary = view.Summary()
	})
	return summary
}

// MarkHandoff is the single-operation form of SessionView.MarkHandoff.
func (s *Store) MarkHandoff(ctx context.Context, sessionID string) {
	s.WithSession(ctx, sessionID, func(view *SessionView) {
		view.MarkHandoff()
	})
}

// HandoffCompleted reports whether the session is terminal.
func (s *Store) HandoffCompleted(ctx context.Context, sessionID string) bool {
	var completed bool
	s.WithSession(ctx, sessionID, func(view *SessionView) {
		completed = view.HandoffCompleted()
	})
	return completed
}

// Clear removes the session from memory and from the repository.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if s.repo == nil {
		return nil
	}
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		metrics.PersistenceFailures.WithLabelValues("delete").Inc()
		s.log.WithError(err).Error("failed to delete persisted profile", map[string]interface{}{
			"session_id": sessionID,
		})
		return err
	}
	return nil
}
