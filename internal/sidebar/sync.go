// Package sidebar maintains the list of previously created quests for
// the signed-in user and keeps it consistent with creation/deletion.
package sidebar

import (
	"context"
	"fmt"
	"sync"

	"github.com/nhle/microwins/internal/model"
)

// Gateway is the slice of the API client the sync needs.
type Gateway interface {
	ListTasks(ctx context.Context, userID int64) ([]model.SidebarEntry, error)
	DeleteTask(ctx context.Context, taskID int64) error
}

// Cache mirrors the list into durable local storage so a fresh start
// can show something before the first refresh lands.
type Cache interface {
	ReplaceSidebarTasks(ctx context.Context, entries []model.SidebarEntry) error
	GetSidebarTasks(ctx context.Context) ([]model.SidebarEntry, error)
	DeleteSidebarTask(ctx context.Context, taskID int64) error
}

// Sync holds the current sidebar list. Refreshes replace it wholesale;
// the list is small and refreshed on every relevant event, so there is
// no incremental merge.
type Sync struct {
	mu      sync.Mutex
	entries []model.SidebarEntry

	gw      Gateway
	cache   Cache
	updates chan struct{}
}

// New creates a sidebar sync. The cache may be nil.
func New(gw Gateway, cache Cache) *Sync {
	return &Sync{
		gw:      gw,
		cache:   cache,
		updates: make(chan struct{}, 16),
	}
}

// Updates delivers a signal after every list change. Signals coalesce
// when the consumer lags.
func (s *Sync) Updates() <-chan struct{} {
	return s.updates
}

// Entries returns a snapshot of the current list.
func (s *Sync) Entries() []model.SidebarEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SidebarEntry(nil), s.entries...)
}

func (s *Sync) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// LoadCached seeds the list from local storage. Used once at startup;
// a missing or empty cache is not an error.
func (s *Sync) LoadCached(ctx context.Context) {
	if s.cache == nil {
		return
	}
	entries, err := s.cache.GetSidebarTasks(ctx)
	if err != nil || len(entries) == 0 {
		return
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	s.notify()
}

// Refresh fetches the full list for the user and replaces the local
// copy wholesale.
func (s *Sync) Refresh(ctx context.Context, userID int64) error {
	entries, err := s.gw.ListTasks(ctx, userID)
	if err != nil {
		return fmt.Errorf("refreshing sidebar: %w", err)
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	if s.cache != nil {
		_ = s.cache.ReplaceSidebarTasks(ctx, entries)
	}
	s.notify()
	return nil
}

// Remove deletes a task server-side and, only once that confirms,
// drops the entry locally.
func (s *Sync) Remove(ctx context.Context, taskID int64) error {
	if err := s.gw.DeleteTask(ctx, taskID); err != nil {
		return fmt.Errorf("deleting task %d: %w", taskID, err)
	}

	s.mu.Lock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.ID != taskID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	s.mu.Unlock()

	if s.cache != nil {
		_ = s.cache.DeleteSidebarTask(ctx, taskID)
	}
	s.notify()
	return nil
}

// Clear empties the list, e.g. on logout.
func (s *Sync) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	s.notify()
}
