package sidebar

import (
	"context"
	"errors"
	"testing"

	"github.com/nhle/microwins/internal/model"
)

type fakeGateway struct {
	tasks     []model.SidebarEntry
	listErr   error
	deleteErr error
	deleted   []int64
}

func (g *fakeGateway) ListTasks(_ context.Context, _ int64) ([]model.SidebarEntry, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	return append([]model.SidebarEntry(nil), g.tasks...), nil
}

func (g *fakeGateway) DeleteTask(_ context.Context, taskID int64) error {
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deleted = append(g.deleted, taskID)
	return nil
}

type fakeCache struct {
	entries []model.SidebarEntry
	getErr  error
}

func (c *fakeCache) ReplaceSidebarTasks(_ context.Context, entries []model.SidebarEntry) error {
	c.entries = append([]model.SidebarEntry(nil), entries...)
	return nil
}

func (c *fakeCache) GetSidebarTasks(_ context.Context) ([]model.SidebarEntry, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return append([]model.SidebarEntry(nil), c.entries...), nil
}

func (c *fakeCache) DeleteSidebarTask(_ context.Context, taskID int64) error {
	kept := c.entries[:0]
	for _, e := range c.entries {
		if e.ID != taskID {
			kept = append(kept, e)
		}
	}
	c.entries = kept
	return nil
}

func TestRefresh_ReplacesWholesale(t *testing.T) {
	gw := &fakeGateway{tasks: []model.SidebarEntry{
		{ID: 1, Title: "Write essay"},
		{ID: 2, Title: "Clean desk"},
	}}
	cache := &fakeCache{}
	s := New(gw, cache)

	if err := s.Refresh(context.Background(), 7); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := s.Entries(); len(got) != 2 {
		t.Fatalf("entries = %d, want 2", len(got))
	}

	// A shorter server list must not leave stale local entries behind.
	gw.tasks = []model.SidebarEntry{{ID: 2, Title: "Clean desk"}}
	if err := s.Refresh(context.Background(), 7); err != nil {
		t.Fatalf("second Refresh failed: %v", err)
	}

	got := s.Entries()
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("entries = %+v, want only task 2", got)
	}
	if len(cache.entries) != 1 || cache.entries[0].ID != 2 {
		t.Errorf("cache = %+v, want mirror of server list", cache.entries)
	}
}

func TestRefresh_FailureKeepsList(t *testing.T) {
	gw := &fakeGateway{tasks: []model.SidebarEntry{{ID: 1, Title: "Write essay"}}}
	s := New(gw, nil)

	if err := s.Refresh(context.Background(), 7); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	gw.listErr = errors.New("server unavailable")
	if err := s.Refresh(context.Background(), 7); err == nil {
		t.Fatal("expected refresh error")
	}
	if got := s.Entries(); len(got) != 1 {
		t.Errorf("failed refresh must keep the list, got %+v", got)
	}
}

func TestRemove_OnlyAfterServerConfirm(t *testing.T) {
	gw := &fakeGateway{tasks: []model.SidebarEntry{
		{ID: 1, Title: "Write essay"},
		{ID: 2, Title: "Clean desk"},
	}}
	cache := &fakeCache{}
	s := New(gw, cache)
	if err := s.Refresh(context.Background(), 7); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if err := s.Remove(context.Background(), 1); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	got := s.Entries()
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("entries = %+v, want only task 2", got)
	}
	if len(gw.deleted) != 1 || gw.deleted[0] != 1 {
		t.Errorf("server deletions = %v, want [1]", gw.deleted)
	}
	if len(cache.entries) != 1 || cache.entries[0].ID != 2 {
		t.Errorf("cache = %+v", cache.entries)
	}
}

func TestRemove_ServerFailureKeepsEntry(t *testing.T) {
	gw := &fakeGateway{tasks: []model.SidebarEntry{{ID: 1, Title: "Write essay"}}}
	s := New(gw, nil)
	if err := s.Refresh(context.Background(), 7); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	gw.deleteErr = errors.New("server unavailable")
	if err := s.Remove(context.Background(), 1); err == nil {
		t.Fatal("expected remove error")
	}
	if got := s.Entries(); len(got) != 1 {
		t.Errorf("entry must survive a failed delete, got %+v", got)
	}
}

func TestLoadCached_SeedsBeforeFirstRefresh(t *testing.T) {
	cache := &fakeCache{entries: []model.SidebarEntry{{ID: 1, Title: "Write essay"}}}
	s := New(&fakeGateway{}, cache)

	s.LoadCached(context.Background())

	got := s.Entries()
	if len(got) != 1 || got[0].Title != "Write essay" {
		t.Errorf("entries = %+v, want cached seed", got)
	}
}

func TestLoadCached_ErrorIsSilent(t *testing.T) {
	cache := &fakeCache{getErr: errors.New("no such table")}
	s := New(&fakeGateway{}, cache)

	s.LoadCached(context.Background())

	if got := s.Entries(); len(got) != 0 {
		t.Errorf("entries = %+v, want empty", got)
	}
}

func TestClear_EmptiesList(t *testing.T) {
	gw := &fakeGateway{tasks: []model.SidebarEntry{{ID: 1, Title: "Write essay"}}}
	s := New(gw, nil)
	if err := s.Refresh(context.Background(), 7); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	s.Clear()

	if got := s.Entries(); len(got) != 0 {
		t.Errorf("entries = %+v, want empty", got)
	}
}

func TestUpdates_SignalOnChange(t *testing.T) {
	gw := &fakeGateway{tasks: []model.SidebarEntry{{ID: 1, Title: "Write essay"}}}
	s := New(gw, nil)

	if err := s.Refresh(context.Background(), 7); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	select {
	case <-s.Updates():
	default:
		t.Error("refresh should signal subscribers")
	}
}
