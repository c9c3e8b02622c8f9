package replay

import (
	"path/filepath"
	"testing"

	"horde-sim/internal/game"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "replay.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func TestStoreRecordsRun(t *testing.T) {
	s := openTestStore(t)

	if s.RunID() == 0 {
		t.Fatal("expected a run id after Open")
	}

	run, err := s.GetRun(s.RunID())
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run == nil {
		t.Fatal("run row missing")
	}
	if run.EndedAt.Valid {
		t.Error("run should not be finalized while open")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestStoreConsumeAndQuery(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	events := []game.Event{
		game.NewEvent(game.EventTypeSpawn, 1, 7, game.SpawnPayload{ID: 7, Kind: "enemy", X: 10, Y: 20}),
		game.NewEvent(game.EventTypeCollision, 5, 7, game.CollisionPayload{A: 7, B: 9, KindA: "enemy", KindB: "player"}),
		game.NewEvent(game.EventTypeCollision, 6, 7, game.CollisionPayload{A: 7, B: 9, KindA: "enemy", KindB: "player"}),
		game.NewEvent(game.EventTypeDespawn, 9, 7, game.DespawnPayload{ID: 7, Kind: "enemy"}),
	}
	for i, ev := range events {
		ev.Sequence = uint64(i + 1)
		s.Consume(ev)
	}

	if got := s.EventsWritten(); got != 4 {
		t.Fatalf("EventsWritten = %d, want 4", got)
	}

	counts, err := s.CountByType(s.RunID())
	if err != nil {
		t.Fatalf("CountByType failed: %v", err)
	}
	if counts["collision"] != 2 {
		t.Errorf("collision count = %d, want 2", counts["collision"])
	}
	if counts["spawn"] != 1 || counts["despawn"] != 1 {
		t.Errorf("lifecycle counts = %v", counts)
	}

	rows, err := s.EventsForTickRange(s.RunID(), 5, 6)
	if err != nil {
		t.Fatalf("EventsForTickRange failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("tick range returned %d rows, want 2", len(rows))
	}
	if rows[0].Seq > rows[1].Seq {
		t.Error("rows not in sequence order")
	}
	for _, row := range rows {
		if row.Type != "collision" {
			t.Errorf("unexpected type %q in tick range", row.Type)
		}
	}
}

func TestStoreFinalizesRunOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	runID := s.RunID()

	ev := game.NewEvent(game.EventTypeTick, 42, 0, game.TickPayload{Entities: 3})
	ev.Sequence = 1
	s.Consume(ev)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopen creates a fresh run but the old one stays queryable.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	if s2.RunID() == runID {
		t.Error("reopen should start a new run")
	}

	run, err := s2.GetRun(runID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run == nil {
		t.Fatal("finalized run missing after reopen")
	}
	if !run.EndedAt.Valid {
		t.Error("run should be finalized")
	}
	if run.Ticks != 42 {
		t.Errorf("run ticks = %d, want 42", run.Ticks)
	}
	if run.Events != 1 {
		t.Errorf("run events = %d, want 1", run.Events)
	}

	runs, err := s2.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("RecentRuns returned %d, want 2", len(runs))
	}
	if runs[0].ID < runs[1].ID {
		t.Error("RecentRuns not newest first")
	}
}
