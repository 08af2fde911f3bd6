package store

import (
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/cafeteria-dispatch-board/internal/model"
)

// fixedClock lets tests move time forward deterministically.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore() (*BoxStore, *fixedClock) {
	// Start the fake clock ahead of the construction timestamp so the
	// monotonic clamp never pins writes to the initial value.
	clk := &fixedClock{t: time.Now().Add(time.Hour)}
	s := NewBoxStore()
	s.now = clk.now
	return s, clk
}

func TestNewBoxStoreInitialState(t *testing.T) {
	s, _ := newTestStore()

	boxes := s.GetAll()
	if len(boxes) != BoxCount {
		t.Fatalf("got %d boxes, want %d", len(boxes), BoxCount)
	}
	for i, b := range boxes {
		if b.Number != i+1 {
			t.Errorf("box %d: number = %d, want %d", i, b.Number, i+1)
		}
		if b.Status != model.StatusWaiting {
			t.Errorf("box %s: status = %q, want waiting", b.ID, b.Status)
		}
		if b.LastModifiedBy != model.ActorSystem {
			t.Errorf("box %s: lastModifiedBy = %q, want system", b.ID, b.LastModifiedBy)
		}
	}
	if boxes[2].ID != "1-3" {
		t.Errorf("boxes[2].ID = %q, want 1-3", boxes[2].ID)
	}
}

func TestGetAllReturnsCopy(t *testing.T) {
	s, _ := newTestStore()

	snap := s.GetAll()
	snap[0].Status = model.StatusFinished

	if got := s.GetAll()[0].Status; got != model.StatusWaiting {
		t.Fatalf("mutating a snapshot leaked into the store: status = %q", got)
	}
}

func TestApplyUpdate(t *testing.T) {
	s, clk := newTestStore()

	box, applied, err := s.ApplyUpdate("1-3", model.StatusDeparture, model.ActorUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Fatal("write was not applied")
	}
	if box.Status != model.StatusDeparture || box.LastModifiedBy != model.ActorUser {
		t.Errorf("box = %+v, want departure/user", box)
	}
	if box.LastModified != clk.now().UnixMilli() {
		t.Errorf("lastModified = %d, want %d", box.LastModified, clk.now().UnixMilli())
	}
}

func TestApplyUpdateUnknownID(t *testing.T) {
	s, _ := newTestStore()

	_, _, err := s.ApplyUpdate("9-9", model.StatusQueue, model.ActorUser)
	if err != ErrBoxNotFound {
		t.Fatalf("err = %v, want ErrBoxNotFound", err)
	}
}

func TestAdminGraceWindowBlocksUserWrite(t *testing.T) {
	s, clk := newTestStore()

	if _, applied, _ := s.ApplyUpdate("1-3", model.StatusDeparture, model.ActorAdmin); !applied {
		t.Fatal("admin write was not applied")
	}

	// One second before the window closes: user write must be shadowed.
	clk.advance(AdminGraceWindow - time.Second)
	box, applied, err := s.ApplyUpdate("1-3", model.StatusWaiting, model.ActorUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatal("user write inside the grace window was applied")
	}
	if box.Status != model.StatusDeparture || box.LastModifiedBy != model.ActorAdmin {
		t.Errorf("shadowed write changed the record: %+v", box)
	}

	// One second after the window closes: user write must land.
	clk.advance(2 * time.Second)
	box, applied, err = s.ApplyUpdate("1-3", model.StatusWaiting, model.ActorUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Fatal("user write after the grace window was refused")
	}
	if box.Status != model.StatusWaiting || box.LastModifiedBy != model.ActorUser {
		t.Errorf("box = %+v, want waiting/user", box)
	}
}

func TestAdminWriteOverridesAdmin(t *testing.T) {
	s, _ := newTestStore()

	s.ApplyUpdate("1-1", model.StatusQueue, model.ActorAdmin)
	box, applied, err := s.ApplyUpdate("1-1", model.StatusFinished, model.ActorAdmin)
	if err != nil || !applied {
		t.Fatalf("admin write inside grace window refused: applied=%v err=%v", applied, err)
	}
	if box.Status != model.StatusFinished {
		t.Errorf("status = %q, want finished", box.Status)
	}
}

func TestResetAllIgnoresGraceWindow(t *testing.T) {
	s, _ := newTestStore()

	s.ApplyUpdate("1-3", model.StatusDeparture, model.ActorAdmin)
	boxes := s.ResetAll(model.ActorAdmin)

	for _, b := range boxes {
		if b.Status != model.StatusWaiting {
			t.Errorf("box %s: status = %q after reset", b.ID, b.Status)
		}
		if b.LastModifiedBy != model.ActorAdmin {
			t.Errorf("box %s: lastModifiedBy = %q after reset", b.ID, b.LastModifiedBy)
		}
	}
}

func TestResetAllIdempotent(t *testing.T) {
	s, _ := newTestStore()

	first := s.ResetAll(model.ActorAdmin)
	second := s.ResetAll(model.ActorAdmin)

	if len(first) != len(second) {
		t.Fatalf("snapshot sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Status != second[i].Status ||
			first[i].LastModifiedBy != second[i].LastModifiedBy {
			t.Errorf("box %s differs between resets: %+v vs %+v", first[i].ID, first[i], second[i])
		}
	}
}

func TestLastModifiedMonotonic(t *testing.T) {
	s, clk := newTestStore()

	var prev int64
	statuses := []model.BoxStatus{
		model.StatusQueue, model.StatusDeparture, model.StatusFinished, model.StatusWaiting,
	}
	for i, st := range statuses {
		box, _, err := s.ApplyUpdate("1-5", st, model.ActorUser)
		if err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		if box.LastModified < prev {
			t.Fatalf("lastModified went backwards: %d -> %d", prev, box.LastModified)
		}
		if box.Status != st {
			t.Errorf("write %d: status = %q, want %q", i, box.Status, st)
		}
		prev = box.LastModified
		clk.advance(time.Duration(i) * time.Second)
	}
}

func TestConcurrentUpdatesSameBox(t *testing.T) {
	s, _ := newTestStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ApplyUpdate("1-7", model.StatusQueue, model.ActorUser)
		}()
	}
	wg.Wait()

	box := s.GetAll()[6]
	if box.Status != model.StatusQueue {
		t.Fatalf("status after concurrent writes = %q, want queue", box.Status)
	}
}
