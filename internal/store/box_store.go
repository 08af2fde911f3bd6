// Package store owns the authoritative in-memory box set. All mutations go
// through ApplyUpdate or ResetAll; no other component writes box state.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/cafeteria-dispatch-board/internal/model"
)

// BoxCount is the fixed number of boxes on the board.
const BoxCount = 10

// AdminGraceWindow is how long an admin write shadows later non-admin
// writes to the same box.
const AdminGraceWindow = 5 * time.Minute

// ErrBoxNotFound is returned when a write references an unknown box id.
// Handlers translate it into an HTTP 404 response.
var ErrBoxNotFound = errors.New("box not found")

// BoxStore holds the ten box records. The mutex serializes every
// read-modify-write so two concurrent updates to the same id can never
// interleave.
type BoxStore struct {
	mu    sync.Mutex
	boxes []model.Box
	order map[string]int // id -> index into boxes

	// now is swapped out by tests to exercise the grace window.
	now func() time.Time
}

// NewBoxStore builds the store with ids "1-1".."1-10", all waiting and
// owned by the system actor.
func NewBoxStore() *BoxStore {
	s := &BoxStore{
		boxes: make([]model.Box, 0, BoxCount),
		order: make(map[string]int, BoxCount),
		now:   time.Now,
	}
	ts := s.now().UnixMilli()
	for i := 1; i <= BoxCount; i++ {
		id := fmt.Sprintf("1-%d", i)
		s.order[id] = len(s.boxes)
		s.boxes = append(s.boxes, model.Box{
			ID:             id,
			Number:         i,
			Status:         model.StatusWaiting,
			LastModifiedBy: model.ActorSystem,
			LastModified:   ts,
		})
	}
	return s
}

// GetAll returns a snapshot copy of all boxes in stable id order. The
// caller may retain and mutate the slice freely.
func (s *BoxStore) GetAll() []model.Box {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ApplyUpdate sets the status of one box. The returned bool reports
// whether the write was applied: a non-admin write arriving inside the
// admin grace window is refused and the unchanged record is returned with
// applied=false and a nil error. Unknown ids return ErrBoxNotFound.
func (s *BoxStore) ApplyUpdate(id string, status model.BoxStatus, actor model.Actor) (model.Box, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.order[id]
	if !ok {
		return model.Box{}, false, ErrBoxNotFound
	}
	cur := s.boxes[idx]

	if actor != model.ActorAdmin && cur.LastModifiedBy == model.ActorAdmin {
		age := s.now().UnixMilli() - cur.LastModified
		if age < AdminGraceWindow.Milliseconds() {
			// Resolved conflict, not an error: the admin record wins.
			return cur, false, nil
		}
	}

	cur.Status = status
	cur.LastModifiedBy = actor
	cur.LastModified = s.monotonicMilliLocked(cur.LastModified)
	s.boxes[idx] = cur
	return cur, true, nil
}

// ResetAll puts every box back to waiting on behalf of actor. Reset is an
// admin-class action and ignores the grace window. Returns the new
// snapshot.
func (s *BoxStore) ResetAll(actor model.Actor) []model.Box {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.boxes {
		s.boxes[i].Status = model.StatusWaiting
		s.boxes[i].LastModifiedBy = actor
		s.boxes[i].LastModified = s.monotonicMilliLocked(s.boxes[i].LastModified)
	}
	return s.snapshotLocked()
}

// monotonicMilliLocked returns the current time in unix milliseconds,
// clamped so LastModified never moves backwards even if the wall clock
// does.
func (s *BoxStore) monotonicMilliLocked(prev int64) int64 {
	ts := s.now().UnixMilli()
	if ts < prev {
		return prev
	}
	return ts
}

func (s *BoxStore) snapshotLocked() []model.Box {
	out := make([]model.Box, len(s.boxes))
	copy(out, s.boxes)
	return out
}
