// Package client implements the viewer-side sync agent: a local cache of
// the board kept consistent with the server through the event stream,
// with a full-snapshot read to close the gap between page load and
// subscription establishment. Display layers embed it and render whatever
// Boxes() returns; during an outage that is the last-known-good state,
// never a blank board.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/cafeteria-dispatch-board/internal/model"
)

// State is the agent's connection state. The agent cycles Disconnected ->
// Connecting -> Synced and back on transport errors; there is no terminal
// state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateSynced       State = "synced"
)

// ErrBoxNotFound mirrors the server's not-found outcome for writes
// against stale ids.
var ErrBoxNotFound = errors.New("box not found")

// minRetryDelay is the floor between reconnect attempts so a flapping
// network cannot turn the retry loop into a busy loop.
const minRetryDelay = 2 * time.Second

// Agent is one viewer's synchronization engine. All exported methods are
// safe for concurrent use.
type Agent struct {
	baseURL string
	httpc   *http.Client

	retryDelay time.Duration

	mu    sync.Mutex
	state State
	boxes map[string]model.Box

	// OnStateChange, when set before Run, is invoked on every state
	// transition. Viewers use it to toggle the "live updates degraded"
	// indicator.
	OnStateChange func(State)
}

// NewAgent builds an agent pointed at the service base URL (e.g.
// "http://localhost:8080"). The agent does nothing until Run is called.
func NewAgent(baseURL string) *Agent {
	return &Agent{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpc:      &http.Client{},
		retryDelay: minRetryDelay,
		state:      StateDisconnected,
		boxes:      make(map[string]model.Box),
	}
}

// Run drives the connection loop until ctx is cancelled. Each cycle opens
// the event stream, reconciles via one snapshot read, then applies pushed
// events until the transport fails; failures put the agent back into
// Connecting after the retry delay.
func (a *Agent) Run(ctx context.Context) {
	for {
		a.setState(StateConnecting)
		a.streamOnce(ctx)
		if ctx.Err() != nil {
			a.setState(StateDisconnected)
			return
		}
		a.setState(StateDisconnected)

		select {
		case <-ctx.Done():
			return
		case <-time.After(a.retryDelay):
		}
	}
}

// streamOnce opens one subscription and consumes it until it breaks.
func (a *Agent) streamOnce(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/events", nil)
	if err != nil {
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := a.httpc.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}
		var ev model.ChangeEvent
		if err := json.Unmarshal(bytes.TrimPrefix(line, []byte("data: ")), &ev); err != nil {
			continue
		}

		switch ev.Kind {
		case model.EventConnected:
			a.setState(StateSynced)
			// The subscription is live; one snapshot read closes the
			// window between page load and the handshake, so no event
			// that raced the subscription is ever missed.
			a.reconcile(ctx)
		case model.EventBoxUpdated:
			if ev.Box != nil {
				a.applyBox(*ev.Box)
			}
		case model.EventAllReset:
			a.replaceAll(ev.Boxes)
		}
	}
}

// reconcile merges one full-state read into the cache. Snapshot and
// pushed events are two independent, idempotently-mergeable sources: the
// per-box lastModified guard in applyBox keeps whichever record is newer.
func (a *Agent) reconcile(ctx context.Context) {
	boxes, _, err := a.Read(ctx)
	if err != nil {
		return
	}
	for _, b := range boxes {
		a.applyBox(b)
	}
}

// Read fetches the full board snapshot and the server timestamp. It does
// not touch the local cache; Run's reconcile path does that.
func (a *Agent) Read(ctx context.Context) ([]model.Box, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/boxes", nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := a.httpc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("read boxes: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Success    bool        `json:"success"`
		Boxes      []model.Box `json:"boxes"`
		ServerTime int64       `json:"server_time"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, 0, err
	}
	if !body.Success {
		return nil, 0, errors.New("read boxes: server reported failure")
	}
	return body.Boxes, body.ServerTime, nil
}

// Write proposes a status for one box. The returned bool reports whether
// the server applied the write; false with a nil error means it was
// shadowed by admin protection. The authoritative record comes back
// either way and is merged into the cache immediately.
func (a *Agent) Write(ctx context.Context, id string, status model.BoxStatus, actor model.Actor) (model.Box, bool, error) {
	payload, err := json.Marshal(map[string]string{
		"id":     id,
		"status": string(status),
		"actor":  string(actor),
	})
	if err != nil {
		return model.Box{}, false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/boxes", bytes.NewReader(payload))
	if err != nil {
		return model.Box{}, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpc.Do(req)
	if err != nil {
		return model.Box{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.Box{}, false, ErrBoxNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return model.Box{}, false, fmt.Errorf("write box: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Success bool      `json:"success"`
		Applied bool      `json:"applied"`
		Box     model.Box `json:"box"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.Box{}, false, err
	}
	if !body.Success {
		return model.Box{}, false, errors.New("write box: server reported failure")
	}
	a.applyBox(body.Box)
	return body.Box, body.Applied, nil
}

// Boxes returns the cached board sorted by box number. The slice is a
// copy; the caller may keep it.
func (a *Agent) Boxes() []model.Box {
	a.mu.Lock()
	out := make([]model.Box, 0, len(a.boxes))
	for _, b := range a.boxes {
		out = append(out, b)
	}
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// State returns the current connection state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Connected reports whether live updates are flowing.
func (a *Agent) Connected() bool {
	return a.State() == StateSynced
}

// applyBox replaces one cached record if the incoming one is at least as
// new; stale records from a snapshot that raced a push are ignored, which
// makes event application idempotent under at-least-once delivery.
func (a *Agent) applyBox(b model.Box) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cur, ok := a.boxes[b.ID]; ok && cur.LastModified > b.LastModified {
		return
	}
	a.boxes[b.ID] = b
}

// replaceAll swaps the entire cache; used for all-reset events.
func (a *Agent) replaceAll(boxes []model.Box) {
	next := make(map[string]model.Box, len(boxes))
	for _, b := range boxes {
		next[b.ID] = b
	}
	a.mu.Lock()
	a.boxes = next
	a.mu.Unlock()
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	changed := a.state != s
	a.state = s
	cb := a.OnStateChange
	a.mu.Unlock()

	if changed && cb != nil {
		cb(s)
	}
}
