package model

// EventKind discriminates the change notifications pushed to viewers.
type EventKind string

const (
	// EventConnected is the handshake sent as the first record on every new
	// subscription.
	EventConnected EventKind = "connected"
	// EventBoxUpdated carries exactly one changed box.
	EventBoxUpdated EventKind = "box-updated"
	// EventAllReset carries the full ten-box snapshot after a reset.
	EventAllReset EventKind = "all-reset"
)

// ChangeEvent is one record on the event stream. Exactly one payload field
// is set depending on Kind: Box for box-updated, Boxes for all-reset,
// neither for connected. Events are ephemeral and never persisted.
type ChangeEvent struct {
	Kind  EventKind `json:"type"`
	Box   *Box      `json:"box,omitempty"`
	Boxes []Box     `json:"boxes,omitempty"`
}
