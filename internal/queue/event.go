// Package queue defines message payloads exchanged over the message broker.
package queue

// BoxChangedEvent is published whenever a board write is accepted or the
// board is reset. It gives out-of-process consumers (the change log, a
// future kitchen display) enough to act without calling back into the
// service. A reset is encoded as BoxID "*".
type BoxChangedEvent struct {
    BoxID     string `json:"box_id"`
    Number    int    `json:"number,omitempty"`
    Status    string `json:"status"`
    Actor     string `json:"actor"`
    ChangedAt string `json:"changed_at"`
}
