package model

// Box represents one physical dispatch box on the cafeteria board. Ten
// boxes exist for the lifetime of the process; they are mutated in place
// and never added or removed.
//
// Fields:
//  ID             – stable identifier in the form "<group>-<index>" (e.g. "1-3").
//  Number         – ordinal of the box within its group, immutable.
//  Status         – current lifecycle status, always one of the four BoxStatus values.
//  LastModifiedBy – provenance of the most recent write (system, user or admin).
//  LastModified   – unix milliseconds of the most recent write, non-decreasing per box.
type Box struct {
	ID             string    `json:"id"`
	Number         int       `json:"number"`
	Status         BoxStatus `json:"status"`
	LastModifiedBy Actor     `json:"lastModifiedBy"`
	LastModified   int64     `json:"lastModified"`
}

// BoxStatus is the lifecycle status of a box.
type BoxStatus string

const (
	StatusDeparture BoxStatus = "departure"
	StatusWaiting   BoxStatus = "waiting"
	StatusQueue     BoxStatus = "queue"
	StatusFinished  BoxStatus = "finished"
)

// Valid reports whether s is one of the four known statuses.
func (s BoxStatus) Valid() bool {
	switch s {
	case StatusDeparture, StatusWaiting, StatusQueue, StatusFinished:
		return true
	}
	return false
}

// Actor tags the provenance of a write. It drives the admin grace-window
// rule only; authorization happens before a request reaches the store.
type Actor string

const (
	ActorSystem Actor = "system"
	ActorUser   Actor = "user"
	ActorAdmin  Actor = "admin"
)

// Valid reports whether a is a known actor label.
func (a Actor) Valid() bool {
	return a == ActorSystem || a == ActorUser || a == ActorAdmin
}
