package graph

import "fmt"

// EdgeRequest is a pending partial-match request registered by a peer node.
// An empty Source or Target is a wildcard; at least one must be bound.
// ReturnNode is the peer that asked for matching tuples; ExpiryTime is in
// the tuple time domain.
type EdgeRequest struct {
	Source     string
	Target     string
	ReturnNode int
	ExpiryTime float64
}

// Expired reports whether the request has lapsed at the given tuple time.
func (r EdgeRequest) Expired(now float64) bool {
	return r.ExpiryTime < now
}

func (r EdgeRequest) String() string {
	return fmt.Sprintf("EdgeRequest{source=%q target=%q return=%d expiry=%f}",
		r.Source, r.Target, r.ReturnNode, r.ExpiryTime)
}
