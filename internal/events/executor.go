package events

import "time"

// SubgraphRequestStart is emitted before a QueryPartition's document is
// sent to its owning subgraph.
type SubgraphRequestStart struct {
	Subgraph      string
	PartitionID   int32
	IsEntityFetch bool
}

// SubgraphRequestFinish is emitted after a subgraph responds (or the
// request fails outright).
type SubgraphRequestFinish struct {
	Subgraph    string
	PartitionID int32
	StatusCode  int
	Errors      int
	Duration    time.Duration
	Err         error
}
