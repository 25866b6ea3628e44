package models

import (
	"github.com/samber/lo"
)

type RelationshipKind string

const (
	KindFollow = RelationshipKind("follow")
	KindBlock  = RelationshipKind("block")
)

// Collection returns the repo collection NSID that holds records of this kind.
func (k RelationshipKind) Collection() string {
	return lo.Ternary(k == KindBlock, "app.bsky.graph.block", "app.bsky.graph.follow")
}

// Record is a relationship record in an account's own repo, reduced to the two
// fields the reconciler cares about: the key addressing it and the did it
// points at.
type Record struct {
	Rkey    string `json:"rkey"`
	Subject string `json:"subject"`
}
