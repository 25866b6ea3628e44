package models

import (
	"slices"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/samber/lo"
)

// DIDSet is an in-memory set of account identifiers, keyed by did so entries
// repeated across pages de-duplicate automatically.
type DIDSet map[syntax.DID]struct{}

func NewDIDSet(dids ...syntax.DID) DIDSet {
	set := make(DIDSet, len(dids))
	for _, did := range dids {
		set.Add(did)
	}
	return set
}

func (s DIDSet) Add(did syntax.DID) {
	s[did] = struct{}{}
}

func (s DIDSet) Has(did syntax.DID) bool {
	_, ok := s[did]
	return ok
}

func (s DIDSet) Remove(did syntax.DID) {
	delete(s, did)
}

func (s DIDSet) Len() int {
	return len(s)
}

// Sorted returns the members in ascending lexical order, which is the order
// every write phase iterates in so reruns produce the same output.
func (s DIDSet) Sorted() []syntax.DID {
	dids := lo.Keys(s)
	slices.Sort(dids)
	return dids
}

func (s DIDSet) Intersect(other DIDSet) DIDSet {
	out := DIDSet{}
	for did := range s {
		if other.Has(did) {
			out.Add(did)
		}
	}
	return out
}

func (s DIDSet) Difference(other DIDSet) DIDSet {
	out := DIDSet{}
	for did := range s {
		if !other.Has(did) {
			out.Add(did)
		}
	}
	return out
}

// Subtract removes every member of other from s in place.
func (s DIDSet) Subtract(other DIDSet) {
	for did := range other {
		delete(s, did)
	}
}
