package lql

import "sort"

// CandidateSet is an immutable set of entity UIDs. Every operation returns a
// new set, so each clause of a query is a pure set-to-set step.
type CandidateSet struct {
	m map[string]struct{}
}

// NewCandidateSet builds a set from uids.
func NewCandidateSet(uids ...string) CandidateSet {
	m := make(map[string]struct{}, len(uids))
	for _, uid := range uids {
		m[uid] = struct{}{}
	}
	return CandidateSet{m: m}
}

// Len returns the number of members.
func (c CandidateSet) Len() int { return len(c.m) }

// Has reports membership.
func (c CandidateSet) Has(uid string) bool {
	_, ok := c.m[uid]
	return ok
}

// Union returns c ∪ o.
func (c CandidateSet) Union(o CandidateSet) CandidateSet {
	out := make(map[string]struct{}, len(c.m)+len(o.m))
	for uid := range c.m {
		out[uid] = struct{}{}
	}
	for uid := range o.m {
		out[uid] = struct{}{}
	}
	return CandidateSet{m: out}
}

// Intersect returns c ∩ o.
func (c CandidateSet) Intersect(o CandidateSet) CandidateSet {
	small, large := c, o
	if len(large.m) < len(small.m) {
		small, large = large, small
	}
	out := make(map[string]struct{})
	for uid := range small.m {
		if large.Has(uid) {
			out[uid] = struct{}{}
		}
	}
	return CandidateSet{m: out}
}

// Minus returns c − o.
func (c CandidateSet) Minus(o CandidateSet) CandidateSet {
	out := make(map[string]struct{})
	for uid := range c.m {
		if !o.Has(uid) {
			out[uid] = struct{}{}
		}
	}
	return CandidateSet{m: out}
}

// Filter returns the members for which keep is true.
func (c CandidateSet) Filter(keep func(uid string) bool) CandidateSet {
	out := make(map[string]struct{})
	for uid := range c.m {
		if keep(uid) {
			out[uid] = struct{}{}
		}
	}
	return CandidateSet{m: out}
}

// Sorted returns the members in ascending order.
func (c CandidateSet) Sorted() []string {
	out := make([]string, 0, len(c.m))
	for uid := range c.m {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}
