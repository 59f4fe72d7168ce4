package domain

import "sort"

// LocationStatus enumerates where a location stands within the resume state.
type LocationStatus string

const (
	StatusPending LocationStatus = "pending"
	StatusFetched LocationStatus = "fetched"
	StatusFailed  LocationStatus = "failed"
)

// Location is a single catalog entry identified by its slug.
type Location struct {
	Slug string `json:"RegionSlug"`
}

// Set is an unordered collection of location slugs.
type Set map[string]struct{}

// NewSet builds a set from the given slugs.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Add inserts item.
func (s Set) Add(item string) {
	s[item] = struct{}{}
}

// Remove deletes item if present.
func (s Set) Remove(item string) {
	delete(s, item)
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// ResumeState is the durable fetched/failed pair carried across runs.
type ResumeState struct {
	Fetched Set
	Failed  Set
}

// Status resolves a slug's lifecycle state.
func (r ResumeState) Status(slug string) LocationStatus {
	switch {
	case r.Fetched.Has(slug):
		return StatusFetched
	case r.Failed.Has(slug):
		return StatusFailed
	default:
		return StatusPending
	}
}
