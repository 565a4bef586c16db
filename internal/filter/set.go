package filter

import "sort"

// Set is the filter payload announced with a subscription. A nil *Set
// means unfiltered. Field names follow the wire contract.
type Set struct {
	Statuses     []string `json:"statuses,omitempty"`
	TableNumbers []int    `json:"tableNumbers,omitempty"`
	MinAmount    *int     `json:"minAmount,omitempty"`
	MaxAmount    *int     `json:"maxAmount,omitempty"`
}

// BuildSet derives the subscription filter set from the UI state. Only
// dimensions the channel understands are carried; payment methods and
// the date range stay REST-side. Returns nil when nothing channel-side
// is active, which the server reads as "everything".
func BuildSet(s State) *Set {
	min, max := s.AmountBounds()

	if len(s.Statuses) == 0 && len(s.TableNumbers) == 0 && min == nil && max == nil {
		return nil
	}

	set := &Set{MinAmount: min, MaxAmount: max}
	if len(s.Statuses) > 0 {
		set.Statuses = append([]string(nil), s.Statuses...)
	}
	if len(s.TableNumbers) > 0 {
		set.TableNumbers = append([]int(nil), s.TableNumbers...)
	}
	return set
}

// Allows evaluates a candidate against the wire-level set. This is the
// serving peer's counterpart of Engine.Matches: the set carries no date
// dimension, everything else follows the same pass rules.
func (s *Set) Allows(c Candidate) bool {
	if s == nil {
		return true
	}
	if len(s.Statuses) > 0 && c.Status != "" && !containsString(s.Statuses, c.Status) {
		return false
	}
	if len(s.TableNumbers) > 0 && c.TableNumber != nil && !containsInt(s.TableNumbers, *c.TableNumber) {
		return false
	}
	if c.TotalAmount != nil {
		if s.MinAmount != nil && *c.TotalAmount < *s.MinAmount {
			return false
		}
		if s.MaxAmount != nil && *c.TotalAmount > *s.MaxAmount {
			return false
		}
	}
	return true
}

// Equal compares two filter sets structurally. Slices compare as sets
// (element order is irrelevant, nil equals empty) because they are
// built by union-ing selections; numeric bounds compare by value with
// nil meaning absent.
func (s *Set) Equal(other *Set) bool {
	if s == nil || other == nil {
		return emptySet(s) && emptySet(other)
	}
	return equalStringSets(s.Statuses, other.Statuses) &&
		equalIntSets(s.TableNumbers, other.TableNumbers) &&
		equalIntPtr(s.MinAmount, other.MinAmount) &&
		equalIntPtr(s.MaxAmount, other.MaxAmount)
}

func emptySet(s *Set) bool {
	return s == nil ||
		(len(s.Statuses) == 0 && len(s.TableNumbers) == 0 && s.MinAmount == nil && s.MaxAmount == nil)
}

func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func equalIntSets(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]int(nil), a...)
	bs := append([]int(nil), b...)
	sort.Ints(as)
	sort.Ints(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
