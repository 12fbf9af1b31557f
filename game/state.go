package game

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// State is the canonical rating profile of every account: an immutable
// sequence of integer ratings sorted in descending order. Two states with
// the same multiset of ratings compare equal regardless of which physical
// account holds which value, which is what makes it usable as a memo key —
// accounts are fungible for valuation purposes.
type State struct {
	ratings []int
	key     string
}

// NewState builds a canonical state from per-account ratings, in any order.
func NewState(ratings []int) (State, error) {
	if len(ratings) == 0 {
		return State{}, errors.New("state needs at least one account")
	}
	rs := make([]int, len(ratings))
	copy(rs, ratings)
	sort.Sort(sort.Reverse(sort.IntSlice(rs)))
	return State{ratings: rs, key: stateKey(rs)}, nil
}

// MustState is NewState for states known to be well formed, e.g. literals in
// tests and experiment setups.
func MustState(ratings ...int) State {
	s, err := NewState(ratings)
	if err != nil {
		panic(err)
	}
	return s
}

func stateKey(rs []int) string {
	var b strings.Builder
	for i, r := range rs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(r))
	}
	return b.String()
}

// ParseKey rebuilds a state from the string produced by Key.
func ParseKey(key string) (State, error) {
	fields := strings.Split(key, ",")
	rs := make([]int, 0, len(fields))
	for _, f := range fields {
		r, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return State{}, fmt.Errorf("bad state key %q: %w", key, err)
		}
		rs = append(rs, r)
	}
	return NewState(rs)
}

// Key is an exact encoding of the canonical ratings, usable as a map key.
func (s State) Key() string {
	return s.key
}

// Best is the highest current rating, i.e. what banking now is worth.
func (s State) Best() int {
	return s.ratings[0]
}

// Len is the number of accounts.
func (s State) Len() int {
	return len(s.ratings)
}

// Rating returns the rating at canonical (descending-sorted) index i.
func (s State) Rating(i int) int {
	return s.ratings[i]
}

// Ratings returns a copy of the canonical rating sequence.
func (s State) Ratings() []int {
	rs := make([]int, len(s.ratings))
	copy(rs, s.ratings)
	return rs
}

// Mean is the average rating across accounts.
func (s State) Mean() float64 {
	sum := 0
	for _, r := range s.ratings {
		sum += r
	}
	return float64(sum) / float64(len(s.ratings))
}

// AfterMatch returns the canonical state after the account at canonical
// index i wins or loses a match worth step points. The receiver is not
// modified. The index refers to the sorted position, not a persistent
// account identity; callers that track real accounts must map indices back
// themselves.
func (s State) AfterMatch(i int, won bool, step int) State {
	rs := make([]int, len(s.ratings))
	copy(rs, s.ratings)
	if won {
		rs[i] += step
	} else {
		rs[i] -= step
	}
	sort.Sort(sort.Reverse(sort.IntSlice(rs)))
	return State{ratings: rs, key: stateKey(rs)}
}

func (s State) String() string {
	return "State(" + s.key + ")"
}
