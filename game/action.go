package game

import "strconv"

// Action is a decision at one turn: either the canonical index of the
// account to play, or Stop to bank the current best rating.
type Action int

// Stop ends the run and keeps the highest current rating as the result.
const Stop Action = -1

func (a Action) IsStop() bool {
	return a < 0
}

// Index returns the canonical account index. Panics on Stop; check IsStop
// first.
func (a Action) Index() int {
	if a.IsStop() {
		panic("Stop action has no account index")
	}
	return int(a)
}

func (a Action) String() string {
	if a.IsStop() {
		return "stop"
	}
	return "play account " + strconv.Itoa(int(a))
}
