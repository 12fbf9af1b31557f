package game

import "math"

// Default model parameters. A ranked match moves the played account by
// DefaultStep points, and the win probability decays linearly around the
// player's true strength DefaultMu with slope DefaultK.
const (
	DefaultStep = 16
	DefaultMu   = 1500.0
)

var DefaultK = 1.0 / 800.0

// Parameters bundles the rating model constants for one computation. The
// zero value is not usable; construct with DefaultParameters or fill every
// field explicitly.
type Parameters struct {
	Step int     // rating points gained or lost per match
	K    float64 // slope of the linear win probability model
	Mu   float64 // equilibrium rating (50% win probability)
}

func DefaultParameters() Parameters {
	return Parameters{Step: DefaultStep, K: DefaultK, Mu: DefaultMu}
}

// WinProb returns the probability of winning a match at the given rating:
// p = 0.5 - K*(rating - Mu), clamped to [0, 1]. Higher ratings face harder
// opponents, so p is non-increasing in rating.
func (p Parameters) WinProb(rating int) float64 {
	w := 0.5 - p.K*(float64(rating)-p.Mu)
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

// SnapRating maps an arbitrary real-valued rating onto the nearest rating
// reachable from Mu in whole Step increments.
func (p Parameters) SnapRating(rating float64) int {
	return int(math.Round(GridToRating(RatingToGrid(rating, p.Mu, p.Step), p.Mu, p.Step)))
}

// RatingToGrid converts a real-valued rating into the number of whole steps
// it sits above (positive) or below (negative) the baseline mu.
func RatingToGrid(rating, mu float64, step int) int {
	return int(math.Round((rating - mu) / float64(step)))
}

// GridToRating is the inverse of RatingToGrid: mu + step*i. Converting a
// rating to the grid and back is idempotent once on the grid.
func GridToRating(i int, mu float64, step int) float64 {
	return mu + float64(step*i)
}
