// Package elo implements the club's rating formula. The arithmetic here is
// load-bearing: historical deltas were produced by exactly this sequence of
// operations, so any change to rounding, K thresholds or margin scaling would
// make old ratings unreproducible.
package elo

import "math"

const (
	// ProvisionalK applies until a player has ProvisionalLimit approved
	// matches behind them; EstablishedK applies after.
	ProvisionalK     = 32
	EstablishedK     = 16
	ProvisionalLimit = 30

	// CancelPenalty is the fixed elo amount moved from the canceller to the
	// opponent when a live match is abandoned.
	CancelPenalty = 20
)

// Deltas computes both players' rating changes for a finished match.
// priorA and priorB are each player's count of APPROVED matches excluding the
// one being resolved. Deltas may be negative, zero or positive; resulting
// ratings are not clamped.
func Deltas(eloA, eloB, scoreA, scoreB, priorA, priorB int) (int, int) {
	var actualA, actualB float64
	switch {
	case scoreA > scoreB:
		actualA, actualB = 1, 0
	case scoreB > scoreA:
		actualA, actualB = 0, 1
	default:
		actualA, actualB = 0.5, 0.5
	}

	// Expected scores are computed symmetrically rather than deriving one
	// from the other, preserving the exact floating point semantics of the
	// persisted history.
	expectedA := expected(eloA, eloB)
	expectedB := expected(eloB, eloA)

	margin := marginFactor(scoreA, scoreB)

	deltaA := round(kFactor(priorA) * (actualA - expectedA) * margin)
	deltaB := round(kFactor(priorB) * (actualB - expectedB) * margin)
	return deltaA, deltaB
}

func expected(own, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-own)/400))
}

func kFactor(priorApproved int) float64 {
	if priorApproved < ProvisionalLimit {
		return ProvisionalK
	}
	return EstablishedK
}

// marginFactor scales the delta by how lopsided the score was. Draws use an
// unscaled K: the factor is exactly 1, not sqrt(0).
func marginFactor(scoreA, scoreB int) float64 {
	diff := scoreA - scoreB
	if diff < 0 {
		diff = -diff
	}
	if diff == 0 {
		return 1
	}
	return math.Sqrt(float64(diff))
}

// round is half-away-from-zero, applied to the signed value.
func round(v float64) int {
	return int(math.Round(v))
}
