package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a malformed prediction or out-of-range confidence.
	// The offending prediction is dropped; the scan continues.
	ErrInvalidInput = errors.New("invalid input")

	// ErrQuorumNotMet means too few bots responded for an asset. The
	// recommendation for that asset is suppressed; the scan continues.
	ErrQuorumNotMet = errors.New("quorum not met")

	// ErrNeutralConsensus means the council tied. NEUTRAL carries no direction
	// to price levels for, so the recommendation is suppressed.
	ErrNeutralConsensus = errors.New("neutral consensus")

	// ErrInvalidLevels means synthesized TP/SL violate the ordering invariant.
	ErrInvalidLevels = errors.New("invalid levels")

	// ErrRateLimited means the token bucket rejected a call after bounded retry.
	ErrRateLimited = errors.New("rate limited")
)

// AbstainError wraps the cause of a bot abstention (timeout, evaluator error).
// An abstention is a missing vote, never a scan failure; the wrapper exists so
// the cause survives into logs.
type AbstainError struct {
	BotID string
	Cause error
}

func (e *AbstainError) Error() string {
	return fmt.Sprintf("bot %s abstained: %v", e.BotID, e.Cause)
}

func (e *AbstainError) Unwrap() error { return e.Cause }
