// Package aggregation collapses per-chunk verdicts into a conversation-level
// result. Every aggregator is a pure function of its input.
package aggregation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/JaimeStill/emoclassify/internal/oracle"
)

// DefaultAvgNumChunks is the sampling density assumed by the adjusted mode.
const DefaultAvgNumChunks = 20

var (
	ErrUnknownMode = errors.New("unknown aggregation mode")
	// ErrInvalidSampleSize is a configuration error for a non-positive avg_num_chunks.
	ErrInvalidSampleSize = errors.New("avg_num_chunks must be positive")
)

// Mode selects an aggregator.
type Mode string

const (
	ModeRaw      Mode = "raw"
	ModeAny      Mode = "any"
	ModeAdjusted Mode = "adjusted"
)

var modes = []Mode{ModeRaw, ModeAny, ModeAdjusted}

// Modes returns the supported aggregation modes.
func Modes() []Mode {
	return slices.Clone(modes)
}

// ParseMode validates s as a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !slices.Contains(modes, m) {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

// Raw maps each chunk to whether its verdict was yes.
func Raw(verdicts map[int]oracle.Verdict) map[int]bool {
	out := make(map[int]bool, len(verdicts))
	for id, v := range verdicts {
		out[id] = v == oracle.Yes
	}
	return out
}

// Any reports whether at least one verdict is yes.
func Any(verdicts map[int]oracle.Verdict) bool {
	for _, v := range verdicts {
		if v == oracle.Yes {
			return true
		}
	}
	return false
}

// Adjusted estimates the probability that a sample of avgNumChunks chunks,
// drawn without replacement from the observed verdicts, contains at least
// one yes.
func Adjusted(verdicts map[int]oracle.Verdict, avgNumChunks int) (float64, error) {
	if avgNumChunks <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidSampleSize, avgNumChunks)
	}

	n := len(verdicts)
	t := 0
	for _, v := range verdicts {
		if v == oracle.Yes {
			t++
		}
	}

	if avgNumChunks > n {
		if t > 0 {
			return 1, nil
		}
		return 0, nil
	}

	if t == 0 {
		return 0, nil
	}

	f := n - t
	k := avgNumChunks
	if f < k {
		// C(f, k) = 0: every sample of size k contains a yes.
		return 1, nil
	}

	allNo := new(big.Rat).SetFrac(
		new(big.Int).Binomial(int64(f), int64(k)),
		new(big.Int).Binomial(int64(n), int64(k)),
	)
	p, _ := allNo.Float64()

	return min(max(1-p, 0), 1), nil
}

// Aggregator applies one mode with its parameters.
type Aggregator struct {
	Mode         Mode
	AvgNumChunks int
}

// New validates mode and its parameters up front so configuration errors
// surface before any oracle call is made.
func New(mode Mode, avgNumChunks int) (Aggregator, error) {
	if !slices.Contains(modes, mode) {
		return Aggregator{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if mode == ModeAdjusted && avgNumChunks <= 0 {
		return Aggregator{}, fmt.Errorf("%w: got %d", ErrInvalidSampleSize, avgNumChunks)
	}
	return Aggregator{Mode: mode, AvgNumChunks: avgNumChunks}, nil
}

// Aggregate collapses verdicts according to the aggregator's mode.
func (a Aggregator) Aggregate(verdicts map[int]oracle.Verdict) (Result, error) {
	switch a.Mode {
	case ModeRaw:
		return Result{Mode: ModeRaw, Chunks: Raw(verdicts)}, nil
	case ModeAny:
		return Result{Mode: ModeAny, Present: Any(verdicts)}, nil
	case ModeAdjusted:
		p, err := Adjusted(verdicts, a.AvgNumChunks)
		if err != nil {
			return Result{}, err
		}
		return Result{Mode: ModeAdjusted, Probability: p}, nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMode, a.Mode)
	}
}

// Result is an aggregate tagged by the mode that produced it. Only the field
// matching Mode is meaningful.
type Result struct {
	Mode        Mode
	Present     bool
	Chunks      map[int]bool
	Probability float64
}

// Value returns the mode's payload: a bool, a map of chunk id to bool, or a float.
func (r Result) Value() any {
	switch r.Mode {
	case ModeRaw:
		if r.Chunks == nil {
			return map[int]bool{}
		}
		return r.Chunks
	case ModeAdjusted:
		return r.Probability
	default:
		return r.Present
	}
}

// Truthy reports whether the result indicates presence. Adjusted results are
// truthy when their probability is positive.
func (r Result) Truthy() bool {
	switch r.Mode {
	case ModeRaw:
		for _, v := range r.Chunks {
			if v {
				return true
			}
		}
		return false
	case ModeAdjusted:
		return r.Probability > 0
	default:
		return r.Present
	}
}

// MarshalJSON encodes the bare payload.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value())
}
