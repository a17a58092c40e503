// Package kks implements the KKS-1.0 coordinate engine: a pure integer
// mapping from a pulse counter onto the fixed day/beat/step grid.
//
// No floating point is used anywhere. The pulse and its micro-pulse product
// are arbitrary precision; every value derived from the remainder fits in
// int64 (rMu < N_DAY_MU and rMu*GridPulsesPerDay < 2^49).
package kks

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/roach88/krystal/internal/kerr"
)

// KKS-1.0 constants.
const (
	Micro         = 1_000_000
	NDayMu        = 17_491_270_421
	BeatsPerDay   = 36
	StepsPerBeat  = 44
	PulsesPerStep = 11

	GridPulsesPerBeat = StepsPerBeat * PulsesPerStep    // 484
	GridPulsesPerDay  = BeatsPerDay * GridPulsesPerBeat // 17_424
)

var (
	bigMicro  = big.NewInt(Micro)
	bigNDayMu = big.NewInt(NDayMu)
)

// Coord is the KKS-1.0 coordinate derived from a pulse.
// Pulse and DayIndex are private copies; callers may not mutate them
// through the accessors.
type Coord struct {
	pulse       *big.Int
	dayIndex    *big.Int
	Beat        int
	StepIndex   int
	PulseInStep int
	GridIndex   int
	RMu         int64
}

// Pulse returns a copy of the input pulse.
func (c Coord) Pulse() *big.Int {
	return new(big.Int).Set(c.pulse)
}

// DayIndex returns a copy of the day index.
func (c Coord) DayIndex() *big.Int {
	return new(big.Int).Set(c.dayIndex)
}

// Kairos returns the 0-based "BB:SS:PP" display label.
func (c Coord) Kairos() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Beat, c.StepIndex, c.PulseInStep)
}

// Matches reports whether a claimed (beat, stepIndex) pair equals the
// derived one. A nil claim never matches.
func (c Coord) Matches(beat, stepIndex *big.Int) bool {
	if beat == nil || stepIndex == nil {
		return false
	}
	return beat.IsInt64() && beat.Int64() == int64(c.Beat) &&
		stepIndex.IsInt64() && stepIndex.Int64() == int64(c.StepIndex)
}

// Derive computes the KKS-1.0 coordinate for a non-negative pulse.
// Fails with an invalid-argument error if pulse is nil or negative.
func Derive(pulse *big.Int) (Coord, error) {
	if pulse == nil {
		return Coord{}, kerr.New(kerr.KindInvalidArgument, "pulse must be an integer")
	}
	if pulse.Sign() < 0 {
		return Coord{}, kerr.New(kerr.KindInvalidArgument, "pulse must be non-negative: %s", pulse.String())
	}

	p := new(big.Int).Set(pulse)
	pMu := new(big.Int).Mul(p, bigMicro)

	// Both operands are non-negative, so truncated and floored division agree.
	dayIndex, rem := new(big.Int).QuoRem(pMu, bigNDayMu, new(big.Int))
	rMu := rem.Int64()

	gridIndex := int((rMu * GridPulsesPerDay) / NDayMu)

	return Coord{
		pulse:       p,
		dayIndex:    dayIndex,
		Beat:        gridIndex / GridPulsesPerBeat,
		StepIndex:   (gridIndex % GridPulsesPerBeat) / PulsesPerStep,
		PulseInStep: gridIndex % PulsesPerStep,
		GridIndex:   gridIndex,
		RMu:         rMu,
	}, nil
}

// DeriveInt64 is Derive for pulses that fit in int64.
func DeriveInt64(pulse int64) (Coord, error) {
	return Derive(big.NewInt(pulse))
}

// MustDerive is like DeriveInt64 but panics on error.
// Use only in tests or when the pulse is known to be valid.
func MustDerive(pulse int64) Coord {
	c, err := DeriveInt64(pulse)
	if err != nil {
		panic(err)
	}
	return c
}

// ParsePulse parses a base-10 pulse of arbitrary length.
// Fails with an invalid-argument error on negative or non-integer text.
func ParsePulse(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, kerr.New(kerr.KindInvalidArgument, "pulse must be an integer")
	}
	for i, r := range s {
		if r == '-' && i == 0 {
			continue
		}
		if r == '+' && i == 0 {
			continue
		}
		if r < '0' || r > '9' {
			return nil, kerr.New(kerr.KindInvalidArgument, "pulse must be an integer: %q", s)
		}
	}
	p, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, kerr.New(kerr.KindInvalidArgument, "pulse must be an integer: %q", s)
	}
	if p.Sign() < 0 {
		return nil, kerr.New(kerr.KindInvalidArgument, "pulse must be non-negative: %s", s)
	}
	return p, nil
}

// Record is the JSON view of a coordinate. Pulse, DayIndex and RMu are
// emitted as JSON numbers of arbitrary length.
type Record struct {
	Pulse       *big.Int `json:"pulse"`
	DayIndex    *big.Int `json:"dayIndex"`
	Beat        int      `json:"beat"`
	StepIndex   int      `json:"stepIndex"`
	PulseInStep int      `json:"pulseInStep"`
	GridIndex   int      `json:"gridIndex"`
	RMu         int64    `json:"rMu"`
	Kairos      string   `json:"kairos"`
}

// Record returns the JSON view of c.
func (c Coord) Record() Record {
	return Record{
		Pulse:       c.Pulse(),
		DayIndex:    c.DayIndex(),
		Beat:        c.Beat,
		StepIndex:   c.StepIndex,
		PulseInStep: c.PulseInStep,
		GridIndex:   c.GridIndex,
		RMu:         c.RMu,
		Kairos:      c.Kairos(),
	}
}
