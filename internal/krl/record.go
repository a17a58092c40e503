package krl

import (
	"math/big"

	"github.com/roach88/krystal/internal/canon"
)

// Record is the JSON view of a decoded locator. Absent fields are null.
type Record struct {
	Kind         Kind        `json:"kind"`
	URL          string      `json:"url"`
	ArtifactHash *string     `json:"artifactHash"`
	Pulse        *big.Int    `json:"pulse"`
	Beat         *big.Int    `json:"beat"`
	StepIndex    *big.Int    `json:"stepIndex"`
	Payload      canon.Value `json:"payload"`
}

// Record returns the JSON view of d.
func (d Decoded) Record() Record {
	r := Record{
		Kind:         d.Kind,
		URL:          d.URL,
		ArtifactHash: d.ArtifactHash,
		Pulse:        d.Pulse,
		Beat:         d.Beat,
		StepIndex:    d.StepIndex,
	}
	if d.Payload != nil {
		r.Payload = d.Payload
	}
	return r
}
