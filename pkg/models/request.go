package models

import (
	"time"

	"github.com/google/uuid"
)

// Default simulation parameters applied when a request omits them
const (
	DefaultNumPaths = 10000
	DefaultNumSteps = 252
	DefaultSeed     = 42
)

// Multipliers used to place a barrier when the request omits the level
const (
	DefaultDownBarrierRatio = 0.9
	DefaultUpBarrierRatio   = 1.1
)

// A single pricing request as it arrives over the API or the request topic
type PricingRequest struct {
	ID            string      `json:"id,omitempty"`
	Style         OptionStyle `json:"style"`
	Side          OptionSide  `json:"side"`
	Spot          float64     `json:"spot"`
	Strike        float64     `json:"strike"`
	Maturity      float64     `json:"maturity"`
	Rate          float64     `json:"rate"`
	Volatility    float64     `json:"volatility"`
	DividendYield float64     `json:"dividend_yield"`

	NumPaths int   `json:"num_paths,omitempty"`
	NumSteps int   `json:"num_steps,omitempty"`
	Seed     int64 `json:"seed,omitempty"`

	AveragingMethod AveragingMethod `json:"averaging_method,omitempty"`
	BarrierKind     BarrierKind     `json:"barrier_kind,omitempty"`
	BarrierLevel    float64         `json:"barrier_level,omitempty"`

	ComputeGreeks bool `json:"compute_greeks"`

	SubmittedAt time.Time `json:"submitted_at,omitempty"`
}

// EnsureID assigns a fresh request ID if none was supplied
func (r *PricingRequest) EnsureID() {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
}

// ApplyDefaults fills in omitted simulation parameters and barrier level.
// The resolved values are echoed back in the result so callers see what
// was actually priced.
func (r *PricingRequest) ApplyDefaults() {
	if r.NumPaths <= 0 {
		r.NumPaths = DefaultNumPaths
	}
	if r.NumSteps <= 0 {
		r.NumSteps = DefaultNumSteps
	}
	if r.Seed <= 0 {
		r.Seed = DefaultSeed
	}
	if r.Style == StyleAsian && r.AveragingMethod == "" {
		r.AveragingMethod = AveragingArithmetic
	}
	if r.Style == StyleBarrier && r.BarrierLevel == 0 && r.Spot > 0 {
		if r.BarrierKind.IsUp() {
			r.BarrierLevel = r.Spot * DefaultUpBarrierRatio
		} else {
			r.BarrierLevel = r.Spot * DefaultDownBarrierRatio
		}
	}
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now()
	}
}

// Names accepted by the sweep endpoint for the swept parameter
const (
	SweepSpot          = "spot"
	SweepStrike        = "strike"
	SweepMaturity      = "maturity"
	SweepRate          = "rate"
	SweepVolatility    = "volatility"
	SweepDividendYield = "dividend_yield"
)

// A request to price a contract repeatedly while one parameter moves
// across an inclusive range
type SweepRequest struct {
	Request   PricingRequest `json:"request"`
	Parameter string         `json:"parameter"`
	Min       float64        `json:"min"`
	Max       float64        `json:"max"`
	Points    int            `json:"points"`
}
