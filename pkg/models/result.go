package models

import "time"

// The Greeks for an option contract
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// Creates a new Greeks object
func NewGreeks(delta, gamma, vega, theta, rho float64) *Greeks {
	return &Greeks{
		Delta: delta,
		Gamma: gamma,
		Vega:  vega,
		Theta: theta,
		Rho:   rho,
	}
}

// The outcome of a single pricing request. Parameters echoes the input
// with defaults resolved, for provenance rather than recomputation.
type PricingResult struct {
	RequestID  string         `json:"request_id"`
	Price      float64        `json:"price"`
	Greeks     *Greeks        `json:"greeks,omitempty"`
	Parameters PricingRequest `json:"parameters"`
	ComputedAt time.Time      `json:"computed_at"`
	ElapsedMs  float64        `json:"elapsed_ms"`
}

// One evaluated point of a parameter sweep
type SweepPoint struct {
	Value  float64 `json:"value"`
	Price  float64 `json:"price"`
	Greeks *Greeks `json:"greeks,omitempty"`
}

// The outcome of a parameter sweep
type SweepResult struct {
	RequestID  string       `json:"request_id"`
	Parameter  string       `json:"parameter"`
	Points     []SweepPoint `json:"points"`
	ComputedAt time.Time    `json:"computed_at"`
	ElapsedMs  float64      `json:"elapsed_ms"`
}
