package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rzzdr/option-pricing-engine/internal/pricing"
	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

var (
	style         = flag.String("style", "european", "Option style: european, american, asian or barrier")
	side          = flag.String("side", "call", "Option side: call or put")
	spot          = flag.Float64("spot", 100, "Spot price of the underlying")
	strike        = flag.Float64("strike", 100, "Strike price")
	maturity      = flag.Float64("maturity", 1, "Time to maturity in years")
	rate          = flag.Float64("rate", 0.05, "Risk-free rate")
	volatility    = flag.Float64("vol", 0.2, "Volatility")
	dividendYield = flag.Float64("dividend", 0, "Continuous dividend yield")
	numPaths      = flag.Int("paths", models.DefaultNumPaths, "Monte Carlo paths")
	numSteps      = flag.Int("steps", models.DefaultNumSteps, "Time steps per path")
	seed          = flag.Int64("seed", models.DefaultSeed, "Random seed")
	averaging     = flag.String("averaging", "", "Averaging method for asian options: arithmetic or geometric")
	barrierKind   = flag.String("barrier-kind", "", "Barrier kind: down-and-out, down-and-in, up-and-out or up-and-in")
	barrierLevel  = flag.Float64("barrier-level", 0, "Barrier level (defaults to 0.9 or 1.1 times spot)")
	withGreeks    = flag.Bool("greeks", false, "Compute Greeks alongside the price")
)

// One-shot pricer: builds a single request from flags, prices it on a
// local engine and prints the result as JSON. No broker, no server.
func main() {
	flag.Parse()

	// The result goes to stdout, so keep the logger quiet unless
	// something actually fails.
	logger.Init("error", "development")

	req := models.PricingRequest{
		Style:           models.OptionStyle(*style),
		Side:            models.OptionSide(*side),
		Spot:            *spot,
		Strike:          *strike,
		Maturity:        *maturity,
		Rate:            *rate,
		Volatility:      *volatility,
		DividendYield:   *dividendYield,
		NumPaths:        *numPaths,
		NumSteps:        *numSteps,
		Seed:            *seed,
		AveragingMethod: models.AveragingMethod(*averaging),
		BarrierKind:     models.BarrierKind(*barrierKind),
		BarrierLevel:    *barrierLevel,
		ComputeGreeks:   *withGreeks,
	}

	engine := pricing.NewEngine(pricing.EngineConfig{}, nil)
	result, err := engine.Price(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pricing failed: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encoding result failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
