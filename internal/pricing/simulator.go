package pricing

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
)

// PricePath is a grid of simulated underlying prices with one row per
// path and one column per time step. Column 0 holds the spot price for
// every row, so a simulation with M steps produces M+1 columns.
type PricePath [][]float64

// Simulator generates price trajectories under risk-neutral geometric
// Brownian motion. Each Simulator owns its random source: Reset restores
// the source to a known seed so repeated simulations replay the exact
// draw sequence, which is what makes common-random-number Greeks work.
type Simulator struct {
	src    rand.Source
	normal distuv.Normal
}

// NewSimulator creates a simulator seeded with the given value
func NewSimulator(seed int64) *Simulator {
	src := rand.NewSource(uint64(seed))
	return &Simulator{
		src:    src,
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
}

// Reset restores the random source to its initial state for the seed.
// Two simulations bracketing a Reset with the same seed produce
// bit-identical paths.
func (s *Simulator) Reset(seed int64) {
	s.src.Seed(uint64(seed))
}

// Simulate produces cfg.NumPaths independent trajectories of the
// underlying, each discretized over cfg.NumSteps equal time steps:
//
//	S(t+dt) = S(t) * exp((r - q - sigma^2/2)*dt + sigma*sqrt(dt)*Z)
//
// with one fresh standard normal draw per path per step. The caller is
// responsible for seeding via Reset when draw reproducibility matters.
func (s *Simulator) Simulate(spot, maturity, rate, sigma, dividendYield float64, cfg models.SimulationConfig) PricePath {
	dt := maturity / float64(cfg.NumSteps)
	drift := (rate - dividendYield - 0.5*sigma*sigma) * dt
	diffusion := sigma * math.Sqrt(dt)

	paths := make(PricePath, cfg.NumPaths)
	for i := range paths {
		row := make([]float64, cfg.NumSteps+1)
		row[0] = spot
		for m := 1; m <= cfg.NumSteps; m++ {
			row[m] = row[m-1] * math.Exp(drift+diffusion*s.normal.Rand())
		}
		paths[i] = row
	}
	return paths
}
