package pricing

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
)

// The payoff evaluators map a batch of simulated paths to a single
// discounted price. They never resimulate: inside the Greeks engine the
// same PricePath feeds exactly one evaluation, keeping finite
// differences aligned on common random numbers.

// europeanPayoff prices from the terminal column only. The closed form
// is the primary European pricer; this exists for cross-checks against
// it and as the vanilla leg of barrier parity.
func europeanPayoff(paths PricePath, opt models.OptionSpec) float64 {
	payoffs := make([]float64, len(paths))
	for i, row := range paths {
		payoffs[i] = opt.Intrinsic(row[len(row)-1])
	}
	return stat.Mean(payoffs, nil) * math.Exp(-opt.Rate*opt.Maturity)
}

// asianPayoff averages each path over all columns, including the spot
// column, then applies the vanilla payoff to the average
func asianPayoff(paths PricePath, opt models.OptionSpec) (float64, error) {
	payoffs := make([]float64, len(paths))
	for i, row := range paths {
		var avg float64
		switch opt.Averaging {
		case models.AveragingArithmetic:
			avg = stat.Mean(row, nil)
		case models.AveragingGeometric:
			var logSum float64
			for _, p := range row {
				logSum += math.Log(p)
			}
			avg = math.Exp(logSum / float64(len(row)))
		default:
			return 0, errors.UnsupportedErrorf("unsupported averaging method %q", string(opt.Averaging))
		}
		payoffs[i] = opt.Intrinsic(avg)
	}
	return stat.Mean(payoffs, nil) * math.Exp(-opt.Rate*opt.Maturity), nil
}

// barrierKnocked reports whether a path ever crossed the barrier. Up
// kinds knock on the running maximum, down kinds on the running minimum,
// and the whole path including the spot column is inspected.
func barrierKnocked(row []float64, kind models.BarrierKind, level float64) (bool, error) {
	switch kind {
	case models.BarrierUpAndOut, models.BarrierUpAndIn:
		return floats.Max(row) >= level, nil
	case models.BarrierDownAndOut, models.BarrierDownAndIn:
		return floats.Min(row) <= level, nil
	default:
		return false, errors.UnsupportedErrorf("unsupported barrier kind %q", string(kind))
	}
}

// barrierPayoff prices knock-in and knock-out contracts. Knocked-out
// paths pay nothing; knock-in contracts pay the vanilla terminal payoff
// only on paths that crossed the barrier.
func barrierPayoff(paths PricePath, opt models.OptionSpec) (float64, error) {
	payoffs := make([]float64, len(paths))
	for i, row := range paths {
		knocked, err := barrierKnocked(row, opt.BarrierKind, opt.BarrierLevel)
		if err != nil {
			return 0, err
		}

		if opt.BarrierKind.IsKnockIn() == knocked {
			payoffs[i] = opt.Intrinsic(row[len(row)-1])
		}
	}
	return stat.Mean(payoffs, nil) * math.Exp(-opt.Rate*opt.Maturity), nil
}
