package pricing

import (
	"fmt"
	"strings"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
)

// ValidateRequest checks every pricing precondition before any
// simulation runs and converts the request into an immutable option
// spec plus simulation config. Numeric violations are collected and
// reported together, one message per offending field. An unrecognized
// style, side, barrier kind or averaging method fails immediately and
// is never defaulted.
func ValidateRequest(req models.PricingRequest) (models.OptionSpec, models.SimulationConfig, error) {
	var noSpec models.OptionSpec
	var noCfg models.SimulationConfig

	style, err := models.ParseOptionStyle(string(req.Style))
	if err != nil {
		return noSpec, noCfg, err
	}
	side, err := models.ParseOptionSide(string(req.Side))
	if err != nil {
		return noSpec, noCfg, err
	}

	var problems []string
	if req.Spot <= 0 {
		problems = append(problems, fmt.Sprintf("spot must be positive, got %g", req.Spot))
	}
	if req.Strike <= 0 {
		problems = append(problems, fmt.Sprintf("strike must be positive, got %g", req.Strike))
	}
	if req.Maturity < 0 {
		problems = append(problems, fmt.Sprintf("maturity must not be negative, got %g", req.Maturity))
	}
	if req.Volatility <= 0 {
		problems = append(problems, fmt.Sprintf("volatility must be positive, got %g", req.Volatility))
	}
	if req.DividendYield < 0 {
		problems = append(problems, fmt.Sprintf("dividend_yield must not be negative, got %g", req.DividendYield))
	}
	if req.NumPaths < 1 {
		problems = append(problems, fmt.Sprintf("num_paths must be at least 1, got %d", req.NumPaths))
	}
	if req.NumSteps < 1 {
		problems = append(problems, fmt.Sprintf("num_steps must be at least 1, got %d", req.NumSteps))
	}

	spec := models.OptionSpec{
		Style:         style,
		Side:          side,
		Spot:          req.Spot,
		Strike:        req.Strike,
		Maturity:      req.Maturity,
		Rate:          req.Rate,
		Volatility:    req.Volatility,
		DividendYield: req.DividendYield,
	}

	switch style {
	case models.StyleAsian:
		method, err := models.ParseAveragingMethod(string(req.AveragingMethod))
		if err != nil {
			return noSpec, noCfg, err
		}
		spec.Averaging = method

	case models.StyleBarrier:
		kind, err := models.ParseBarrierKind(string(req.BarrierKind))
		if err != nil {
			return noSpec, noCfg, err
		}
		spec.BarrierKind = kind
		spec.BarrierLevel = req.BarrierLevel

		if req.BarrierLevel <= 0 {
			problems = append(problems, fmt.Sprintf("barrier_level must be positive, got %g", req.BarrierLevel))
		} else if kind.IsUp() && req.BarrierLevel <= req.Spot {
			problems = append(problems, fmt.Sprintf("barrier_level must be above spot for %s, got %g", kind, req.BarrierLevel))
		} else if !kind.IsUp() && req.BarrierLevel >= req.Spot {
			problems = append(problems, fmt.Sprintf("barrier_level must be below spot for %s, got %g", kind, req.BarrierLevel))
		}
	}

	if len(problems) > 0 {
		return noSpec, noCfg, errors.InvalidParameterError(strings.Join(problems, "; "))
	}

	cfg := models.SimulationConfig{
		NumPaths: req.NumPaths,
		NumSteps: req.NumSteps,
		Seed:     req.Seed,
	}
	return spec, cfg, nil
}
