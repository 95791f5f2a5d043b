package models

import (
	"strings"

	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
)

// Defines the exercise style of an option
type OptionStyle string

const (
	StyleEuropean OptionStyle = "european"
	StyleAmerican OptionStyle = "american"
	StyleAsian    OptionStyle = "asian"
	StyleBarrier  OptionStyle = "barrier"
)

// Defines the side of an option
type OptionSide string

const (
	SideCall OptionSide = "call"
	SidePut  OptionSide = "put"
)

// Defines how an Asian option averages the underlying price
type AveragingMethod string

const (
	AveragingArithmetic AveragingMethod = "arithmetic"
	AveragingGeometric  AveragingMethod = "geometric"
)

// Defines the knock behaviour of a barrier option
type BarrierKind string

const (
	BarrierDownAndOut BarrierKind = "down-and-out"
	BarrierDownAndIn  BarrierKind = "down-and-in"
	BarrierUpAndOut   BarrierKind = "up-and-out"
	BarrierUpAndIn    BarrierKind = "up-and-in"
)

// ParseOptionStyle converts a wire string into an OptionStyle
func ParseOptionStyle(s string) (OptionStyle, error) {
	switch style := OptionStyle(strings.ToLower(s)); style {
	case StyleEuropean, StyleAmerican, StyleAsian, StyleBarrier:
		return style, nil
	default:
		return "", errors.UnsupportedErrorf("unsupported option style %q", s)
	}
}

// ParseOptionSide converts a wire string into an OptionSide
func ParseOptionSide(s string) (OptionSide, error) {
	switch side := OptionSide(strings.ToLower(s)); side {
	case SideCall, SidePut:
		return side, nil
	default:
		return "", errors.UnsupportedErrorf("unsupported option side %q", s)
	}
}

// ParseAveragingMethod converts a wire string into an AveragingMethod
func ParseAveragingMethod(s string) (AveragingMethod, error) {
	switch method := AveragingMethod(strings.ToLower(s)); method {
	case AveragingArithmetic, AveragingGeometric:
		return method, nil
	default:
		return "", errors.UnsupportedErrorf("unsupported averaging method %q", s)
	}
}

// ParseBarrierKind converts a wire string into a BarrierKind
func ParseBarrierKind(s string) (BarrierKind, error) {
	switch kind := BarrierKind(strings.ToLower(s)); kind {
	case BarrierDownAndOut, BarrierDownAndIn, BarrierUpAndOut, BarrierUpAndIn:
		return kind, nil
	default:
		return "", errors.UnsupportedErrorf("unsupported barrier kind %q", s)
	}
}

// IsUp reports whether the barrier sits above the spot price
func (k BarrierKind) IsUp() bool {
	return k == BarrierUpAndOut || k == BarrierUpAndIn
}

// IsKnockIn reports whether crossing the barrier activates the option
func (k BarrierKind) IsKnockIn() bool {
	return k == BarrierDownAndIn || k == BarrierUpAndIn
}

// An immutable description of a single option contract
type OptionSpec struct {
	Style         OptionStyle
	Side          OptionSide
	Spot          float64
	Strike        float64
	Maturity      float64
	Rate          float64
	Volatility    float64
	DividendYield float64

	// Asian only
	Averaging AveragingMethod

	// Barrier only
	BarrierKind  BarrierKind
	BarrierLevel float64
}

// Controls the Monte Carlo discretization and random stream
type SimulationConfig struct {
	NumPaths int
	NumSteps int
	Seed     int64
}

// Intrinsic returns the exercise value of the option at price s
func (o OptionSpec) Intrinsic(s float64) float64 {
	if o.Side == SideCall {
		if s > o.Strike {
			return s - o.Strike
		}
		return 0
	}
	if o.Strike > s {
		return o.Strike - s
	}
	return 0
}
