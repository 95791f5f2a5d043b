package pricing

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/pools"
)

// lsmRegressionDegree is the default polynomial degree for the
// continuation-value regression
const lsmRegressionDegree = 2

// lsmPricer prices American options with the Longstaff-Schwartz method:
// backward induction over the path grid, estimating the continuation
// value at each step by least-squares regression of discounted future
// cash flows on a polynomial of the current price.
type lsmPricer struct {
	degree  int
	scratch *pools.Float64SlicePool
}

func newLSMPricer(degree int, scratch *pools.Float64SlicePool) *lsmPricer {
	if degree <= 0 {
		degree = lsmRegressionDegree
	}
	return &lsmPricer{
		degree:  degree,
		scratch: scratch,
	}
}

// price runs the backward induction over a simulated grid. Cash flows
// start at terminal intrinsic value; at each earlier step the in-the-money
// paths exercise when immediate intrinsic value beats the fitted
// continuation value. Steps where the regression cannot be fitted (no
// in-the-money paths, or too few for the polynomial) carry the
// discounted cash flows through unchanged.
func (l *lsmPricer) price(paths PricePath, opt models.OptionSpec) float64 {
	numSteps := len(paths[0]) - 1
	dt := opt.Maturity / float64(numSteps)
	disc := math.Exp(-opt.Rate * dt)

	cashflows := l.scratch.Get()
	for _, row := range paths {
		cashflows = append(cashflows, opt.Intrinsic(row[numSteps]))
	}

	xs := l.scratch.Get()
	ys := l.scratch.Get()
	itm := make([]int, 0, len(paths))

	for m := numSteps - 1; m >= 1; m-- {
		for i := range cashflows {
			cashflows[i] *= disc
		}

		xs = xs[:0]
		ys = ys[:0]
		itm = itm[:0]
		for i, row := range paths {
			if opt.Intrinsic(row[m]) > 0 {
				itm = append(itm, i)
				xs = append(xs, row[m])
				ys = append(ys, cashflows[i])
			}
		}

		coeffs, ok := l.fitContinuation(xs, ys)
		if !ok {
			continue
		}

		for _, i := range itm {
			intrinsic := opt.Intrinsic(paths[i][m])
			if intrinsic > polyEval(coeffs, paths[i][m]) {
				cashflows[i] = intrinsic
			}
		}
	}

	// One more discount step from t=1 back to t=0
	price := stat.Mean(cashflows, nil) * disc

	l.scratch.Put(cashflows)
	l.scratch.Put(xs)
	l.scratch.Put(ys)
	return price
}

// fitContinuation solves the least-squares polynomial fit of ys on xs.
// Returns ok=false when the system is underdetermined or numerically
// singular, in which case the caller skips exercise decisions for the
// step.
func (l *lsmPricer) fitContinuation(xs, ys []float64) ([]float64, bool) {
	cols := l.degree + 1
	if len(xs) < cols {
		return nil, false
	}

	a := mat.NewDense(len(xs), cols, nil)
	for i, x := range xs {
		v := 1.0
		for j := 0; j < cols; j++ {
			a.Set(i, j, v)
			v *= x
		}
	}

	var qr mat.QR
	qr.Factorize(a)

	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, mat.NewVecDense(len(ys), ys)); err != nil {
		return nil, false
	}

	coeffs := make([]float64, cols)
	for j := range coeffs {
		coeffs[j] = beta.AtVec(j)
	}
	return coeffs, true
}

// polyEval evaluates a polynomial with ascending coefficients at x
func polyEval(coeffs []float64, x float64) float64 {
	v := 0.0
	for j := len(coeffs) - 1; j >= 0; j-- {
		v = v*x + coeffs[j]
	}
	return v
}
