package optimizer

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// column extracts symbol's daily return series from the returns matrix.
func column(in Inputs, idx int) []float64 {
	out := make([]float64, len(in.Returns))
	for i, row := range in.Returns {
		out[i] = row[idx]
	}
	return out
}

// meanVector returns the per-symbol sample mean daily return, in
// in.Symbols order.
func meanVector(in Inputs) []float64 {
	out := make([]float64, len(in.Symbols))
	for i := range in.Symbols {
		out[i] = stat.Mean(column(in, i), nil)
	}
	return out
}

// volVector returns the per-symbol sample daily standard deviation.
func volVector(in Inputs) []float64 {
	out := make([]float64, len(in.Symbols))
	for i := range in.Symbols {
		out[i] = stat.StdDev(column(in, i), nil)
	}
	return out
}

// covarianceMatrix builds the sample daily covariance matrix over the
// columns of the returns panel.
func covarianceMatrix(in Inputs) *mat.SymDense {
	n := len(in.Symbols)
	data := make([]float64, len(in.Returns)*n)
	for r, row := range in.Returns {
		copy(data[r*n:(r+1)*n], row)
	}
	obs := mat.NewDense(len(in.Returns), n, data)
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, obs, nil)
	return &cov
}

// weightVector orders a symbol->weight map into in.Symbols order.
func weightVector(in Inputs, weights map[string]float64) []float64 {
	out := make([]float64, len(in.Symbols))
	for i, s := range in.Symbols {
		out[i] = weights[s]
	}
	return out
}

// portfolioVariance computes wᵀΣw.
func portfolioVariance(w []float64, cov *mat.SymDense) float64 {
	n := len(w)
	var v float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v += w[i] * w[j] * cov.At(i, j)
		}
	}
	return v
}

// computeMetrics builds the annualized Result for a finalized weight
// map, applying the once-only annualization rule.
func computeMetrics(in Inputs, weights map[string]float64) *Result {
	mu := meanVector(in)
	vol := volVector(in)
	cov := covarianceMatrix(in)
	w := weightVector(in, weights)

	var retDaily float64
	for i := range w {
		retDaily += w[i] * mu[i]
	}
	varDaily := portfolioVariance(w, cov)
	volDaily := math.Sqrt(math.Max(varDaily, 0))

	retAnnual := retDaily * 252
	volAnnual := volDaily * math.Sqrt(252)

	var sharpe float64
	if volAnnual == 0 {
		sharpe = math.NaN()
	} else {
		sharpe = (retAnnual - in.RiskFreeAnnual) / volAnnual
	}

	var weightedVolSum float64
	for i := range w {
		weightedVolSum += w[i] * vol[i]
	}
	var diversification float64
	if volDaily == 0 {
		diversification = math.NaN()
	} else {
		diversification = weightedVolSum / volDaily
	}

	riskContrib := make(map[string]float64, len(in.Symbols))
	if varDaily > 0 {
		n := len(w)
		for i, sym := range in.Symbols {
			var marginal float64
			for j := 0; j < n; j++ {
				marginal += cov.At(i, j) * w[j]
			}
			riskContrib[sym] = (w[i] * marginal) / varDaily
		}
	} else {
		for _, sym := range in.Symbols {
			riskContrib[sym] = 0
		}
	}

	return &Result{
		Weights:                  weights,
		ExpectedReturnAnnual:     retAnnual,
		ExpectedVolatilityAnnual: volAnnual,
		SharpeRatio:              sharpe,
		DiversificationRatio:     diversification,
		RiskContributions:        riskContrib,
	}
}
