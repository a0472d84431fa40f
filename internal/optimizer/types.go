// Package optimizer implements the seven portfolio-construction
// methods, operating on a returns matrix (rows = bars, columns =
// selected symbols): equal weight, inverse volatility, minimum
// variance, maximum Sharpe, risk parity, maximum diversification, and
// hierarchical risk parity.
package optimizer

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Method selects one of the seven allocation methods.
type Method string

const (
	EqualWeight           Method = "equal_weight"
	InverseVolatility     Method = "inverse_volatility"
	MinimumVariance       Method = "minimum_variance"
	MaximumSharpe         Method = "maximum_sharpe"
	RiskParity            Method = "risk_parity"
	MaximumDiversification Method = "maximum_diversification"
	HierarchicalRiskParity Method = "hierarchical_risk_parity"
)

func (m Method) Valid() bool {
	switch m {
	case EqualWeight, InverseVolatility, MinimumVariance, MaximumSharpe,
		RiskParity, MaximumDiversification, HierarchicalRiskParity:
		return true
	}
	return false
}

// Constraints bounds every weight produced by an optimizer.
type Constraints struct {
	MinWeight float64 // default 0
	MaxWeight float64 // default 1
}

// Validate surfaces a configuration error at construction.
func (c Constraints) Validate() error {
	if c.MinWeight < 0 || c.MaxWeight > 1 || c.MinWeight > c.MaxWeight {
		return fmt.Errorf("optimizer: invalid constraints min=%f max=%f", c.MinWeight, c.MaxWeight)
	}
	return nil
}

// InfeasibleConstraintsError is returned when bound-clamping cannot be
// renormalized to sum to 1 (e.g. N*max_weight < 1).
type InfeasibleConstraintsError struct {
	N         int
	MinWeight float64
	MaxWeight float64
}

func (e *InfeasibleConstraintsError) Error() string {
	return fmt.Sprintf("optimizer: constraints infeasible for %d assets with bounds [%f, %f]", e.N, e.MinWeight, e.MaxWeight)
}

// Result is the per-method optimization output: weights plus the
// resulting portfolio's annualized return, volatility, and Sharpe ratio.
type Result struct {
	Weights                  map[string]float64
	ExpectedReturnAnnual     float64
	ExpectedVolatilityAnnual float64
	SharpeRatio              float64
	DiversificationRatio     float64
	RiskContributions        map[string]float64
	FellBackToEqualWeight    bool
}

// Inputs bundles the returns matrix and ancillary parameters shared by
// every method.
type Inputs struct {
	Symbols         []string    // ordered; defines column order of Returns
	Returns         [][]float64 // rows = bars, columns = symbols
	RiskFreeAnnual  float64
	Constraints     Constraints
}

// Optimize dispatches to the requested method, falling back to equal
// weight with a logged warning on any numerical failure so the backtest
// can continue with a documented degradation.
func Optimize(method Method, in Inputs, log zerolog.Logger) (*Result, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("optimizer: unknown method %q", method)
	}
	if err := in.Constraints.Validate(); err != nil {
		return nil, err
	}
	if len(in.Symbols) == 0 {
		return nil, fmt.Errorf("optimizer: no symbols provided")
	}

	var weights map[string]float64
	var err error

	switch method {
	case EqualWeight:
		weights = equalWeight(in.Symbols)
	case InverseVolatility:
		weights, err = inverseVolatility(in)
	case MinimumVariance:
		weights, err = minimumVariance(in)
	case MaximumSharpe:
		weights, err = maximumSharpe(in)
	case RiskParity:
		weights, err = riskParity(in)
	case MaximumDiversification:
		weights, err = maximumDiversification(in)
	case HierarchicalRiskParity:
		weights, err = hierarchicalRiskParity(in)
	}

	fellBack := false
	if err != nil {
		log.Warn().Err(err).Str("method", string(method)).Msg("optimizer failed to converge, falling back to equal weight")
		weights = equalWeight(in.Symbols)
		fellBack = true
	}

	weights, err = clampAndRenormalize(weights, in.Constraints)
	if err != nil {
		return nil, err
	}

	result := computeMetrics(in, weights)
	result.FellBackToEqualWeight = fellBack
	return result, nil
}
