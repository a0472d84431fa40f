package optimizer

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// hierarchicalRiskParity implements the HRP method: correlation-distance
// clustering followed by recursive bisection, so weights come from the
// covariance structure alone and no expected returns are estimated.
// Falls back to equal weight if fewer than 3 assets are given or
// clustering fails.
func hierarchicalRiskParity(in Inputs) (map[string]float64, error) {
	n := len(in.Symbols)
	if n < 3 {
		return equalWeight(in.Symbols), nil
	}

	cov := covarianceMatrix(in)
	order := singleLinkageOrder(correlationDistance(cov))
	if len(order) != n {
		return equalWeight(in.Symbols), nil
	}

	weights := bisectionWeights(cov, order)
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if !(sum > 0) || math.IsInf(sum, 0) {
		return equalWeight(in.Symbols), nil
	}

	out := make(map[string]float64, n)
	for i, sym := range in.Symbols {
		out[sym] = weights[i] / sum
	}
	return out, nil
}

// correlationDistance converts a covariance matrix into the distance
// matrix d_ij = √((1-ρ_ij)/2), where ρ is the implied correlation. A
// zero-variance asset is treated as uncorrelated with everything else.
func correlationDistance(cov *mat.SymDense) *mat.SymDense {
	n, _ := cov.Dims()
	dist := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			rho := 0.0
			if denom := math.Sqrt(cov.At(i, i) * cov.At(j, j)); denom > 0 {
				rho = cov.At(i, j) / denom
			}
			dist.SetSym(i, j, math.Sqrt(math.Max(0, (1-rho)/2)))
		}
	}
	return dist
}

// singleLinkageOrder agglomerates singleton clusters under single
// linkage until one remains, and returns that cluster's member order.
// Because each merge concatenates the later cluster onto the earlier
// one, the final order places correlated assets adjacently, which is
// exactly the quasi-diagonalization recursive bisection needs. The
// cluster list stays sorted by lowest member and ties resolve to the
// first pair scanned, keeping the result deterministic.
func singleLinkageOrder(dist *mat.SymDense) []int {
	n, _ := dist.Dims()
	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}

	linkage := func(a, b []int) float64 {
		nearest := math.Inf(1)
		for _, i := range a {
			for _, j := range b {
				if d := dist.At(i, j); d < nearest {
					nearest = d
				}
			}
		}
		return nearest
	}

	for len(clusters) > 1 {
		mergeInto, mergeFrom := -1, -1
		closest := math.Inf(1)
		for i := range clusters {
			for j := i + 1; j < len(clusters); j++ {
				if d := linkage(clusters[i], clusters[j]); d < closest {
					mergeInto, mergeFrom, closest = i, j, d
				}
			}
		}
		clusters[mergeInto] = append(clusters[mergeInto], clusters[mergeFrom]...)
		clusters = append(clusters[:mergeFrom], clusters[mergeFrom+1:]...)
	}
	return clusters[0]
}

// bisectionWeights allocates capital down the quasi-diagonal order: a
// segment's weight is split between its two halves in inverse
// proportion to each half's inverse-variance-portfolio variance, and
// the split repeats until every segment is a single asset. The
// recursion is expressed as an explicit work stack.
func bisectionWeights(cov *mat.SymDense, order []int) []float64 {
	n, _ := cov.Dims()
	weights := make([]float64, n)

	type segment struct {
		members []int
		weight  float64
	}
	pending := []segment{{members: order, weight: 1.0}}
	for len(pending) > 0 {
		seg := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if len(seg.members) == 1 {
			weights[seg.members[0]] = seg.weight
			continue
		}

		half := len(seg.members) / 2
		first, second := seg.members[:half], seg.members[half:]
		vFirst := segmentVariance(cov, first)
		vSecond := segmentVariance(cov, second)
		share := 0.5
		if total := vFirst + vSecond; total > 0 {
			share = vSecond / total
		}
		pending = append(pending,
			segment{members: first, weight: seg.weight * share},
			segment{members: second, weight: seg.weight * (1 - share)},
		)
	}
	return weights
}

// segmentVariance is the variance of a segment's inverse-variance
// portfolio, the quantity each bisection split weighs. The segment's
// weights are embedded into a full-length vector so the shared
// portfolioVariance helper can evaluate wᵀΣw directly.
func segmentVariance(cov *mat.SymDense, members []int) float64 {
	if len(members) == 1 {
		return math.Max(cov.At(members[0], members[0]), 0)
	}
	n, _ := cov.Dims()
	w := make([]float64, n)
	var sum float64
	for _, i := range members {
		w[i] = 1 / math.Max(cov.At(i, i), 1e-12)
		sum += w[i]
	}
	for _, i := range members {
		w[i] /= sum
	}
	return math.Max(portfolioVariance(w, cov), 0)
}
