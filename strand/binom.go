package strand

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// relErr absorbs rounding noise when comparing binomial probabilities, so
// that outcomes exactly as likely as the observed one are counted.
const relErr = 1 + 1e-7

// BinomTest returns the p-value of an exact two-sided binomial test of k
// successes in n trials against success probability p. The p-value is the
// total probability of all outcomes that are no more likely than k. It is 1
// when n is 0.
func BinomTest(k, n int, p float64) float64 {
	if k < 0 || k > n {
		panic(fmt.Sprintf("binomial test: k=%d out of range [0, %d]", k, n))
	}
	if n == 0 || float64(k) == p*float64(n) {
		return 1
	}
	dist := distuv.Binomial{N: float64(n), P: p}
	d := dist.Prob(float64(k)) * relErr
	pval := 0.0
	for i := 0; i <= n; i++ {
		if pi := dist.Prob(float64(i)); pi <= d {
			pval += pi
		}
	}
	return math.Min(1, pval)
}
