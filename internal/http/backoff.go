package http

import (
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
)

// JitterBackoff waits min*2^attempt plus up to min of jitter, capped at max.
// With the default one-second min this is 2^attempt + random[0,1) seconds.
func JitterBackoff(minWait, maxWait time.Duration, attemptNum int, _ *http.Response) time.Duration {
	base := float64(minWait) * math.Pow(constants.ExponentialBackoffBase, float64(attemptNum))
	jitter := rand.Float64() * float64(minWait) //nolint:gosec // jitter does not need a secure source

	wait := time.Duration(base + jitter)
	if wait > maxWait || wait < 0 {
		return maxWait
	}

	return wait
}
