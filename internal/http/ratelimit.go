package http

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/tidwall/gjson"
)

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeRateLimited
	outcomeError
)

// outcome is the classification of one exchange.
type outcome struct {
	kind outcomeKind
	wait time.Duration
	err  error
}

// classify maps a response onto success, a rate-limit wait, or an error.
// The API signals rate limits either with HTTP 429 or with a problem body
// carrying traceId and status 429.
func classify(method, target string, resp *Response) outcome {
	if resp.StatusCode == http.StatusTooManyRequests {
		return outcome{kind: outcomeRateLimited, wait: RetryAfter(resp.Header.Get("Retry-After"), time.Now())}
	}

	if wait, limited := bodyRateLimit(resp.Body); limited {
		return outcome{kind: outcomeRateLimited, wait: wait}
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return outcome{kind: outcomeSuccess}
	}

	return outcome{kind: outcomeError, err: &servicetitan.HTTPError{
		StatusCode: resp.StatusCode,
		Method:     method,
		URL:        RedactURL(target),
		Body:       resp.Body,
		Header:     resp.Header,
	}}
}

// bodyRateLimit detects the in-body signal. Only JSON objects are inspected.
func bodyRateLimit(body []byte) (time.Duration, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return 0, false
	}

	result := gjson.GetManyBytes(trimmed, "traceId", "status", "title")
	if !result[0].Exists() || result[1].Int() != http.StatusTooManyRequests {
		return 0, false
	}

	return TitleWait(result[2].String()), true
}

// TitleWait reads the wait from a title such as "Rate limit is exceeded. Try
// again in 60 seconds.": the second-to-last word is the number of seconds.
func TitleWait(title string) time.Duration {
	words := strings.Fields(title)
	if len(words) < 2 {
		return constants.DefaultRateLimitWait
	}

	seconds, err := strconv.Atoi(words[len(words)-2])
	if err != nil || seconds < 0 {
		return constants.DefaultRateLimitWait
	}

	return time.Duration(seconds) * time.Second
}

// RetryAfter parses a Retry-After header given as seconds or an HTTP date.
func RetryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return constants.DefaultRateLimitWait
	}

	seconds, err := strconv.Atoi(header)
	if err == nil {
		if seconds < 0 {
			return 0
		}

		return time.Duration(seconds) * time.Second
	}

	when, err := http.ParseTime(header)
	if err != nil {
		return constants.DefaultRateLimitWait
	}

	wait := when.Sub(now)
	if wait < 0 {
		return 0
	}

	return wait
}
