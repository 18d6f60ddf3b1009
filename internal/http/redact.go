package http

import (
	"net/url"
	"strings"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
)

// RedactURL masks query values whose keys look like secrets.
func RedactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.RawQuery == "" {
		return raw
	}

	query := parsed.Query()
	changed := false

	for key := range query {
		if sensitiveKey(key) {
			query.Set(key, constants.MaskedSecret)

			changed = true
		}
	}

	if !changed {
		return raw
	}

	parsed.RawQuery = query.Encode()

	return parsed.String()
}

func sensitiveKey(key string) bool {
	lower := strings.ToLower(key)

	return strings.Contains(lower, "secret") || strings.Contains(lower, "token") || strings.Contains(lower, "password")
}
