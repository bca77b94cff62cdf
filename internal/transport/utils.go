package transport

import (
	"strings"
)

// hasToken reports whether a comma separated header value contains token,
// compared case insensitively.
func hasToken(v, token string) bool {
	for _, t := range strings.Split(v, ",") {
		if strings.EqualFold(strings.TrimSpace(t), token) {
			return true
		}
	}
	return false
}
