// Package library contains helper functions shared across modules.
package library

import "strings"

// StripBearerPrefix removes any leading "Bearer" scheme markers from an
// authorization header value and returns the bare token. Repeated prefixes
// and arbitrary casing are tolerated since clients are inconsistent here.
func StripBearerPrefix(value string) string {
	token := strings.TrimSpace(value)
	for {
		fields := strings.Fields(token)
		if len(fields) > 1 && strings.EqualFold(fields[0], "bearer") {
			token = strings.TrimSpace(strings.Join(fields[1:], " "))
			continue
		}
		return token
	}
}
