package session

import "strings"

const sessionCookie = "session_id"

// TokenFromSetCookie finds the first usable session_id in a list of
// Set-Cookie values. Values may hold several cookies joined by commas.
// The ERP sends session_id=false when there is no session; that and an
// empty value are skipped.
func TokenFromSetCookie(values []string) string {
	for _, value := range values {
		for _, cookie := range strings.Split(value, ",") {
			for _, part := range strings.Split(cookie, ";") {
				name, val, ok := strings.Cut(strings.TrimSpace(part), "=")
				if !ok || name != sessionCookie {
					continue
				}
				val = strings.Trim(strings.TrimSpace(val), `"`)
				if usableToken(val) {
					return val
				}
			}
		}
	}
	return ""
}

func usableToken(v string) bool {
	return v != "" && v != "false"
}
