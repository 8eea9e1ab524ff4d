package push

import (
	"fmt"
	"net/url"
)

// DeriveURL maps the REST base URL onto the per-user push endpoint:
// http becomes ws, https becomes wss, and the path is /ws/{userID}.
// The /api prefix of the REST surface does not apply here.
func DeriveURL(baseURL, userID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	u.Path = "/ws/" + url.PathEscape(userID)
	u.RawQuery = ""
	return u.String(), nil
}
