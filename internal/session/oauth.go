package session

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseOAuthFragment extracts the provider access token from an
// implicit-flow redirect fragment of the form
// "#access_token=...&token_type=Bearer&expires_in=...". The leading
// "#" is optional.
func ParseOAuthFragment(fragment string) (string, error) {
	fragment = strings.TrimPrefix(fragment, "#")
	values, err := url.ParseQuery(fragment)
	if err != nil {
		return "", fmt.Errorf("parsing oauth fragment: %w", err)
	}

	token := values.Get("access_token")
	if token == "" {
		return "", fmt.Errorf("no access token found")
	}
	return token, nil
}
