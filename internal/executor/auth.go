// Package executor runs one agent session per cycle. It shells out to the
// claude CLI with a generated settings file that routes every Bash tool
// call through the warden command gate.
package executor

import (
	"fmt"
	"strings"
)

// Environment variables consulted for agent credentials.
const (
	EnvAPIKey     = "ANTHROPIC_API_KEY"
	EnvOAuthToken = "CLAUDE_CODE_OAUTH_TOKEN"
)

// Auth holds resolved agent credentials.
type Auth struct {
	APIKey     string
	OAuthToken string
}

// Env returns the credential environment entries in KEY=VALUE form.
func (a Auth) Env() []string {
	var env []string
	if a.APIKey != "" {
		env = append(env, EnvAPIKey+"="+a.APIKey)
	}
	if a.OAuthToken != "" {
		env = append(env, EnvOAuthToken+"="+a.OAuthToken)
	}
	return env
}

// ResolveAuth reads and validates credentials from the environment.
// getenv is injectable for tests; pass os.Getenv in production.
// A malformed OAuth token is an error rather than a silent fallback, since
// corrupted tokens produce confusing downstream auth failures.
func ResolveAuth(getenv func(string) string) (Auth, error) {
	auth := Auth{
		APIKey:     getenv(EnvAPIKey),
		OAuthToken: getenv(EnvOAuthToken),
	}

	if auth.OAuthToken != "" {
		token := strings.TrimSpace(auth.OAuthToken)
		switch {
		case token == "":
			auth.OAuthToken = ""
		case strings.ContainsAny(token, " \t\n\r"):
			return Auth{}, fmt.Errorf(
				"OAuth token appears malformed (contains whitespace); check for copy/paste issues and set %s with a valid token from 'claude setup-token'",
				EnvOAuthToken)
		case len(token) < 20:
			return Auth{}, fmt.Errorf(
				"OAuth token appears too short (expected 20+ characters); set %s with a valid token from 'claude setup-token'",
				EnvOAuthToken)
		default:
			auth.OAuthToken = token
		}
	}

	if auth.APIKey == "" && auth.OAuthToken == "" {
		return Auth{}, fmt.Errorf(
			"no authentication configured; set %s (from https://console.anthropic.com/) or %s (from 'claude setup-token')",
			EnvAPIKey, EnvOAuthToken)
	}

	return auth, nil
}
