// Package urlresolve implements repositoryUrl resolution: normalising
// shorthand/git/http(s) forms and injecting credentials from the
// environment when verifyAuth fails against the bare URL.
package urlresolve

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var hostedShorthand = regexp.MustCompile(`^(?:(github|gitlab|bitbucket):)?([\w.-]+)/([\w.-]+)$`)

var hostsByPrefix = map[string]string{
	"github":    "github.com",
	"gitlab":    "gitlab.com",
	"bitbucket": "bitbucket.org",
}

// Normalise expands shorthand (owner/repo, gitlab:owner/repo) into a full
// https URL and rewrites git+http(s) into http(s).
func Normalise(raw string) string {
	if strings.HasPrefix(raw, "git+http://") || strings.HasPrefix(raw, "git+https://") {
		return strings.TrimPrefix(raw, "git+")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "git@") {
		return raw
	}
	if m := hostedShorthand.FindStringSubmatch(raw); m != nil {
		host := hostsByPrefix[m[1]]
		if host == "" {
			host = "github.com" // default hosted provider for bare owner/repo shorthand
		}
		return fmt.Sprintf("https://%s/%s/%s", host, m[2], m[3])
	}
	return raw
}

// credentialEnvVars lists the environment variables inspected, in
// priority order, paired with the auth prefix their token is rendered
// with.
var credentialEnvVars = []struct {
	name   string
	prefix string
}{
	{"GIT_CREDENTIALS", ""},
	{"GH_TOKEN", ""},
	{"GITHUB_TOKEN", ""},
	{"GL_TOKEN", "gitlab-ci-token:"},
	{"GITLAB_TOKEN", "gitlab-ci-token:"},
	{"BB_TOKEN", "x-token-auth:"},
	{"BITBUCKET_TOKEN", "x-token-auth:"},
}

// WithCredentials rewrites a normalised http(s) URL to embed a credential
// found in the environment, trying each variable in priority order. It
// returns the URL unchanged if none are set.
func WithCredentials(normalised string) string {
	if !strings.HasPrefix(normalised, "http://") && !strings.HasPrefix(normalised, "https://") {
		return normalised
	}
	for _, candidate := range credentialEnvVars {
		token := os.Getenv(candidate.name)
		if token == "" {
			continue
		}
		scheme, rest, ok := strings.Cut(normalised, "://")
		if !ok {
			return normalised
		}
		return fmt.Sprintf("%s://%s%s@%s", scheme, candidate.prefix, token, rest)
	}
	return normalised
}
