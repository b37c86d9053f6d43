package scan

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"

	apperrors "github.com/depscout/depscout/pkg/errors"
)

// Env var priority per provider, first non-empty wins.
var (
	githubTokenVars       = []string{"REPO_SCAN_GITHUB_TOKEN", "GITHUB_TOKEN", "GH_TOKEN"}
	bitbucketUserVars     = []string{"REPO_SCAN_BITBUCKET_USER", "BITBUCKET_USER", "BITBUCKET_USERNAME"}
	bitbucketPasswordVars = []string{"REPO_SCAN_BITBUCKET_APP_PASSWORD", "BITBUCKET_APP_PASSWORD", "BITBUCKET_TOKEN", "BITBUCKET_BASIC_TOKEN"}
)

const redacted = "***redacted***"

// GitRunner executes one git invocation with the given environment and
// returns its stderr output. Tests substitute this to avoid spawning
// processes.
type GitRunner func(ctx context.Context, env []string, args ...string) ([]byte, error)

func defaultGitRunner(ctx context.Context, env []string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = env
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// Acquirer clones repositories into scratch directories. Clones are
// shallow, blob-filtered, and run with an isolated HOME so ambient
// credential stores are never consulted.
type Acquirer struct {
	logger *log.Logger

	// Injection points for tests.
	run      GitRunner
	getenv   func(string) string
	lookPath func(string) (string, error)
}

// NewAcquirer creates an acquirer. A nil logger falls back to the
// default logger.
func NewAcquirer(logger *log.Logger) *Acquirer {
	if logger == nil {
		logger = log.Default()
	}
	return &Acquirer{
		logger:   logger,
		run:      defaultGitRunner,
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
	}
}

// SetGitRunner replaces the git invocation, so tests and embedders can
// avoid spawning processes.
func (a *Acquirer) SetGitRunner(run GitRunner) {
	if run != nil {
		a.run = run
	}
}

// Acquire clones repoURL into a fresh scratch directory and returns
// its path with a cleanup function the caller must run on every exit
// path. On error the scratch directory is already removed.
func (a *Acquirer) Acquire(ctx context.Context, repoURL string) (string, func(), error) {
	if err := apperrors.ValidateRepoURL(repoURL); err != nil {
		return "", nil, err
	}

	dir, err := os.MkdirTemp("", "depscout-scan-")
	if err != nil {
		return "", nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "create scratch directory")
	}
	cleanup := func() { os.RemoveAll(dir) }

	// Random UIDs in containers may lack a writable home, and git must
	// never consult the ambient credential store or prompt.
	env := append(os.Environ(), "HOME="+dir, "GIT_TERMINAL_PROMPT=0")

	cloneURL, secret := a.withHostAuth(repoURL)
	stderr, err := a.run(ctx, env, "clone", "--depth", "1", "--single-branch", "--filter=blob:none", cloneURL, dir)
	if err == nil {
		return dir, cleanup, nil
	}

	httpsErr := redact(strings.TrimSpace(string(stderr)), secret)
	a.logger.Warn("https clone failed", "repo", repoURL, "stderr", httpsErr)

	hint := cloneHint(repoURL, secret != "", httpsErr)

	if sshURL, ok := a.sshFallbackURL(repoURL, secret); ok {
		a.logger.Info("attempting ssh fallback", "repo", repoURL, "ssh_url", sshURL)
		// Host key checking is disabled for this non-interactive clone
		// only; an unknown host would otherwise hang or fail in a
		// container with no known_hosts.
		sshEnv := append(env, "GIT_SSH_COMMAND=ssh -o StrictHostKeyChecking=no")
		sshStderr, sshErr := a.run(ctx, sshEnv, "clone", "--depth", "1", "--single-branch", "--filter=blob:none", sshURL, dir)
		if sshErr == nil {
			return dir, cleanup, nil
		}
		sshMsg := strings.TrimSpace(string(sshStderr))
		a.logger.Warn("ssh fallback failed", "repo", repoURL, "stderr", sshMsg)

		cleanup()
		return "", nil, apperrors.New(apperrors.ErrCodeCloneFailed,
			"git clone failed: HTTPS clone stderr: %s, SSH clone stderr: %s. %s",
			orUnknown(httpsErr), orUnknown(sshMsg), hint)
	}

	cleanup()
	return "", nil, apperrors.New(apperrors.ErrCodeCloneFailed,
		"git clone failed: %s. %s", orUnknown(httpsErr), hint)
}

// withHostAuth injects provider credentials from the environment into
// the clone URL's user-info. Returns the clone URL plus the secret
// value used, so error text can be redacted.
func (a *Acquirer) withHostAuth(repoURL string) (string, string) {
	u, err := url.Parse(repoURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.User != nil {
		return repoURL, ""
	}

	switch normalizeHost(u.Hostname()) {
	case "github.com":
		for _, key := range githubTokenVars {
			if token := a.getenv(key); token != "" {
				a.logger.Info("using github token", "env_var", key)
				u.User = url.UserPassword(token, "x-oauth-basic")
				return u.String(), token
			}
		}
	case "bitbucket.org":
		var user, password string
		for _, key := range bitbucketUserVars {
			if v := a.getenv(key); v != "" {
				user = v
				break
			}
		}
		for _, key := range bitbucketPasswordVars {
			if v := a.getenv(key); v != "" {
				password = v
				break
			}
		}
		if user != "" && password != "" {
			u.User = url.UserPassword(user, password)
			return u.String(), password
		}
	}
	return repoURL, ""
}

// sshFallbackURL decides whether an SSH retry applies and builds the
// scp-form address. The fallback only runs when no secret was injected
// (HTTPS auth already failed on its own terms), the host is a
// recognized provider, and an ssh client exists.
func (a *Acquirer) sshFallbackURL(repoURL, secret string) (string, bool) {
	if secret != "" {
		return "", false
	}
	u, err := url.Parse(repoURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	host := normalizeHost(u.Hostname())
	if host != "github.com" && host != "bitbucket.org" {
		return "", false
	}
	if _, err := a.lookPath("ssh"); err != nil {
		return "", false
	}
	return fmt.Sprintf("git@%s:%s", host, strings.TrimPrefix(u.Path, "/")), true
}

// cloneHint builds the remediation sentence appended to clone errors.
func cloneHint(repoURL string, hadSecret bool, stderr string) string {
	hint := "Check that the repository URL is correct and reachable."
	lower := strings.ToLower(repoURL)
	if !hadSecret {
		switch {
		case strings.Contains(lower, "github.com"):
			hint += " For private repos, set GITHUB_TOKEN."
		case strings.Contains(lower, "bitbucket.org"):
			hint += " For private repos, set BITBUCKET_USER and BITBUCKET_APP_PASSWORD."
		default:
			hint += " For private repos, provide credentials via environment variables."
		}
	}
	if strings.Contains(stderr, "terminal prompts disabled") {
		hint += " Terminal prompts are disabled; provide credentials via env vars or use SSH with keys."
	}
	return hint
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

func redact(text, secret string) string {
	if secret == "" {
		return text
	}
	return strings.ReplaceAll(text, secret, redacted)
}

func orUnknown(text string) string {
	if text == "" {
		return "unknown"
	}
	return text
}
