// Package gitclient provides the git-backed source provider: cloning
// repositories into a workspace, fingerprinting file content, and releasing
// working copies.
package gitclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"codevectorizer/internal/application/common/slogger"
	domainerrors "codevectorizer/internal/domain/errors/domain"
)

// Config holds git client settings.
type Config struct {
	// WorkspaceDir is the directory working copies are cloned under.
	// Defaults to <tmp>/codevectorizer-repos.
	WorkspaceDir string

	// Token is injected into https GitHub URLs for private repositories.
	Token string
}

// Client implements outbound.SourceProvider using the git binary.
type Client struct {
	workspaceDir string
	token        string
}

// NewClient creates a git client, ensuring its workspace directory exists.
func NewClient(config Config) (*Client, error) {
	workspace := config.WorkspaceDir
	if workspace == "" {
		workspace = filepath.Join(os.TempDir(), "codevectorizer-repos")
	}
	if err := os.MkdirAll(workspace, 0o750); err != nil {
		return nil, fmt.Errorf("create workspace directory: %w", err)
	}

	return &Client{
		workspaceDir: workspace,
		token:        config.Token,
	}, nil
}

// Clone clones the repository into a fresh directory under the workspace.
// An existing working copy for the same destination is removed first so
// every run starts from a clean checkout.
func (c *Client) Clone(ctx context.Context, url, destinationHint string) (string, error) {
	targetPath := filepath.Join(c.workspaceDir, destinationHint)

	if _, err := os.Stat(targetPath); err == nil {
		slogger.Info(ctx, "Removing stale working copy", slogger.Fields{
			"path": targetPath,
		})
		if removeErr := os.RemoveAll(targetPath); removeErr != nil {
			return "", fmt.Errorf("remove stale working copy: %w", removeErr)
		}
	}

	cloneURL := c.authenticatedURL(url)

	slogger.Info(ctx, "Cloning repository", slogger.Fields{
		"url":    url,
		"target": targetPath,
	})

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", cloneURL, targetPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: git clone: %s", domainerrors.ErrCloneFailed, strings.TrimSpace(string(output)))
	}

	return targetPath, nil
}

// FileContentHash returns the hex-encoded SHA-256 of the file's raw bytes.
func (c *Client) FileContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hashing: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hash file content: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Remove releases a working copy. Paths outside the workspace are refused.
func (c *Client) Remove(localPath string) error {
	cleaned := filepath.Clean(localPath)
	if !strings.HasPrefix(cleaned, c.workspaceDir+string(filepath.Separator)) {
		return fmt.Errorf("refusing to remove path outside workspace: %s", localPath)
	}
	return os.RemoveAll(cleaned)
}

// authenticatedURL rewrites a public GitHub https URL to carry the access
// token. SSH URLs and non-GitHub hosts pass through unchanged.
func (c *Client) authenticatedURL(url string) string {
	if c.token == "" {
		return url
	}
	const githubPrefix = "https://github.com/"
	if strings.HasPrefix(url, githubPrefix) {
		return "https://" + c.token + "@github.com/" + strings.TrimPrefix(url, githubPrefix)
	}
	return url
}
