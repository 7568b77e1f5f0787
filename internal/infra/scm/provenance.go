// Package scm describes the source repository an audit ran against.
package scm

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Provenance identifies the repository state an audit ran against.
type Provenance struct {
	Root   string `json:"root" yaml:"root"`
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Commit string `json:"commit,omitempty" yaml:"commit,omitempty"`
	Remote string `json:"remote,omitempty" yaml:"remote,omitempty"`
}

// ShortCommit returns the first 12 characters of the commit hash.
func (p *Provenance) ShortCommit() string {
	if len(p.Commit) > 12 {
		return p.Commit[:12]
	}
	return p.Commit
}

// Describe inspects the git repository containing path, searching parent
// directories for .git. A path outside any repository yields nil, nil.
func Describe(path string) (*Provenance, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}

	p := &Provenance{}

	if wt, err := repo.Worktree(); err == nil {
		p.Root = wt.Filesystem.Root()
	}

	head, err := repo.Head()
	switch {
	case err == nil:
		p.Commit = head.Hash().String()
		if head.Name().IsBranch() {
			p.Branch = head.Name().Short()
		}
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// Repository without commits.
	default:
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	if remote, err := repo.Remote("origin"); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			p.Remote = SanitizeRemote(urls[0])
		}
	}

	return p, nil
}

// SanitizeRemote strips credentials from a remote URL. SCP-style remotes
// (git@host:org/repo.git) are returned unchanged.
func SanitizeRemote(remote string) string {
	if !strings.Contains(remote, "://") {
		return remote
	}
	u, err := url.Parse(remote)
	if err != nil {
		return remote
	}
	if u.User != nil {
		u.User = nil
	}
	return u.String()
}
