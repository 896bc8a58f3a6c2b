package git

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// DefaultRemote is the remote every workflow links to.
const DefaultRemote = "origin"

func openRepository(path string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidWorkingCopy, path)
		}
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}

	if _, err := repo.Worktree(); err != nil {
		if errors.Is(err, gogit.ErrIsBareRepository) {
			return nil, fmt.Errorf("%w: %s is a bare repository", ErrInvalidWorkingCopy, path)
		}
		return nil, fmt.Errorf("open worktree %s: %w", path, err)
	}

	return repo, nil
}

func remoteURL(repo *gogit.Repository, name string) (string, error) {
	remote, err := repo.Remote(name)
	if err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNoRemote, name)
		}
		return "", fmt.Errorf("read remote %s: %w", name, err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: %s has no url", ErrNoRemote, name)
	}
	return urls[0], nil
}

func branchUpstream(repo *gogit.Repository, branch string) (Upstream, error) {
	cfg, err := repo.Config()
	if err != nil {
		return Upstream{}, fmt.Errorf("read config: %w", err)
	}

	b, ok := cfg.Branches[branch]
	if !ok || b.Remote == "" || b.Merge == "" {
		return Upstream{}, fmt.Errorf("%w: %s", ErrNoUpstream, branch)
	}
	return Upstream{Remote: b.Remote, Branch: b.Merge.Short()}, nil
}

func inspect(path string) (WorkingCopy, error) {
	wc := WorkingCopy{Path: path}

	repo, err := openRepository(path)
	if err != nil {
		if errors.Is(err, ErrInvalidWorkingCopy) {
			return wc, nil
		}
		return wc, err
	}
	wc.Initialized = true

	url, err := remoteURL(repo, DefaultRemote)
	switch {
	case err == nil:
		wc.HasOrigin = true
		wc.OriginURL = url
	case !errors.Is(err, ErrNoRemote):
		return wc, err
	}

	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return wc, fmt.Errorf("read HEAD: %w", err)
	}
	if head.Type() == plumbing.SymbolicReference {
		wc.Branch = head.Target().Short()
		if _, err := repo.Reference(head.Target(), true); err != nil {
			if !errors.Is(err, plumbing.ErrReferenceNotFound) {
				return wc, fmt.Errorf("resolve %s: %w", head.Target(), err)
			}
			wc.Unborn = true
		}
	} else {
		wc.Detached = true
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return wc, fmt.Errorf("open worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return wc, fmt.Errorf("worktree status: %w", err)
	}
	for _, file := range status {
		if file.Staging != gogit.Unmodified || file.Worktree != gogit.Unmodified {
			wc.ChangedFiles++
		}
	}
	wc.Dirty = wc.ChangedFiles > 0

	return wc, nil
}

// Inspect reports the state of the working copy at path without modifying it.
// A path that is not a working copy yields a snapshot with Initialized unset.
func Inspect(path string) (WorkingCopy, error) {
	return inspect(path)
}
