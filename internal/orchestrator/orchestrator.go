package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/repodesk/repodesk/internal/git"
	gh "github.com/repodesk/repodesk/internal/github"
)

// Orchestrator runs the synchronization workflows between local working copies
// and hosted repositories. Every workflow returns exactly one Outcome; errors
// never escape.
type Orchestrator struct {
	cfg Config
	gh  gh.Gateway
	git git.Driver
	log *slog.Logger
}

// Reporter receives progress from a running workflow.
type Reporter interface {
	Progress(message string)
	// Cloned is emitted once a clone completes so the caller can offer follow-ups.
	Cloned(path string)
}

type nopReporter struct{}

func (nopReporter) Progress(string) {}
func (nopReporter) Cloned(string)   {}

func reporterOrNop(rep Reporter) Reporter {
	if rep == nil {
		return nopReporter{}
	}
	return rep
}

// PullOptions tunes the pull workflow.
type PullOptions struct {
	// DefaultBranch is pulled from origin when the current branch has no
	// upstream there. When empty such a pull fails with NoUpstreamConfigured.
	DefaultBranch string
}

// New returns a configured Orchestrator instance.
func New(cfg Config, gateway gh.Gateway, driver git.Driver, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg.withDefaults(), gh: gateway, git: driver, log: logger}
}

// LinkAndPush turns path into a working copy linked to repo and publishes its
// contents. origin is always overwritten with the repository clone URL and a
// commit is only made when there are changes.
func (o *Orchestrator) LinkAndPush(ctx context.Context, rep Reporter, path string, repo gh.Repository) Outcome {
	rep = reporterOrNop(rep)

	if o.git == nil {
		return Failure(CategoryInternal, "git driver is required", nil)
	}
	if repo.CloneURL == "" {
		return Failure(CategoryInvalidInput, fmt.Sprintf("repository %s has no clone url", repo.FullName), nil)
	}
	if err := requireDir(path); err != nil {
		return Failure(CategoryInvalidInput, "local folder is not usable", err)
	}

	rep.Progress("Initializing working copy")
	ws, err := o.git.Init(ctx, path)
	if err != nil {
		return Failure(CategoryLocalVCS, "initialize working copy", err)
	}

	rep.Progress(fmt.Sprintf("Linking %s to %s", o.cfg.RemoteName, repo.CloneURL))
	if err := ws.EnsureRemote(ctx, o.cfg.RemoteName, repo.CloneURL); err != nil {
		return Failure(CategoryLocalVCS, "configure remote", err)
	}

	if err := ws.StageAll(ctx); err != nil {
		return Failure(CategoryLocalVCS, "stage changes", err)
	}

	dirty, err := ws.IsDirty(ctx)
	if err != nil {
		return Failure(CategoryLocalVCS, "read working copy status", err)
	}
	if dirty {
		rep.Progress("Committing changes")
		if err := ws.Commit(ctx, o.cfg.CommitMessage); err != nil {
			return Failure(CategoryLocalVCS, "commit changes", err)
		}
	} else if o.log != nil {
		o.log.Info("working copy clean, skipping commit", "path", path)
	}

	branch, err := o.resolveBranch(ctx, ws)
	if err != nil {
		return Failure(CategoryLocalVCS, "resolve branch", err)
	}

	out := o.pushWithFallback(ctx, rep, ws, branch)
	out.Path = path
	return out
}

// resolveBranch returns the branch HEAD points at, attaching HEAD to the
// primary branch when it is detached.
func (o *Orchestrator) resolveBranch(ctx context.Context, ws git.Workspace) (string, error) {
	branch, ok, err := ws.CurrentBranch(ctx)
	if err != nil {
		return "", err
	}
	if ok {
		return branch, nil
	}

	if o.log != nil {
		o.log.Info("no active branch, forcing primary branch", "path", ws.Path(), "branch", o.cfg.PrimaryBranch)
	}
	if err := ws.ForceBranch(ctx, o.cfg.PrimaryBranch); err != nil {
		return "", err
	}
	return o.cfg.PrimaryBranch, nil
}

// pushWithFallback pushes branch with upstream tracking. A ref mismatch on the
// primary branch is retried exactly once on the fallback branch.
func (o *Orchestrator) pushWithFallback(ctx context.Context, rep Reporter, ws git.Workspace, branch string) Outcome {
	rep.Progress(fmt.Sprintf("Pushing %s to %s", branch, o.cfg.RemoteName))
	err := ws.Push(ctx, o.cfg.RemoteName, branch, true)
	if err == nil {
		return pushed(branch)
	}

	if !errors.Is(err, git.ErrRefMismatch) || branch != o.cfg.PrimaryBranch {
		return Failure(CategoryLocalVCS, fmt.Sprintf("push %s", branch), err)
	}

	fallback := o.cfg.FallbackBranch
	if o.log != nil {
		o.log.Warn("push found no matching ref, retrying with fallback branch", "path", ws.Path(), "branch", branch, "fallback", fallback)
	}

	reopened, err := o.git.Open(ctx, ws.Path())
	if err != nil {
		return Failure(CategoryLocalVCS, "reopen working copy", err)
	}
	if err := reopened.ForceBranch(ctx, fallback); err != nil {
		return Failure(CategoryLocalVCS, fmt.Sprintf("rename branch to %s", fallback), err)
	}

	rep.Progress(fmt.Sprintf("Pushing %s to %s", fallback, o.cfg.RemoteName))
	if err := reopened.Push(ctx, o.cfg.RemoteName, fallback, true); err != nil {
		return Failure(CategoryLocalVCS, fmt.Sprintf("push %s", fallback), err)
	}
	return pushed(fallback)
}

func pushed(branch string) Outcome {
	out := Success(fmt.Sprintf("Pushed branch %s", branch))
	out.Branch = branch
	return out
}

// Clone clones repo into parentDir/<repo name>. An existing destination is
// never touched.
func (o *Orchestrator) Clone(ctx context.Context, rep Reporter, repo gh.Repository, parentDir string) Outcome {
	rep = reporterOrNop(rep)

	if o.git == nil {
		return Failure(CategoryInternal, "git driver is required", nil)
	}
	if repo.CloneURL == "" || repo.Name == "" {
		return Failure(CategoryInvalidInput, "repository has no clone url", nil)
	}
	if parentDir == "" {
		return Failure(CategoryInvalidInput, "destination folder is required", nil)
	}

	dest := filepath.Join(parentDir, repo.Name)
	if _, err := os.Lstat(dest); err == nil {
		return Failure(CategoryDestinationExists, fmt.Sprintf("%s already exists", dest), git.ErrDestinationExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return Failure(CategoryFilesystem, fmt.Sprintf("inspect %s", dest), err)
	}

	rep.Progress(fmt.Sprintf("Cloning %s into %s", repo.FullName, dest))
	if _, err := o.git.Clone(ctx, repo.CloneURL, dest); err != nil {
		return Failure(CategoryLocalVCS, fmt.Sprintf("clone %s", repo.FullName), err)
	}

	if o.log != nil {
		o.log.Info("cloned repository", "repo", repo.FullName, "path", dest)
	}
	rep.Cloned(dest)

	out := Success(fmt.Sprintf("Cloned %s into %s", repo.FullName, dest))
	out.Path = dest
	return out
}

// Pull merges origin's copy of the current branch's upstream into path.
func (o *Orchestrator) Pull(ctx context.Context, rep Reporter, path string, opts PullOptions) Outcome {
	rep = reporterOrNop(rep)

	if o.git == nil {
		return Failure(CategoryInternal, "git driver is required", nil)
	}

	ws, err := o.git.Open(ctx, path)
	if err != nil {
		return Failure(CategoryInvalidWorkingCopy, fmt.Sprintf("%s is not a working copy", path), err)
	}

	if _, err := ws.RemoteURL(ctx, o.cfg.RemoteName); err != nil {
		return Failure(CategoryNoRemoteConfigured, fmt.Sprintf("no %s remote configured", o.cfg.RemoteName), err)
	}

	target, err := o.pullTarget(ctx, ws, opts)
	if err != nil {
		return Failure(CategoryLocalVCS, "resolve upstream", err)
	}

	rep.Progress(fmt.Sprintf("Pulling %s from %s", target, o.cfg.RemoteName))
	if err := ws.Pull(ctx, o.cfg.RemoteName, target); err != nil {
		return Failure(CategoryLocalVCS, fmt.Sprintf("pull %s", target), err)
	}

	out := Success(fmt.Sprintf("Pulled %s from %s", target, o.cfg.RemoteName))
	out.Branch = target
	out.Path = path
	return out
}

func (o *Orchestrator) pullTarget(ctx context.Context, ws git.Workspace, opts PullOptions) (string, error) {
	branch, ok, err := ws.CurrentBranch(ctx)
	if err != nil {
		return "", err
	}

	if ok {
		upstream, err := ws.Upstream(ctx, branch)
		switch {
		case err == nil && upstream.Remote == o.cfg.RemoteName:
			return upstream.Branch, nil
		case err != nil && !errors.Is(err, git.ErrNoUpstream):
			return "", err
		}
	}

	if opts.DefaultBranch == "" {
		return "", fmt.Errorf("%w: %q tracks nothing on %s", git.ErrNoUpstream, branch, o.cfg.RemoteName)
	}

	if o.log != nil {
		o.log.Info("no upstream on remote, pulling default branch", "path", ws.Path(), "branch", branch, "default_branch", opts.DefaultBranch)
	}
	return opts.DefaultBranch, nil
}

func requireDir(path string) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
