package git

import "context"

// Driver constructs working copies on the local filesystem.
type Driver interface {
	// Init opens path when it is already a working copy root, otherwise initializes one.
	Init(ctx context.Context, path string) (Workspace, error)
	// Open fails with ErrInvalidWorkingCopy when path is not a working copy root.
	Open(ctx context.Context, path string) (Workspace, error)
	// Clone fails with ErrDestinationExists when dest exists and is not empty.
	Clone(ctx context.Context, url, dest string) (Workspace, error)
}

// Workspace exposes the git primitives the sync workflows need for a single
// working copy. Implementations may shell out to git or use a pure Go library.
type Workspace interface {
	Path() string
	EnsureRemote(ctx context.Context, name, url string) error
	RemoteURL(ctx context.Context, name string) (string, error)
	StageAll(ctx context.Context) error
	IsDirty(ctx context.Context) (bool, error)
	Commit(ctx context.Context, message string) error
	// CurrentBranch reports the branch HEAD points at. ok is false when HEAD is detached.
	CurrentBranch(ctx context.Context) (name string, ok bool, err error)
	ForceBranch(ctx context.Context, name string) error
	Upstream(ctx context.Context, branch string) (Upstream, error)
	Push(ctx context.Context, remote, branch string, setUpstream bool) error
	Pull(ctx context.Context, remote, branch string) error
	Inspect(ctx context.Context) (WorkingCopy, error)
}

// Upstream is the remote tracking configuration of a local branch.
type Upstream struct {
	Remote string
	Branch string
}

// WorkingCopy is a point-in-time snapshot of a local repository. It is never
// cached; callers re-inspect before acting on it.
type WorkingCopy struct {
	Path         string
	Initialized  bool
	HasOrigin    bool
	OriginURL    string
	Branch       string
	Detached     bool
	Unborn       bool
	Dirty        bool
	ChangedFiles int
}

// Identity is the commit author configured for git.
type Identity struct {
	Name  string
	Email string
}
