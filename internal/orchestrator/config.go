package orchestrator

import "github.com/repodesk/repodesk/internal/git"

const (
	defaultCommitMessage  = "Commit via repodesk"
	defaultPrimaryBranch  = "main"
	defaultFallbackBranch = "master"
)

// Config captures the runtime controls the orchestrator needs.
type Config struct {
	// CommitMessage is used by link-and-push when the working copy has changes.
	CommitMessage string
	// PrimaryBranch is pushed when the working copy has no branch of its own.
	PrimaryBranch string
	// FallbackBranch is tried once when the primary branch has no matching ref.
	FallbackBranch string
	// RemoteName is the remote every workflow links to.
	RemoteName string
	// ImportDir is the disposable directory folder imports clone into. It is
	// wiped before and after each import.
	ImportDir string
}

func (c Config) withDefaults() Config {
	if c.CommitMessage == "" {
		c.CommitMessage = defaultCommitMessage
	}
	if c.PrimaryBranch == "" {
		c.PrimaryBranch = defaultPrimaryBranch
	}
	if c.FallbackBranch == "" {
		c.FallbackBranch = defaultFallbackBranch
	}
	if c.RemoteName == "" {
		c.RemoteName = git.DefaultRemote
	}
	return c
}
