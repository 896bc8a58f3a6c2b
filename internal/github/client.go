package gh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Repository is a snapshot of a hosted repository as returned by the gateway.
type Repository struct {
	Owner         string
	Name          string
	FullName      string
	Description   string
	CloneURL      string
	HTMLURL       string
	DefaultBranch string
	Private       bool
	UpdatedAt     time.Time
}

// User identifies the account the session token belongs to.
type User struct {
	Login string
	Name  string
}

// Issue is an open issue on a repository.
type Issue struct {
	Number    int
	Title     string
	Author    string
	URL       string
	Labels    []string
	CreatedAt time.Time
}

// FileContents is the current state of a file stored in a repository.
type FileContents struct {
	Path    string
	SHA     string
	Content []byte
}

// FileChange describes a create or update of a single file. SHA carries the
// blob hash the caller last saw and is required for updates.
type FileChange struct {
	Path    string
	Message string
	Content []byte
	SHA     string
}

// CreateRepositoryOptions defines the metadata used to create a repository.
type CreateRepositoryOptions struct {
	Name        string
	Description string
	Private     bool
}

// Gateway exposes the hosted repository operations used by repodesk. Every call
// is a single network round-trip; nothing is retried.
type Gateway interface {
	AuthenticatedUser(ctx context.Context) (User, error)
	ListRepositories(ctx context.Context, owner string) ([]Repository, error)
	CreateRepository(ctx context.Context, opts CreateRepositoryOptions) (Repository, error)
	DeleteRepository(ctx context.Context, repo Repository) error
	GetContents(ctx context.Context, repo Repository, path string) (FileContents, error)
	CreateFile(ctx context.Context, repo Repository, change FileChange) error
	UpdateFile(ctx context.Context, repo Repository, change FileChange) error
	ListIssues(ctx context.Context, repo Repository) ([]Issue, error)
	CreateIssue(ctx context.Context, repo Repository, title, body string) (Issue, error)
}

// Factory builds concrete gateways (e.g., REST-backed) for a session token.
type Factory interface {
	New(ctx context.Context, token string) (Gateway, error)
}

var (
	// ErrNotFound indicates the requested repository, file or account does not exist.
	ErrNotFound = errors.New("github: not found")

	// ErrUnauthorized indicates an invalid or expired token, or a token lacking permission.
	ErrUnauthorized = errors.New("github: authentication failed")

	// ErrNotConnected is returned by the disconnected gateway before a session is established.
	ErrNotConnected = errors.New("github: not connected")
)

// RemoteError describes a failed GitHub API call.
type RemoteError struct {
	Op          string
	StatusCode  int
	RateLimited bool
	Err         error
}

func (e *RemoteError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %d %s: %v", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets callers match the sentinels without caring about the status code.
func (e *RemoteError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized ||
			(e.StatusCode == http.StatusForbidden && !e.RateLimited)
	}
	return false
}

// retryableError marks an error that may succeed if the operation is attempted again later.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	if e == nil || e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// IsRetryable reports whether the supplied error resulted from a transient GitHub
// API failure (for example, a network timeout or rate-limited request). The
// gateway never retries on its own; callers use this to phrase the failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var target *retryableError
	return errors.As(err, &target)
}
