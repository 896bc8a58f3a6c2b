package orchestrator

import (
	"errors"

	"github.com/repodesk/repodesk/internal/git"
	gh "github.com/repodesk/repodesk/internal/github"
)

// Status is the terminal state of a workflow.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Category classifies a failed workflow.
type Category string

const (
	CategoryNone                 Category = ""
	CategoryAuth                 Category = "auth"
	CategoryRemote               Category = "remote"
	CategoryLocalVCS             Category = "local_vcs"
	CategoryPushRejected         Category = "push_rejected"
	CategoryMergeConflict        Category = "merge_conflict"
	CategoryDestinationExists    Category = "destination_exists"
	CategoryInvalidWorkingCopy   Category = "invalid_working_copy"
	CategoryNoRemoteConfigured   Category = "no_remote_configured"
	CategoryNoUpstreamConfigured Category = "no_upstream_configured"
	CategoryBinaryFileRejected   Category = "binary_file_rejected"
	CategoryInvalidInput         Category = "invalid_input"
	CategoryFilesystem           Category = "filesystem"
	CategoryCleanup              Category = "cleanup"
	CategoryInternal             Category = "internal"
)

// Outcome is the single terminal result of a workflow. Detail carries the raw
// diagnostic (git output or API error) for failures. Retryable is set when the
// failure came from a transient GitHub condition such as rate limiting or a 5xx.
type Outcome struct {
	Status    Status
	Category  Category
	Message   string
	Detail    string
	Branch    string
	Path      string
	Retryable bool
}

// Succeeded reports whether the workflow completed.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// Success builds a successful outcome.
func Success(message string) Outcome {
	return Outcome{Status: StatusSucceeded, Message: message}
}

// Failure builds a failed outcome. The category is refined from err when err
// carries a more specific classification than fallback.
func Failure(fallback Category, message string, err error) Outcome {
	out := Outcome{
		Status:   StatusFailed,
		Category: Categorize(err, fallback),
		Message:  message,
	}
	if err != nil {
		out.Detail = git.Output(err)
		out.Retryable = gh.IsRetryable(err)
	}
	return out
}

// Categorize maps err onto an outcome category, returning fallback when err
// carries no recognised classification.
func Categorize(err error, fallback Category) Category {
	if err == nil {
		return fallback
	}

	var remoteErr *gh.RemoteError
	switch {
	case errors.Is(err, gh.ErrUnauthorized), errors.Is(err, gh.ErrNotConnected), errors.Is(err, git.ErrAuthFailed):
		return CategoryAuth
	case errors.Is(err, git.ErrDestinationExists):
		return CategoryDestinationExists
	case errors.Is(err, git.ErrInvalidWorkingCopy):
		return CategoryInvalidWorkingCopy
	case errors.Is(err, git.ErrNoRemote):
		return CategoryNoRemoteConfigured
	case errors.Is(err, git.ErrNoUpstream):
		return CategoryNoUpstreamConfigured
	case errors.Is(err, git.ErrMergeConflict):
		return CategoryMergeConflict
	case errors.Is(err, git.ErrRefMismatch), errors.Is(err, git.ErrPushRejected):
		return CategoryPushRejected
	case errors.Is(err, gh.ErrInvalidRepositoryName):
		return CategoryInvalidInput
	case errors.Is(err, gh.ErrNotFound), errors.As(err, &remoteErr):
		return CategoryRemote
	}
	return fallback
}
