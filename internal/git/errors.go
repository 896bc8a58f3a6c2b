package git

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidWorkingCopy indicates the path is not the root of a non-bare working copy.
	ErrInvalidWorkingCopy = errors.New("git: not a working copy")

	// ErrDestinationExists indicates a clone target already holds files.
	ErrDestinationExists = errors.New("git: destination already exists")

	// ErrCloneFailed wraps any failure of git clone.
	ErrCloneFailed = errors.New("git: clone failed")

	// ErrNoRemote indicates the named remote is not configured.
	ErrNoRemote = errors.New("git: remote not configured")

	// ErrNoUpstream indicates the branch has no tracking configuration.
	ErrNoUpstream = errors.New("git: no upstream configured")

	// ErrRefMismatch indicates a push named a branch with no matching local reference.
	ErrRefMismatch = errors.New("git: refspec does not match any")

	// ErrPushRejected indicates the remote refused the push for any other reason.
	ErrPushRejected = errors.New("git: push rejected")

	// ErrMergeConflict indicates a pull stopped on conflicting changes.
	ErrMergeConflict = errors.New("git: merge conflict")

	// ErrAuthFailed indicates the remote refused the credentials.
	ErrAuthFailed = errors.New("git: authentication failed")
)

// GitError wraps failures when invoking the git binary. Kind carries the
// classification of the diagnostic output, when one applies.
type GitError struct {
	Args   []string
	Output string
	Kind   error
	Err    error
}

func (e *GitError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("git %s: %v\n%s", strings.Join(e.Args, " "), e.Err, e.Output)
}

func (e *GitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *GitError) Is(target error) bool {
	if e == nil || e.Kind == nil {
		return false
	}
	return e.Kind == target
}

var refMismatchPattern = regexp.MustCompile(`src refspec \S+ does not match any`)

func classifyOutput(command, output string) error {
	lower := strings.ToLower(output)

	switch {
	case isAuthFailure(lower):
		return ErrAuthFailed
	case command == "push" && refMismatchPattern.MatchString(output):
		return ErrRefMismatch
	case command == "push" && (strings.Contains(lower, "[rejected]") ||
		strings.Contains(lower, "[remote rejected]") ||
		strings.Contains(lower, "failed to push some refs")):
		return ErrPushRejected
	case (command == "pull" || command == "merge") && (strings.Contains(output, "CONFLICT") ||
		strings.Contains(lower, "automatic merge failed")):
		return ErrMergeConflict
	}
	return nil
}

func isAuthFailure(lower string) bool {
	return strings.Contains(lower, "authentication failed") ||
		strings.Contains(lower, "could not read username") ||
		strings.Contains(lower, "invalid username or password") ||
		strings.Contains(lower, "permission denied (publickey)") ||
		strings.Contains(lower, "the requested url returned error: 403")
}

// Output returns the diagnostic text of a git failure, or the error text when err
// did not come from the git binary.
func Output(err error) string {
	var gitErr *GitError
	if errors.As(err, &gitErr) {
		if out := strings.TrimSpace(gitErr.Output); out != "" {
			return out
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
