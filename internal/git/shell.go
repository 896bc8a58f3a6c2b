package git

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// processWaitDelay bounds how long a cancelled git may hold its output pipes open.
const processWaitDelay = 5 * time.Second

// ShellDriver shells out to the system git binary for every mutating operation.
// Read-only inspection goes through go-git.
type ShellDriver struct {
	// Git is the git binary to execute. Defaults to "git" when empty.
	Git string

	// InitialBranch is the branch HEAD points at after Init. Defaults to "main".
	InitialBranch string

	// Token, if provided, is sent as an HTTP Authorization header on network
	// commands. It is never written into a remote URL.
	Token string

	// UserName and UserEmail override the commit identity when set.
	UserName  string
	UserEmail string

	// NetworkTimeout bounds network commands. Zero means no timeout.
	NetworkTimeout time.Duration
}

// NewShellDriver returns a Driver backed by system git commands.
func NewShellDriver() *ShellDriver {
	return &ShellDriver{}
}

func (d *ShellDriver) gitBinary() string {
	if d.Git == "" {
		return "git"
	}
	return d.Git
}

func (d *ShellDriver) initialBranch() string {
	if d.InitialBranch == "" {
		return "main"
	}
	return d.InitialBranch
}

func (d *ShellDriver) Init(ctx context.Context, path string) (Workspace, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	ws, err := d.Open(ctx, path)
	if err == nil {
		return ws, nil
	}
	if !errors.Is(err, ErrInvalidWorkingCopy) {
		return nil, err
	}

	if _, err := d.runGit(ctx, "init", path); err != nil {
		return nil, fmt.Errorf("git init: %w", err)
	}
	if _, err := d.runGit(ctx, "-C", path, "symbolic-ref", "HEAD", "refs/heads/"+d.initialBranch()); err != nil {
		return nil, fmt.Errorf("git symbolic-ref: %w", err)
	}

	return &shellWorkspace{driver: d, path: path}, nil
}

func (d *ShellDriver) Open(ctx context.Context, path string) (Workspace, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if _, err := openRepository(path); err != nil {
		return nil, err
	}
	return &shellWorkspace{driver: d, path: path}, nil
}

func (d *ShellDriver) Clone(ctx context.Context, url, dest string) (Workspace, error) {
	if url == "" || dest == "" {
		return nil, fmt.Errorf("url and destination are required")
	}

	entries, err := os.ReadDir(dest)
	switch {
	case err == nil && len(entries) > 0:
		return nil, fmt.Errorf("%w: %s", ErrDestinationExists, dest)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: %s: %v", ErrDestinationExists, dest, err)
	}

	if _, err := d.runGit(ctx, "clone", url, dest); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCloneFailed, err)
	}

	return &shellWorkspace{driver: d, path: dest}, nil
}

type shellWorkspace struct {
	path   string
	driver *ShellDriver
}

func (w *shellWorkspace) Path() string {
	return w.path
}

func (w *shellWorkspace) EnsureRemote(ctx context.Context, name, url string) error {
	out, err := w.exec(ctx, "remote")
	if err != nil {
		return fmt.Errorf("git remote: %w", err)
	}

	for _, existing := range strings.Fields(out) {
		if existing == name {
			if _, err := w.exec(ctx, "remote", "set-url", name, url); err != nil {
				return fmt.Errorf("git remote set-url %s: %w", name, err)
			}
			return nil
		}
	}

	if _, err := w.exec(ctx, "remote", "add", name, url); err != nil {
		return fmt.Errorf("git remote add %s: %w", name, err)
	}
	return nil
}

func (w *shellWorkspace) RemoteURL(ctx context.Context, name string) (string, error) {
	repo, err := openRepository(w.path)
	if err != nil {
		return "", err
	}
	return remoteURL(repo, name)
}

func (w *shellWorkspace) StageAll(ctx context.Context) error {
	if _, err := w.exec(ctx, "add", "-A"); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	return nil
}

func (w *shellWorkspace) IsDirty(ctx context.Context) (bool, error) {
	out, err := w.exec(ctx, "status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return strings.TrimSpace(out) != "", nil
}

func (w *shellWorkspace) Commit(ctx context.Context, message string) error {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return fmt.Errorf("commit message is required")
	}

	args := make([]string, 0, 8)
	if w.driver.UserName != "" {
		args = append(args, "-c", "user.name="+w.driver.UserName)
	}
	if w.driver.UserEmail != "" {
		args = append(args, "-c", "user.email="+w.driver.UserEmail)
	}
	args = append(args, "commit", "-m", msg)

	if _, err := w.exec(ctx, args...); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}

func (w *shellWorkspace) CurrentBranch(ctx context.Context) (string, bool, error) {
	out, err := w.exec(ctx, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		// symbolic-ref exits 1 without output when HEAD is detached
		if exitCode(err) == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("git symbolic-ref: %w", err)
	}
	branch := strings.TrimSpace(out)
	return branch, branch != "", nil
}

func (w *shellWorkspace) ForceBranch(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("branch name is required")
	}

	if !w.hasCommit(ctx) {
		if _, err := w.exec(ctx, "symbolic-ref", "HEAD", "refs/heads/"+name); err != nil {
			return fmt.Errorf("git symbolic-ref %s: %w", name, err)
		}
		return nil
	}

	_, onBranch, err := w.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if !onBranch {
		if _, err := w.exec(ctx, "checkout", "-B", name); err != nil {
			return fmt.Errorf("git checkout -B %s: %w", name, err)
		}
		return nil
	}

	if _, err := w.exec(ctx, "branch", "-M", name); err != nil {
		return fmt.Errorf("git branch -M %s: %w", name, err)
	}
	return nil
}

func (w *shellWorkspace) Upstream(ctx context.Context, branch string) (Upstream, error) {
	repo, err := openRepository(w.path)
	if err != nil {
		return Upstream{}, err
	}
	return branchUpstream(repo, branch)
}

func (w *shellWorkspace) Push(ctx context.Context, remote, branch string, setUpstream bool) error {
	args := []string{"push"}
	if setUpstream {
		args = append(args, "--set-upstream")
	}
	args = append(args, remote, branch)

	if _, err := w.exec(ctx, args...); err != nil {
		return fmt.Errorf("git push %s %s: %w", remote, branch, err)
	}
	return nil
}

func (w *shellWorkspace) Pull(ctx context.Context, remote, branch string) error {
	if _, err := w.exec(ctx, "pull", "--no-rebase", "--no-edit", remote, branch); err != nil {
		return fmt.Errorf("git pull %s %s: %w", remote, branch, err)
	}
	return nil
}

func (w *shellWorkspace) Inspect(ctx context.Context) (WorkingCopy, error) {
	return inspect(w.path)
}

func (w *shellWorkspace) hasCommit(ctx context.Context) bool {
	_, err := w.exec(ctx, "rev-parse", "--verify", "--quiet", "HEAD")
	return err == nil
}

func (w *shellWorkspace) exec(ctx context.Context, args ...string) (string, error) {
	cmd := append([]string{"-C", w.path}, args...)
	return w.driver.runGit(ctx, cmd...)
}

func (d *ShellDriver) runGit(ctx context.Context, args ...string) (string, error) {
	primary := primaryGitCommand(args)
	isNetwork := isNetworkCommand(primary)

	runCtx, cancel := d.applyNetworkTimeout(ctx, isNetwork)
	defer cancel()

	var prefix []string
	if isNetwork && d.Token != "" {
		prefix = []string{"-c", "http.extraHeader=" + authorizationHeader(d.Token)}
	}

	return d.execGit(runCtx, prefix, args)
}

// execGit executes git with prefix+args. Only args are recorded in errors so
// that credentials carried in prefix never reach logs.
func (d *ShellDriver) execGit(ctx context.Context, prefix, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, d.gitBinary(), append(prefix, args...)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	configureProcess(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		output := strings.TrimSpace(stderr.String() + "\n" + stdout.String())
		return "", &GitError{
			Args:   args,
			Output: output,
			Kind:   classifyOutput(primaryGitCommand(args), output),
			Err:    err,
		}
	}

	return stdout.String(), nil
}

func authorizationHeader(token string) string {
	creds := base64.StdEncoding.EncodeToString([]byte("x-access-token:" + token))
	return "Authorization: Basic " + creds
}

func primaryGitCommand(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			if i+1 < len(args) {
				return args[i+1]
			}
			return ""
		}
		if strings.HasPrefix(arg, "-") {
			switch arg {
			case "-C", "--git-dir", "-c":
				i++
			}
			continue
		}
		return arg
	}
	return ""
}

func isNetworkCommand(cmd string) bool {
	switch cmd {
	case "clone", "fetch", "push", "pull", "ls-remote":
		return true
	default:
		return false
	}
}

func (d *ShellDriver) applyNetworkTimeout(ctx context.Context, network bool) (context.Context, context.CancelFunc) {
	if !network || d.NetworkTimeout <= 0 {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok && !deadline.IsZero() {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.NetworkTimeout)
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
