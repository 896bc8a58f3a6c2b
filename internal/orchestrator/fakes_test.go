package orchestrator_test

import (
	"context"
	"os"

	"github.com/repodesk/repodesk/internal/git"
	gh "github.com/repodesk/repodesk/internal/github"
)

type fakeGateway struct {
	contents    map[string]gh.FileContents
	getErr      error
	createErr   error
	updateErr   error
	created     []gh.FileChange
	updated     []gh.FileChange
	getCalls    []string
	repoCreated []gh.CreateRepositoryOptions
	repoDeleted []gh.Repository
	issueTitles []string
}

func (f *fakeGateway) AuthenticatedUser(context.Context) (gh.User, error) {
	return gh.User{Login: "octo"}, nil
}

func (f *fakeGateway) ListRepositories(context.Context, string) ([]gh.Repository, error) {
	return nil, nil
}

func (f *fakeGateway) CreateRepository(_ context.Context, opts gh.CreateRepositoryOptions) (gh.Repository, error) {
	f.repoCreated = append(f.repoCreated, opts)
	return gh.Repository{Owner: "octo", Name: opts.Name, FullName: "octo/" + opts.Name}, nil
}

func (f *fakeGateway) DeleteRepository(_ context.Context, repo gh.Repository) error {
	f.repoDeleted = append(f.repoDeleted, repo)
	return nil
}

func (f *fakeGateway) GetContents(_ context.Context, _ gh.Repository, path string) (gh.FileContents, error) {
	f.getCalls = append(f.getCalls, path)
	if f.getErr != nil {
		return gh.FileContents{}, f.getErr
	}
	if existing, ok := f.contents[path]; ok {
		return existing, nil
	}
	return gh.FileContents{}, &gh.RemoteError{Op: "get contents " + path, StatusCode: 404, Err: gh.ErrNotFound}
}

func (f *fakeGateway) CreateFile(_ context.Context, _ gh.Repository, change gh.FileChange) error {
	f.created = append(f.created, change)
	return f.createErr
}

func (f *fakeGateway) UpdateFile(_ context.Context, _ gh.Repository, change gh.FileChange) error {
	f.updated = append(f.updated, change)
	return f.updateErr
}

func (f *fakeGateway) ListIssues(context.Context, gh.Repository) ([]gh.Issue, error) {
	return nil, nil
}

func (f *fakeGateway) CreateIssue(_ context.Context, _ gh.Repository, title, _ string) (gh.Issue, error) {
	f.issueTitles = append(f.issueTitles, title)
	return gh.Issue{Number: len(f.issueTitles), Title: title}, nil
}

type fakeDriver struct {
	workspace  *fakeWorkspace
	initErr    error
	openErr    error
	cloneErr   error
	onClone    func(dest string)
	initCalls  []string
	openCalls  []string
	cloneCalls []string
}

func (d *fakeDriver) Init(_ context.Context, path string) (git.Workspace, error) {
	d.initCalls = append(d.initCalls, path)
	if d.initErr != nil {
		return nil, d.initErr
	}
	d.workspace.path = path
	return d.workspace, nil
}

func (d *fakeDriver) Open(_ context.Context, path string) (git.Workspace, error) {
	d.openCalls = append(d.openCalls, path)
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.workspace.path = path
	return d.workspace, nil
}

func (d *fakeDriver) Clone(_ context.Context, url, dest string) (git.Workspace, error) {
	d.cloneCalls = append(d.cloneCalls, url+" "+dest)
	if d.cloneErr != nil {
		return nil, d.cloneErr
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, err
	}
	if d.onClone != nil {
		d.onClone(dest)
	}
	d.workspace.path = dest
	return d.workspace, nil
}

type pushCall struct {
	remote      string
	branch      string
	setUpstream bool
}

type fakeWorkspace struct {
	path        string
	remotes     map[string]string
	dirty       bool
	branch      string
	detached    bool
	unborn      bool
	upstream    *git.Upstream
	upstreamErr error
	pushErrs    []error
	pullErr     error
	commitErr   error
	stageErr    error
	onStage     func(path string)
	pushes      []pushCall
	pulls       []string
	commits     []string
	forced      []string
}

func newFakeWorkspace() *fakeWorkspace {
	return &fakeWorkspace{remotes: map[string]string{}, branch: "main"}
}

func (w *fakeWorkspace) Path() string { return w.path }

func (w *fakeWorkspace) EnsureRemote(_ context.Context, name, url string) error {
	w.remotes[name] = url
	return nil
}

func (w *fakeWorkspace) RemoteURL(_ context.Context, name string) (string, error) {
	url, ok := w.remotes[name]
	if !ok {
		return "", git.ErrNoRemote
	}
	return url, nil
}

func (w *fakeWorkspace) StageAll(context.Context) error {
	if w.onStage != nil {
		w.onStage(w.path)
	}
	return w.stageErr
}

func (w *fakeWorkspace) IsDirty(context.Context) (bool, error) { return w.dirty, nil }

func (w *fakeWorkspace) Commit(_ context.Context, message string) error {
	w.commits = append(w.commits, message)
	if w.commitErr != nil {
		return w.commitErr
	}
	w.dirty = false
	return nil
}

func (w *fakeWorkspace) CurrentBranch(context.Context) (string, bool, error) {
	if w.detached {
		return "", false, nil
	}
	return w.branch, true, nil
}

func (w *fakeWorkspace) ForceBranch(_ context.Context, name string) error {
	w.forced = append(w.forced, name)
	w.branch = name
	w.detached = false
	return nil
}

func (w *fakeWorkspace) Upstream(context.Context, string) (git.Upstream, error) {
	if w.upstreamErr != nil {
		return git.Upstream{}, w.upstreamErr
	}
	if w.upstream == nil {
		return git.Upstream{}, git.ErrNoUpstream
	}
	return *w.upstream, nil
}

func (w *fakeWorkspace) Push(_ context.Context, remote, branch string, setUpstream bool) error {
	w.pushes = append(w.pushes, pushCall{remote: remote, branch: branch, setUpstream: setUpstream})
	if idx := len(w.pushes) - 1; idx < len(w.pushErrs) {
		return w.pushErrs[idx]
	}
	return nil
}

func (w *fakeWorkspace) Pull(_ context.Context, remote, branch string) error {
	w.pulls = append(w.pulls, remote+"/"+branch)
	return w.pullErr
}

func (w *fakeWorkspace) Inspect(context.Context) (git.WorkingCopy, error) {
	wc := git.WorkingCopy{Path: w.path, Initialized: true, Dirty: w.dirty, Unborn: w.unborn}
	if w.detached {
		wc.Detached = true
	} else {
		wc.Branch = w.branch
	}
	return wc, nil
}

type recordingReporter struct {
	progress []string
	cloned   []string
}

func (r *recordingReporter) Progress(message string) { r.progress = append(r.progress, message) }
func (r *recordingReporter) Cloned(path string)       { r.cloned = append(r.cloned, path) }

func refMismatch() error {
	return &git.GitError{
		Args:   []string{"push", "--set-upstream", "origin", "main"},
		Output: "error: src refspec main does not match any",
		Kind:   git.ErrRefMismatch,
		Err:    os.ErrInvalid,
	}
}
