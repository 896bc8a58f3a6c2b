package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/repodesk/repodesk/internal/git"
	gh "github.com/repodesk/repodesk/internal/github"
	"github.com/repodesk/repodesk/internal/orchestrator"
	"github.com/repodesk/repodesk/internal/runner"
	"github.com/repodesk/repodesk/internal/session"
)

// Tooling is the local git surface the application needs: the workflow driver
// plus installation and identity checks.
type Tooling interface {
	git.Driver
	Version(ctx context.Context) (string, error)
	GlobalIdentity(ctx context.Context) (git.Identity, error)
	SetGlobalIdentity(ctx context.Context, id git.Identity) error
}

// OutcomeError is returned when a task finished without succeeding.
type OutcomeError struct {
	Outcome orchestrator.Outcome
}

func (e *OutcomeError) Error() string {
	if e.Outcome.Detail == "" {
		return fmt.Sprintf("%s (%s)", e.Outcome.Message, e.Outcome.Category)
	}
	return fmt.Sprintf("%s (%s): %s", e.Outcome.Message, e.Outcome.Category, e.Outcome.Detail)
}

// App glues together the session, the background runner and the workflow
// engine behind one call per user action.
type App struct {
	cfg       Config
	log       *slog.Logger
	ghFactory gh.Factory
	tooling   Tooling
	session   *session.Session
	runner    *runner.Runner
	registry  *prometheus.Registry

	subsMu     sync.Mutex
	subs       map[string]*subscription
	dispatched chan struct{}
	// abandoned is set once a caller stopped waiting for a task that is
	// still running.
	abandoned atomic.Bool
}

// subscription queues the events of one task for its caller. The queue is
// unbounded so the dispatcher never blocks on a slow or departed caller.
type subscription struct {
	mu     sync.Mutex
	queue  []runner.Event
	notify chan struct{}
}

func newSubscription() *subscription {
	return &subscription{notify: make(chan struct{}, 1)}
}

func (s *subscription) push(ev runner.Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscription) drain() []runner.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.queue
	s.queue = nil
	return events
}

// NewApp constructs an App with the REST gateway and the git binary.
func NewApp(cfg Config) (*App, error) {
	logger, err := NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	driver := git.NewShellDriver()
	driver.Token = cfg.GitHubToken
	driver.UserName = cfg.GitUserName
	driver.UserEmail = cfg.GitUserEmail
	driver.NetworkTimeout = cfg.NetworkTimeout

	return NewAppWithDeps(cfg, logger, gh.NewRESTFactory(cfg.GitHubBaseURL, cfg.GitHubUploadURL), driver), nil
}

// NewAppWithDeps constructs an App with injected dependencies for testing.
func NewAppWithDeps(cfg Config, log *slog.Logger, ghFactory gh.Factory, tooling Tooling) *App {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	registry := prometheus.NewRegistry()
	a := &App{
		cfg:        cfg,
		log:        log,
		ghFactory:  ghFactory,
		tooling:    tooling,
		session:    session.New(log),
		runner:     runner.New(runner.WithLogger(log), runner.WithMetrics(runner.NewMetrics(registry))),
		registry:   registry,
		subs:       map[string]*subscription{},
		dispatched: make(chan struct{}),
	}
	go a.dispatch()
	return a
}

// dispatch routes every runner event to the caller waiting on its task.
// Events of tasks nobody waits for any more are dropped.
func (a *App) dispatch() {
	defer close(a.dispatched)
	for ev := range a.runner.Events() {
		a.subsMu.Lock()
		sub := a.subs[ev.TaskID]
		a.subsMu.Unlock()
		if sub != nil {
			sub.push(ev)
		}
	}
}

// Session exposes the session state, e.g. for listing the cached repositories.
func (a *App) Session() *session.Session {
	return a.session
}

// Close waits for running tasks and flushes metrics when a metrics file is
// configured. Tasks a caller stopped waiting for are left behind instead.
func (a *App) Close() error {
	if a.abandoned.Load() {
		a.log.Warn("exiting with tasks still running")
	} else {
		a.runner.Close()
		<-a.dispatched
	}

	if a.cfg.MetricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, a.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// Connect verifies the configured token and switches the session to it.
func (a *App) Connect(ctx context.Context) (gh.User, error) {
	if user, ok := a.session.User(); ok {
		return user, nil
	}
	if strings.TrimSpace(a.cfg.GitHubToken) == "" {
		return gh.User{}, fmt.Errorf("github token is required (set REPODESK_GITHUB_TOKEN or GITHUB_TOKEN)")
	}
	return a.session.Connect(ctx, a.ghFactory, a.cfg.GitHubToken)
}

func (a *App) orchestrator() *orchestrator.Orchestrator {
	cfg := orchestrator.Config{
		CommitMessage: a.cfg.CommitMessage,
		ImportDir:     a.cfg.ImportDir,
	}
	return orchestrator.New(cfg, a.session.Gateway(), a.tooling, a.log)
}

// run submits task and forwards its events to observe until it finishes.
// A failed outcome is returned as *OutcomeError. When ctx is done first, run
// returns ctx.Err() and the task keeps running in the background.
func (a *App) run(ctx context.Context, task runner.Task, observe func(runner.Event)) (orchestrator.Outcome, error) {
	sub := newSubscription()

	// Holding subsMu across Submit keeps the dispatcher from routing the
	// first events before the subscription exists.
	a.subsMu.Lock()
	id, err := a.runner.Submit(ctx, task)
	if err != nil {
		a.subsMu.Unlock()
		return orchestrator.Outcome{}, err
	}
	a.subs[id] = sub
	a.subsMu.Unlock()

	defer func() {
		a.subsMu.Lock()
		delete(a.subs, id)
		a.subsMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			a.abandoned.Store(true)
			a.log.Warn("stopped waiting for task", "task", task.Name, "id", id, "error", ctx.Err())
			return orchestrator.Outcome{}, ctx.Err()
		case <-a.dispatched:
			// the runner closed; deliver whatever was routed before that
			if out, done, err := a.deliver(sub, observe); done {
				return out, err
			}
			return orchestrator.Outcome{}, runner.ErrClosed
		case <-sub.notify:
			if out, done, err := a.deliver(sub, observe); done {
				return out, err
			}
		}
	}
}

// deliver forwards the queued events of sub and reports whether the task finished.
func (a *App) deliver(sub *subscription, observe func(runner.Event)) (orchestrator.Outcome, bool, error) {
	for _, ev := range sub.drain() {
		if observe != nil {
			observe(ev)
		}
		if ev.Kind != runner.EventFinished {
			continue
		}
		if !ev.Outcome.Succeeded() {
			return ev.Outcome, true, &OutcomeError{Outcome: ev.Outcome}
		}
		return ev.Outcome, true, nil
	}
	return orchestrator.Outcome{}, false, nil
}

// resolve connects, loads the repository listing when needed and finds name in it.
func (a *App) resolve(ctx context.Context, name string) (gh.Repository, error) {
	if _, err := a.Connect(ctx); err != nil {
		return gh.Repository{}, err
	}
	if len(a.session.Repositories()) == 0 {
		if _, err := a.session.Refresh(ctx); err != nil {
			return gh.Repository{}, fmt.Errorf("list repositories: %w", err)
		}
	}
	return a.session.Select(name)
}

// ListRepositories refreshes the listing in the background and returns the
// entries matching filter.
func (a *App) ListRepositories(ctx context.Context, filter string, observe func(runner.Event)) ([]gh.Repository, error) {
	if _, err := a.Connect(ctx); err != nil {
		return nil, err
	}

	_, err := a.run(ctx, runner.Task{
		Name: "list-repositories",
		Run: func(ctx context.Context, rep orchestrator.Reporter) orchestrator.Outcome {
			rep.Progress("Loading repositories")
			repos, err := a.session.Refresh(ctx)
			if err != nil {
				return orchestrator.Failure(orchestrator.CategoryRemote, "list repositories", err)
			}
			return orchestrator.Success(fmt.Sprintf("Loaded %d repositories", len(repos)))
		},
	}, observe)
	if err != nil {
		return nil, err
	}
	return a.session.Filter(filter), nil
}

// CreateRepository creates a repository for the authenticated user.
func (a *App) CreateRepository(ctx context.Context, opts gh.CreateRepositoryOptions, observe func(runner.Event)) (orchestrator.Outcome, error) {
	if _, err := a.Connect(ctx); err != nil {
		return orchestrator.Outcome{}, err
	}
	orch := a.orchestrator()
	return a.run(ctx, runner.Task{
		Name: "create-repository",
		Run: func(ctx context.Context, rep orchestrator.Reporter) orchestrator.Outcome {
			return orch.CreateRepository(ctx, rep, opts)
		},
	}, observe)
}

// DeleteRepository deletes name and drops it from the session.
func (a *App) DeleteRepository(ctx context.Context, name string, observe func(runner.Event)) (orchestrator.Outcome, error) {
	repo, err := a.resolve(ctx, name)
	if err != nil {
		return orchestrator.Outcome{}, err
	}
	orch := a.orchestrator()
	out, err := a.run(ctx, runner.Task{
		Name: "delete-repository",
		Run: func(ctx context.Context, rep orchestrator.Reporter) orchestrator.Outcome {
			return orch.DeleteRepository(ctx, rep, repo)
		},
	}, observe)
	if err == nil {
		a.session.Forget(repo.FullName)
	}
	return out, err
}

// ListIssues returns the open issues of name.
func (a *App) ListIssues(ctx context.Context, name string, observe func(runner.Event)) ([]gh.Issue, error) {
	repo, err := a.resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	gateway := a.session.Gateway()
	var issues []gh.Issue
	_, err = a.run(ctx, runner.Task{
		Name: "list-issues",
		Run: func(ctx context.Context, rep orchestrator.Reporter) orchestrator.Outcome {
			rep.Progress(fmt.Sprintf("Loading issues of %s", repo.FullName))
			found, err := gateway.ListIssues(ctx, repo)
			if err != nil {
				return orchestrator.Failure(orchestrator.CategoryRemote, fmt.Sprintf("list issues of %s", repo.FullName), err)
			}
			issues = found
			return orchestrator.Success(fmt.Sprintf("Loaded %d issues", len(found)))
		},
	}, observe)
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// CreateIssue opens an issue on name.
func (a *App) CreateIssue(ctx context.Context, name, title, body string, observe func(runner.Event)) (orchestrator.Outcome, error) {
	repo, err := a.resolve(ctx, name)
	if err != nil {
		return orchestrator.Outcome{}, err
	}
	orch := a.orchestrator()
	return a.run(ctx, runner.Task{
		Name: "create-issue",
		Run: func(ctx context.Context, rep orchestrator.Reporter) orchestrator.Outcome {
			return orch.CreateIssue(ctx, rep, repo, title, body)
		},
	}, observe)
}

// LinkAndPush links the folder at path to name and pushes it.
func (a *App) LinkAndPush(ctx context.Context, path, name string, observe func(runner.Event)) (orchestrator.Outcome, error) {
	repo, err := a.resolve(ctx, name)
	if err != nil {
		return orchestrator.Outcome{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return orchestrator.Outcome{}, err
	}
	orch := a.orchestrator()
	return a.run(ctx, runner.Task{
		Name: "link-and-push",
		Keys: []string{abs},
		Run: func(ctx context.Context, rep orchestrator.Reporter) orchestrator.Outcome {
			return orch.LinkAndPush(ctx, rep, abs, repo)
		},
	}, observe)
}

// Clone clones name into parent.
func (a *App) Clone(ctx context.Context, name, parent string, observe func(runner.Event)) (orchestrator.Outcome, error) {
	repo, err := a.resolve(ctx, name)
	if err != nil {
		return orchestrator.Outcome{}, err
	}
	abs, err := filepath.Abs(parent)
	if err != nil {
		return orchestrator.Outcome{}, err
	}
	orch := a.orchestrator()
	return a.run(ctx, runner.Task{
		Name: "clone",
		Keys: []string{filepath.Join(abs, repo.Name)},
		Run: func(ctx context.Context, rep orchestrator.Reporter) orchestrator.Outcome {
			return orch.Clone(ctx, rep, repo, abs)
		},
	}, observe)
}

// Pull pulls origin into the working copy at path. When name is given its
// default branch is pulled if the current branch tracks nothing on origin.
func (a *App) Pull(ctx context.Context, path, name string, observe func(runner.Event)) (orchestrator.Outcome, error) {
	var opts orchestrator.PullOptions
	if strings.TrimSpace(name) != "" {
		repo, err := a.resolve(ctx, name)
		if err != nil {
			return orchestrator.Outcome{}, err
		}
		opts.DefaultBranch = repo.DefaultBranch
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return orchestrator.Outcome{}, err
	}
	orch := a.orchestrator()
	return a.run(ctx, runner.Task{
		Name: "pull",
		Keys: []string{abs},
		Run: func(ctx context.Context, rep orchestrator.Reporter) orchestrator.Outcome {
			return orch.Pull(ctx, rep, abs, opts)
		},
	}, observe)
}

// ImportFolder copies source into name through the import directory.
func (a *App) ImportFolder(ctx context.Context, name, source string, observe func(runner.Event)) (orchestrator.Outcome, error) {
	repo, err := a.resolve(ctx, name)
	if err != nil {
		return orchestrator.Outcome{}, err
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return orchestrator.Outcome{}, err
	}
	orch := a.orchestrator()
	return a.run(ctx, runner.Task{
		Name: "import-folder",
		Keys: []string{a.cfg.ImportDir, abs},
		Run: func(ctx context.Context, rep orchestrator.Reporter) orchestrator.Outcome {
			return orch.ImportFolder(ctx, rep, repo, abs)
		},
	}, observe)
}

// ImportFile uploads file to the root of name.
func (a *App) ImportFile(ctx context.Context, name, file string, observe func(runner.Event)) (orchestrator.Outcome, error) {
	repo, err := a.resolve(ctx, name)
	if err != nil {
		return orchestrator.Outcome{}, err
	}
	orch := a.orchestrator()
	return a.run(ctx, runner.Task{
		Name: "import-file",
		Keys: []string{repo.FullName + "/" + filepath.Base(file)},
		Run: func(ctx context.Context, rep orchestrator.Reporter) orchestrator.Outcome {
			return orch.ImportFile(ctx, rep, repo, file)
		},
	}, observe)
}

// Status inspects the working copy at path.
func (a *App) Status(path string) (git.WorkingCopy, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return git.WorkingCopy{}, err
	}
	return git.Inspect(abs)
}

// Identity returns the global commit identity.
func (a *App) Identity(ctx context.Context) (git.Identity, error) {
	return a.tooling.GlobalIdentity(ctx)
}

// SetIdentity stores the global commit identity.
func (a *App) SetIdentity(ctx context.Context, id git.Identity) error {
	if err := validate.Var(id.Email, "required,email"); err != nil {
		return fmt.Errorf("invalid email %q", id.Email)
	}
	return a.tooling.SetGlobalIdentity(ctx, id)
}

// GitVersion reports the installed git version, failing when git is missing.
func (a *App) GitVersion(ctx context.Context) (string, error) {
	version, err := a.tooling.Version(ctx)
	if err != nil {
		return "", errors.Join(errors.New("git is not installed or not on PATH"), err)
	}
	return version, nil
}
