package orchestrator_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/repodesk/repodesk/internal/git"
	gh "github.com/repodesk/repodesk/internal/github"
	"github.com/repodesk/repodesk/internal/orchestrator"
)

var notesRepo = gh.Repository{
	Owner:         "octo",
	Name:          "notes",
	FullName:      "octo/notes",
	CloneURL:      "https://example.com/octo/notes.git",
	DefaultBranch: "main",
}

var _ = Describe("LinkAndPush", func() {
	var (
		ctx       context.Context
		dir       string
		workspace *fakeWorkspace
		driver    *fakeDriver
		reporter  *recordingReporter
		orch      *orchestrator.Orchestrator
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		workspace = newFakeWorkspace()
		driver = &fakeDriver{workspace: workspace}
		reporter = &recordingReporter{}
		orch = orchestrator.New(orchestrator.Config{}, &fakeGateway{}, driver, nil)
	})

	It("links origin, commits changes and pushes the current branch with upstream tracking", func() {
		workspace.dirty = true
		workspace.remotes["origin"] = "https://example.com/elsewhere.git"

		out := orch.LinkAndPush(ctx, reporter, dir, notesRepo)

		Expect(out.Succeeded()).To(BeTrue(), out.Detail)
		Expect(out.Branch).To(Equal("main"))
		Expect(out.Path).To(Equal(dir))
		Expect(workspace.remotes["origin"]).To(Equal(notesRepo.CloneURL))
		Expect(workspace.commits).To(Equal([]string{"Commit via repodesk"}))
		Expect(workspace.pushes).To(Equal([]pushCall{{remote: "origin", branch: "main", setUpstream: true}}))
		Expect(reporter.progress).NotTo(BeEmpty())
	})

	It("does not commit when the working copy is clean", func() {
		workspace.dirty = false

		out := orch.LinkAndPush(ctx, reporter, dir, notesRepo)

		Expect(out.Succeeded()).To(BeTrue())
		Expect(workspace.commits).To(BeEmpty())
		Expect(workspace.pushes).To(HaveLen(1))
	})

	It("pushes the existing branch instead of main", func() {
		workspace.branch = "dev"
		workspace.dirty = true

		out := orch.LinkAndPush(ctx, reporter, dir, notesRepo)

		Expect(out.Succeeded()).To(BeTrue())
		Expect(out.Branch).To(Equal("dev"))
		Expect(workspace.forced).To(BeEmpty())
		Expect(workspace.pushes[0].branch).To(Equal("dev"))
	})

	It("attaches a detached HEAD to main before pushing", func() {
		workspace.detached = true

		out := orch.LinkAndPush(ctx, reporter, dir, notesRepo)

		Expect(out.Succeeded()).To(BeTrue())
		Expect(workspace.forced).To(Equal([]string{"main"}))
		Expect(workspace.pushes[0].branch).To(Equal("main"))
	})

	It("renames main to master and retries exactly once on a ref mismatch", func() {
		workspace.pushErrs = []error{refMismatch()}

		out := orch.LinkAndPush(ctx, reporter, dir, notesRepo)

		Expect(out.Succeeded()).To(BeTrue(), out.Detail)
		Expect(out.Branch).To(Equal("master"))
		Expect(driver.openCalls).To(Equal([]string{dir}))
		Expect(workspace.forced).To(Equal([]string{"master"}))
		Expect(workspace.pushes).To(Equal([]pushCall{
			{remote: "origin", branch: "main", setUpstream: true},
			{remote: "origin", branch: "master", setUpstream: true},
		}))
	})

	It("surfaces the second failure without trying further names", func() {
		workspace.pushErrs = []error{refMismatch(), refMismatch()}

		out := orch.LinkAndPush(ctx, reporter, dir, notesRepo)

		Expect(out.Succeeded()).To(BeFalse())
		Expect(out.Category).To(Equal(orchestrator.CategoryPushRejected))
		Expect(out.Detail).To(ContainSubstring("src refspec"))
		Expect(workspace.pushes).To(HaveLen(2))
	})

	It("does not retry a ref mismatch while already on master", func() {
		workspace.branch = "master"
		workspace.pushErrs = []error{refMismatch()}

		out := orch.LinkAndPush(ctx, reporter, dir, notesRepo)

		Expect(out.Succeeded()).To(BeFalse())
		Expect(workspace.pushes).To(HaveLen(1))
		Expect(driver.openCalls).To(BeEmpty())
	})

	It("does not retry other push rejections", func() {
		workspace.pushErrs = []error{&git.GitError{Output: "! [rejected] main -> main (fetch first)", Kind: git.ErrPushRejected, Err: errors.New("exit status 1")}}

		out := orch.LinkAndPush(ctx, reporter, dir, notesRepo)

		Expect(out.Category).To(Equal(orchestrator.CategoryPushRejected))
		Expect(workspace.pushes).To(HaveLen(1))
		Expect(workspace.forced).To(BeEmpty())
	})

	It("keeps the commit when the push fails", func() {
		workspace.dirty = true
		workspace.pushErrs = []error{&git.GitError{Output: "fatal: Authentication failed", Kind: git.ErrAuthFailed, Err: errors.New("exit status 128")}}

		out := orch.LinkAndPush(ctx, reporter, dir, notesRepo)

		Expect(out.Category).To(Equal(orchestrator.CategoryAuth))
		Expect(workspace.commits).To(HaveLen(1))
	})

	It("rejects a repository without clone url before touching the folder", func() {
		out := orch.LinkAndPush(ctx, reporter, dir, gh.Repository{FullName: "octo/empty"})

		Expect(out.Category).To(Equal(orchestrator.CategoryInvalidInput))
		Expect(driver.initCalls).To(BeEmpty())
	})

	It("rejects a missing folder", func() {
		out := orch.LinkAndPush(ctx, reporter, filepath.Join(dir, "missing"), notesRepo)

		Expect(out.Category).To(Equal(orchestrator.CategoryInvalidInput))
		Expect(driver.initCalls).To(BeEmpty())
	})

	It("honours a configured commit message", func() {
		orch = orchestrator.New(orchestrator.Config{CommitMessage: "sync"}, &fakeGateway{}, driver, nil)
		workspace.dirty = true

		orch.LinkAndPush(ctx, reporter, dir, notesRepo)

		Expect(workspace.commits).To(Equal([]string{"sync"}))
	})
})

var _ = Describe("Clone", func() {
	var (
		ctx      context.Context
		parent   string
		driver   *fakeDriver
		reporter *recordingReporter
		orch     *orchestrator.Orchestrator
	)

	BeforeEach(func() {
		ctx = context.Background()
		parent = GinkgoT().TempDir()
		driver = &fakeDriver{workspace: newFakeWorkspace()}
		reporter = &recordingReporter{}
		orch = orchestrator.New(orchestrator.Config{}, &fakeGateway{}, driver, nil)
	})

	It("clones into parent/name and reports the cloned path", func() {
		out := orch.Clone(ctx, reporter, notesRepo, parent)

		dest := filepath.Join(parent, "notes")
		Expect(out.Succeeded()).To(BeTrue())
		Expect(out.Path).To(Equal(dest))
		Expect(driver.cloneCalls).To(Equal([]string{notesRepo.CloneURL + " " + dest}))
		Expect(reporter.cloned).To(Equal([]string{dest}))
	})

	It("never touches an existing destination", func() {
		dest := filepath.Join(parent, "notes")
		Expect(os.MkdirAll(dest, 0o755)).To(Succeed())

		out := orch.Clone(ctx, reporter, notesRepo, parent)

		Expect(out.Category).To(Equal(orchestrator.CategoryDestinationExists))
		Expect(driver.cloneCalls).To(BeEmpty())
		Expect(reporter.cloned).To(BeEmpty())
	})

	It("reports clone failures as local vcs errors", func() {
		driver.cloneErr = errors.Join(git.ErrCloneFailed, &git.GitError{Output: "fatal: repository not found", Err: errors.New("exit status 128")})

		out := orch.Clone(ctx, reporter, notesRepo, parent)

		Expect(out.Category).To(Equal(orchestrator.CategoryLocalVCS))
		Expect(out.Detail).To(ContainSubstring("repository not found"))
		Expect(reporter.cloned).To(BeEmpty())
	})
})

var _ = Describe("Pull", func() {
	var (
		ctx       context.Context
		workspace *fakeWorkspace
		driver    *fakeDriver
		orch      *orchestrator.Orchestrator
	)

	BeforeEach(func() {
		ctx = context.Background()
		workspace = newFakeWorkspace()
		workspace.remotes["origin"] = notesRepo.CloneURL
		driver = &fakeDriver{workspace: workspace}
		orch = orchestrator.New(orchestrator.Config{}, &fakeGateway{}, driver, nil)
	})

	It("pulls the tracked branch from origin", func() {
		workspace.branch = "feature"
		workspace.upstream = &git.Upstream{Remote: "origin", Branch: "feature"}

		out := orch.Pull(ctx, nil, "/work/notes", orchestrator.PullOptions{DefaultBranch: "main"})

		Expect(out.Succeeded()).To(BeTrue())
		Expect(out.Branch).To(Equal("feature"))
		Expect(workspace.pulls).To(Equal([]string{"origin/feature"}))
	})

	It("falls back to the default branch when nothing is tracked", func() {
		workspace.branch = "local-only"

		out := orch.Pull(ctx, nil, "/work/notes", orchestrator.PullOptions{DefaultBranch: "main"})

		Expect(out.Succeeded()).To(BeTrue())
		Expect(workspace.pulls).To(Equal([]string{"origin/main"}))
	})

	It("ignores upstreams on other remotes", func() {
		workspace.upstream = &git.Upstream{Remote: "fork", Branch: "main"}

		out := orch.Pull(ctx, nil, "/work/notes", orchestrator.PullOptions{})

		Expect(out.Category).To(Equal(orchestrator.CategoryNoUpstreamConfigured))
		Expect(workspace.pulls).To(BeEmpty())
	})

	It("fails with NoUpstreamConfigured when there is no default branch either", func() {
		out := orch.Pull(ctx, nil, "/work/notes", orchestrator.PullOptions{})

		Expect(out.Category).To(Equal(orchestrator.CategoryNoUpstreamConfigured))
		Expect(workspace.pulls).To(BeEmpty())
	})

	It("fails with InvalidWorkingCopy for a plain folder", func() {
		driver.openErr = git.ErrInvalidWorkingCopy

		out := orch.Pull(ctx, nil, "/work/plain", orchestrator.PullOptions{})

		Expect(out.Category).To(Equal(orchestrator.CategoryInvalidWorkingCopy))
	})

	It("fails with NoRemoteConfigured when origin is missing", func() {
		delete(workspace.remotes, "origin")

		out := orch.Pull(ctx, nil, "/work/notes", orchestrator.PullOptions{DefaultBranch: "main"})

		Expect(out.Category).To(Equal(orchestrator.CategoryNoRemoteConfigured))
		Expect(workspace.pulls).To(BeEmpty())
	})

	It("surfaces merge conflicts without resolving them", func() {
		workspace.upstream = &git.Upstream{Remote: "origin", Branch: "main"}
		workspace.pullErr = &git.GitError{Output: "CONFLICT (content): Merge conflict in README.md", Kind: git.ErrMergeConflict, Err: errors.New("exit status 1")}

		out := orch.Pull(ctx, nil, "/work/notes", orchestrator.PullOptions{})

		Expect(out.Category).To(Equal(orchestrator.CategoryMergeConflict))
		Expect(out.Detail).To(ContainSubstring("CONFLICT"))
	})
})

var _ = Describe("ImportFolder", func() {
	var (
		ctx       context.Context
		base      string
		source    string
		importDir string
		workspace *fakeWorkspace
		driver    *fakeDriver
		orch      *orchestrator.Orchestrator
	)

	BeforeEach(func() {
		ctx = context.Background()
		base = GinkgoT().TempDir()
		importDir = filepath.Join(base, "import")
		source = filepath.Join(base, "photos")
		Expect(os.MkdirAll(filepath.Join(source, "2024"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(source, "index.txt"), []byte("index\n"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(source, "2024", "jan.txt"), []byte("jan\n"), 0o644)).To(Succeed())
		Expect(os.MkdirAll(filepath.Join(source, ".git"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(source, ".git", "HEAD"), []byte("ref: refs/heads/main\n"), 0o644)).To(Succeed())

		workspace = newFakeWorkspace()
		workspace.dirty = true
		driver = &fakeDriver{workspace: workspace}
		orch = orchestrator.New(orchestrator.Config{ImportDir: importDir}, &fakeGateway{}, driver, nil)
	})

	It("copies the folder into the clone, commits, pushes and removes the import directory", func() {
		var copied []string
		reporter := &recordingReporter{}
		// the clone is wiped on return, so capture it while staging
		workspace.onStage = func(path string) {
			copied = listFiles(path)
		}

		out := orch.ImportFolder(ctx, reporter, notesRepo, source)

		Expect(out.Succeeded()).To(BeTrue(), out.Detail)
		Expect(out.Branch).To(Equal("main"))
		Expect(driver.cloneCalls).To(Equal([]string{notesRepo.CloneURL + " " + filepath.Join(importDir, "notes")}))
		Expect(copied).To(ConsistOf("photos/index.txt", "photos/2024/jan.txt"))
		Expect(workspace.commits).To(Equal([]string{"Import folder: photos"}))
		Expect(workspace.pushes).To(Equal([]pushCall{{remote: "origin", branch: "main", setUpstream: true}}))
		Expect(importDir).NotTo(BeADirectory())
	})

	It("wipes leftovers from a previous import before cloning", func() {
		Expect(os.MkdirAll(filepath.Join(importDir, "notes"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(importDir, "notes", "stale.txt"), []byte("stale"), 0o644)).To(Succeed())

		out := orch.ImportFolder(ctx, nil, notesRepo, source)

		Expect(out.Succeeded()).To(BeTrue(), out.Detail)
		Expect(importDir).NotTo(BeADirectory())
	})

	It("reports success without pushing when nothing changed", func() {
		workspace.dirty = false

		out := orch.ImportFolder(ctx, nil, notesRepo, source)

		Expect(out.Succeeded()).To(BeTrue())
		Expect(workspace.commits).To(BeEmpty())
		Expect(workspace.pushes).To(BeEmpty())
		Expect(importDir).NotTo(BeADirectory())
	})

	DescribeTable("removes the import directory when a step fails",
		func(setup func(d *fakeDriver, w *fakeWorkspace), category orchestrator.Category) {
			setup(driver, workspace)

			out := orch.ImportFolder(ctx, nil, notesRepo, source)

			Expect(out.Succeeded()).To(BeFalse())
			Expect(out.Category).To(Equal(category))
			Expect(importDir).NotTo(BeADirectory())
		},
		Entry("clone", func(d *fakeDriver, _ *fakeWorkspace) {
			d.cloneErr = errors.Join(git.ErrCloneFailed, errors.New("fatal: repository not found"))
		}, orchestrator.CategoryLocalVCS),
		Entry("copy", func(d *fakeDriver, _ *fakeWorkspace) {
			d.onClone = func(dest string) {
				Expect(os.WriteFile(filepath.Join(dest, "photos"), []byte("not a folder\n"), 0o644)).To(Succeed())
			}
		}, orchestrator.CategoryFilesystem),
		Entry("stage", func(_ *fakeDriver, w *fakeWorkspace) {
			w.stageErr = errors.New("fatal: index.lock exists")
		}, orchestrator.CategoryLocalVCS),
		Entry("commit", func(_ *fakeDriver, w *fakeWorkspace) {
			w.commitErr = errors.New("please tell me who you are")
		}, orchestrator.CategoryLocalVCS),
		Entry("push", func(_ *fakeDriver, w *fakeWorkspace) {
			w.pushErrs = []error{&git.GitError{Output: "! [rejected]", Kind: git.ErrPushRejected, Err: errors.New("exit status 1")}}
		}, orchestrator.CategoryPushRejected),
	)

	It("copies the targets of symbolic links instead of the links", func() {
		outside := filepath.Join(base, "outside")
		Expect(os.MkdirAll(filepath.Join(outside, "album"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(outside, "cover.txt"), []byte("cover\n"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(outside, "album", "feb.txt"), []byte("feb\n"), 0o644)).To(Succeed())
		Expect(os.Symlink(filepath.Join(outside, "cover.txt"), filepath.Join(source, "cover.txt"))).To(Succeed())
		Expect(os.Symlink(filepath.Join(outside, "album"), filepath.Join(source, "album"))).To(Succeed())

		var copied []string
		var links []string
		workspace.onStage = func(path string) {
			copied = listFiles(path)
			_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
				if err == nil && d.Type()&fs.ModeSymlink != 0 {
					links = append(links, p)
				}
				return nil
			})
		}

		out := orch.ImportFolder(ctx, nil, notesRepo, source)

		Expect(out.Succeeded()).To(BeTrue(), out.Detail)
		Expect(copied).To(ConsistOf("photos/index.txt", "photos/2024/jan.txt", "photos/cover.txt", "photos/album/feb.txt"))
		Expect(links).To(BeEmpty())
	})

	It("fails the copy on a dangling symbolic link", func() {
		Expect(os.Symlink(filepath.Join(base, "missing.txt"), filepath.Join(source, "gone.txt"))).To(Succeed())

		out := orch.ImportFolder(ctx, nil, notesRepo, source)

		Expect(out.Category).To(Equal(orchestrator.CategoryFilesystem))
		Expect(workspace.pushes).To(BeEmpty())
		Expect(importDir).NotTo(BeADirectory())
	})

	It("rejects a symbolic link loop", func() {
		Expect(os.Symlink(source, filepath.Join(source, "2024", "back"))).To(Succeed())

		out := orch.ImportFolder(ctx, nil, notesRepo, source)

		Expect(out.Category).To(Equal(orchestrator.CategoryFilesystem))
		Expect(out.Detail).To(ContainSubstring("symlink loop"))
	})

	It("pushes the primary branch when the repository is empty", func() {
		workspace.unborn = true
		workspace.branch = "master"

		out := orch.ImportFolder(ctx, nil, notesRepo, source)

		Expect(out.Succeeded()).To(BeTrue(), out.Detail)
		Expect(workspace.forced).To(Equal([]string{"main"}))
		Expect(workspace.pushes).To(Equal([]pushCall{{remote: "origin", branch: "main", setUpstream: true}}))
	})

	It("keeps the checked out branch of a clone with history", func() {
		workspace.branch = "trunk"

		out := orch.ImportFolder(ctx, nil, notesRepo, source)

		Expect(out.Succeeded()).To(BeTrue(), out.Detail)
		Expect(workspace.forced).To(BeEmpty())
		Expect(out.Branch).To(Equal("trunk"))
	})

	It("does not fall back to master on import", func() {
		workspace.pushErrs = []error{refMismatch()}

		out := orch.ImportFolder(ctx, nil, notesRepo, source)

		Expect(out.Succeeded()).To(BeFalse())
		Expect(workspace.pushes).To(HaveLen(1))
	})

	It("rejects an import directory that is not absolute", func() {
		orch = orchestrator.New(orchestrator.Config{ImportDir: "relative/import"}, &fakeGateway{}, driver, nil)

		out := orch.ImportFolder(ctx, nil, notesRepo, source)

		Expect(out.Category).To(Equal(orchestrator.CategoryInvalidInput))
		Expect(driver.cloneCalls).To(BeEmpty())
	})

	It("rejects the home directory as import directory", func() {
		home, err := os.UserHomeDir()
		if err != nil {
			Skip("no home directory")
		}
		orch = orchestrator.New(orchestrator.Config{ImportDir: home}, &fakeGateway{}, driver, nil)

		out := orch.ImportFolder(ctx, nil, notesRepo, source)

		Expect(out.Category).To(Equal(orchestrator.CategoryInvalidInput))
		Expect(driver.cloneCalls).To(BeEmpty())
	})

	It("rejects a source inside the import directory", func() {
		orch = orchestrator.New(orchestrator.Config{ImportDir: base}, &fakeGateway{}, driver, nil)

		out := orch.ImportFolder(ctx, nil, notesRepo, source)

		Expect(out.Category).To(Equal(orchestrator.CategoryInvalidInput))
		Expect(source).To(BeADirectory())
	})

	It("rejects a source that is not a folder", func() {
		out := orch.ImportFolder(ctx, nil, notesRepo, filepath.Join(source, "index.txt"))

		Expect(out.Category).To(Equal(orchestrator.CategoryInvalidInput))
		Expect(driver.cloneCalls).To(BeEmpty())
	})
})

var _ = Describe("ImportFile", func() {
	var (
		ctx     context.Context
		dir     string
		gateway *fakeGateway
		orch    *orchestrator.Orchestrator
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		gateway = &fakeGateway{contents: map[string]gh.FileContents{}}
		orch = orchestrator.New(orchestrator.Config{}, gateway, &fakeDriver{workspace: newFakeWorkspace()}, nil)
	})

	writeTemp := func(name string, content []byte) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, content, 0o644)).To(Succeed())
		return path
	}

	It("updates an existing file with its last known sha", func() {
		gateway.contents["notes.txt"] = gh.FileContents{Path: "notes.txt", SHA: "abc123", Content: []byte("old")}
		path := writeTemp("notes.txt", []byte("hello"))

		out := orch.ImportFile(ctx, nil, notesRepo, path)

		Expect(out.Succeeded()).To(BeTrue(), out.Detail)
		Expect(gateway.created).To(BeEmpty())
		Expect(gateway.updated).To(Equal([]gh.FileChange{{
			Path:    "notes.txt",
			Message: "Update notes.txt",
			Content: []byte("hello"),
			SHA:     "abc123",
		}}))
	})

	It("creates the file when it does not exist remotely", func() {
		path := writeTemp("todo.md", []byte("- [ ] ship\n"))

		out := orch.ImportFile(ctx, nil, notesRepo, path)

		Expect(out.Succeeded()).To(BeTrue(), out.Detail)
		Expect(gateway.updated).To(BeEmpty())
		Expect(gateway.created).To(HaveLen(1))
		Expect(gateway.created[0].Message).To(Equal("Add todo.md"))
		Expect(gateway.created[0].SHA).To(BeEmpty())
	})

	It("rejects invalid UTF-8 without calling the gateway", func() {
		path := writeTemp("image.png", []byte{0x89, 0x50, 0x4e, 0x47, 0xff, 0xfe, 0x00})

		out := orch.ImportFile(ctx, nil, notesRepo, path)

		Expect(out.Category).To(Equal(orchestrator.CategoryBinaryFileRejected))
		Expect(gateway.getCalls).To(BeEmpty())
		Expect(gateway.created).To(BeEmpty())
		Expect(gateway.updated).To(BeEmpty())
	})

	It("does not create when reading the remote file fails for another reason", func() {
		gateway.getErr = &gh.RemoteError{Op: "get contents", StatusCode: 500, Err: errors.New("boom")}
		path := writeTemp("notes.txt", []byte("hello"))

		out := orch.ImportFile(ctx, nil, notesRepo, path)

		Expect(out.Category).To(Equal(orchestrator.CategoryRemote))
		Expect(gateway.created).To(BeEmpty())
		Expect(gateway.updated).To(BeEmpty())
	})

	It("reports a rejected precondition as a remote failure", func() {
		gateway.contents["notes.txt"] = gh.FileContents{SHA: "abc123"}
		gateway.updateErr = &gh.RemoteError{Op: "update file", StatusCode: 409, Err: errors.New("sha does not match")}
		path := writeTemp("notes.txt", []byte("hello"))

		out := orch.ImportFile(ctx, nil, notesRepo, path)

		Expect(out.Category).To(Equal(orchestrator.CategoryRemote))
		Expect(gateway.created).To(BeEmpty())
	})

	It("reports an unauthorized token as an auth failure", func() {
		gateway.getErr = &gh.RemoteError{Op: "get contents", StatusCode: 401, Err: errors.New("bad credentials")}
		path := writeTemp("notes.txt", []byte("hello"))

		out := orch.ImportFile(ctx, nil, notesRepo, path)

		Expect(out.Category).To(Equal(orchestrator.CategoryAuth))
	})
})

var _ = Describe("Repository procedures", func() {
	var (
		ctx     context.Context
		gateway *fakeGateway
		orch    *orchestrator.Orchestrator
	)

	BeforeEach(func() {
		ctx = context.Background()
		gateway = &fakeGateway{}
		orch = orchestrator.New(orchestrator.Config{}, gateway, nil, nil)
	})

	It("creates repositories", func() {
		out := orch.CreateRepository(ctx, nil, gh.CreateRepositoryOptions{Name: "notes", Private: true})

		Expect(out.Succeeded()).To(BeTrue())
		Expect(gateway.repoCreated).To(HaveLen(1))
	})

	It("requires a repository name", func() {
		out := orch.CreateRepository(ctx, nil, gh.CreateRepositoryOptions{Name: "  "})

		Expect(out.Category).To(Equal(orchestrator.CategoryInvalidInput))
		Expect(gateway.repoCreated).To(BeEmpty())
	})

	It("deletes repositories", func() {
		out := orch.DeleteRepository(ctx, nil, notesRepo)

		Expect(out.Succeeded()).To(BeTrue())
		Expect(gateway.repoDeleted).To(Equal([]gh.Repository{notesRepo}))
	})

	It("opens issues", func() {
		out := orch.CreateIssue(ctx, nil, notesRepo, "Typo", "")

		Expect(out.Succeeded()).To(BeTrue())
		Expect(gateway.issueTitles).To(Equal([]string{"Typo"}))
	})

	It("fails every workflow on a disconnected gateway with an auth category", func() {
		orch = orchestrator.New(orchestrator.Config{}, gh.NewDisconnectedGateway(), nil, nil)

		out := orch.CreateIssue(ctx, nil, notesRepo, "Typo", "")

		Expect(out.Category).To(Equal(orchestrator.CategoryAuth))
	})
})

var _ = DescribeTable("Categorize",
	func(err error, expected orchestrator.Category) {
		Expect(orchestrator.Categorize(err, orchestrator.CategoryInternal)).To(Equal(expected))
	},
	Entry("nil", nil, orchestrator.CategoryInternal),
	Entry("unclassified", errors.New("boom"), orchestrator.CategoryInternal),
	Entry("unauthorized", &gh.RemoteError{StatusCode: 401, Err: errors.New("x")}, orchestrator.CategoryAuth),
	Entry("remote", &gh.RemoteError{StatusCode: 422, Err: errors.New("x")}, orchestrator.CategoryRemote),
	Entry("git auth", &git.GitError{Kind: git.ErrAuthFailed, Err: errors.New("x")}, orchestrator.CategoryAuth),
	Entry("ref mismatch", refMismatch(), orchestrator.CategoryPushRejected),
	Entry("merge conflict", &git.GitError{Kind: git.ErrMergeConflict, Err: errors.New("x")}, orchestrator.CategoryMergeConflict),
	Entry("destination exists", git.ErrDestinationExists, orchestrator.CategoryDestinationExists),
	Entry("invalid working copy", git.ErrInvalidWorkingCopy, orchestrator.CategoryInvalidWorkingCopy),
	Entry("invalid name", gh.ErrInvalidRepositoryName, orchestrator.CategoryInvalidInput),
)
