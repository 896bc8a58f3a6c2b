package orchestrator_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/repodesk/repodesk/internal/git"
	gh "github.com/repodesk/repodesk/internal/github"
	"github.com/repodesk/repodesk/internal/orchestrator"
)

var _ = Describe("Workflows against a real git remote", func() {
	var (
		ctx    context.Context
		base   string
		remote string
		repo   gh.Repository
		orch   *orchestrator.Orchestrator
	)

	BeforeEach(func() {
		if _, err := exec.LookPath("git"); err != nil {
			Skip("git binary not available")
		}

		ctx = context.Background()
		base = GinkgoT().TempDir()
		remote = newBareRemote(base)
		repo = gh.Repository{Owner: "octo", Name: "notes", FullName: "octo/notes", CloneURL: remote}

		driver := &git.ShellDriver{UserName: "Repodesk Test", UserEmail: "test@example.com"}
		orch = orchestrator.New(orchestrator.Config{ImportDir: filepath.Join(base, "import")}, &fakeGateway{}, driver, nil)
	})

	It("publishes a plain folder as main with upstream tracking", func() {
		folder := filepath.Join(base, "folder")
		writeFile(filepath.Join(folder, "a.txt"), "alpha\n")
		writeFile(filepath.Join(folder, "b.txt"), "beta\n")

		out := orch.LinkAndPush(ctx, nil, folder, repo)

		Expect(out.Succeeded()).To(BeTrue(), out.Detail)
		Expect(out.Branch).To(Equal("main"))
		Expect(mustCaptureGit(folder, "remote", "get-url", "origin")).To(Equal(remote))
		Expect(mustCaptureGit(folder, "rev-list", "--count", "HEAD")).To(Equal("1"))
		Expect(mustCaptureGit(folder, "rev-parse", "--abbrev-ref", "main@{upstream}")).To(Equal("origin/main"))

		files := strings.Fields(mustCaptureGit(base, "--git-dir", remote, "ls-tree", "--name-only", "main"))
		Expect(files).To(ConsistOf("a.txt", "b.txt"))
	})

	It("overwrites a foreign origin and pushes the existing branch", func() {
		folder := filepath.Join(base, "existing")
		writeFile(filepath.Join(folder, "README.md"), "hello\n")
		mustRunGit(base, "init", folder)
		mustRunGit(folder, "symbolic-ref", "HEAD", "refs/heads/dev")
		mustRunGit(folder, "remote", "add", "origin", "https://example.invalid/elsewhere.git")
		mustRunGit(folder, "add", "-A")
		mustRunGit(folder, "-c", "user.name=Seed", "-c", "user.email=seed@example.com", "commit", "-m", "seed")

		out := orch.LinkAndPush(ctx, nil, folder, repo)

		Expect(out.Succeeded()).To(BeTrue(), out.Detail)
		Expect(out.Branch).To(Equal("dev"))
		Expect(mustCaptureGit(folder, "remote", "get-url", "origin")).To(Equal(remote))
		Expect(mustCaptureGit(folder, "rev-list", "--count", "HEAD")).To(Equal("1"))
		Expect(mustCaptureGit(base, "--git-dir", remote, "rev-parse", "dev")).
			To(Equal(mustCaptureGit(folder, "rev-parse", "HEAD")))
	})

	It("tries main then master exactly once for an empty folder", func() {
		folder := filepath.Join(base, "empty")
		Expect(os.MkdirAll(folder, 0o755)).To(Succeed())

		out := orch.LinkAndPush(ctx, nil, folder, repo)

		Expect(out.Succeeded()).To(BeFalse())
		Expect(out.Category).To(Equal(orchestrator.CategoryPushRejected))
		Expect(out.Detail).To(ContainSubstring("master"))
		Expect(mustCaptureGit(folder, "symbolic-ref", "--short", "HEAD")).To(Equal("master"))
	})

	It("clones and pulls new commits from origin", func() {
		seed := filepath.Join(base, "seed")
		writeFile(filepath.Join(seed, "a.txt"), "alpha\n")
		Expect(orch.LinkAndPush(ctx, nil, seed, repo).Succeeded()).To(BeTrue())

		parent := filepath.Join(base, "clones")
		writeFile(filepath.Join(parent, ".keep"), "")
		cloned := orch.Clone(ctx, nil, repo, parent)
		Expect(cloned.Succeeded()).To(BeTrue(), cloned.Detail)

		writeFile(filepath.Join(seed, "b.txt"), "beta\n")
		Expect(orch.LinkAndPush(ctx, nil, seed, repo).Succeeded()).To(BeTrue())

		out := orch.Pull(ctx, nil, cloned.Path, orchestrator.PullOptions{})

		Expect(out.Succeeded()).To(BeTrue(), out.Detail)
		Expect(listFiles(cloned.Path)).To(ConsistOf("a.txt", "b.txt"))
	})

	It("imports a folder through a disposable clone", func() {
		seed := filepath.Join(base, "seed")
		writeFile(filepath.Join(seed, "a.txt"), "alpha\n")
		Expect(orch.LinkAndPush(ctx, nil, seed, repo).Succeeded()).To(BeTrue())

		source := filepath.Join(base, "photos")
		writeFile(filepath.Join(source, "jan.txt"), "jan\n")

		out := orch.ImportFolder(ctx, nil, repo, source)

		Expect(out.Succeeded()).To(BeTrue(), out.Detail)
		Expect(filepath.Join(base, "import")).NotTo(BeADirectory())
		files := strings.Fields(mustCaptureGit(base, "--git-dir", remote, "ls-tree", "-r", "--name-only", "main"))
		Expect(files).To(ConsistOf("a.txt", "photos/jan.txt"))
	})

	It("imports into an empty remote on the primary branch", func() {
		mustRunGit(remote, "symbolic-ref", "HEAD", "refs/heads/master")

		source := filepath.Join(base, "photos")
		writeFile(filepath.Join(source, "jan.txt"), "jan\n")

		out := orch.ImportFolder(ctx, nil, repo, source)

		Expect(out.Succeeded()).To(BeTrue(), out.Detail)
		Expect(out.Branch).To(Equal("main"))
		files := strings.Fields(mustCaptureGit(base, "--git-dir", remote, "ls-tree", "-r", "--name-only", "main"))
		Expect(files).To(ConsistOf("photos/jan.txt"))
	})
})
