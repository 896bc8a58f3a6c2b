package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/repodesk/repodesk/internal/git"
	gh "github.com/repodesk/repodesk/internal/github"
)

// ImportFolder copies source into a fresh clone of repo under
// <clone>/<basename of source>, commits and pushes it. The import directory is
// removed afterwards whatever the result; failing to remove it fails the import.
func (o *Orchestrator) ImportFolder(ctx context.Context, rep Reporter, repo gh.Repository, source string) (out Outcome) {
	rep = reporterOrNop(rep)

	if o.git == nil {
		return Failure(CategoryInternal, "git driver is required", nil)
	}
	if repo.CloneURL == "" || repo.Name == "" {
		return Failure(CategoryInvalidInput, "repository has no clone url", nil)
	}
	if err := requireDir(source); err != nil {
		return Failure(CategoryInvalidInput, "source folder is not usable", err)
	}

	importDir, err := o.importDir(source)
	if err != nil {
		return Failure(CategoryInvalidInput, "import directory is not usable", err)
	}

	defer func() {
		out = o.cleanupImportDir(importDir, out)
	}()

	if err := os.RemoveAll(importDir); err != nil {
		return Failure(CategoryCleanup, "reset import directory", err)
	}
	if err := os.MkdirAll(importDir, 0o755); err != nil {
		return Failure(CategoryFilesystem, "create import directory", err)
	}

	clonePath := filepath.Join(importDir, repo.Name)
	rep.Progress(fmt.Sprintf("Cloning %s", repo.FullName))
	ws, err := o.git.Clone(ctx, repo.CloneURL, clonePath)
	if err != nil {
		return Failure(CategoryLocalVCS, fmt.Sprintf("clone %s", repo.FullName), err)
	}
	if err := o.attachEmptyClone(ctx, ws); err != nil {
		return Failure(CategoryLocalVCS, "prepare empty clone", err)
	}

	name := filepath.Base(filepath.Clean(source))
	rep.Progress(fmt.Sprintf("Copying %s", name))
	if err := copyTree(source, filepath.Join(clonePath, name)); err != nil {
		return Failure(CategoryFilesystem, fmt.Sprintf("copy %s", name), err)
	}

	if err := ws.StageAll(ctx); err != nil {
		return Failure(CategoryLocalVCS, "stage changes", err)
	}

	dirty, err := ws.IsDirty(ctx)
	if err != nil {
		return Failure(CategoryLocalVCS, "read working copy status", err)
	}
	if !dirty {
		if o.log != nil {
			o.log.Info("imported folder matches repository, nothing to push", "repo", repo.FullName, "folder", name)
		}
		return Success(fmt.Sprintf("%s is already up to date in %s", name, repo.FullName))
	}

	rep.Progress("Committing changes")
	if err := ws.Commit(ctx, "Import folder: "+name); err != nil {
		return Failure(CategoryLocalVCS, "commit changes", err)
	}

	branch, err := o.resolveBranch(ctx, ws)
	if err != nil {
		return Failure(CategoryLocalVCS, "resolve branch", err)
	}

	rep.Progress(fmt.Sprintf("Pushing %s to %s", branch, o.cfg.RemoteName))
	if err := ws.Push(ctx, o.cfg.RemoteName, branch, true); err != nil {
		return Failure(CategoryLocalVCS, fmt.Sprintf("push %s", branch), err)
	}

	out = Success(fmt.Sprintf("Imported %s into %s", name, repo.FullName))
	out.Branch = branch
	return out
}

// attachEmptyClone points HEAD of a clone without commits at the primary
// branch. Which branch git leaves checked out for an empty remote depends on
// the git version and init.defaultBranch.
func (o *Orchestrator) attachEmptyClone(ctx context.Context, ws git.Workspace) error {
	wc, err := ws.Inspect(ctx)
	if err != nil {
		return err
	}
	if !wc.Unborn || wc.Branch == o.cfg.PrimaryBranch {
		return nil
	}
	if o.log != nil {
		o.log.Info("clone has no commits, switching to primary branch", "path", ws.Path(), "from", wc.Branch, "branch", o.cfg.PrimaryBranch)
	}
	return ws.ForceBranch(ctx, o.cfg.PrimaryBranch)
}

func (o *Orchestrator) cleanupImportDir(importDir string, out Outcome) Outcome {
	err := os.RemoveAll(importDir)
	if err == nil {
		return out
	}

	if o.log != nil {
		o.log.Error("failed to remove import directory", "path", importDir, "error", err)
	}
	if out.Succeeded() {
		return Failure(CategoryCleanup, fmt.Sprintf("remove import directory %s", importDir), err)
	}
	out.Detail = strings.TrimSpace(out.Detail + "\ncleanup: " + err.Error())
	return out
}

// importDir validates the configured import directory. It is wiped on every
// run, so it must be absolute, must not be the filesystem root or the home
// directory, and must not overlap the folder being imported.
func (o *Orchestrator) importDir(source string) (string, error) {
	dir := o.cfg.ImportDir
	if dir == "" {
		return "", fmt.Errorf("import directory is not configured")
	}
	if !filepath.IsAbs(dir) {
		return "", fmt.Errorf("import directory %s must be absolute", dir)
	}
	dir = filepath.Clean(dir)

	if dir == filepath.VolumeName(dir)+string(filepath.Separator) {
		return "", fmt.Errorf("import directory cannot be the filesystem root")
	}
	if home, err := os.UserHomeDir(); err == nil && dir == filepath.Clean(home) {
		return "", fmt.Errorf("import directory cannot be the home directory")
	}

	src, err := filepath.Abs(source)
	if err != nil {
		return "", err
	}
	if within(src, dir) || within(dir, src) {
		return "", fmt.Errorf("import directory %s overlaps source %s", dir, src)
	}
	return dir, nil
}

func within(path, parent string) bool {
	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// copyTree copies src into dst, merging into directories that already exist
// and overwriting files. Symbolic links are followed and their targets copied.
// Nested .git entries are skipped so the source's own history never leaks
// into the clone.
func copyTree(src, dst string) error {
	return copyDir(src, dst, map[string]bool{})
}

func copyDir(src, dst string, active map[string]bool) error {
	root, err := filepath.EvalSymlinks(src)
	if err != nil {
		return err
	}
	if active[root] {
		return fmt.Errorf("symlink loop at %s", src)
	}
	active[root] = true
	defer delete(active, root)

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.Name() == ".git" && rel != "." {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("follow symlink %s: %w", path, err)
			}
			if info.IsDir() {
				return copyDir(path, target, active)
			}
			if info.Mode().IsRegular() {
				return copyFile(path, target, info.Mode().Perm())
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		}
		return nil
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if info, err := os.Lstat(dst); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(dst); err != nil {
			return err
		}
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// ImportFile uploads a single text file to the root of repo, updating it in
// place when it already exists. Files that are not valid UTF-8 are rejected
// before any remote call.
func (o *Orchestrator) ImportFile(ctx context.Context, rep Reporter, repo gh.Repository, file string) Outcome {
	rep = reporterOrNop(rep)

	if o.gh == nil {
		return Failure(CategoryInternal, "github gateway is required", nil)
	}

	info, err := os.Stat(file)
	if err != nil {
		return Failure(CategoryInvalidInput, "file is not readable", err)
	}
	if !info.Mode().IsRegular() {
		return Failure(CategoryInvalidInput, fmt.Sprintf("%s is not a regular file", file), nil)
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return Failure(CategoryInvalidInput, "file is not readable", err)
	}

	name := filepath.Base(file)
	if !utf8.Valid(content) {
		if o.log != nil {
			o.log.Warn("rejecting binary file", "file", file)
		}
		return Failure(CategoryBinaryFileRejected, fmt.Sprintf("%s is not a text file", name), nil)
	}

	rep.Progress(fmt.Sprintf("Checking %s in %s", name, repo.FullName))
	existing, err := o.gh.GetContents(ctx, repo, name)
	switch {
	case err == nil:
		rep.Progress(fmt.Sprintf("Updating %s", name))
		change := gh.FileChange{Path: name, Message: "Update " + name, Content: content, SHA: existing.SHA}
		if err := o.gh.UpdateFile(ctx, repo, change); err != nil {
			return Failure(CategoryRemote, fmt.Sprintf("update %s", name), err)
		}
		return Success(fmt.Sprintf("Updated %s in %s", name, repo.FullName))

	case errors.Is(err, gh.ErrNotFound):
		rep.Progress(fmt.Sprintf("Creating %s", name))
		change := gh.FileChange{Path: name, Message: "Add " + name, Content: content}
		if err := o.gh.CreateFile(ctx, repo, change); err != nil {
			return Failure(CategoryRemote, fmt.Sprintf("create %s", name), err)
		}
		return Success(fmt.Sprintf("Added %s to %s", name, repo.FullName))

	default:
		return Failure(CategoryRemote, fmt.Sprintf("read %s from %s", name, repo.FullName), err)
	}
}
