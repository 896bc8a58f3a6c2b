package main

import (
	"context"
	"fmt"
	"os"

	"github.com/repodesk/repodesk/internal/git"
)

// LinkCmd links a local folder to a repository and pushes its contents.
type LinkCmd struct {
	Repo string `arg:"" help:"Repository name or owner/name"`
	Path string `arg:"" optional:"" help:"Local folder" type:"existingdir" default:"."`
}

// Run executes the link command
func (l *LinkCmd) Run(ctx context.Context, cli *CLI) (err error) {
	a, out, closeFn, err := cli.session()
	if err != nil {
		return err
	}
	defer func() { err = finish(err, closeFn) }()

	_, err = a.LinkAndPush(ctx, l.Path, l.Repo, out.Event)
	return err
}

// CloneCmd clones a repository into <dest>/<name>.
type CloneCmd struct {
	Repo string `arg:"" help:"Repository name or owner/name"`
	Dest string `arg:"" optional:"" help:"Parent folder of the clone" type:"existingdir" default:"."`
}

// Run executes the clone command
func (c *CloneCmd) Run(ctx context.Context, cli *CLI) (err error) {
	a, out, closeFn, err := cli.session()
	if err != nil {
		return err
	}
	defer func() { err = finish(err, closeFn) }()

	_, err = a.Clone(ctx, c.Repo, c.Dest, out.Event)
	return err
}

// PullCmd pulls origin into a working copy.
type PullCmd struct {
	Path string `arg:"" optional:"" help:"Working copy" type:"existingdir" default:"."`
	Repo string `help:"Repository whose default branch is pulled when the current branch tracks nothing" short:"r"`
}

// Run executes the pull command
func (p *PullCmd) Run(ctx context.Context, cli *CLI) (err error) {
	a, out, closeFn, err := cli.session()
	if err != nil {
		return err
	}
	defer func() { err = finish(err, closeFn) }()

	_, err = a.Pull(ctx, p.Path, p.Repo, out.Event)
	return err
}

// ImportFolderCmd copies a folder into a repository and pushes it.
type ImportFolderCmd struct {
	Repo   string `arg:"" help:"Repository name or owner/name"`
	Source string `arg:"" help:"Folder to import" type:"existingdir"`
}

// Run executes the import-folder command
func (i *ImportFolderCmd) Run(ctx context.Context, cli *CLI) (err error) {
	a, out, closeFn, err := cli.session()
	if err != nil {
		return err
	}
	defer func() { err = finish(err, closeFn) }()

	_, err = a.ImportFolder(ctx, i.Repo, i.Source, out.Event)
	return err
}

// ImportFileCmd uploads a text file to the root of a repository.
type ImportFileCmd struct {
	Repo string `arg:"" help:"Repository name or owner/name"`
	File string `arg:"" help:"Text file to upload" type:"existingfile"`
}

// Run executes the import-file command
func (i *ImportFileCmd) Run(ctx context.Context, cli *CLI) (err error) {
	a, out, closeFn, err := cli.session()
	if err != nil {
		return err
	}
	defer func() { err = finish(err, closeFn) }()

	_, err = a.ImportFile(ctx, i.Repo, i.File, out.Event)
	return err
}

// StatusCmd shows the git state of a folder. It needs no token.
type StatusCmd struct {
	Path string `arg:"" optional:"" help:"Local folder" type:"existingdir" default:"."`
}

// Run executes the status command
func (s *StatusCmd) Run(cli *CLI) (err error) {
	a, out, closeFn, err := cli.session()
	if err != nil {
		return err
	}
	defer func() { err = finish(err, closeFn) }()

	wc, err := a.Status(s.Path)
	if err != nil {
		return err
	}
	out.WorkingCopy(wc)
	return nil
}

// IdentityCmd groups the commit identity commands.
type IdentityCmd struct {
	Show IdentityShowCmd `cmd:"" help:"Show the global commit identity" default:"1"`
	Set  IdentitySetCmd  `cmd:"" help:"Set the global commit identity"`
}

// IdentityShowCmd prints user.name and user.email from the global git config.
type IdentityShowCmd struct{}

// Run executes the identity show command
func (i *IdentityShowCmd) Run(ctx context.Context, cli *CLI) (err error) {
	a, out, closeFn, err := cli.session()
	if err != nil {
		return err
	}
	defer func() { err = finish(err, closeFn) }()

	id, err := a.Identity(ctx)
	if err != nil {
		return err
	}
	out.Identity(id)
	return nil
}

// IdentitySetCmd writes user.name and user.email to the global git config.
type IdentitySetCmd struct {
	Name  string `arg:"" help:"Commit author name"`
	Email string `arg:"" help:"Commit author email"`
}

// Run executes the identity set command
func (i *IdentitySetCmd) Run(ctx context.Context, cli *CLI) (err error) {
	a, out, closeFn, err := cli.session()
	if err != nil {
		return err
	}
	defer func() { err = finish(err, closeFn) }()

	id := git.Identity{Name: i.Name, Email: i.Email}
	if err := a.SetIdentity(ctx, id); err != nil {
		return err
	}
	out.Identity(id)
	return nil
}

// VersionCmd prints the repodesk version and checks the git installation.
type VersionCmd struct{}

// Run executes the version command
func (v *VersionCmd) Run(ctx context.Context, cli *CLI) (err error) {
	a, _, closeFn, err := cli.session()
	if err != nil {
		return err
	}
	defer func() { err = finish(err, closeFn) }()

	fmt.Fprintf(os.Stdout, "repodesk %s\n", version)
	gitVersion, err := a.GitVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, gitVersion)
	return nil
}
