package main

import (
	"context"
	"fmt"
	"os"

	gh "github.com/repodesk/repodesk/internal/github"
)

// ReposCmd groups the repository commands.
type ReposCmd struct {
	List   ReposListCmd   `cmd:"" help:"List your repositories" default:"1"`
	Create ReposCreateCmd `cmd:"" help:"Create a repository"`
	Delete ReposDeleteCmd `cmd:"" help:"Delete a repository"`
}

// ReposListCmd lists repositories, optionally filtered by name or description.
type ReposListCmd struct {
	Filter string `arg:"" optional:"" help:"Case-insensitive substring of the name or description"`
}

// Run executes the list command
func (r *ReposListCmd) Run(ctx context.Context, cli *CLI) (err error) {
	a, out, closeFn, err := cli.session()
	if err != nil {
		return err
	}
	defer func() { err = finish(err, closeFn) }()

	repos, err := a.ListRepositories(ctx, r.Filter, nil)
	if err != nil {
		return err
	}
	out.Repositories(repos)
	return nil
}

// ReposCreateCmd creates a repository owned by the authenticated user.
type ReposCreateCmd struct {
	Name        string `arg:"" help:"Repository name"`
	Description string `help:"Repository description" short:"d"`
	Private     bool   `help:"Create a private repository" short:"p"`
}

// Run executes the create command
func (r *ReposCreateCmd) Run(ctx context.Context, cli *CLI) (err error) {
	a, out, closeFn, err := cli.session()
	if err != nil {
		return err
	}
	defer func() { err = finish(err, closeFn) }()

	_, err = a.CreateRepository(ctx, gh.CreateRepositoryOptions{
		Name:        r.Name,
		Description: r.Description,
		Private:     r.Private,
	}, out.Event)
	return err
}

// ReposDeleteCmd deletes a repository after confirmation.
type ReposDeleteCmd struct {
	Name string `arg:"" help:"Repository name or owner/name"`
	Yes  bool   `help:"Delete without asking for confirmation" short:"y"`
}

// Run executes the delete command
func (r *ReposDeleteCmd) Run(ctx context.Context, cli *CLI) (err error) {
	if !r.Yes && !confirm(fmt.Sprintf("Delete repository %s? This cannot be undone.", r.Name)) {
		fmt.Fprintln(os.Stderr, "Cancelled")
		return nil
	}

	a, out, closeFn, err := cli.session()
	if err != nil {
		return err
	}
	defer func() { err = finish(err, closeFn) }()

	_, err = a.DeleteRepository(ctx, r.Name, out.Event)
	return err
}

// IssuesCmd groups the issue commands.
type IssuesCmd struct {
	List   IssuesListCmd   `cmd:"" help:"List the open issues of a repository" default:"withargs"`
	Create IssuesCreateCmd `cmd:"" help:"Open an issue"`
}

// IssuesListCmd lists open issues.
type IssuesListCmd struct {
	Repo string `arg:"" help:"Repository name or owner/name"`
}

// Run executes the issues list command
func (i *IssuesListCmd) Run(ctx context.Context, cli *CLI) (err error) {
	a, out, closeFn, err := cli.session()
	if err != nil {
		return err
	}
	defer func() { err = finish(err, closeFn) }()

	issues, err := a.ListIssues(ctx, i.Repo, nil)
	if err != nil {
		return err
	}
	out.Issues(issues)
	return nil
}

// IssuesCreateCmd opens an issue.
type IssuesCreateCmd struct {
	Repo  string `arg:"" help:"Repository name or owner/name"`
	Title string `help:"Issue title" short:"t" required:""`
	Body  string `help:"Issue body" short:"b"`
}

// Run executes the issues create command
func (i *IssuesCreateCmd) Run(ctx context.Context, cli *CLI) (err error) {
	a, out, closeFn, err := cli.session()
	if err != nil {
		return err
	}
	defer func() { err = finish(err, closeFn) }()

	_, err = a.CreateIssue(ctx, i.Repo, i.Title, i.Body, out.Event)
	return err
}
