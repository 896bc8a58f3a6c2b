package orchestrator

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/repodesk/repodesk/internal/github"
)

// CreateRepository creates a repository for the authenticated user.
func (o *Orchestrator) CreateRepository(ctx context.Context, rep Reporter, opts gh.CreateRepositoryOptions) Outcome {
	rep = reporterOrNop(rep)

	if o.gh == nil {
		return Failure(CategoryInternal, "github gateway is required", nil)
	}
	if strings.TrimSpace(opts.Name) == "" {
		return Failure(CategoryInvalidInput, "repository name is required", nil)
	}

	rep.Progress(fmt.Sprintf("Creating repository %s", opts.Name))
	repo, err := o.gh.CreateRepository(ctx, opts)
	if err != nil {
		return Failure(CategoryRemote, fmt.Sprintf("create repository %s", opts.Name), err)
	}

	if o.log != nil {
		o.log.Info("created repository", "repo", repo.FullName, "private", repo.Private)
	}
	return Success(fmt.Sprintf("Created %s %s", repo.FullName, repo.HTMLURL))
}

// DeleteRepository permanently deletes repo.
func (o *Orchestrator) DeleteRepository(ctx context.Context, rep Reporter, repo gh.Repository) Outcome {
	rep = reporterOrNop(rep)

	if o.gh == nil {
		return Failure(CategoryInternal, "github gateway is required", nil)
	}
	if repo.Owner == "" || repo.Name == "" {
		return Failure(CategoryInvalidInput, "repository owner and name are required", nil)
	}

	rep.Progress(fmt.Sprintf("Deleting repository %s", repo.FullName))
	if err := o.gh.DeleteRepository(ctx, repo); err != nil {
		return Failure(CategoryRemote, fmt.Sprintf("delete repository %s", repo.FullName), err)
	}

	if o.log != nil {
		o.log.Warn("deleted repository", "repo", repo.FullName)
	}
	return Success(fmt.Sprintf("Deleted %s", repo.FullName))
}

// CreateIssue opens an issue on repo.
func (o *Orchestrator) CreateIssue(ctx context.Context, rep Reporter, repo gh.Repository, title, body string) Outcome {
	rep = reporterOrNop(rep)

	if o.gh == nil {
		return Failure(CategoryInternal, "github gateway is required", nil)
	}
	if strings.TrimSpace(title) == "" {
		return Failure(CategoryInvalidInput, "issue title is required", nil)
	}

	rep.Progress(fmt.Sprintf("Opening issue on %s", repo.FullName))
	issue, err := o.gh.CreateIssue(ctx, repo, title, body)
	if err != nil {
		return Failure(CategoryRemote, fmt.Sprintf("create issue on %s", repo.FullName), err)
	}
	return Success(fmt.Sprintf("Opened issue #%d %s", issue.Number, issue.URL))
}
