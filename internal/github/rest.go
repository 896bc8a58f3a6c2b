package gh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	github "github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"
)

const defaultUserAgent = "repodesk"

// NewRESTFactory returns a gateway factory backed by the go-github REST client. When
// base and upload URLs are provided, the factory targets a GitHub Enterprise instance.
func NewRESTFactory(baseURL, uploadURL string) Factory {
	return &restFactory{
		userAgent: defaultUserAgent,
		baseURL:   strings.TrimSpace(baseURL),
		uploadURL: strings.TrimSpace(uploadURL),
	}
}

type restFactory struct {
	userAgent string
	baseURL   string
	uploadURL string
}

type restGateway struct {
	client *github.Client
}

func (f *restFactory) New(ctx context.Context, token string) (Gateway, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("github token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)

	if f.baseURL == "" && f.uploadURL != "" {
		return nil, fmt.Errorf("github upload url cannot be set without base url")
	}

	var ghClient *github.Client
	if f.baseURL != "" {
		baseURLNormalized, err := normalizeGitHubURL(f.baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}

		uploadURL := f.uploadURL
		if uploadURL == "" {
			return nil, fmt.Errorf("github upload url must be provided when base url is set")
		}

		uploadURLNormalized, err := normalizeGitHubURL(uploadURL)
		if err != nil {
			return nil, fmt.Errorf("parse github upload url: %w", err)
		}

		ghClient, err = github.NewClient(tc).WithEnterpriseURLs(baseURLNormalized, uploadURLNormalized)
		if err != nil {
			return nil, fmt.Errorf("construct enterprise github client: %w", err)
		}
	} else {
		ghClient = github.NewClient(tc)
	}

	if f.userAgent != "" {
		ghClient.UserAgent = f.userAgent
	}

	return &restGateway{client: ghClient}, nil
}

func normalizeGitHubURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url cannot be empty")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if parsed.Scheme == "" {
		return "", fmt.Errorf("url must include scheme (e.g. https://)")
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("url must include host")
	}

	if parsed.Path == "" {
		parsed.Path = "/"
	} else if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""

	return parsed.String(), nil
}

func (g *restGateway) AuthenticatedUser(ctx context.Context) (User, error) {
	user, _, err := g.client.Users.Get(ctx, "")
	if err != nil {
		return User{}, classifyGitHubError("get authenticated user", err)
	}
	return User{Login: user.GetLogin(), Name: user.GetName()}, nil
}

func (g *restGateway) ListRepositories(ctx context.Context, owner string) ([]Repository, error) {
	opts := &github.RepositoryListOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var results []Repository
	for {
		repos, resp, err := g.client.Repositories.List(ctx, owner, opts)
		if err != nil {
			return nil, classifyGitHubError("list repositories", err)
		}

		for _, repo := range repos {
			if repo == nil {
				continue
			}
			results = append(results, toRepository(repo))
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return results, nil
}

func (g *restGateway) CreateRepository(ctx context.Context, opts CreateRepositoryOptions) (Repository, error) {
	name, err := NormalizeRepositoryName(opts.Name)
	if err != nil {
		return Repository{}, err
	}

	repo, _, err := g.client.Repositories.Create(ctx, "", &github.Repository{
		Name:        github.String(name),
		Description: github.String(opts.Description),
		Private:     github.Bool(opts.Private),
	})
	if err != nil {
		return Repository{}, classifyGitHubError("create repository "+name, err)
	}
	return toRepository(repo), nil
}

func (g *restGateway) DeleteRepository(ctx context.Context, repo Repository) error {
	if _, err := g.client.Repositories.Delete(ctx, repo.Owner, repo.Name); err != nil {
		return classifyGitHubError("delete repository "+repo.FullName, err)
	}
	return nil
}

func (g *restGateway) GetContents(ctx context.Context, repo Repository, path string) (FileContents, error) {
	file, dir, _, err := g.client.Repositories.GetContents(ctx, repo.Owner, repo.Name, path, nil)
	if err != nil {
		return FileContents{}, classifyGitHubError("get contents "+path, err)
	}
	if file == nil {
		if dir != nil {
			return FileContents{}, fmt.Errorf("get contents %s: path is a directory", path)
		}
		return FileContents{}, &RemoteError{Op: "get contents " + path, StatusCode: http.StatusNotFound, Err: ErrNotFound}
	}

	content, err := file.GetContent()
	if err != nil {
		return FileContents{}, fmt.Errorf("decode contents %s: %w", path, err)
	}

	return FileContents{
		Path:    file.GetPath(),
		SHA:     file.GetSHA(),
		Content: []byte(content),
	}, nil
}

func (g *restGateway) CreateFile(ctx context.Context, repo Repository, change FileChange) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(change.Message),
		Content: change.Content,
	}
	if _, _, err := g.client.Repositories.CreateFile(ctx, repo.Owner, repo.Name, change.Path, opts); err != nil {
		return classifyGitHubError("create file "+change.Path, err)
	}
	return nil
}

func (g *restGateway) UpdateFile(ctx context.Context, repo Repository, change FileChange) error {
	if change.SHA == "" {
		return fmt.Errorf("update file %s: sha is required", change.Path)
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(change.Message),
		Content: change.Content,
		SHA:     github.String(change.SHA),
	}
	if _, _, err := g.client.Repositories.UpdateFile(ctx, repo.Owner, repo.Name, change.Path, opts); err != nil {
		return classifyGitHubError("update file "+change.Path, err)
	}
	return nil
}

func (g *restGateway) ListIssues(ctx context.Context, repo Repository) ([]Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var results []Issue
	for {
		issues, resp, err := g.client.Issues.ListByRepo(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, classifyGitHubError("list issues", err)
		}

		for _, issue := range issues {
			// the issues endpoint also returns pull requests
			if issue == nil || issue.IsPullRequest() {
				continue
			}
			results = append(results, toIssue(issue))
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return results, nil
}

func (g *restGateway) CreateIssue(ctx context.Context, repo Repository, title, body string) (Issue, error) {
	issue, _, err := g.client.Issues.Create(ctx, repo.Owner, repo.Name, &github.IssueRequest{
		Title: github.String(title),
		Body:  github.String(body),
	})
	if err != nil {
		return Issue{}, classifyGitHubError("create issue", err)
	}
	return toIssue(issue), nil
}

func toRepository(repo *github.Repository) Repository {
	result := Repository{
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		Description:   repo.GetDescription(),
		CloneURL:      repo.GetCloneURL(),
		HTMLURL:       repo.GetHTMLURL(),
		DefaultBranch: repo.GetDefaultBranch(),
		Private:       repo.GetPrivate(),
		UpdatedAt:     repo.GetUpdatedAt().Time,
	}
	if owner := repo.GetOwner(); owner != nil {
		result.Owner = owner.GetLogin()
	}
	if result.FullName == "" && result.Owner != "" {
		result.FullName = result.Owner + "/" + result.Name
	}
	return result
}

func toIssue(issue *github.Issue) Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		if label == nil {
			continue
		}
		if name := label.GetName(); name != "" {
			labels = append(labels, name)
		}
	}

	result := Issue{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		URL:       issue.GetHTMLURL(),
		Labels:    labels,
		CreatedAt: issue.GetCreatedAt().Time,
	}
	if user := issue.GetUser(); user != nil {
		result.Author = user.GetLogin()
	}
	return result
}

func classifyGitHubError(op string, err error) error {
	if err == nil {
		return nil
	}

	remote := &RemoteError{Op: op, StatusCode: statusCode(err), Err: err}

	var rateLimitErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateLimitErr) || errors.As(err, &abuseErr) {
		remote.RateLimited = true
	}

	if isRetryableGitHubError(err) {
		return &retryableError{err: remote}
	}
	return remote
}

func statusCode(err error) int {
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode
	}
	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) && rateLimitErr.Response != nil {
		return rateLimitErr.Response.StatusCode
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.Response != nil {
		return abuseErr.Response.StatusCode
	}
	return 0
}

func isRetryableGitHubError(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}

	var acceptedErr *github.AcceptedError
	if errors.As(err, &acceptedErr) {
		return true
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		if respErr.Response != nil {
			code := respErr.Response.StatusCode
			if code == http.StatusTooManyRequests || (code >= 500 && code <= 599) {
				return true
			}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}

	return false
}
