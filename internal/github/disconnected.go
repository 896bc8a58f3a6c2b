package gh

import "context"

// NewDisconnectedGateway returns a Gateway that fails every call with
// ErrNotConnected. A session holds it until a token has been verified.
func NewDisconnectedGateway() Gateway {
	return disconnectedGateway{}
}

type disconnectedGateway struct{}

func (disconnectedGateway) AuthenticatedUser(ctx context.Context) (User, error) {
	return User{}, ErrNotConnected
}

func (disconnectedGateway) ListRepositories(ctx context.Context, owner string) ([]Repository, error) {
	return nil, ErrNotConnected
}

func (disconnectedGateway) CreateRepository(ctx context.Context, opts CreateRepositoryOptions) (Repository, error) {
	return Repository{}, ErrNotConnected
}

func (disconnectedGateway) DeleteRepository(ctx context.Context, repo Repository) error {
	return ErrNotConnected
}

func (disconnectedGateway) GetContents(ctx context.Context, repo Repository, path string) (FileContents, error) {
	return FileContents{}, ErrNotConnected
}

func (disconnectedGateway) CreateFile(ctx context.Context, repo Repository, change FileChange) error {
	return ErrNotConnected
}

func (disconnectedGateway) UpdateFile(ctx context.Context, repo Repository, change FileChange) error {
	return ErrNotConnected
}

func (disconnectedGateway) ListIssues(ctx context.Context, repo Repository) ([]Issue, error) {
	return nil, ErrNotConnected
}

func (disconnectedGateway) CreateIssue(ctx context.Context, repo Repository, title, body string) (Issue, error) {
	return Issue{}, ErrNotConnected
}
