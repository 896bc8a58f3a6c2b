package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	gh "github.com/repodesk/repodesk/internal/github"
)

var (
	// ErrUnknownRepository indicates a name matched no listed repository.
	ErrUnknownRepository = errors.New("session: unknown repository")

	// ErrAmbiguousRepository indicates a bare name matched repositories of several owners.
	ErrAmbiguousRepository = errors.New("session: ambiguous repository name")
)

// Session holds the state shared by the interactive side: the gateway for the
// verified token, the authenticated user, the last listing and the selected
// repository. It is safe for concurrent use.
type Session struct {
	log *slog.Logger

	mu       sync.RWMutex
	gateway  gh.Gateway
	user     *gh.User
	repos    []gh.Repository
	selected *gh.Repository
}

// New returns a session that is not connected yet.
func New(logger *slog.Logger) *Session {
	return &Session{log: logger, gateway: gh.NewDisconnectedGateway()}
}

// Connect builds a gateway for token and verifies it. The session only
// switches to the new gateway once the token resolved to a user.
func (s *Session) Connect(ctx context.Context, factory gh.Factory, token string) (gh.User, error) {
	if factory == nil {
		return gh.User{}, fmt.Errorf("gateway factory is required")
	}

	gateway, err := factory.New(ctx, token)
	if err != nil {
		return gh.User{}, fmt.Errorf("initialize github client: %w", err)
	}

	user, err := gateway.AuthenticatedUser(ctx)
	if err != nil {
		return gh.User{}, fmt.Errorf("verify token: %w", err)
	}

	s.mu.Lock()
	s.gateway = gateway
	s.user = &user
	s.repos = nil
	s.selected = nil
	s.mu.Unlock()

	if s.log != nil {
		s.log.Info("connected to github", "login", user.Login)
	}
	return user, nil
}

// Disconnect drops the gateway and everything learned through it.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gateway = gh.NewDisconnectedGateway()
	s.user = nil
	s.repos = nil
	s.selected = nil
}

// Gateway returns the current gateway. It fails every call until Connect succeeds.
func (s *Session) Gateway() gh.Gateway {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gateway
}

// User returns the authenticated user, if any.
func (s *Session) User() (gh.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return gh.User{}, false
	}
	return *s.user, true
}

// Refresh reloads the repositories of the authenticated user. The selection
// is kept when the repository still exists and dropped otherwise.
func (s *Session) Refresh(ctx context.Context) ([]gh.Repository, error) {
	repos, err := s.Gateway().ListRepositories(ctx, "")
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.repos = repos
	if s.selected != nil {
		current, ok := lo.Find(repos, func(r gh.Repository) bool {
			return strings.EqualFold(r.FullName, s.selected.FullName)
		})
		if ok {
			s.selected = &current
		} else {
			s.selected = nil
		}
	}

	if s.log != nil {
		s.log.Debug("refreshed repositories", "count", len(repos))
	}
	return append([]gh.Repository(nil), repos...), nil
}

// Repositories returns the last listing in gateway order.
func (s *Session) Repositories() []gh.Repository {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]gh.Repository(nil), s.repos...)
}

// Filter returns the listed repositories whose full name or description
// contains term, ignoring case, sorted by name.
func (s *Session) Filter(term string) []gh.Repository {
	needle := strings.ToLower(strings.TrimSpace(term))

	s.mu.RLock()
	matches := lo.Filter(s.repos, func(r gh.Repository, _ int) bool {
		if needle == "" {
			return true
		}
		return strings.Contains(strings.ToLower(r.FullName), needle) ||
			strings.Contains(strings.ToLower(r.Description), needle)
	})
	s.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return strings.ToLower(matches[i].Name) < strings.ToLower(matches[j].Name)
	})
	return matches
}

// Lookup resolves name against the last listing. name may be "owner/repo" or
// a bare repository name when it is unique.
func (s *Session) Lookup(name string) (gh.Repository, error) {
	name = strings.TrimSpace(name)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if repo, ok := lo.Find(s.repos, func(r gh.Repository) bool {
		return strings.EqualFold(r.FullName, name)
	}); ok {
		return repo, nil
	}

	byName := lo.Filter(s.repos, func(r gh.Repository, _ int) bool {
		return strings.EqualFold(r.Name, name)
	})
	switch len(byName) {
	case 0:
		return gh.Repository{}, fmt.Errorf("%w: %s", ErrUnknownRepository, name)
	case 1:
		return byName[0], nil
	default:
		owners := lo.Map(byName, func(r gh.Repository, _ int) string { return r.FullName })
		return gh.Repository{}, fmt.Errorf("%w: %s matches %s", ErrAmbiguousRepository, name, strings.Join(owners, ", "))
	}
}

// Select makes name the selected repository.
func (s *Session) Select(name string) (gh.Repository, error) {
	repo, err := s.Lookup(name)
	if err != nil {
		return gh.Repository{}, err
	}

	s.mu.Lock()
	s.selected = &repo
	s.mu.Unlock()
	return repo, nil
}

// Selected returns the selected repository, if any.
func (s *Session) Selected() (gh.Repository, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selected == nil {
		return gh.Repository{}, false
	}
	return *s.selected, true
}

// Forget removes a deleted repository from the listing and the selection.
func (s *Session) Forget(fullName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.repos = lo.Reject(s.repos, func(r gh.Repository, _ int) bool {
		return strings.EqualFold(r.FullName, fullName)
	})
	if s.selected != nil && strings.EqualFold(s.selected.FullName, fullName) {
		s.selected = nil
	}
}
