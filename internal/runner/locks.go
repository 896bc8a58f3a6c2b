package runner

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// PathLocks hands out one mutex per key. Keys are cleaned as paths, so
// "/a/b/" and "/a/b" share a lock.
type PathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPathLocks returns an empty lock table.
func NewPathLocks() *PathLocks {
	return &PathLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires every key in sorted order and returns the matching unlock.
func (p *PathLocks) Lock(keys []string) func() {
	normalized := lo.Uniq(lo.FilterMap(keys, func(key string, _ int) (string, bool) {
		key = strings.TrimSpace(key)
		if key == "" {
			return "", false
		}
		return filepath.Clean(key), true
	}))
	sort.Strings(normalized)

	held := make([]*sync.Mutex, 0, len(normalized))
	for _, key := range normalized {
		m := p.get(key)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func (p *PathLocks) get(key string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.locks[key]
	if !ok {
		m = &sync.Mutex{}
		p.locks[key] = m
	}
	return m
}
