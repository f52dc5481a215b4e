package api

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxSessions bounds the page states a Guard keeps.
const DefaultMaxSessions = 1024

type pageKey struct {
	page    string
	session string
}

type pageState struct {
	generation uint64
	cancel     context.CancelFunc
	last       *PageResult
}

// Guard orders submissions per page and session. Each Begin bumps the
// generation and cancels the previous in-flight request; only the holder
// of the newest ticket may publish its result. The least recently used
// (page, session) states are evicted once the bound is reached.
type Guard struct {
	mu    sync.Mutex
	pages *lru.Cache[pageKey, *pageState]
}

// NewGuard creates a Guard holding up to maxSessions page states.
func NewGuard(maxSessions int) (*Guard, error) {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	l, err := lru.New[pageKey, *pageState](maxSessions)
	if err != nil {
		return nil, fmt.Errorf("create page guard: %w", err)
	}
	return &Guard{pages: l}, nil
}

// Ticket identifies one submission.
type Ticket struct {
	key        pageKey
	state      *pageState
	Generation uint64
	cancel     context.CancelFunc
}

// Release cancels the ticket's context. Call it when the request is done.
func (t *Ticket) Release() {
	t.cancel()
}

// Begin starts a submission and returns a context that is cancelled when a
// newer submission for the same page and session begins.
func (g *Guard) Begin(parent context.Context, page, session string) (context.Context, *Ticket) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := pageKey{page, session}
	st, ok := g.pages.Get(key)
	if !ok {
		st = &pageState{}
		g.pages.Add(key, st)
	}
	if st.cancel != nil {
		st.cancel()
	}
	st.generation++

	ctx, cancel := context.WithCancel(parent)
	st.cancel = cancel
	return ctx, &Ticket{key: key, state: st, Generation: st.generation, cancel: cancel}
}

// current reports whether t is the newest submission. A state evicted
// while its request was in flight has no successor, so its ticket stays
// current.
func (g *Guard) current(t *Ticket) bool {
	if st, ok := g.pages.Peek(t.key); ok && st != t.state {
		return false
	}
	return t.state.generation == t.Generation
}

// Current reports whether t is still the newest submission.
func (g *Guard) Current(t *Ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current(t)
}

// Commit publishes res as the page's last result if t is still current.
func (g *Guard) Commit(t *Ticket, res *PageResult) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.current(t) {
		return false
	}
	res.Generation = t.Generation
	t.state.last = res
	g.pages.Add(t.key, t.state)
	return true
}

// Last returns the most recently committed result.
func (g *Guard) Last(page, session string) (*PageResult, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.pages.Get(pageKey{page, session})
	if !ok || st.last == nil {
		return nil, false
	}
	return st.last, true
}

// Len is the number of page states held.
func (g *Guard) Len() int {
	return g.pages.Len()
}
