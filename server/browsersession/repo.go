// Package browsersession keeps one session store per browser, keyed by the session cookie.
package browsersession

import (
	"sync"
	"time"

	"github.com/jrsteele09/elearn-web/session"
)

// Session is the server side state held for one browser.
type Session struct {
	ID        string
	Store     *session.Store
	Navigator *Navigator
	CreatedAt time.Time
}

type Repo interface {
	Get(id string) (*Session, bool)
	// GetOrCreate returns the session for id, building it with create when absent.
	GetOrCreate(id string, create func(id string) *Session) *Session
	Delete(id string)
	Len() int
	Close()
}

// Navigator records the path a browser reports and holds one pending redirect for it.
type Navigator struct {
	mu       sync.Mutex
	path     string
	redirect string
}

func NewNavigator(path string) *Navigator {
	return &Navigator{path: path}
}

func (n *Navigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

func (n *Navigator) SetPath(path string) {
	if path == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.path = path
}

// Redirect queues path for delivery to the browser and treats it as the current path.
func (n *Navigator) Redirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirect = path
	n.path = path
}

// TakeRedirect returns the pending redirect, if any, and clears it.
func (n *Navigator) TakeRedirect() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	r := n.redirect
	n.redirect = ""
	return r
}
