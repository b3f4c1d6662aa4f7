package store

import (
	"sync"

	"github.com/avelazco/cursoteca/auth"
	"github.com/avelazco/cursoteca/backend"
	"github.com/sirupsen/logrus"
)

// Manager binds client sessions to Store instances: one store per browser
// session, the way the original single-page client held one store per tab.
type Manager struct {
	backend backend.Store
	auth    func() auth.Facade
	nav     Navigator
	log     logrus.FieldLogger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager builds stores on demand. newAuth is called once per store so
// each client session carries its own auth-facade state.
func NewManager(b backend.Store, newAuth func() auth.Facade, nav Navigator, log logrus.FieldLogger) *Manager {
	return &Manager{
		backend: b,
		auth:    newAuth,
		nav:     nav,
		log:     log,
		stores:  make(map[string]*Store),
	}
}

// Get returns the store bound to the session token, constructing it on
// first use.
func (m *Manager) Get(token string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stores[token]
	if !ok {
		s = New(m.backend, m.auth(), m.nav, m.log.WithField("session", token))
		m.stores[token] = s
	}
	return s
}

// Drop tears down the store bound to the token, if any.
func (m *Manager) Drop(token string) {
	m.mu.Lock()
	s, ok := m.stores[token]
	delete(m.stores, token)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
}

// Close tears down every live store; called on server shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	stores := make([]*Store, 0, len(m.stores))
	for _, s := range m.stores {
		stores = append(stores, s)
	}
	m.stores = make(map[string]*Store)
	m.mu.Unlock()

	for _, s := range stores {
		s.Close()
	}
}
