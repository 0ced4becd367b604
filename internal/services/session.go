package services

import (
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/sukanfresh/orderdesk/internal/engine"
)

var (
	ErrSessionNotFound = errors.New("editing session not found")
	ErrUnknownKind     = errors.New("unknown document kind")
)

// Session is the single writer of one document: each session owns its
// engine exclusively and mutations run to completion in request order. The
// embedded mutex serializes the HTTP adapter's calls onto that single-writer
// engine; the engine itself stays lock-free.
type Session struct {
	sync.Mutex
	Token     string
	Engine    *engine.Engine
	CreatedAt time.Time
}

// SessionManager hands out editing sessions keyed by snowflake tokens. The
// map is the only shared state; its mutex guards registration and lookup,
// nothing else.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	catalog engine.Catalog
	store   *OrderStore
	node    *snowflake.Node
}

func NewSessionManager(catalog engine.Catalog, store *OrderStore, node *snowflake.Node) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		catalog:  catalog,
		store:    store,
		node:     node,
	}
}

// Open starts a session on a fresh Draft of the given kind.
func (m *SessionManager) Open(kind engine.Kind) (*Session, error) {
	if kind != engine.KindSalesOrder && kind != engine.KindPurchaseQuotation {
		return nil, ErrUnknownKind
	}
	return m.register(engine.New(m.catalog, m.store, m.node, kind)), nil
}

// OpenExisting loads a persisted document into a new session for editing.
func (m *SessionManager) OpenExisting(documentID int64) (*Session, error) {
	doc, err := m.store.Load(documentID)
	if err != nil {
		return nil, err
	}
	return m.register(engine.Resume(m.catalog, m.store, m.node, doc)), nil
}

func (m *SessionManager) register(eng *engine.Engine) *Session {
	s := &Session{
		Token:     m.node.Generate().String(),
		Engine:    eng,
		CreatedAt: time.Now(),
	}
	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()
	return s
}

// Get resolves a session token.
func (m *SessionManager) Get(token string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	return s, ok
}

// Close drops a session; the document survives only if it was saved.
func (m *SessionManager) Close(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// Transition applies a lifecycle event and, for transitions past Save,
// syncs the new status to the store so the database keeps matching the
// session's snapshot. A sync failure is reported but does not undo the
// in-session transition; the next save retries it.
func (m *SessionManager) Transition(s *Session, event engine.Event, confirmed bool) (engine.Status, error) {
	status, err := s.Engine.Transition(event, confirmed)
	if err != nil {
		return status, err
	}
	if event != engine.EventSave {
		doc := s.Engine.Document()
		if doc.ID != 0 {
			if _, syncErr := m.store.Save(&doc); syncErr != nil {
				return status, syncErr
			}
		}
	}
	return status, nil
}
