package session

import (
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/hpungsan/chefai/internal/db"
	"github.com/hpungsan/chefai/internal/errors"
)

// Storage persists at most one session.
// Save and Clear must write or remove credential and user together.
type Storage interface {
	// Load returns nil when no credential is stored.
	Load() (*Session, error)
	Save(s Session) error
	Clear() error
}

// SQLiteStorage keeps the session in the client database under KeyToken and KeyUser.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates storage backed by an initialized database.
func NewSQLiteStorage(database *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: database}
}

// Load reads the stored session. A stored credential with a missing or
// unreadable user record still counts as a session with an empty user.
func (s *SQLiteStorage) Load() (*Session, error) {
	token, ok, err := db.Get(s.db, KeyToken)
	if err != nil {
		return nil, err
	}
	if !ok || token == "" {
		return nil, nil
	}

	out := &Session{Credential: token}
	userJSON, ok, err := db.Get(s.db, KeyUser)
	if err != nil {
		return nil, err
	}
	if ok {
		_ = json.Unmarshal([]byte(userJSON), &out.User)
	}
	return out, nil
}

// Save stores credential and user in one transaction.
func (s *SQLiteStorage) Save(sess Session) error {
	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return errors.NewInternal(err)
	}
	return db.SetMany(s.db, map[string]string{
		KeyToken: sess.Credential,
		KeyUser:  string(userJSON),
	})
}

// Clear removes credential and user in one transaction.
func (s *SQLiteStorage) Clear() error {
	return db.DeleteMany(s.db, KeyToken, KeyUser)
}

// MemoryStorage is process-local storage, used when nothing should outlive the process.
type MemoryStorage struct {
	mu   sync.Mutex
	sess *Session
}

// NewMemoryStorage creates empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil, nil
	}
	c := *m.sess
	return &c, nil
}

func (m *MemoryStorage) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = &s
	return nil
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}
