package engine

import (
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"time"
)

// KV is the durable device-local store the engine persists its session
// identity into. String keys, string values, no transactions.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// Storage keys. These are the device's whole session identity.
const (
	keyTableID      = "tableId"
	keySessionID    = "sessionId"
	keySessionToken = "sessionToken"
	keyTableNumber  = "tableNumber"
	keyUserID       = "userId"
	keyUserName     = "userName"
	keyIsOwner      = "isOwner"
	keyCartID       = "cartId"
	keyJoinedAt     = "joinedAt"
)

// MemStore is an in-memory KV for tests and throwaway sessions.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]string)}
}

func (m *MemStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MemStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// FileStore is a KV persisted as one JSON file, written through on every
// mutation.
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, data: make(map[string]string)}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, &fs.data); err != nil {
		return nil, err
	}
	return fs, nil
}

func (f *FileStore) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return f.flush()
}

func (f *FileStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return f.flush()
}

func (f *FileStore) flush() error {
	raw, err := json.Marshal(f.data)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, raw, 0o600)
}

// SessionStore gives the engine typed access to the device's durable session
// identity.
type SessionStore struct {
	kv KV
}

func NewSessionStore(kv KV) *SessionStore {
	return &SessionStore{kv: kv}
}

// SaveSession persists the joined session and the device's own participant.
// Written only after a confirmed join.
func (s *SessionStore) SaveSession(sess Session, self Participant) error {
	pairs := map[string]string{
		keyTableID:      strconv.FormatUint(uint64(sess.TableID), 10),
		keySessionID:    sess.SessionID,
		keySessionToken: sess.SessionToken,
		keyTableNumber:  sess.TableNumber,
		keyCartID:       sess.CartID,
		keyUserID:       self.UserID,
		keyUserName:     self.UserName,
		keyIsOwner:      strconv.FormatBool(self.IsOwner),
		keyJoinedAt:     self.JoinedAt.UTC().Format(time.RFC3339),
	}
	for k, v := range pairs {
		if err := s.kv.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Session reconstructs the stored session, reporting false when the device
// has never joined (or has left).
func (s *SessionStore) Session() (Session, bool) {
	sessionID, ok := s.kv.Get(keySessionID)
	if !ok || sessionID == "" {
		return Session{}, false
	}
	tableIDStr, _ := s.kv.Get(keyTableID)
	tableID, _ := strconv.ParseUint(tableIDStr, 10, 64)
	token, _ := s.kv.Get(keySessionToken)
	tableNumber, _ := s.kv.Get(keyTableNumber)
	cartID, _ := s.kv.Get(keyCartID)

	return Session{
		TableID:      uint(tableID),
		SessionID:    sessionID,
		SessionToken: token,
		TableNumber:  tableNumber,
		CartID:       cartID,
	}, true
}

// LocalIdentity rebuilds the device's own participant from durable fields.
// It is authoritative for "who am I" even when the roster fetch is stale or
// has not completed yet.
func (s *SessionStore) LocalIdentity() (Participant, bool) {
	userID, ok := s.kv.Get(keyUserID)
	if !ok || userID == "" {
		return Participant{}, false
	}
	userName, _ := s.kv.Get(keyUserName)
	ownerStr, _ := s.kv.Get(keyIsOwner)
	isOwner, _ := strconv.ParseBool(ownerStr)

	joined := time.Now()
	if raw, ok := s.kv.Get(keyJoinedAt); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			joined = t
		}
	}

	return Participant{
		UserID:   userID,
		UserName: userName,
		IsOwner:  isOwner,
		JoinedAt: joined,
	}, true
}

// Clear wipes the stored identity, e.g. on leave or on a failed join rollback.
func (s *SessionStore) Clear() error {
	keys := []string{
		keyTableID, keySessionID, keySessionToken, keyTableNumber,
		keyUserID, keyUserName, keyIsOwner, keyCartID, keyJoinedAt,
	}
	for _, k := range keys {
		if err := s.kv.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
