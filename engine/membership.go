package engine

import (
	"github.com/dinesync/dinesync/utils"
)

// Membership is the device's view of who is at the table. The roster always
// comes from an authoritative fetch; there is no local-only roster mutation.
type Membership struct {
	backend Backend
	store   *SessionStore
}

func NewMembership(backend Backend, store *SessionStore) *Membership {
	return &Membership{backend: backend, store: store}
}

// Join registers this device against a table. The first participant for a
// table becomes the session owner.
func (m *Membership) Join(tableID uint, userName string) (Session, Participant, error) {
	result, err := m.backend.StartSession(tableID, userName)
	if err != nil {
		return Session{}, Participant{}, err
	}

	sess := Session{
		TableID:      result.TableID,
		SessionID:    result.SessionID,
		SessionToken: result.SessionToken,
		TableNumber:  result.TableNumber,
	}
	if result.Cart != nil {
		sess.CartID = result.Cart.ID
	}

	self := Participant{
		UserID:   result.UserID,
		UserName: result.UserName,
		IsOwner:  result.IsOwner,
	}
	return sess, self, nil
}

// Roster fetches the authoritative participant list. When the fetch fails
// the engine does not guess at other diners: it degrades to a roster of just
// the local identity so a lone diner's cart and bill still work offline from
// the roster source.
func (m *Membership) Roster(tableID uint) ([]Participant, error) {
	roster, err := m.backend.GetTableUsers(tableID)
	if err != nil {
		if self, ok := m.store.LocalIdentity(); ok {
			utils.ErrorLogger.Printf("Roster fetch failed, falling back to local identity: %v", err)
			return []Participant{self}, nil
		}
		return nil, err
	}
	return roster, nil
}

// LocalIdentity reconstructs this device's participant from durable storage.
// It stays valid even when the last roster fetch predates our own join.
func (m *Membership) LocalIdentity() (Participant, bool) {
	return m.store.LocalIdentity()
}

// Leave removes this device's participant from the session roster.
func (m *Membership) Leave(tableID uint, userID string) error {
	return m.backend.Leave(tableID, userID)
}
