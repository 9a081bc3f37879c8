package tree

// Message is a validation message attached to the store. Fatal messages
// disable every mutating operation.
type Message struct {
	ID    string
	Text  string
	Fatal bool
}

// Well-known message ids.
const (
	MsgRelation      = "relation"
	MsgTitle         = "title-attribute"
	MsgRelationCycle = "relation-cycle"
)

// AddValidation attaches msg, replacing any message with the same id.
func (s *Store) AddValidation(msg Message) {
	s.apply(func(tx *txn) {
		s.addValidationLocked(tx, msg)
	})
}

// RemoveValidation drops the message with id.
func (s *Store) RemoveValidation(id string) {
	s.apply(func(tx *txn) {
		s.removeValidationLocked(tx, id)
	})
}

// Validation returns the current messages in insertion order.
func (s *Store) Validation() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.validation...)
}

// Disabled reports whether any fatal message is present or no context is
// set.
func (s *Store) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabledLocked()
}

func (s *Store) disabledLocked() bool {
	if s.contextID == "" {
		return true
	}
	for _, m := range s.validation {
		if m.Fatal {
			return true
		}
	}
	return false
}

func (s *Store) addValidationLocked(tx *txn, msg Message) {
	for i, m := range s.validation {
		if m.ID == msg.ID {
			if m == msg {
				return
			}
			v := append([]Message(nil), s.validation...)
			v[i] = msg
			s.validation = v
			tx.emit(EventValidation, msg.ID)
			return
		}
	}
	s.validation = append(append([]Message(nil), s.validation...), msg)
	tx.emit(EventValidation, msg.ID)
}

func (s *Store) removeValidationLocked(tx *txn, id string) {
	for i, m := range s.validation {
		if m.ID == id {
			v := make([]Message, 0, len(s.validation)-1)
			v = append(v, s.validation[:i]...)
			v = append(v, s.validation[i+1:]...)
			s.validation = v
			tx.emit(EventValidation, id)
			return
		}
	}
}
