package domain

// DocumentState is shared by refuelings and intakes.
type DocumentState string

const (
	StateDraft     DocumentState = "draft"
	StateConfirmed DocumentState = "confirmed"
	StateCancelled DocumentState = "cancelled"
)

func (s DocumentState) Valid() bool {
	switch s {
	case StateDraft, StateConfirmed, StateCancelled:
		return true
	}
	return false
}

// Locked reports whether records in this state need elevated rights to edit.
func (s DocumentState) Locked() bool {
	return s == StateConfirmed || s == StateCancelled
}
