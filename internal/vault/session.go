package vault

import "github.com/safevault/safevault/internal/models"

// State is the position of the editing session in its state machine.
//
//	Idle → Listed → Opened → (Editing) → Idle     save
//	Opened/Editing → Idle                         close
//	Listed → PendingDelete → Idle                 confirmed delete
//	PendingDelete → Listed                        cancelled delete
type State string

const (
	StateIdle          State = "idle"
	StateListed        State = "listed"
	StateOpened        State = "opened"
	StateEditing       State = "editing"
	StatePendingDelete State = "pending_delete"
)

// Session is the per-instance UI state: the open document with its edit
// buffer and the document awaiting delete confirmation.
type Session struct {
	State         State            `json:"state"`
	Selected      *models.Document `json:"selected,omitempty"`
	EditBuffer    string           `json:"edit_buffer"`
	PendingDelete *models.Document `json:"pending_delete,omitempty"`
}

func (s Session) clone() Session {
	out := s
	if s.Selected != nil {
		sel := *s.Selected
		if s.Selected.Content != nil {
			c := *s.Selected.Content
			sel.Content = &c
		}
		out.Selected = &sel
	}
	if s.PendingDelete != nil {
		p := *s.PendingDelete
		out.PendingDelete = &p
	}
	return out
}

func (s State) editing() bool {
	return s == StateOpened || s == StateEditing
}

func (s State) resting() bool {
	return s == StateIdle || s == StateListed
}
