// Package conversation holds the contacts, the selected contact and the
// messages of the active conversation, with their transition function.
package conversation

import (
	"chatty/domain"
	"slices"
)

type LoadingFlag int

const (
	UsersLoading LoadingFlag = iota
	MessagesLoading
)

type Loading struct {
	Users    bool
	Messages bool
}

// State is an immutable snapshot. Messages belong to a single partner and
// keep the order in which the remote service returned or pushed them.
type State struct {
	Messages        []domain.Message
	Contacts        []domain.User
	SelectedContact *domain.User
	Loading         Loading
}

func (s State) SelectedContactID() (string, bool) {
	if s.SelectedContact == nil {
		return "", false
	}
	return s.SelectedContact.ID, true
}

// Accepts reports whether a result fetched for contactID still belongs to
// the current selection. Without a selection every result is accepted.
func (s State) Accepts(contactID string) bool {
	id, ok := s.SelectedContactID()
	return !ok || id == contactID
}

// Action is the closed set of conversation transitions.
type Action interface {
	isConversationAction()
}

type SetContacts struct{ Contacts []domain.User }

// SetMessages replaces the history with the one fetched for ContactID.
type SetMessages struct {
	ContactID string
	Messages  []domain.Message
}

// AppendSent adds the echo of a message sent to ContactID.
type AppendSent struct {
	ContactID string
	Message   domain.Message
}

// ReceiveMessage adds an inbound message if its sender is the selected contact.
type ReceiveMessage struct{ Message domain.Message }

type SelectContact struct{ Contact *domain.User }

type SetLoading struct {
	Flag  LoadingFlag
	Value bool
}

func (SetContacts) isConversationAction()    {}
func (SetMessages) isConversationAction()    {}
func (AppendSent) isConversationAction()     {}
func (ReceiveMessage) isConversationAction() {}
func (SelectContact) isConversationAction()  {}
func (SetLoading) isConversationAction()     {}

func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case SetContacts:
		state.Contacts = slices.Clone(a.Contacts)
	case SetMessages:
		if !state.Accepts(a.ContactID) {
			return state
		}
		state.Messages = slices.Clone(a.Messages)
	case AppendSent:
		if !state.Accepts(a.ContactID) {
			return state
		}
		state.Messages = appendMessage(state.Messages, a.Message)
	case ReceiveMessage:
		id, ok := state.SelectedContactID()
		if !ok || a.Message.SenderID != id {
			return state
		}
		state.Messages = appendMessage(state.Messages, a.Message)
	case SelectContact:
		if a.Contact == nil {
			state.SelectedContact = nil
			return state
		}
		contact := *a.Contact
		state.SelectedContact = &contact
	case SetLoading:
		switch a.Flag {
		case UsersLoading:
			state.Loading.Users = a.Value
		case MessagesLoading:
			state.Loading.Messages = a.Value
		}
	}
	return state
}

// appendMessage never writes into the backing array of a published snapshot.
func appendMessage(messages []domain.Message, m domain.Message) []domain.Message {
	next := make([]domain.Message, 0, len(messages)+1)
	next = append(next, messages...)
	return append(next, m)
}
