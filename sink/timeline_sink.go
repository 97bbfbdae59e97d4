package sink

import (
	"chatty/domain"
	"chatty/domain/conversation"
	"chatty/moderation"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Timeline prints the messages added to the open conversation after its
// history was loaded. History itself is never printed.
type Timeline struct {
	out    io.Writer
	selfID func() string
	muted  *moderation.MuteFilter

	mu        sync.Mutex
	contactID string
	seen      map[string]struct{}
}

// NewTimeline accepts a nil filter.
func NewTimeline(out io.Writer, selfID func() string, muted *moderation.MuteFilter) *Timeline {
	return &Timeline{
		out:    out,
		selfID: selfID,
		muted:  muted,
		seen:   make(map[string]struct{}),
	}
}

// Consume is a conversation observer.
func (t *Timeline) Consume(state conversation.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	contactID, _ := state.SelectedContactID()
	if contactID != t.contactID || state.Loading.Messages {
		t.contactID = contactID
		t.seen = lo.SliceToMap(state.Messages, func(m domain.Message) (string, struct{}) {
			return m.ID, struct{}{}
		})
		return
	}
	for _, m := range state.Messages {
		if _, ok := t.seen[m.ID]; ok {
			continue
		}
		t.seen[m.ID] = struct{}{}
		m.Text = t.muted.Mask(m.Text)
		_, _ = fmt.Fprintln(t.out, FormatMessage(m, t.author(m, state)))
	}
}

func (t *Timeline) author(m domain.Message, state conversation.State) string {
	if t.selfID != nil && m.SenderID == t.selfID() {
		return "you"
	}
	if state.SelectedContact != nil && state.SelectedContact.ID == m.SenderID && state.SelectedContact.FullName != "" {
		return state.SelectedContact.FullName
	}
	if contact, ok := lo.Find(state.Contacts, func(u domain.User) bool { return u.ID == m.SenderID }); ok && contact.FullName != "" {
		return contact.FullName
	}
	return m.SenderID
}

// FormatMessage renders one message on a single line.
func FormatMessage(m domain.Message, author string) string {
	at := m.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	body := m.Text
	if m.Image != "" {
		body = lo.Ternary(body == "", "[image]", "[image] "+body)
	}
	return fmt.Sprintf("[%s] %s: %s", at.Local().Format(time.TimeOnly), author, body)
}
