package services

import (
	"chatty/auth"
	"chatty/contract"
	"chatty/domain"
	"chatty/domain/conversation"
	"chatty/domain/session"
	"chatty/errors"
	"chatty/runtime"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

type IConversationService interface {
	ListContacts(ctx context.Context)
	LoadMessages(ctx context.Context, contactID string)
	SendMessage(ctx context.Context, payload domain.MessagePayload)
	SubscribeToInbound()
	UnsubscribeFromInbound()
	SetSelectedContact(contact *domain.User)
	OpenConversation(ctx context.Context, contact domain.User)
	FollowChannel(channel contract.IChannel)
	State() conversation.State
	Subscribe(fn func(conversation.State)) func()
}

// ConversationService holds contacts and the active conversation.
// It borrows the live channel from the session and only ever touches its
// own newMessage handler.
type ConversationService struct {
	log      *slog.Logger
	api      contract.IMessageAPI
	channels contract.IChannelProvider
	notifier contract.INotifier
	store    *runtime.Store[conversation.State, conversation.Action]

	// inboundMu guards the subscription slot: whether inbound is wanted
	// and which channel carries the handler
	inboundMu sync.Mutex
	wanted    bool
	bound     contract.IChannel
}

func NewConversationService(log *slog.Logger, api contract.IMessageAPI, channels contract.IChannelProvider, notifier contract.INotifier) *ConversationService {
	return &ConversationService{
		log:      log,
		api:      api,
		channels: channels,
		notifier: notifier,
		store:    runtime.NewStore(conversation.State{}, conversation.Reduce),
	}
}

func (s *ConversationService) State() conversation.State {
	return s.store.State()
}

func (s *ConversationService) Subscribe(fn func(conversation.State)) func() {
	return s.store.Subscribe(fn)
}

func (s *ConversationService) ListContacts(ctx context.Context) {
	s.setLoading(conversation.UsersLoading, true)
	defer s.setLoading(conversation.UsersLoading, false)

	users, err := s.api.GetUsers(ctx)
	if err != nil {
		s.log.Warn("Listing contacts failed", "error", err)
		s.notifier.Error(errors.MessageOf(err, msgUsersFailed))
		return
	}
	s.store.Dispatch(conversation.SetContacts{Contacts: users})
}

// LoadMessages replaces the history with the one of contactID, unless
// another contact got selected while the call was in flight.
func (s *ConversationService) LoadMessages(ctx context.Context, contactID string) {
	s.setLoading(conversation.MessagesLoading, true)
	defer s.setLoading(conversation.MessagesLoading, false)

	messages, err := s.api.GetMessages(ctx, contactID)
	if err != nil {
		s.log.Warn("Loading messages failed", "contact_id", contactID, "error", err)
		s.notifier.Error(errors.MessageOf(err, msgMessagesFailed))
		return
	}
	next := s.store.Dispatch(conversation.SetMessages{ContactID: contactID, Messages: messages})
	if !next.Accepts(contactID) {
		s.log.Debug("Dropped stale history", "contact_id", contactID)
	}
}

func (s *ConversationService) SendMessage(ctx context.Context, payload domain.MessagePayload) {
	contactID, ok := s.store.State().SelectedContactID()
	if !ok {
		s.notifier.Error(msgNoSelectedUser)
		return
	}
	if err := auth.ValidateMessage(payload); err != nil {
		s.notifier.Error(errors.MessageOf(err, msgSendFailed))
		return
	}
	message, err := s.api.SendMessage(ctx, contactID, payload)
	if err != nil {
		s.log.Warn("Sending message failed", "contact_id", contactID, "error", err)
		s.notifier.Error(errors.MessageOf(err, msgSendFailed))
		return
	}
	s.store.Dispatch(conversation.AppendSent{ContactID: contactID, Message: message})
}

// SubscribeToInbound takes the newMessage slot of the live channel,
// replacing whatever handler held it.
func (s *ConversationService) SubscribeToInbound() {
	if _, ok := s.store.State().SelectedContactID(); !ok {
		s.log.Debug("No contact selected, not subscribing")
		return
	}
	s.inboundMu.Lock()
	defer s.inboundMu.Unlock()

	s.wanted = true
	channel := s.channels.Channel()
	if channel == nil {
		s.log.Debug("No live channel, not subscribing")
		return
	}
	channel.On(contract.EventNewMessage, s.onNewMessage)
	s.bound = channel
}

func (s *ConversationService) UnsubscribeFromInbound() {
	s.inboundMu.Lock()
	defer s.inboundMu.Unlock()

	s.wanted = false
	s.bound = nil
	if channel := s.channels.Channel(); channel != nil {
		channel.Off(contract.EventNewMessage)
	}
}

// FollowChannel moves a wanted inbound subscription onto channel when the
// session replaced its channel.
func (s *ConversationService) FollowChannel(channel contract.IChannel) {
	s.inboundMu.Lock()
	defer s.inboundMu.Unlock()

	if !s.wanted || channel == nil || channel == s.bound {
		return
	}
	if _, ok := s.store.State().SelectedContactID(); !ok {
		return
	}
	channel.On(contract.EventNewMessage, s.onNewMessage)
	s.bound = channel
	s.log.Debug("Inbound subscription moved to the new live channel")
}

// Follow keeps the inbound subscription on the current channel of
// sessions. It returns the removal function.
func (s *ConversationService) Follow(sessions ISessionService) func() {
	return sessions.Subscribe(func(state session.State) {
		s.FollowChannel(state.Channel)
	})
}

// SetSelectedContact never clears the current messages.
func (s *ConversationService) SetSelectedContact(contact *domain.User) {
	s.store.Dispatch(conversation.SelectContact{Contact: contact})
}

// OpenConversation switches to contact: previous subscription released,
// selection replaced, inbound subscribed, then history loaded.
func (s *ConversationService) OpenConversation(ctx context.Context, contact domain.User) {
	s.UnsubscribeFromInbound()
	s.SetSelectedContact(&contact)
	s.SubscribeToInbound()
	s.LoadMessages(ctx, contact.ID)
}

func (s *ConversationService) onNewMessage(data json.RawMessage) {
	var message domain.Message
	if err := json.Unmarshal(data, &message); err != nil {
		s.log.Warn("Malformed message event", "error", err)
		return
	}
	// the selection is checked when the event is applied
	s.store.Dispatch(conversation.ReceiveMessage{Message: message})
}

func (s *ConversationService) setLoading(flag conversation.LoadingFlag, value bool) {
	s.store.Dispatch(conversation.SetLoading{Flag: flag, Value: value})
}
