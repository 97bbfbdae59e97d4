//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chatty/domain"
	"context"
	"encoding/json"
)

// Live channel event names.
const (
	EventOnlineUsers = "getOnlineUsers"
	EventNewMessage  = "newMessage"
)

// IAuthAPI is the remote auth surface used by the session container.
type IAuthAPI interface {
	CheckAuth(ctx context.Context) (domain.User, error)
	SignUp(ctx context.Context, req domain.SignUpRequest) (domain.User, error)
	LogIn(ctx context.Context, req domain.LoginRequest) (domain.User, error)
	LogOut(ctx context.Context) error
	UpdateProfile(ctx context.Context, req domain.ProfileUpdate) (domain.User, error)
}

// IMessageAPI is the remote messaging surface used by the conversation container.
type IMessageAPI interface {
	GetUsers(ctx context.Context) ([]domain.User, error)
	GetMessages(ctx context.Context, userID string) ([]domain.Message, error)
	SendMessage(ctx context.Context, userID string, payload domain.MessagePayload) (domain.Message, error)
}

// Handler receives the raw data of one inbound event.
type Handler func(data json.RawMessage)

// IChannel is a live bidirectional connection.
// Each event has at most one handler: On replaces, Off removes.
type IChannel interface {
	// UserID is the user the channel was dialed for.
	UserID() string
	On(event string, handler Handler)
	Off(event string)
	Connected() bool
	Close() error
}

// IChannelDialer opens a channel for userID. Handlers are installed before
// the first event is read, so nothing sent right after the handshake is lost.
type IChannelDialer interface {
	Dial(ctx context.Context, userID string, handlers map[string]Handler) (IChannel, error)
}

// IChannelProvider hands out the current channel, nil when there is none.
// Holders may register handlers but never open or close the channel.
type IChannelProvider interface {
	Channel() IChannel
}

// INotifier shows one-shot user-visible outcomes.
type INotifier interface {
	Success(message string)
	Error(message string)
}

type IPreferenceRepository interface {
	GetPreference(key string) (string, error)
	SetPreference(key, value string) error
}
