package services

import (
	"chatty/contract"
	"chatty/domain"
	"chatty/errors"
	"chatty/mocks"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type conversationFixture struct {
	service  *ConversationService
	api      *mocks.MockIMessageAPI
	channels *mocks.MockIChannelProvider
	notifier *mocks.MockINotifier
	channel  *mocks.MockIChannel
}

func newConversationFixture(t *testing.T) conversationFixture {
	ctrl := gomock.NewController(t)
	f := conversationFixture{
		api:      mocks.NewMockIMessageAPI(ctrl),
		channels: mocks.NewMockIChannelProvider(ctrl),
		notifier: mocks.NewMockINotifier(ctrl),
		channel:  mocks.NewMockIChannel(ctrl),
	}
	f.service = NewConversationService(logs.GetLoggerFromLevel(slog.LevelDebug), f.api, f.channels, f.notifier)
	return f
}

func raw(t *testing.T, m domain.Message) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return data
}

func TestConversationService_LoadMessages_Empty_History(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)
	f.api.EXPECT().GetMessages(gomock.Any(), "u2").
		DoAndReturn(func(context.Context, string) ([]domain.Message, error) {
			req.True(f.service.State().Loading.Messages)
			return []domain.Message{}, nil
		})

	// When, with no notifier expectation
	f.service.LoadMessages(context.Background(), "u2")

	// Then
	req.Empty(f.service.State().Messages)
	req.False(f.service.State().Loading.Messages)
}

func TestConversationService_LoadMessages_Replaces_History(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)
	f.service.SetSelectedContact(&domain.User{ID: "u2"})
	history := []domain.Message{
		{ID: "m1", SenderID: "u1", RecipientID: "u2", Text: "hi"},
		{ID: "m2", SenderID: "u2", RecipientID: "u1", Text: "hey"},
	}
	f.api.EXPECT().GetMessages(gomock.Any(), "u2").Return(history, nil)

	f.service.LoadMessages(context.Background(), "u2")

	req.Equal(history, f.service.State().Messages)
}

func TestConversationService_LoadMessages_Drops_Stale_Result(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)
	f.service.SetSelectedContact(&domain.User{ID: "u2"})

	// Given the user switches to u3 while u2's history is in flight
	f.api.EXPECT().GetMessages(gomock.Any(), "u2").
		DoAndReturn(func(context.Context, string) ([]domain.Message, error) {
			f.service.SetSelectedContact(&domain.User{ID: "u3"})
			return []domain.Message{{ID: "m1", SenderID: "u2"}}, nil
		})

	// When
	f.service.LoadMessages(context.Background(), "u2")

	// Then
	req.Empty(f.service.State().Messages)
	req.Equal("u3", f.service.State().SelectedContact.ID)
	req.False(f.service.State().Loading.Messages)
}

func TestConversationService_LoadMessages_Failure(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)
	f.api.EXPECT().GetMessages(gomock.Any(), "u2").Return(nil, errors.ErrServiceUnavailable)
	f.notifier.EXPECT().Error("Failed to fetch messages")

	f.service.LoadMessages(context.Background(), "u2")

	req.False(f.service.State().Loading.Messages)
}

func TestConversationService_SendMessage_Appends_Echo(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)
	f.service.SetSelectedContact(&domain.User{ID: "u2"})
	echo := domain.Message{ID: "m1", SenderID: "u1", RecipientID: "u2", Text: "hi"}
	f.api.EXPECT().SendMessage(gomock.Any(), "u2", domain.MessagePayload{Text: "hi"}).Return(echo, nil)

	f.service.SendMessage(context.Background(), domain.MessagePayload{Text: "hi"})

	req.Equal([]domain.Message{echo}, f.service.State().Messages)
}

func TestConversationService_SendMessage_Without_Selection(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)
	f.notifier.EXPECT().Error("No user selected").Times(1)

	// When, with no api expectation
	f.service.SendMessage(context.Background(), domain.MessagePayload{Text: "hi"})

	// Then
	req.Empty(f.service.State().Messages)
}

func TestConversationService_SendMessage_Empty_Payload(t *testing.T) {
	f := newConversationFixture(t)
	f.service.SetSelectedContact(&domain.User{ID: "u2"})
	f.notifier.EXPECT().Error("Message cannot be empty")

	f.service.SendMessage(context.Background(), domain.MessagePayload{})
}

func TestConversationService_SendMessage_Failure_Keeps_State(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)
	f.service.SetSelectedContact(&domain.User{ID: "u2"})
	f.api.EXPECT().SendMessage(gomock.Any(), "u2", gomock.Any()).
		Return(domain.Message{}, &errors.APIError{Status: http.StatusNotFound, Message: "User not found"})
	f.notifier.EXPECT().Error("User not found")

	f.service.SendMessage(context.Background(), domain.MessagePayload{Text: "hi"})

	req.Empty(f.service.State().Messages)
}

func TestConversationService_ListContacts(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		req := require.New(t)
		f := newConversationFixture(t)
		contacts := []domain.User{{ID: "u2"}, {ID: "u3"}}
		f.api.EXPECT().GetUsers(gomock.Any()).
			DoAndReturn(func(context.Context) ([]domain.User, error) {
				req.True(f.service.State().Loading.Users)
				return contacts, nil
			})

		f.service.ListContacts(context.Background())

		req.Equal(contacts, f.service.State().Contacts)
		req.False(f.service.State().Loading.Users)
	})

	t.Run("failure", func(t *testing.T) {
		req := require.New(t)
		f := newConversationFixture(t)
		f.api.EXPECT().GetUsers(gomock.Any()).Return(nil, &errors.APIError{Status: http.StatusInternalServerError})
		f.notifier.EXPECT().Error("Failed to fetch users")

		f.service.ListContacts(context.Background())

		req.False(f.service.State().Loading.Users)
	})
}

func TestConversationService_Inbound_Filters_By_Selected_Sender(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)
	var handler contract.Handler
	f.channels.EXPECT().Channel().Return(f.channel).AnyTimes()
	f.channel.EXPECT().Off(contract.EventNewMessage)
	f.channel.EXPECT().On(contract.EventNewMessage, gomock.Any()).
		Do(func(_ string, h contract.Handler) { handler = h })
	f.api.EXPECT().GetMessages(gomock.Any(), "u2").Return([]domain.Message{}, nil)

	// Given the conversation with u2 is open
	f.service.OpenConversation(context.Background(), domain.User{ID: "u2"})
	req.NotNil(handler)

	// When u2 and u3 both write
	fromU2 := domain.Message{ID: "m1", SenderID: "u2", RecipientID: "u1", Text: "hello"}
	handler(raw(t, fromU2))
	handler(raw(t, domain.Message{ID: "m2", SenderID: "u3", RecipientID: "u1", Text: "psst"}))
	handler(json.RawMessage(`not json`))

	// Then only u2's message lands
	req.Equal([]domain.Message{fromU2}, f.service.State().Messages)

	// When the selection moves on, the same handler follows it
	f.service.SetSelectedContact(&domain.User{ID: "u3"})
	handler(raw(t, fromU2))
	req.Len(f.service.State().Messages, 1)
}

func TestConversationService_SubscribeToInbound_Requires_Selection(t *testing.T) {
	f := newConversationFixture(t)

	// When, with no provider expectation
	f.service.SubscribeToInbound()
}

func TestConversationService_SubscribeToInbound_Without_Channel(t *testing.T) {
	f := newConversationFixture(t)
	f.service.SetSelectedContact(&domain.User{ID: "u2"})
	f.channels.EXPECT().Channel().Return(nil)

	f.service.SubscribeToInbound()
}

func TestConversationService_Subscription_Slot_Is_Replaced(t *testing.T) {
	f := newConversationFixture(t)
	f.channels.EXPECT().Channel().Return(f.channel).AnyTimes()
	f.service.SetSelectedContact(&domain.User{ID: "u2"})

	// Then each subscribe takes the slot again, unsubscribe frees it
	gomock.InOrder(
		f.channel.EXPECT().On(contract.EventNewMessage, gomock.Any()),
		f.channel.EXPECT().On(contract.EventNewMessage, gomock.Any()),
		f.channel.EXPECT().Off(contract.EventNewMessage),
	)

	f.service.SubscribeToInbound()
	f.service.SubscribeToInbound()
	f.service.UnsubscribeFromInbound()
}

func TestConversationService_Inbound_Follows_Channel_Opened_Later(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)
	var handler contract.Handler

	// Given the conversation was opened before any channel existed
	f.service.SetSelectedContact(&domain.User{ID: "u2"})
	f.channels.EXPECT().Channel().Return(nil)
	f.service.SubscribeToInbound()

	// When the session stores a channel, twice
	f.channel.EXPECT().On(contract.EventNewMessage, gomock.Any()).
		Do(func(_ string, h contract.Handler) { handler = h }).
		Times(1)
	f.service.FollowChannel(f.channel)
	f.service.FollowChannel(f.channel)

	// Then pushes of u2 reach the conversation
	req.NotNil(handler)
	fromU2 := domain.Message{ID: "m1", SenderID: "u2", RecipientID: "u1", Text: "hello"}
	handler(raw(t, fromU2))
	req.Equal([]domain.Message{fromU2}, f.service.State().Messages)
}

func TestConversationService_Inbound_Moves_To_Replacing_Channel(t *testing.T) {
	f := newConversationFixture(t)
	replacement := mocks.NewMockIChannel(gomock.NewController(t))
	f.service.SetSelectedContact(&domain.User{ID: "u2"})
	f.channels.EXPECT().Channel().Return(f.channel).Times(2)
	f.channel.EXPECT().On(contract.EventNewMessage, gomock.Any())
	f.service.SubscribeToInbound()

	// When the lost channel is replaced
	replacement.EXPECT().On(contract.EventNewMessage, gomock.Any())
	f.service.FollowChannel(replacement)
	f.service.FollowChannel(nil)

	// Then after unsubscribing, a later channel is left alone
	f.channel.EXPECT().Off(contract.EventNewMessage)
	f.service.UnsubscribeFromInbound()
	f.service.FollowChannel(mocks.NewMockIChannel(gomock.NewController(t)))
}

func TestConversationService_SetSelectedContact_Keeps_Messages(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)
	f.service.SetSelectedContact(&domain.User{ID: "u2"})
	echo := domain.Message{ID: "m1", SenderID: "u1", RecipientID: "u2", Text: "hi"}
	f.api.EXPECT().SendMessage(gomock.Any(), "u2", gomock.Any()).Return(echo, nil)
	f.service.SendMessage(context.Background(), domain.MessagePayload{Text: "hi"})

	f.service.SetSelectedContact(&domain.User{ID: "u3"})
	f.service.SetSelectedContact(nil)

	req.Equal([]domain.Message{echo}, f.service.State().Messages)
	req.Nil(f.service.State().SelectedContact)
}
