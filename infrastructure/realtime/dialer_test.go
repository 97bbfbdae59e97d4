package realtime

import (
	"chatty/contract"
	"chatty/domain"
	"chatty/errors"
	"chatty/infrastructure/rest"
	"chatty/internal/fakeapi"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func loggedIn(t *testing.T, srv *fakeapi.Server) (http.CookieJar, domain.User) {
	t.Helper()
	req := require.New(t)
	jar, err := rest.NewCookieJar()
	req.NoError(err)
	client, err := rest.NewClient(logs.GetLoggerFromLevel(slog.LevelDebug), srv.APIURL(), jar, waitFor)
	req.NoError(err)
	user := srv.Seed("Alice", "alice@example.com", "secret1")
	_, err = client.LogIn(context.Background(), domain.LoginRequest{Email: user.Email, Password: "secret1"})
	req.NoError(err)
	return jar, user
}

func collect(events chan<- json.RawMessage) contract.Handler {
	return func(data json.RawMessage) { events <- data }
}

func next(t *testing.T, events <-chan json.RawMessage) json.RawMessage {
	t.Helper()
	select {
	case data := <-events:
		return data
	case <-time.After(waitFor):
		t.Fatal("no event received")
		return nil
	}
}

func TestDial_Websocket_Delivers_Presence_Then_Messages(t *testing.T) {
	req := require.New(t)
	srv := fakeapi.New(t)
	jar, user := loggedIn(t, srv)
	bob := srv.Seed("Bob", "bob@example.com", "secret2")
	dialer, err := NewDialer(logs.GetLoggerFromLevel(slog.LevelDebug), srv.SocketURL(), jar, waitFor)
	req.NoError(err)

	// Given handlers installed at dial time
	online := make(chan json.RawMessage, 8)
	messages := make(chan json.RawMessage, 8)
	channel, err := dialer.Dial(context.Background(), user.ID, map[string]contract.Handler{
		contract.EventOnlineUsers: collect(online),
		contract.EventNewMessage:  collect(messages),
	})
	req.NoError(err)
	defer channel.Close()

	// Then the presence list sent right after the handshake is not lost
	var ids []string
	req.NoError(json.Unmarshal(next(t, online), &ids))
	req.Equal([]string{user.ID}, ids)
	req.True(channel.Connected())
	req.Equal(TransportWebsocket, channel.(*Socket).Transport())

	// When bob writes to alice
	srv.Deliver(bob.ID, user.ID, "hello")

	// Then the message comes through the live channel
	var msg domain.Message
	req.NoError(json.Unmarshal(next(t, messages), &msg))
	req.Equal(bob.ID, msg.SenderID)
	req.Equal("hello", msg.Text)
}

func TestSocket_On_Replaces_Previous_Handler(t *testing.T) {
	req := require.New(t)
	srv := fakeapi.New(t)
	jar, user := loggedIn(t, srv)
	bob := srv.Seed("Bob", "bob@example.com", "secret2")
	dialer, err := NewDialer(logs.GetLoggerFromLevel(slog.LevelDebug), srv.SocketURL(), jar, waitFor)
	req.NoError(err)

	online := make(chan json.RawMessage, 8)
	first := make(chan json.RawMessage, 8)
	second := make(chan json.RawMessage, 8)
	channel, err := dialer.Dial(context.Background(), user.ID, map[string]contract.Handler{
		contract.EventOnlineUsers: collect(online),
		contract.EventNewMessage:  collect(first),
	})
	req.NoError(err)
	defer channel.Close()
	next(t, online)

	// When a second subscriber takes the slot
	channel.On(contract.EventNewMessage, collect(second))
	srv.Deliver(bob.ID, user.ID, "hi")

	// Then only the latest handler is called
	next(t, second)
	req.Empty(first)

	// When the slot is released
	channel.Off(contract.EventNewMessage)
	srv.Deliver(bob.ID, user.ID, "anyone?")
	srv.Emit(user.ID, contract.EventOnlineUsers, []string{user.ID, bob.ID})

	// Then nobody gets the message, and other events still flow in order
	var ids []string
	req.NoError(json.Unmarshal(next(t, online), &ids))
	req.Equal([]string{user.ID, bob.ID}, ids)
	req.Empty(second)
}

func TestSocket_Close_Disconnects_And_Leaves(t *testing.T) {
	req := require.New(t)
	srv := fakeapi.New(t)
	jar, user := loggedIn(t, srv)
	dialer, err := NewDialer(logs.GetLoggerFromLevel(slog.LevelDebug), srv.SocketURL(), jar, waitFor)
	req.NoError(err)

	online := make(chan json.RawMessage, 8)
	channel, err := dialer.Dial(context.Background(), user.ID, map[string]contract.Handler{
		contract.EventOnlineUsers: collect(online),
	})
	req.NoError(err)
	next(t, online)
	req.Equal([]string{user.ID}, srv.Online())

	// When
	req.NoError(channel.Close())

	// Then
	req.False(channel.Connected())
	req.NoError(channel.Close())
	req.Eventually(func() bool { return len(srv.Online()) == 0 }, waitFor, 10*time.Millisecond)
	select {
	case <-channel.(*Socket).Done():
	case <-time.After(waitFor):
		t.Fatal("read loop still running")
	}
}

func TestSocket_Server_Gone_Marks_Disconnected(t *testing.T) {
	req := require.New(t)
	srv := fakeapi.New(t)
	jar, user := loggedIn(t, srv)
	dialer, err := NewDialer(logs.GetLoggerFromLevel(slog.LevelDebug), srv.SocketURL(), jar, waitFor)
	req.NoError(err)
	online := make(chan json.RawMessage, 8)
	channel, err := dialer.Dial(context.Background(), user.ID, map[string]contract.Handler{
		contract.EventOnlineUsers: collect(online),
	})
	req.NoError(err)
	next(t, online)

	// When the server goes away
	srv.Close()

	// Then the channel reports it, without reconnecting
	req.Eventually(func() bool { return !channel.Connected() }, waitFor, 10*time.Millisecond)
}

func TestDial_Falls_Back_To_Polling(t *testing.T) {
	req := require.New(t)
	srv := fakeapi.New(t)
	srv.DisableWebsocket()
	jar, user := loggedIn(t, srv)
	bob := srv.Seed("Bob", "bob@example.com", "secret2")
	dialer, err := NewDialer(logs.GetLoggerFromLevel(slog.LevelDebug), srv.SocketURL(), jar, waitFor,
		TransportWebsocket, TransportPolling)
	req.NoError(err)
	dialer.WithPollWait(100 * time.Millisecond)

	online := make(chan json.RawMessage, 8)
	messages := make(chan json.RawMessage, 8)
	channel, err := dialer.Dial(context.Background(), user.ID, map[string]contract.Handler{
		contract.EventOnlineUsers: collect(online),
		contract.EventNewMessage:  collect(messages),
	})
	req.NoError(err)
	req.Equal(TransportPolling, channel.(*Socket).Transport())

	var ids []string
	req.NoError(json.Unmarshal(next(t, online), &ids))
	req.Equal([]string{user.ID}, ids)

	srv.Deliver(bob.ID, user.ID, "over polling")
	var msg domain.Message
	req.NoError(json.Unmarshal(next(t, messages), &msg))
	req.Equal("over polling", msg.Text)

	// When
	req.NoError(channel.Close())

	// Then the server forgets the poller
	req.Eventually(func() bool { return len(srv.Online()) == 0 }, waitFor, 10*time.Millisecond)
}

func TestDial_Polling_Close_Without_Session_Reports_Refusal(t *testing.T) {
	req := require.New(t)
	srv := fakeapi.New(t)
	srv.DisableWebsocket()
	jar, user := loggedIn(t, srv)
	dialer, err := NewDialer(logs.GetLoggerFromLevel(slog.LevelDebug), srv.SocketURL(), jar, waitFor, TransportPolling)
	req.NoError(err)
	dialer.WithPollWait(100 * time.Millisecond)
	channel, err := dialer.Dial(context.Background(), user.ID, nil)
	req.NoError(err)
	req.Eventually(func() bool { return len(srv.Online()) == 1 }, waitFor, 10*time.Millisecond)

	// Given the session cookie is gone
	base, err := url.Parse(srv.URL())
	req.NoError(err)
	jar.SetCookies(base, []*http.Cookie{{Name: "jwt", Value: "", Path: "/", MaxAge: -1}})

	// When
	err = channel.Close()

	// Then the refused leave surfaces and the server still lists the user
	var apiErr *errors.APIError
	req.ErrorAs(err, &apiErr)
	req.Equal(http.StatusUnauthorized, apiErr.Status)
	req.ErrorIs(err, errors.ErrUnauthorized)
	req.False(channel.Connected())
	req.Equal([]string{user.ID}, srv.Online())
}

func TestDial_Without_Session_Fails(t *testing.T) {
	req := require.New(t)
	srv := fakeapi.New(t)
	user := srv.Seed("Alice", "alice@example.com", "secret1")
	jar, err := rest.NewCookieJar()
	req.NoError(err)
	dialer, err := NewDialer(logs.GetLoggerFromLevel(slog.LevelDebug), srv.SocketURL(), jar, waitFor,
		TransportWebsocket, TransportPolling)
	req.NoError(err)

	// When no cookie identifies the user
	channel, err := dialer.Dial(context.Background(), user.ID, nil)

	// Then every transport is refused
	req.ErrorIs(err, errors.ErrNoTransport)
	req.Nil(channel)
	req.Empty(srv.Online())
}

func TestDial_Reports_Websocket_Handshakes(t *testing.T) {
	req := require.New(t)
	srv := fakeapi.New(t)
	jar, user := loggedIn(t, srv)
	var statuses []int
	var failures int
	dialer, err := NewDialer(logs.GetLoggerFromLevel(slog.LevelDebug), srv.SocketURL(), jar, waitFor)
	req.NoError(err)
	dialer.WithHandshakeObserver(func(status int, err error) {
		statuses = append(statuses, status)
		if err != nil {
			failures++
		}
	})

	// When one dial is accepted and one is refused
	channel, err := dialer.Dial(context.Background(), user.ID, nil)
	req.NoError(err)
	defer channel.Close()
	_, err = dialer.Dial(context.Background(), "someone-else", nil)
	req.ErrorIs(err, errors.ErrNoTransport)

	// Then both handshakes were seen
	req.Equal([]int{http.StatusSwitchingProtocols, http.StatusUnauthorized}, statuses)
	req.Equal(1, failures)
}

func TestNewDialer_Rejects_Non_HTTP_URL(t *testing.T) {
	req := require.New(t)
	_, err := NewDialer(logs.GetLoggerFromLevel(slog.LevelDebug), "ftp://example.com", nil, waitFor)
	req.Error(err)
}
