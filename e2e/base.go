package e2e

import (
	"chatty/contract"
	"chatty/domain"
	"chatty/infrastructure/realtime"
	"chatty/infrastructure/rest"
	"chatty/internal/fakeapi"
	"chatty/services"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

// BaseSuite runs every test against a fresh in-process backend.
type BaseSuite struct {
	suite.Suite
	Config  Config
	Timeout time.Duration
	Server  *fakeapi.Server
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	s.Timeout, err = time.ParseDuration(s.Config.Timeout)
	s.Require().NoError(err)
}

func (s *BaseSuite) SetupTest() {
	s.Server = fakeapi.New(s.T())
}

// Step prints a header before running fn as a subtest.
func (s *BaseSuite) Step(name string, fn func()) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
	s.Run(name, fn)
}

// Client is one running chat client: the three containers wired on their
// own cookie jar, with a notifier recording what the user would see.
type Client struct {
	Sessions      *services.SessionService
	Conversations *services.ConversationService
	Notes         *Notes
}

func (s *BaseSuite) NewClient(t *testing.T) *Client {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	jar, err := rest.NewCookieJar()
	s.Require().NoError(err)
	api, err := rest.NewClient(log, s.Server.APIURL(), jar, s.Timeout)
	s.Require().NoError(err)

	transports := []realtime.Transport{realtime.TransportWebsocket}
	if s.Config.Polling {
		s.Server.DisableWebsocket()
		transports = append(transports, realtime.TransportPolling)
	}
	dialer, err := realtime.NewDialer(log, s.Server.SocketURL(), jar, s.Timeout, transports...)
	s.Require().NoError(err)
	dialer.WithPollWait(100 * time.Millisecond)

	notes := &Notes{}
	sessions := services.NewSessionService(log, api, dialer, notes)
	t.Cleanup(sessions.CloseChannel)
	conversations := services.NewConversationService(log, api, sessions, notes)
	t.Cleanup(conversations.Follow(sessions))
	return &Client{
		Sessions:      sessions,
		Conversations: conversations,
		Notes:         notes,
	}
}

// LogIn signs up and logs in a seeded account.
func (s *BaseSuite) LogIn(c *Client, fullName, email string) domain.User {
	s.Server.Seed(fullName, email, "secret1")
	c.Sessions.LogIn(context.Background(), domain.LoginRequest{Email: email, Password: "secret1"})
	user := c.Sessions.State().CurrentUser
	s.Require().NotNil(user, "login of %s failed: %v", email, c.Notes.All())
	s.Require().Eventually(func() bool { return c.Sessions.IsOnline(user.ID) }, s.Timeout, 10*time.Millisecond)
	return *user
}

// Note is one notification as the user would see it.
type Note struct {
	Success bool
	Message string
}

// Notes records notifications.
type Notes struct {
	mu    sync.Mutex
	notes []Note
}

var _ contract.INotifier = (*Notes)(nil)

func (n *Notes) Success(message string) { n.add(Note{Success: true, Message: message}) }
func (n *Notes) Error(message string)   { n.add(Note{Message: message}) }

func (n *Notes) add(note Note) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
}

func (n *Notes) All() []Note {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Note(nil), n.notes...)
}

// Reset drops what was recorded so far.
func (n *Notes) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = nil
}
