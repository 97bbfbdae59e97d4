package services

import (
	"chatty/auth"
	"chatty/contract"
	"chatty/domain"
	"chatty/domain/session"
	"chatty/errors"
	"chatty/runtime"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

type ISessionService interface {
	contract.IChannelProvider
	CheckExistingSession(ctx context.Context)
	SignUp(ctx context.Context, req domain.SignUpRequest)
	LogIn(ctx context.Context, req domain.LoginRequest)
	LogOut(ctx context.Context)
	UpdateProfile(ctx context.Context, req domain.ProfileUpdate)
	OpenChannel(ctx context.Context)
	CloseChannel()
	State() session.State
	IsOnline(userID string) bool
	Subscribe(fn func(session.State)) func()
}

// SessionService owns the current user and the live channel.
// Operations never return errors: outcomes go to the notifier.
type SessionService struct {
	log      *slog.Logger
	api      contract.IAuthAPI
	dialer   contract.IChannelDialer
	notifier contract.INotifier
	store    *runtime.Store[session.State, session.Action]

	// channelMu serializes dial and close
	channelMu sync.Mutex
}

func NewSessionService(log *slog.Logger, api contract.IAuthAPI, dialer contract.IChannelDialer, notifier contract.INotifier) *SessionService {
	return &SessionService{
		log:      log,
		api:      api,
		dialer:   dialer,
		notifier: notifier,
		store:    runtime.NewStore(session.Initial(), session.Reduce),
	}
}

func (s *SessionService) State() session.State {
	return s.store.State()
}

func (s *SessionService) Subscribe(fn func(session.State)) func() {
	return s.store.Subscribe(fn)
}

// Channel is the capability handed to the conversation container.
func (s *SessionService) Channel() contract.IChannel {
	return s.store.State().Channel
}

func (s *SessionService) IsOnline(userID string) bool {
	return s.store.State().IsOnline(userID)
}

// CheckExistingSession restores a session from the stored cookie.
// A 401 only means there is no session.
func (s *SessionService) CheckExistingSession(ctx context.Context) {
	defer s.setLoading(session.CheckingAuth, false)

	user, err := s.api.CheckAuth(ctx)
	if err != nil {
		s.CloseChannel()
		s.store.Dispatch(session.SetCurrentUser{User: nil})
		if errors.IsUnauthorized(err) {
			s.log.Debug("No existing session")
			return
		}
		s.log.Error("Session check failed", "error", err)
		s.notifier.Error(errors.MessageOf(err, msgCheckFailed))
		return
	}
	s.store.Dispatch(session.SetCurrentUser{User: &user})
	s.log.Info("Session restored", "user_id", user.ID)
	s.OpenChannel(ctx)
}

func (s *SessionService) SignUp(ctx context.Context, req domain.SignUpRequest) {
	s.setLoading(session.SigningUp, true)
	defer s.setLoading(session.SigningUp, false)

	if err := auth.ValidateSignUp(req); err != nil {
		s.notifier.Error(errors.MessageOf(err, msgSignUpFailed))
		return
	}
	user, err := s.api.SignUp(ctx, req)
	if err != nil {
		s.log.Warn("Sign up failed", "email", req.Email, "error", err)
		s.notifier.Error(errors.MessageOf(err, msgSignUpFailed))
		return
	}
	s.store.Dispatch(session.SetCurrentUser{User: &user})
	s.notifier.Success(msgSignUpOK)
	s.OpenChannel(ctx)
}

func (s *SessionService) LogIn(ctx context.Context, req domain.LoginRequest) {
	s.setLoading(session.LoggingIn, true)
	defer s.setLoading(session.LoggingIn, false)

	if err := auth.ValidateLogin(req); err != nil {
		s.notifier.Error(errors.MessageOf(err, msgLogInFailed))
		return
	}
	user, err := s.api.LogIn(ctx, req)
	if err != nil {
		s.log.Warn("Login failed", "email", req.Email, "error", err)
		s.notifier.Error(errors.MessageOf(err, msgLogInFailed))
		return
	}
	s.store.Dispatch(session.SetCurrentUser{User: &user})
	s.notifier.Success(msgLogInOK)
	s.OpenChannel(ctx)
}

// LogOut always tears the channel down, while the session cookie still
// authenticates the leave. The session itself is only cleared once the
// remote service confirmed.
func (s *SessionService) LogOut(ctx context.Context) {
	s.CloseChannel()
	err := s.api.LogOut(ctx)
	if err != nil {
		s.log.Warn("Logout failed", "error", err)
		s.notifier.Error(errors.MessageOf(err, msgLogOutFailed))
		return
	}
	s.store.Dispatch(session.Clear{})
	s.notifier.Success(msgLogOutOK)
}

func (s *SessionService) UpdateProfile(ctx context.Context, req domain.ProfileUpdate) {
	s.setLoading(session.UpdatingProfile, true)
	defer s.setLoading(session.UpdatingProfile, false)

	if err := auth.ValidateProfileUpdate(req); err != nil {
		s.notifier.Error(errors.MessageOf(err, msgProfileFailed))
		return
	}
	user, err := s.api.UpdateProfile(ctx, req)
	if err != nil {
		s.log.Warn("Profile update failed", "error", err)
		s.notifier.Error(errors.MessageOf(err, msgProfileFailed))
		return
	}
	s.store.Dispatch(session.SetCurrentUser{User: &user})
	s.notifier.Success(msgProfileOK)
}

// OpenChannel connects the live channel for the current user. It does
// nothing without a user or when the stored channel is still connected
// for that user. A channel dialed for another account is closed first.
func (s *SessionService) OpenChannel(ctx context.Context) {
	s.channelMu.Lock()
	defer s.channelMu.Unlock()

	state := s.store.State()
	if state.CurrentUser == nil {
		return
	}
	userID := state.CurrentUser.ID
	if state.Channel != nil && state.Channel.Connected() {
		if state.Channel.UserID() == userID {
			return
		}
		s.log.Info("Live channel belongs to another user, redialing", "previous_user_id", state.Channel.UserID(), "user_id", userID)
		if err := state.Channel.Close(); err != nil {
			s.log.Warn("Closing live channel failed", "error", err)
		}
	}
	channel, err := s.dialer.Dial(ctx, userID, map[string]contract.Handler{
		contract.EventOnlineUsers: s.onlineUsersHandler(userID),
	})
	if err != nil {
		s.log.Error("Live channel unavailable", "user_id", userID, "error", err)
		s.notifier.Error(msgChannelFailed)
		return
	}
	next := s.store.Dispatch(session.SetChannel{Channel: channel})
	if next.Channel != channel {
		// the user went away while dialing
		_ = channel.Close()
	}
}

// CloseChannel disconnects the stored channel. The handle stays stored.
func (s *SessionService) CloseChannel() {
	s.channelMu.Lock()
	defer s.channelMu.Unlock()

	channel := s.store.State().Channel
	if channel == nil || !channel.Connected() {
		return
	}
	if err := channel.Close(); err != nil {
		s.log.Warn("Closing live channel failed", "error", err)
	}
}

func (s *SessionService) onlineUsersHandler(userID string) contract.Handler {
	return func(data json.RawMessage) {
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			s.log.Warn("Malformed presence event", "error", err)
			return
		}
		if current := s.store.State().CurrentUser; current == nil || current.ID != userID {
			return
		}
		s.store.Dispatch(session.SetOnlineUsers{UserIDs: ids})
	}
}

func (s *SessionService) setLoading(flag session.LoadingFlag, value bool) {
	s.store.Dispatch(session.SetLoading{Flag: flag, Value: value})
}
