// Package session holds the state of the authenticated session and its
// pure transition function. Side effects live in services.SessionService.
package session

import (
	"chatty/contract"
	"chatty/domain"
	"slices"

	"github.com/samber/lo"
)

type LoadingFlag int

const (
	SigningUp LoadingFlag = iota
	LoggingIn
	UpdatingProfile
	CheckingAuth
)

type Loading struct {
	SigningUp       bool
	LoggingIn       bool
	UpdatingProfile bool
	CheckingAuth    bool
}

// State is an immutable snapshot. Channel is only set while CurrentUser is.
type State struct {
	CurrentUser   *domain.User
	Channel       contract.IChannel
	OnlineUserIDs []string
	Loading       Loading
}

// Initial is the state at process start, before the session check ran.
func Initial() State {
	return State{Loading: Loading{CheckingAuth: true}}
}

func (s State) IsAuthenticated() bool {
	return s.CurrentUser != nil
}

func (s State) IsOnline(userID string) bool {
	return lo.Contains(s.OnlineUserIDs, userID)
}

// Action is the closed set of session transitions.
type Action interface {
	isSessionAction()
}

type SetCurrentUser struct{ User *domain.User }

type SetLoading struct {
	Flag  LoadingFlag
	Value bool
}

type SetOnlineUsers struct{ UserIDs []string }

type SetChannel struct{ Channel contract.IChannel }

// Clear drops user, channel and presence together.
type Clear struct{}

func (SetCurrentUser) isSessionAction() {}
func (SetLoading) isSessionAction()     {}
func (SetOnlineUsers) isSessionAction() {}
func (SetChannel) isSessionAction()     {}
func (Clear) isSessionAction()          {}

func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case SetCurrentUser:
		if a.User == nil {
			state.CurrentUser = nil
			state.Channel = nil
			return state
		}
		user := *a.User
		if state.CurrentUser != nil && state.CurrentUser.ID != user.ID {
			// presence was reported to the previous account
			state.OnlineUserIDs = nil
		}
		state.CurrentUser = &user
	case SetLoading:
		state.Loading = state.Loading.with(a.Flag, a.Value)
	case SetOnlineUsers:
		state.OnlineUserIDs = lo.Uniq(slices.Clone(a.UserIDs))
	case SetChannel:
		if state.CurrentUser == nil && a.Channel != nil {
			return state
		}
		state.Channel = a.Channel
	case Clear:
		state.CurrentUser = nil
		state.Channel = nil
		state.OnlineUserIDs = nil
	}
	return state
}

func (l Loading) with(flag LoadingFlag, value bool) Loading {
	switch flag {
	case SigningUp:
		l.SigningUp = value
	case LoggingIn:
		l.LoggingIn = value
	case UpdatingProfile:
		l.UpdatingProfile = value
	case CheckingAuth:
		l.CheckingAuth = value
	}
	return l
}
