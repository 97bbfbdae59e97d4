package session

import (
	"chatty/domain"
	"chatty/mocks"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestReduce_Initial_State_Is_Checking_Auth(t *testing.T) {
	req := require.New(t)
	state := Initial()

	req.Nil(state.CurrentUser)
	req.Nil(state.Channel)
	req.Empty(state.OnlineUserIDs)
	req.True(state.Loading.CheckingAuth)
	req.False(state.IsAuthenticated())
}

func TestReduce_SetCurrentUser_Copies_User(t *testing.T) {
	req := require.New(t)
	user := domain.User{ID: "u1", FullName: "Alice"}

	state := Reduce(Initial(), SetCurrentUser{User: &user})

	// Then the snapshot does not alias the caller's value
	user.FullName = "Mallory"
	req.Equal("u1", state.CurrentUser.ID)
	req.Equal("Alice", state.CurrentUser.FullName)
	req.True(state.IsAuthenticated())
}

func TestReduce_Channel_Requires_User(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	channel := mocks.NewMockIChannel(ctrl)

	// Given no current user
	// When a channel is stored
	state := Reduce(Initial(), SetChannel{Channel: channel})

	// Then it is refused
	req.Nil(state.Channel)

	// Given a current user
	state = Reduce(state, SetCurrentUser{User: &domain.User{ID: "u1"}})
	state = Reduce(state, SetChannel{Channel: channel})
	req.Equal(channel, state.Channel)

	// When the user is cleared, the channel goes with it
	state = Reduce(state, SetCurrentUser{User: nil})
	req.Nil(state.CurrentUser)
	req.Nil(state.Channel)
}

func TestReduce_Clear_Drops_User_Channel_And_Presence(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	channel := mocks.NewMockIChannel(ctrl)

	state := Reduce(Initial(), SetCurrentUser{User: &domain.User{ID: "u1"}})
	state = Reduce(state, SetChannel{Channel: channel})
	state = Reduce(state, SetOnlineUsers{UserIDs: []string{"u1", "u2"}})
	state = Reduce(state, SetLoading{Flag: CheckingAuth, Value: false})

	state = Reduce(state, Clear{})

	req.Nil(state.CurrentUser)
	req.Nil(state.Channel)
	req.Empty(state.OnlineUserIDs)
	req.False(state.Loading.CheckingAuth)
}

func TestReduce_Switching_User_Drops_Presence(t *testing.T) {
	req := require.New(t)
	state := Reduce(Initial(), SetCurrentUser{User: &domain.User{ID: "u1"}})
	state = Reduce(state, SetOnlineUsers{UserIDs: []string{"u1", "u2"}})

	// When the same user is refreshed, presence stays
	state = Reduce(state, SetCurrentUser{User: &domain.User{ID: "u1", FullName: "Alice"}})
	req.Equal([]string{"u1", "u2"}, state.OnlineUserIDs)

	// When another user takes over, it is dropped
	state = Reduce(state, SetCurrentUser{User: &domain.User{ID: "u2"}})
	req.Empty(state.OnlineUserIDs)
}

func TestReduce_SetOnlineUsers_Replaces_Set(t *testing.T) {
	req := require.New(t)

	state := Reduce(Initial(), SetOnlineUsers{UserIDs: []string{"u1", "u2", "u2"}})
	req.Equal([]string{"u1", "u2"}, state.OnlineUserIDs)
	req.True(state.IsOnline("u2"))

	// When a new presence list arrives, it replaces the previous one wholesale
	state = Reduce(state, SetOnlineUsers{UserIDs: []string{"u3"}})
	req.Equal([]string{"u3"}, state.OnlineUserIDs)
	req.False(state.IsOnline("u1"))
}

func TestReduce_SetLoading_Touches_One_Flag(t *testing.T) {
	req := require.New(t)
	flags := []LoadingFlag{SigningUp, LoggingIn, UpdatingProfile, CheckingAuth}

	for _, flag := range flags {
		state := Reduce(State{}, SetLoading{Flag: flag, Value: true})
		req.Equal(flag == SigningUp, state.Loading.SigningUp)
		req.Equal(flag == LoggingIn, state.Loading.LoggingIn)
		req.Equal(flag == UpdatingProfile, state.Loading.UpdatingProfile)
		req.Equal(flag == CheckingAuth, state.Loading.CheckingAuth)

		state = Reduce(state, SetLoading{Flag: flag, Value: false})
		req.Equal(Loading{}, state.Loading)
	}
}
