package preference

import (
	"chatty/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReduce_SetTheme_Last_Write_Wins(t *testing.T) {
	req := require.New(t)

	state := Reduce(State{Theme: domain.DefaultTheme}, SetTheme{Theme: "dark"})
	state = Reduce(state, SetTheme{Theme: "not-a-theme"})

	// Then any value is accepted, the last one wins
	req.Equal(domain.Theme("not-a-theme"), state.Theme)
}
