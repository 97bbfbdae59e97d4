// Package preference holds the display preferences of the client.
package preference

import "chatty/domain"

type State struct {
	Theme domain.Theme
}

type Action interface {
	isPreferenceAction()
}

type SetTheme struct{ Theme domain.Theme }

func (SetTheme) isPreferenceAction() {}

func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case SetTheme:
		state.Theme = a.Theme
	}
	return state
}
