package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMuteFilter_Mask(t *testing.T) {
	filter, err := NewMuteFilter([]string{"badger", "snake", "mushroom"}, DefaultMask)
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain word", "The badger is here", "The ****** is here"},
		{"repeated", "badger badger", "****** ******"},
		{"leet and punctuation", "Look at B.4.d.g.€r !", "Look at ********** !"},
		{"uppercase with dashes", "S-N-A-K-E is a B.A.D.G.E.R", "********* is a ***********"},
		{"accents left alone", "Un été avec un badger", "Un été avec un ******"},
		{"nothing muted", "hello there", "hello there"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, filter.Mask(tc.input))
		})
	}
}

func TestMuteFilter_Without_Words_Is_Identity(t *testing.T) {
	req := require.New(t)

	filter, err := NewMuteFilter([]string{"", " ", "..."}, DefaultMask)

	req.NoError(err)
	req.Equal("S-N-A-K-E", filter.Mask("S-N-A-K-E"))
	var none *MuteFilter
	req.Equal("badger", none.Mask("badger"))
}
