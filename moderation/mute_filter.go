// Package moderation masks muted words in the messages shown to the user.
// Matching ignores case, punctuation, spacing and common leet substitutions,
// so "B.4.d" still matches "bad".
package moderation

import (
	"slices"
	"sync"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

const DefaultMask = '*'

type MuteFilter struct {
	mu      sync.Mutex // guards machine searches
	machine *goahocorasick.Machine
	mask    rune
}

// folded is a text reduced for matching, with the position of each kept
// rune in the original.
type folded struct {
	runes []rune
	at    []int
}

// NewMuteFilter builds the automaton over words. With no word, Mask
// returns its input unchanged.
func NewMuteFilter(words []string, mask rune) (*MuteFilter, error) {
	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		if f := fold(w); len(f.runes) > 0 {
			patterns = append(patterns, f.runes)
		}
	}
	// the double-array trie wants sorted, distinct keys
	slices.SortFunc(patterns, slices.Compare[[]rune])
	patterns = slices.CompactFunc(patterns, slices.Equal[[]rune])
	f := &MuteFilter{mask: mask}
	if len(patterns) == 0 {
		return f, nil
	}
	f.machine = new(goahocorasick.Machine)
	if err := f.machine.Build(patterns); err != nil {
		return nil, err
	}
	return f, nil
}

// Mask replaces every rune of a muted occurrence, noise included, and
// keeps everything else as written.
func (f *MuteFilter) Mask(text string) string {
	if f == nil || f.machine == nil || text == "" {
		return text
	}
	norm := fold(text)
	if len(norm.runes) == 0 {
		return text
	}
	f.mu.Lock()
	terms := f.machine.MultiPatternSearch(norm.runes, false)
	f.mu.Unlock()
	if len(terms) == 0 {
		return text
	}
	out := []rune(text)
	for _, term := range terms {
		first, last := term.Pos, term.Pos+len(term.Word)-1
		if first < 0 || last >= len(norm.at) {
			continue
		}
		for i := norm.at[first]; i <= norm.at[last]; i++ {
			out[i] = f.mask
		}
	}
	return string(out)
}

func fold(s string) folded {
	in := []rune(s)
	f := folded{runes: make([]rune, 0, len(in)), at: make([]int, 0, len(in))}
	for i, r := range in {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		f.runes = append(f.runes, unicode.ToLower(r))
		f.at = append(f.at, i)
	}
	return f
}

func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	}
	return r
}
