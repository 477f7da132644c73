// Package filter implements the content moderation check. It canonicalizes
// text before matching so that spacing, punctuation, leetspeak and
// letter-repetition tricks do not slip a banned term past a plain substring
// test.
package filter

import "strings"

// leet maps common character substitutions back to letters.
var leet = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
	'$': 's',
	'@': 'a',
}

// Filter scans text against a banned-term list.
type Filter struct {
	banned []string
}

// New builds a Filter. Each term is canonicalized the same way scanned text
// is, so the configured list may contain spacing or mixed case.
func New(banned []string) *Filter {
	terms := make([]string, 0, len(banned))
	for _, t := range banned {
		if c := canonicalize(t); c != "" {
			terms = append(terms, c)
		}
	}
	return &Filter{banned: terms}
}

// Violates reports whether text contains any banned term after
// canonicalization.
func (f *Filter) Violates(text string) bool {
	if len(f.banned) == 0 {
		return false
	}
	canon := canonicalize(text)
	for _, term := range f.banned {
		if strings.Contains(canon, term) {
			return true
		}
	}
	return false
}

// canonicalize lower-cases, undoes leetspeak substitutions, strips everything
// that is not a letter, and collapses runs of three or more identical letters
// down to one.
func canonicalize(s string) string {
	var letters []rune
	for _, r := range strings.ToLower(s) {
		if sub, ok := leet[r]; ok {
			r = sub
		}
		if r < 'a' || r > 'z' {
			continue
		}
		letters = append(letters, r)
	}

	var b strings.Builder
	b.Grow(len(letters))
	for i := 0; i < len(letters); {
		j := i
		for j < len(letters) && letters[j] == letters[i] {
			j++
		}
		run := j - i
		if run >= 3 {
			run = 1
		}
		for k := 0; k < run; k++ {
			b.WriteRune(letters[i])
		}
		i = j
	}
	return b.String()
}
