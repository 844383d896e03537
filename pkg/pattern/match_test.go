package pattern

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// literalToken builds a 1*1 token wrapping a literal word and returns its
// index.
func literalToken(a *Arena, word string) int {
	lit := a.Alloc(KindLiteral)
	a.Get(lit).Word = []byte(word)
	tok := a.Alloc(KindToken)
	t := a.Get(tok)
	t.Body = lit
	t.Min, t.Max = 1, 1
	a.Retain(lit)
	return tok
}

func digitClassToken(a *Arena, min, max int) int {
	cc := a.Alloc(KindCharClass)
	for _, d := range "0123456789" {
		a.Get(cc).Class.Set(byte(d))
	}
	tok := a.Alloc(KindToken)
	t := a.Get(tok)
	t.Body = cc
	t.Min, t.Max = min, max
	a.Retain(cc)
	return tok
}

func chain(a *Arena, tokens ...int) int {
	for i := 0; i < len(tokens)-1; i++ {
		a.Get(tokens[i]).Next = tokens[i+1]
		a.Retain(tokens[i+1])
	}
	return tokens[0]
}

// TestScenario1 covers R = "a" "b" "c" against "abc".
func TestScenario1(t *testing.T) {
	a := NewArena()
	entry := chain(a, literalToken(a, "a"), literalToken(a, "b"), literalToken(a, "c"))

	ok, err := Match(a, entry, []byte("abc"), nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Match(a, entry, []byte("abcd"), nil)
	require.Error(t, err)
	require.False(t, ok)
}

// TestScenario2And3 covers a phone-number-like grammar: a successful match
// and a non-digit in the middle causing failure.
func TestScenario2And3(t *testing.T) {
	a := NewArena()
	entry := chain(a,
		digitClassToken(a, 3, 3),
		literalToken(a, "-"),
		digitClassToken(a, 3, 3),
		literalToken(a, "-"),
		digitClassToken(a, 4, 4),
	)

	ok, err := Match(a, entry, []byte("314-159-2653"), nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Match(a, entry, []byte("314-1f9-2653"), nil)
	require.ErrorIs(t, err, ErrMatchFail)
	require.False(t, ok)
}

// TestScenario4 covers two capturing 3*3 digit groups separated by '-'
// followed by an uncaptured 4*4 digit group.
func TestScenario4(t *testing.T) {
	a := NewArena()

	cap1 := digitClassToken(a, 3, 3)
	a.Get(cap1).Capture = true
	a.Get(cap1).MatchIndex = 0

	cap2 := digitClassToken(a, 3, 3)
	a.Get(cap2).Capture = true
	a.Get(cap2).MatchIndex = 1

	entry := chain(a, cap1, literalToken(a, "-"), cap2, literalToken(a, "-"), digitClassToken(a, 4, 4))

	matches := make([]Capture, 2)
	ok, err := Match(a, entry, []byte("314-159-2653"), matches)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Capture{0, 3}, matches[0])
	require.Equal(t, Capture{4, 7}, matches[1])
}

// TestEmptyInputZeroStar exercises a boundary case: a grammar whose main
// token accepts 0* must match empty input; a 1* or literal must not.
func TestEmptyInputZeroStar(t *testing.T) {
	a := NewArena()
	zeroStar := digitClassToken(a, 0, -1)
	ok, err := Match(a, zeroStar, []byte(""), nil)
	require.NoError(t, err)
	require.True(t, ok)

	a2 := NewArena()
	oneStar := digitClassToken(a2, 1, -1)
	ok, err = Match(a2, oneStar, []byte(""), nil)
	require.Error(t, err)
	require.False(t, ok)

	a3 := NewArena()
	lit := literalToken(a3, "x")
	ok, err = Match(a3, lit, []byte(""), nil)
	require.Error(t, err)
	require.False(t, ok)
}

func TestMatchOverflow(t *testing.T) {
	a := NewArena()
	capTok := literalToken(a, "x")
	a.Get(capTok).Capture = true
	a.Get(capTok).MatchIndex = 3

	_, err := Match(a, capTok, []byte("x"), make([]Capture, 1))
	require.ErrorIs(t, err, ErrMatchOverflow)
}
