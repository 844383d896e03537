package grammar

import (
	"fmt"

	"github.com/ClaytonKnittel/fileserverd/pkg/hashtable"
	"github.com/ClaytonKnittel/fileserverd/pkg/pattern"
)

const (
	groupUnset = 0
	groupAnd   = 1
	groupOr    = 2
)

type parser struct {
	*scanner
	arena       *pattern.Arena
	rules       *hashtable.Table[string, int]
	numCaptures int
}

// Compile parses an augmented-BNF grammar and returns the pattern.Arena it
// compiles to along with the entry index of its first (main) rule.
func Compile(text string) (*pattern.Arena, int, error) {
	p := &parser{
		scanner: newScanner(text),
		arena:   pattern.NewArena(),
		rules:   hashtable.New[string, int](hashtable.StringHash),
	}

	var mainRule int
	haveMain := false
	for {
		p.skipInterTokenSpace(true)
		if p.eof() {
			break
		}
		name, entry, err := p.parseRule()
		if err != nil {
			return nil, pattern.NoNode, err
		}
		if !haveMain {
			mainRule = entry
			haveMain = true
		}
		p.rules.Insert(name, entry)
	}
	if !haveMain {
		return nil, pattern.NoNode, fmt.Errorf("%w: grammar has no rules", ErrUnexpectedEOF)
	}

	if err := p.resolveSymbols(mainRule); err != nil {
		return nil, pattern.NoNode, err
	}
	pattern.Consolidate(p.arena, mainRule)
	return p.arena, mainRule, nil
}

// parseRule parses one "Name = tokens..." definition.
func (p *parser) parseRule() (string, int, error) {
	if p.peek() == '=' {
		return "", pattern.NoNode, fmt.Errorf("%w: line %d", ErrRuleWithoutName, p.line)
	}
	name := p.skipUnreserved()
	if name == "" {
		return "", pattern.NoNode, fmt.Errorf("%w: line %d: unexpected character %q", ErrUnexpectedToken, p.line, p.peek())
	}

	p.skipInterTokenSpace(false)
	if p.peek() != '=' {
		return "", pattern.NoNode, fmt.Errorf("%w: line %d: rule %q", ErrRuleWithoutEquals, p.line, name)
	}
	p.advance()
	p.skipInterTokenSpace(true)

	entry, err := p.parseGroup(0)
	if err != nil {
		return "", pattern.NoNode, err
	}
	if entry == pattern.NoNode {
		return "", pattern.NoNode, fmt.Errorf("%w: line %d: rule %q has no tokens", ErrUnexpectedToken, p.line, name)
	}
	if _, dup := p.rules.Get(name); dup {
		return "", pattern.NoNode, fmt.Errorf("%w: %q", ErrDuplicateSymbol, name)
	}
	return name, entry, nil
}

// parseGroup parses a sequence of concatenated or alternated tokens,
// terminated by termOn (')', ']', or '}'), or by end-of-rule (newline or
// EOF) when termOn is 0.
func (p *parser) parseGroup(termOn byte) (int, error) {
	crossLines := termOn != 0
	first, last := pattern.NoNode, pattern.NoNode
	grouping := groupUnset

	for {
		p.skipInterTokenSpace(crossLines)
		if p.eof() {
			if termOn != 0 {
				return pattern.NoNode, fmt.Errorf("%w: line %d", ErrUnclosedGrouping, p.line)
			}
			break
		}
		if termOn == 0 && p.peek() == '\n' {
			break
		}
		if termOn != 0 && p.peek() == termOn {
			p.advance()
			break
		}
		if p.peek() == ';' {
			p.skipLineComment()
			continue
		}

		tok, err := p.parseAtom()
		if err != nil {
			return pattern.NoNode, err
		}

		p.skipInterTokenSpace(crossLines)
		var next byte
		if !p.eof() {
			next = p.peek()
		}

		if grouping == groupUnset {
			if next == '|' {
				grouping = groupOr
			} else {
				grouping = groupAnd
			}
		}

		switch grouping {
		case groupOr:
			if next != '|' && next != termOn && !(termOn == 0 && (p.eof() || next == '\n')) {
				return pattern.NoNode, fmt.Errorf("%w: line %d", ErrAndOrMix, p.line)
			}
			if last != pattern.NoNode {
				p.arena.Get(last).Alt = tok
				p.arena.Retain(tok)
			}
		case groupAnd:
			if next == '|' {
				return pattern.NoNode, fmt.Errorf("%w: line %d", ErrAndOrMix, p.line)
			}
			if last != pattern.NoNode {
				p.arena.Get(last).Next = tok
				p.arena.Retain(tok)
			}
		}

		if first == pattern.NoNode {
			first = tok
		}
		last = tok

		if next == '|' {
			p.advance()
		}
	}

	if first != pattern.NoNode {
		pattern.Consolidate(p.arena, first)
	}
	return first, nil
}

// parseQuantifier reads an optional *, *n, m*, or m*n prefix. hasQuant is
// false, with min=max=0, if no quantifier was present.
func (p *parser) parseQuantifier() (min, max int, hasQuant bool, err error) {
	if !(p.peek() == '*' || isDigit(p.peek())) {
		return 0, 0, false, nil
	}

	if p.peek() == '*' {
		min = 0
	} else {
		start := p.pos
		for !p.eof() && isDigit(p.peek()) {
			p.pos++
		}
		if p.eof() || p.peek() != '*' {
			return 0, 0, false, fmt.Errorf("%w: line %d", ErrNumWithoutStar, p.line)
		}
		min = atoiDigits(p.buf[start:p.pos])
	}
	p.advance() // '*'

	start := p.pos
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
	}
	if p.pos == start {
		max = -1
	} else {
		max = atoiDigits(p.buf[start:p.pos])
	}

	if min == 0 && max == 0 {
		return 0, 0, false, fmt.Errorf("%w: line %d: 0*0 is not allowed", ErrZeroQuantifier, p.line)
	}
	if max != -1 && min > max {
		return 0, 0, false, fmt.Errorf("%w: line %d: %d*%d", ErrZeroQuantifier, p.line, min, max)
	}

	p.skipInterTokenSpace(true)
	if p.eof() {
		return 0, 0, false, fmt.Errorf("%w: line %d", ErrNoTokenAfterQuantifier, p.line)
	}
	return min, max, true, nil
}

func atoiDigits(b []byte) int {
	n := 0
	for _, c := range b {
		n = n*10 + int(c-'0')
	}
	return n
}

// parseAtom parses one quantified token: a capturing group, an optional
// group, a parenthesized group, a character class, a literal, or a plain
// rule reference, and returns the index of the token node representing it.
func (p *parser) parseAtom() (int, error) {
	min, max, hasQuant, err := p.parseQuantifier()
	if err != nil {
		return pattern.NoNode, err
	}
	if !hasQuant && p.peek() != '[' {
		min, max = 1, 1
	}

	switch p.peek() {
	case '{':
		p.advance()
		inner, err := p.parseGroup('}')
		if err != nil {
			return pattern.NoNode, err
		}
		tok := p.arena.Alloc(pattern.KindToken)
		t := p.arena.Get(tok)
		t.Body = inner
		t.Capture = true
		t.MatchIndex = p.numCaptures
		p.numCaptures++
		t.Min, t.Max = min, max
		p.arena.Retain(inner)
		return tok, nil

	case '[':
		if hasQuant {
			return pattern.NoNode, fmt.Errorf("%w: line %d", ErrOverspecifiedQuantifier, p.line)
		}
		p.advance()
		inner, err := p.parseGroup(']')
		if err != nil {
			return pattern.NoNode, err
		}
		tok := p.arena.Alloc(pattern.KindToken)
		t := p.arena.Get(tok)
		t.Body = inner
		t.Min, t.Max = 0, 1
		p.arena.Retain(inner)
		return tok, nil

	case '(':
		p.advance()
		inner, err := p.parseGroup(')')
		if err != nil {
			return pattern.NoNode, err
		}
		if min == 1 && max == 1 {
			return inner, nil
		}
		innerNode := p.arena.Get(inner)
		if innerNode.Kind == pattern.KindToken && innerNode.Next == pattern.NoNode &&
			innerNode.Alt == pattern.NoNode && innerNode.Min <= 1 {
			innerNode.Min *= min
			if max == -1 || innerNode.Max == -1 {
				innerNode.Max = -1
			} else {
				innerNode.Max *= max
			}
			return inner, nil
		}
		tok := p.arena.Alloc(pattern.KindToken)
		t := p.arena.Get(tok)
		t.Body = inner
		t.Min, t.Max = min, max
		p.arena.Retain(inner)
		return tok, nil

	case '<':
		return p.parseCharClass(min, max)

	case '"':
		return p.parseStringLiteral(min, max)

	case '\'':
		return p.parseCharLiteral(min, max)

	case 0:
		return pattern.NoNode, fmt.Errorf("%w: line %d: unexpected end of input", ErrUnexpectedToken, p.line)

	default:
		if !isUnreserved(p.peek()) {
			return pattern.NoNode, fmt.Errorf("%w: line %d: %q", ErrUnexpectedToken, p.line, p.peek())
		}
		name := p.skipUnreserved()
		unres := p.arena.Alloc(pattern.KindUnresolved)
		p.arena.Get(unres).Word = []byte(name)

		tok := p.arena.Alloc(pattern.KindToken)
		t := p.arena.Get(tok)
		t.Body = unres
		t.Min, t.Max = min, max
		p.arena.Retain(unres)
		return tok, nil
	}
}

func (p *parser) parseCharClass(min, max int) (int, error) {
	p.advance() // '<'
	cc := p.arena.Alloc(pattern.KindCharClass)
	for {
		if p.eof() || p.peek() == '\n' {
			return pattern.NoNode, fmt.Errorf("%w: line %d: unclosed character class", ErrBadCharClass, p.line)
		}
		if p.peek() == '>' {
			p.advance()
			break
		}
		var val byte
		if p.peek() == '\\' && p.pos+1 < len(p.buf) && (p.buf[p.pos+1] == '<' || p.buf[p.pos+1] == '>') {
			val = p.buf[p.pos+1]
			p.pos += 2
		} else {
			v, err := p.charVal()
			if err != nil {
				return pattern.NoNode, err
			}
			if v == '<' {
				return pattern.NoNode, fmt.Errorf("%w: line %d: must escape '<' within a character class", ErrBadCharClass, p.line)
			}
			val = v
		}
		p.arena.Get(cc).Class.Set(val)
	}

	tok := p.arena.Alloc(pattern.KindToken)
	t := p.arena.Get(tok)
	t.Body = cc
	t.Min, t.Max = min, max
	p.arena.Retain(cc)
	return tok, nil
}

func (p *parser) parseStringLiteral(min, max int) (int, error) {
	p.advance() // '"'
	start := p.pos
	for !p.eof() && p.peek() != '"' {
		if p.peek() == '\\' && p.pos+1 < len(p.buf) {
			p.pos += 2
			continue
		}
		if p.peek() == '\n' {
			break
		}
		p.pos++
	}
	if p.eof() || p.peek() != '"' {
		return pattern.NoNode, fmt.Errorf("%w: line %d", ErrOpenString, p.line)
	}
	raw := p.buf[start:p.pos]
	p.advance() // closing '"'

	word := unescapeLiteral(raw)
	if len(word) == 0 {
		return pattern.NoNode, fmt.Errorf("%w: line %d", ErrEmptyString, p.line)
	}

	lit := p.arena.Alloc(pattern.KindLiteral)
	p.arena.Get(lit).Word = word

	tok := p.arena.Alloc(pattern.KindToken)
	t := p.arena.Get(tok)
	t.Body = lit
	t.Min, t.Max = min, max
	p.arena.Retain(lit)
	return tok, nil
}

func unescapeLiteral(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
		}
		out = append(out, raw[i])
	}
	return out
}

func (p *parser) parseCharLiteral(min, max int) (int, error) {
	p.advance() // opening '\''
	if p.eof() {
		return pattern.NoNode, fmt.Errorf("%w: line %d: dangling \"'\"", ErrBadSingleCharLiteral, p.line)
	}
	if p.peek() == '\'' {
		return pattern.NoNode, fmt.Errorf("%w: line %d: empty ''", ErrBadSingleCharLiteral, p.line)
	}
	val, err := p.charVal()
	if err != nil {
		return pattern.NoNode, err
	}
	if p.eof() || p.peek() != '\'' {
		return pattern.NoNode, fmt.Errorf("%w: line %d: unclosed '%c'", ErrBadSingleCharLiteral, p.line, val)
	}
	p.advance() // closing '\''

	lit := p.arena.Alloc(pattern.KindLiteral)
	p.arena.Get(lit).Word = []byte{val}

	tok := p.arena.Alloc(pattern.KindToken)
	t := p.arena.Get(tok)
	t.Body = lit
	t.Min, t.Max = min, max
	p.arena.Retain(lit)
	return tok, nil
}
