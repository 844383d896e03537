package grammar

import "errors"

// Sentinel errors returned (possibly wrapped with positional context) by
// Compile, one for each distinct way an augmented-BNF source can be
// malformed.
var (
	ErrRuleWithoutName        = errors.New("grammar: rule has no name")
	ErrRuleWithoutEquals      = errors.New("grammar: rule not followed by '='")
	ErrNumWithoutStar         = errors.New("grammar: quantifier number not followed by '*'")
	ErrNoTokenAfterQuantifier = errors.New("grammar: no token following quantifier")
	ErrUnexpectedToken        = errors.New("grammar: unexpected token")
	ErrAndOrMix               = errors.New("grammar: '|' and concatenation mixed without grouping")
	ErrOverspecifiedQuantifier = errors.New("grammar: optional group '[]' cannot also carry a quantifier")
	ErrZeroQuantifier         = errors.New("grammar: quantifier bounds are zero or inverted")
	ErrBadCharClass           = errors.New("grammar: malformed character class")
	ErrOpenString             = errors.New("grammar: unterminated string literal")
	ErrEmptyString            = errors.New("grammar: empty string literal")
	ErrBadSingleCharLiteral   = errors.New("grammar: malformed single-character literal")
	ErrUnclosedGrouping       = errors.New("grammar: unclosed grouping")
	ErrUnexpectedEOF          = errors.New("grammar: unexpected end of input")
	ErrCircularDefinition     = errors.New("grammar: circular symbol reference")
	ErrUndefinedSymbol        = errors.New("grammar: undefined symbol")
	ErrDuplicateSymbol        = errors.New("grammar: duplicate rule name")
)
