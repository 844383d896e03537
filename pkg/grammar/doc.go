// Package grammar compiles an augmented-BNF grammar into a pkg/pattern
// Arena ready for matching.
//
// Grammar rules take the form
//
//	Name = tokens...
//
// where Name consists only of unreserved characters (letters, digits, and
// - _ . ! ~ @). The first rule encountered is the entry point; any rule
// never reached from it is reported as an unused-symbol warning and
// dropped. A ';' starts a line comment. A rule normally ends at the
// newline; wrapping a sequence of tokens in parentheses lets it span
// multiple lines.
//
// Tokens are string literals ("abc" or a single-quoted 'a'), character
// classes (<abc>, with \< and \> escaping the brackets themselves),
// references to other rules by name, and groupings: (...) for a plain
// group, [...] shorthand for an optional (*1) group, and {...} for a
// capturing group — if chosen along a successful match, its span is
// recorded in the caller's capture slice, in declaration order.
//
// A quantifier of the form *, *n, m*, or m*n may precede any token or
// group (but not an optional [...] group) to set its minimum and maximum
// repetition count; omitting a bound leaves it unconstrained (min
// defaults to 0, max to unbounded). Within one rule or group, tokens are
// either all concatenated or all separated by '|' — mixing the two
// without an explicit grouping is an error.
package grammar
