package front

import (
	"fmt"
	"strings"
)

type (
	Token = any

	Char    byte
	Op      string
	Keyword string
	Ident   string
	Number  string
	Bad     rune

	UnexpectedError struct {
		Token Token
		Want  []Token
	}
)

// next returns the token starting at or after st, the token start position,
// and the position just past the token. A nil token means end of input.
func (s *State) next(st int) (tk Token, tst, i int) {
	i = s.skipSpaces(st)
	tst = i

	if i == len(s.b) {
		return nil, tst, i
	}

	c := s.b[i]

	switch c {
	case '(', ')', '{', '}', ',', ';', ':':
		return Char(c), tst, i + 1
	case '=', '!', '<', '>', '|', '&':
		if i+1 < len(s.b) {
			switch two := string(s.b[i : i+2]); two {
			case "==", "!=", "<=", ">=", "<<", ">>", "||", "&&":
				return Op(two), tst, i + 2
			}
		}

		return Op(s.b[i : i+1]), tst, i + 1
	case '+', '-', '*', '/', '%', '^', '~':
		return Op(s.b[i : i+1]), tst, i + 1
	}

	if c >= '0' && c <= '9' {
		e := skipNum(s.b, i)
		return Number(s.b[i:e]), tst, e
	}

	r, size := s.dec.Decode(s.b, i)
	if !identStart(r) {
		return Bad(r), tst, i + size
	}

	e := s.skipIdent(i)

	switch string(s.b[i:e]) {
	case "func", "extern", "if", "else", "for", "while", "return", "var":
		return Keyword(s.b[i:e]), tst, e
	}

	return Ident(s.b[i:e]), tst, e
}

func NewUnexpected(got Token, want ...Token) error {
	return UnexpectedError{
		Token: got,
		Want:  want,
	}
}

func (e UnexpectedError) Error() string {
	l := make([]string, len(e.Want))

	for i := range e.Want {
		l[i] = fmt.Sprintf("%q", e.Want[i])
	}

	return fmt.Sprintf("unexpected token: %q (%[1]T) want: %v", e.Token, strings.Join(l, ", "))
}

func (c Char) String() string {
	return string(c)
}
