package front

import (
	"context"
	"os"
	"unicode"
	"unicode/utf8"

	"tlog.app/go/errors"
)

type (
	// Decoder yields code points of a byte stream.
	Decoder interface {
		Decode(b []byte, i int) (r rune, size int)
	}

	UTF8 struct{}

	State struct {
		b    []byte // all files concatenated
		dec  Decoder
		name string
	}
)

func (UTF8) Decode(b []byte, i int) (r rune, size int) {
	return utf8.DecodeRune(b[i:])
}

func New() *State {
	return &State{dec: UTF8{}}
}

func (s *State) AddFile(ctx context.Context, name string, text []byte) {
	if s.name == "" {
		s.name = name
	}

	s.b = append(s.b, text...)
}

func (s *State) ReadFile(ctx context.Context, name string) error {
	data, err := os.ReadFile(name)
	if err != nil {
		return errors.Wrap(err, "read")
	}

	s.AddFile(ctx, name, data)

	return nil
}

func (s *State) skipSpaces(i int) int {
	for i < len(s.b) {
		switch s.b[i] {
		case ' ', '\t', '\r', '\n':
			i++
		case '#':
			for i < len(s.b) && s.b[i] != '\n' {
				i++
			}
		default:
			return i
		}
	}

	return i
}

func (s *State) skipIdent(i int) int {
	for i < len(s.b) {
		r, size := s.dec.Decode(s.b, i)
		if !identPart(r) {
			break
		}

		i += size
	}

	return i
}

func identStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func identPart(r rune) bool {
	return identStart(r) || unicode.IsDigit(r)
}

func skipNum(b []byte, i int) int {
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
	}

	return i
}
