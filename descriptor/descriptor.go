// Package descriptor parses the compact type descriptors that describe the
// arguments and return value of a native function.
package descriptor

import (
	"strings"

	"github.com/wippyai/wordcall/errors"
)

// TagKind is the variant of a Tag.
type TagKind uint8

const (
	Wildcard TagKind = iota
	Int
	Bool
	String
	Pointer
	NamedClass
	Callback
	Skip
	// Letter is a lowercase letter without a built-in meaning. Only a value
	// of a matching provided letter could satisfy it, which none does.
	Letter
)

// Tag is the expected type of one dynamic argument.
type Tag struct {
	Kind TagKind
	// Name is the class name for NamedClass and the callback type for Callback.
	Name string
	// Char is the original letter for single-character tags.
	Char byte
}

// IsSimple reports whether the tag is a single-character tag.
func (t Tag) IsSimple() bool {
	switch t.Kind {
	case NamedClass, Callback, Skip:
		return false
	}
	return true
}

// String renders the tag the way it appears in error messages.
func (t Tag) String() string {
	switch t.Kind {
	case NamedClass:
		return t.Name
	case Callback:
		return "^" + t.Name
	case Skip:
		return "-"
	}
	return string(t.Char)
}

var (
	TagWildcard = Tag{Kind: Wildcard, Char: '.'}
	TagInt      = Tag{Kind: Int, Char: 'i'}
	TagBool     = Tag{Kind: Bool, Char: 'b'}
	TagString   = Tag{Kind: String, Char: 's'}
	TagPointer  = Tag{Kind: Pointer, Char: 'c'}
	TagSkip     = Tag{Kind: Skip, Char: '-'}
)

// Class returns a NamedClass tag.
func Class(name string) Tag { return Tag{Kind: NamedClass, Name: name} }

// CallbackOf returns a Callback tag.
func CallbackOf(name string) Tag { return Tag{Kind: Callback, Name: name} }

func simpleTag(c byte) Tag {
	switch c {
	case '.':
		return TagWildcard
	case 'i':
		return TagInt
	case 'b':
		return TagBool
	case 's':
		return TagString
	case 'c':
		return TagPointer
	}
	return Tag{Kind: Letter, Char: c}
}

// Unchecked returns argc wildcard tags, used when no descriptor is given.
func Unchecked(argc int) []Tag {
	tags := make([]Tag, argc)
	for i := range tags {
		tags[i] = TagWildcard
	}
	return tags
}

// Parse consumes one token per dynamic argument and returns exactly argc
// tags. A descriptor that ends while arguments remain, or has tokens left
// after the last argument, is an error.
func Parse(desc string, argc int) ([]Tag, error) {
	p := parser{src: desc}
	tags := make([]Tag, 0, argc)
	for i := 0; i < argc; i++ {
		if p.done() {
			return nil, errors.TooManyArguments(errors.PhaseParse, argc, i)
		}
		tag, err := p.next()
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	if !p.done() {
		return nil, errors.MissingArguments(p.rest())
	}
	return tags, nil
}

// Count returns the number of tokens in desc.
func Count(desc string) (int, error) {
	p := parser{src: desc}
	n := 0
	for !p.done() {
		if _, err := p.next(); err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) done() bool   { return p.pos >= len(p.src) }
func (p *parser) rest() string { return p.src[p.pos:] }

func (p *parser) next() (Tag, error) {
	c := p.src[p.pos]
	switch {
	case c == '-':
		p.pos++
		return TagSkip, nil
	case c == '.' || (c >= 'a' && c <= 'z'):
		p.pos++
		return simpleTag(c), nil
	case c == '(' || c == '^':
		start := p.pos + 1
		callback := c == '^'
		if c == '(' && start < len(p.src) && p.src[start] == '^' {
			// (^name) is the parenthesized callback form
			callback = true
			start++
		}
		end := start
		for end < len(p.src) && p.src[end] != ')' && p.src[end] != '^' {
			end++
		}
		name := p.src[start:end]
		if end < len(p.src) {
			end++
		}
		p.pos = end
		if name == "" {
			return Tag{}, errors.New(errors.PhaseParse, errors.KindValue).
				Detail("empty name at offset %d in %q", start-1, p.src).
				Build()
		}
		if callback {
			return CallbackOf(name), nil
		}
		return Class(name), nil
	}
	return Tag{}, errors.New(errors.PhaseParse, errors.KindValue).
		Provided(string(c)).
		Detail("invalid descriptor token at offset %d in %q", p.pos, p.src).
		Build()
}

// ReturnKind is the variant of a Return.
type ReturnKind uint8

const (
	ReturnNone ReturnKind = iota
	ReturnInt
	ReturnBool
	ReturnString
	ReturnPointerAsInt
	ReturnClass
)

// Return describes how a native result word becomes a dynamic value.
type Return struct {
	Kind  ReturnKind
	Class string
}

// ParseReturn parses a return-type descriptor: empty for no value, a single
// character for a simple type, anything longer is a class name.
func ParseReturn(s string) (Return, error) {
	switch len(s) {
	case 0:
		return Return{Kind: ReturnNone}, nil
	case 1:
		switch s[0] {
		case '.', 'i':
			return Return{Kind: ReturnInt}, nil
		case 'b':
			return Return{Kind: ReturnBool}, nil
		case 's':
			return Return{Kind: ReturnString}, nil
		case 'c':
			return Return{Kind: ReturnPointerAsInt}, nil
		}
		return Return{}, errors.UnsupportedReturn(s)
	}
	return Return{Kind: ReturnClass, Class: strings.TrimSpace(s)}, nil
}
