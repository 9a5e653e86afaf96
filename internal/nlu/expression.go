package nlu

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

const (
	openCapture   = `(.*)`
	closedCapture = `([a-zA-Z0-9_]+)`

	// matchTimeout bounds a single template attempt. A timed out attempt
	// counts as no match.
	matchTimeout = 250 * time.Millisecond
)

var (
	ErrUnbalancedPlaceholder = errors.New("unbalanced placeholder delimiters")
	ErrEmptyPlaceholder      = errors.New("empty placeholder name")
	ErrDuplicatePlaceholder  = errors.New("placeholder name declared more than once")
	ErrInvalidPattern        = errors.New("invalid phrase pattern")
)

// Placeholder is one named slot of a phrase pattern. Open slots (<<name>>)
// capture the rest of the clause, closed slots (<name>) capture one token.
type Placeholder struct {
	Name string
	Open bool
}

// Expression is a compiled phrase pattern. It is immutable once compiled and
// safe for concurrent use.
type Expression struct {
	raw          string
	source       string
	placeholders []Placeholder
	matcher      *regexp2.Regexp
}

// Compile turns an authored phrase pattern into a matcher. Text outside the
// placeholders is regular expression syntax and is kept verbatim; there is
// no escape for a literal '<' or '>'.
func Compile(raw string) (*Expression, error) {
	segments, placeholders, err := scanPlaceholders(raw)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for i, seg := range segments {
		sb.WriteString(seg)
		if i < len(placeholders) {
			if placeholders[i].Open {
				sb.WriteString(openCapture)
			} else {
				sb.WriteString(closedCapture)
			}
		}
	}
	source := sb.String()

	re, err := regexp2.Compile(source, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	re.MatchTimeout = matchTimeout
	if groups := len(re.GetGroupNumbers()) - 1; groups != len(placeholders) {
		return nil, fmt.Errorf("%w: %d capturing groups for %d placeholders, use (?:...) for literal groups", ErrInvalidPattern, groups, len(placeholders))
	}

	return &Expression{
		raw:          raw,
		source:       source,
		placeholders: placeholders,
		matcher:      re,
	}, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package-level tables.
func MustCompile(raw string) *Expression {
	e, err := Compile(raw)
	if err != nil {
		panic(fmt.Sprintf("nlu: compile %q: %v", raw, err))
	}
	return e
}

// scanPlaceholders splits raw into the literal segments around each
// placeholder. len(segments) == len(placeholders)+1.
func scanPlaceholders(raw string) ([]string, []Placeholder, error) {
	var (
		segments     []string
		placeholders []Placeholder
		seen         = map[string]struct{}{}
		literal      strings.Builder
	)

	for i := 0; i < len(raw); {
		switch raw[i] {
		case '>':
			return nil, nil, fmt.Errorf("%w: stray '>' at offset %d", ErrUnbalancedPlaceholder, i)
		case '<':
			open := strings.HasPrefix(raw[i:], "<<")
			start, closer := i+1, ">"
			if open {
				start, closer = i+2, ">>"
			}
			end := strings.Index(raw[start:], closer)
			if end < 0 {
				return nil, nil, fmt.Errorf("%w: unterminated placeholder at offset %d", ErrUnbalancedPlaceholder, i)
			}
			name := raw[start : start+end]
			if strings.ContainsAny(name, "<>") {
				return nil, nil, fmt.Errorf("%w: nested delimiter in %q", ErrUnbalancedPlaceholder, name)
			}
			if strings.TrimSpace(name) == "" {
				return nil, nil, fmt.Errorf("%w at offset %d", ErrEmptyPlaceholder, i)
			}
			if _, dup := seen[name]; dup {
				return nil, nil, fmt.Errorf("%w: %q", ErrDuplicatePlaceholder, name)
			}
			seen[name] = struct{}{}

			segments = append(segments, literal.String())
			literal.Reset()
			placeholders = append(placeholders, Placeholder{Name: name, Open: open})
			i = start + end + len(closer)
		default:
			literal.WriteByte(raw[i])
			i++
		}
	}
	segments = append(segments, literal.String())
	return segments, placeholders, nil
}

// Raw returns the pattern as authored.
func (e *Expression) Raw() string { return e.raw }

// Source returns the regular expression the pattern compiled to.
func (e *Expression) Source() string { return e.source }

// Placeholders returns a copy of the placeholders in declaration order.
func (e *Expression) Placeholders() []Placeholder {
	out := make([]Placeholder, len(e.placeholders))
	copy(out, e.placeholders)
	return out
}

// EntityNames returns placeholder names in declaration order.
func (e *Expression) EntityNames() []string {
	names := make([]string, len(e.placeholders))
	for i, p := range e.placeholders {
		names[i] = p.Name
	}
	return names
}

// HasOpen reports whether any placeholder is open. Without one, a match
// binding every placeholder is complete; with one, completeness also depends
// on where the match ended.
func (e *Expression) HasOpen() bool {
	for _, p := range e.placeholders {
		if p.Open {
			return true
		}
	}
	return false
}

// LastIsOpen reports whether the final placeholder is an open one.
func (e *Expression) LastIsOpen() bool {
	if len(e.placeholders) == 0 {
		return false
	}
	return e.placeholders[len(e.placeholders)-1].Open
}

// match searches text for the first occurrence of the pattern and returns
// the captured values in placeholder order.
func (e *Expression) match(text string) ([]string, bool) {
	m, err := e.matcher.FindStringMatch(text)
	if err != nil || m == nil {
		return nil, false
	}
	groups := m.Groups()
	captures := make([]string, 0, len(groups)-1)
	for _, g := range groups[1:] {
		captures = append(captures, g.String())
	}
	return captures, true
}
