package nlu

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"
)

// NoEnd is the End of a structure that matched no expression.
const NoEnd = -1

// TextStructure is what was understood from one clause.
type TextStructure struct {
	// Text is the lower-cased clause.
	Text      string
	Intent    string
	Subintent string
	Entities  map[string]string
	// CompleteEntities holds entity names that came from the fixed
	// vocabulary. They are never asked for again.
	CompleteEntities map[string]struct{}
	// Expression is the raw pattern that matched, if any.
	Expression string
	// End is the offset one past the last captured value, 0 for a
	// parameterless match and NoEnd when nothing matched.
	End int

	expr  *Expression
	table *Table
}

// IntentName joins intent and subintent the way they are registered.
func (s *TextStructure) IntentName() string {
	if s.Subintent == "" {
		return s.Intent
	}
	return s.Intent + "." + s.Subintent
}

// Equal compares intent, subintent and entities only, so the same request
// understood twice is recognised as already handled.
func (s *TextStructure) Equal(other *TextStructure) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Intent == other.Intent &&
		s.Subintent == other.Subintent &&
		maps.Equal(s.Entities, other.Entities)
}

// Merge fills s from other: intent and subintent only when s has none,
// entities always, with other's values winning.
func (s *TextStructure) Merge(other *TextStructure) {
	if other == nil {
		return
	}
	if s.Intent == "" && other.Intent != "" {
		s.Intent = other.Intent
		s.Subintent = other.Subintent
		if s.table == nil {
			s.table = other.table
		}
	}
	if s.Entities == nil {
		s.Entities = map[string]string{}
	}
	maps.Copy(s.Entities, other.Entities)
}

// IsSimilarTo reports whether every entity name of other is present in s.
func (s *TextStructure) IsSimilarTo(other *TextStructure) bool {
	for name := range other.Entities {
		if _, ok := s.Entities[name]; !ok {
			return false
		}
	}
	return true
}

// IsComplete reports whether a handler can act on s without asking the user
// for more. It panics if the intent is missing from the table the structure
// was understood with, which cannot happen for structures produced by an
// Understander.
func (s *TextStructure) IsComplete() bool {
	complete, err := s.CheckComplete()
	if err != nil {
		panic(fmt.Sprintf("nlu: completeness of %q: %v", s.IntentName(), err))
	}
	return complete
}

// CheckComplete is IsComplete returning the table lookup failure instead of
// panicking.
func (s *TextStructure) CheckComplete() (bool, error) {
	if s.Intent == "" {
		return false, nil
	}
	ref, ok := s.table.Reference(s.IntentName())
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownIntent, s.IntentName())
	}

	required := ref.EntityNames()
	if len(required) == 0 {
		return true, nil
	}
	if sameKeys(s.CompleteEntities, required) {
		return true, nil
	}
	for _, name := range required {
		if _, ok := s.Entities[name]; !ok {
			return false, nil
		}
	}
	if !ref.HasOpen() {
		return true, nil
	}

	matched := s.expr
	if matched == nil {
		matched = ref
	}
	if !matched.LastIsOpen() {
		return true, nil
	}
	// A trailing open capture is only trusted when text follows the end
	// offset, and never when the text ends in 'a'.
	if s.End != NoEnd && s.End < len(s.Text) {
		if last, _ := utf8.DecodeLastRuneInString(s.Text); last != 'a' {
			return true, nil
		}
	}
	return false, nil
}

func sameKeys(set map[string]struct{}, names []string) bool {
	if len(set) != len(names) {
		return false
	}
	for _, n := range names {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of s.
func (s *TextStructure) Clone() *TextStructure {
	out := *s
	out.Entities = maps.Clone(s.Entities)
	out.CompleteEntities = maps.Clone(s.CompleteEntities)
	if out.Entities == nil {
		out.Entities = map[string]string{}
	}
	if out.CompleteEntities == nil {
		out.CompleteEntities = map[string]struct{}{}
	}
	return &out
}

func (s *TextStructure) String() string {
	complete, err := s.CheckComplete()
	completeText := fmt.Sprint(complete)
	if errors.Is(err, ErrUnknownIntent) {
		completeText = "unknown intent"
	}

	names := slices.Sorted(maps.Keys(s.Entities))
	pairs := make([]string, len(names))
	for i, n := range names {
		pairs[i] = n + "=" + s.Entities[n]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "text: %s\n", s.Text)
	fmt.Fprintf(&sb, "intent: %s\n", orNone(s.Intent))
	fmt.Fprintf(&sb, "subintent: %s\n", orNone(s.Subintent))
	fmt.Fprintf(&sb, "entities: %s\n", strings.Join(pairs, ", "))
	fmt.Fprintf(&sb, "complete: %s", completeText)
	return sb.String()
}

func orNone(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
