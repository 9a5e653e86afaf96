package nlu

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidIntent = errors.New("invalid intent name")
	ErrUnknownIntent = errors.New("intent is not registered")
)

// RegistrationError names the skill, intent and pattern that could not be
// registered.
type RegistrationError struct {
	Source  string
	Intent  string
	Pattern string
	Err     error
}

func (e *RegistrationError) Error() string {
	if e.Pattern == "" {
		return fmt.Sprintf("skill %q: intent %q: %v", e.Source, e.Intent, e.Err)
	}
	return fmt.Sprintf("skill %q: intent %q: pattern %q: %v", e.Source, e.Intent, e.Pattern, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// Table maps intent names to their ordered expressions. Intents keep the
// order in which they were first registered; within an intent, earlier
// expressions are tried first. A Table is read-only and may be shared by any
// number of sessions.
type Table struct {
	intents     []string
	expressions map[string][]*Expression
}

// Intents returns intent names in registration order.
func (t *Table) Intents() []string {
	out := make([]string, len(t.intents))
	copy(out, t.intents)
	return out
}

// Expressions returns the expressions of intent in registration order.
func (t *Table) Expressions(intent string) []*Expression {
	exprs := t.expressions[intent]
	out := make([]*Expression, len(exprs))
	copy(out, exprs)
	return out
}

// Reference returns the first registered expression of intent, the one
// completeness is judged against.
func (t *Table) Reference(intent string) (*Expression, bool) {
	if t == nil {
		return nil, false
	}
	exprs := t.expressions[intent]
	if len(exprs) == 0 {
		return nil, false
	}
	return exprs[0], true
}

// Len is the number of expressions across all intents.
func (t *Table) Len() int {
	n := 0
	for _, exprs := range t.expressions {
		n += len(exprs)
	}
	return n
}

// TableBuilder collects expressions from every skill before the first turn.
type TableBuilder struct {
	intents     []string
	expressions map[string][]*Expression
}

func NewTableBuilder() *TableBuilder {
	return &TableBuilder{expressions: make(map[string][]*Expression)}
}

// Add compiles patterns and appends them to intent. Patterns from later
// calls for the same intent are tried after earlier ones. Nothing is added
// if any pattern fails.
func (b *TableBuilder) Add(source, intent string, patterns ...string) error {
	if err := ValidateIntent(intent); err != nil {
		return &RegistrationError{Source: source, Intent: intent, Err: err}
	}
	compiled := make([]*Expression, 0, len(patterns))
	for _, p := range patterns {
		e, err := Compile(p)
		if err != nil {
			return &RegistrationError{Source: source, Intent: intent, Pattern: p, Err: err}
		}
		compiled = append(compiled, e)
	}
	if len(compiled) == 0 {
		return nil
	}
	if _, ok := b.expressions[intent]; !ok {
		b.intents = append(b.intents, intent)
	}
	b.expressions[intent] = append(b.expressions[intent], compiled...)
	return nil
}

// Build snapshots the collected expressions into an immutable Table. The
// builder may keep being used afterwards without affecting the snapshot.
func (b *TableBuilder) Build() *Table {
	t := &Table{
		intents:     append([]string{}, b.intents...),
		expressions: make(map[string][]*Expression, len(b.expressions)),
	}
	for intent, exprs := range b.expressions {
		t.expressions[intent] = append([]*Expression{}, exprs...)
	}
	return t
}

// ValidateIntent accepts "intent" or "intent.subintent".
func ValidateIntent(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidIntent)
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidIntent, name)
	}
	intent, sub, hasSub := strings.Cut(name, ".")
	if intent == "" || (hasSub && (sub == "" || strings.Contains(sub, "."))) {
		return fmt.Errorf("%w: %q must be intent or intent.subintent", ErrInvalidIntent, name)
	}
	return nil
}
