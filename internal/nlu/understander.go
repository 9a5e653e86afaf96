package nlu

import "strings"

// Understander turns one clause of text into a TextStructure.
type Understander struct {
	table *Table
	vocab *Vocabulary
}

// NewUnderstander binds an understander to a table and an optional
// vocabulary. Both are only read.
func NewUnderstander(table *Table, vocab *Vocabulary) *Understander {
	if table == nil {
		table = NewTableBuilder().Build()
	}
	return &Understander{table: table, vocab: vocab}
}

func (u *Understander) Table() *Table { return u.table }

func (u *Understander) Vocabulary() *Vocabulary { return u.vocab }

// Understand lower-cases text and matches it against every expression in
// table order, stopping at the first hit. It never fails: an unmatched text
// yields a structure with no intent.
func (u *Understander) Understand(text string) *TextStructure {
	text = strings.ToLower(text)
	s := &TextStructure{
		Text:             text,
		Entities:         map[string]string{},
		CompleteEntities: map[string]struct{}{},
		End:              NoEnd,
		table:            u.table,
	}

	if intent, expr, captures, ok := u.firstMatch(text); ok {
		s.Intent, s.Subintent, _ = strings.Cut(intent, ".")
		s.Expression = expr.Raw()
		s.expr = expr

		names := expr.EntityNames()
		for i, name := range names {
			s.Entities[name] = captures[i]
		}
		// The end offset is found by searching for the last captured value
		// again, so a value that also occurs earlier in the text yields the
		// earlier position.
		s.End = 0
		if len(names) > 0 {
			last := captures[len(captures)-1]
			s.End = strings.Index(text, last) + len(last)
		}
	}

	for name, value := range u.vocab.Extract(text) {
		s.Entities[name] = value
		s.CompleteEntities[name] = struct{}{}
	}
	return s
}

func (u *Understander) firstMatch(text string) (string, *Expression, []string, bool) {
	for _, intent := range u.table.intents {
		for _, expr := range u.table.expressions[intent] {
			if captures, ok := expr.match(text); ok {
				return intent, expr, captures, true
			}
		}
	}
	return "", nil, nil, false
}
