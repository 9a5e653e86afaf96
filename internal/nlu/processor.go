package nlu

import (
	"context"
	"errors"
	"iter"
	"regexp"
	"strings"
)

var clauseSeparator = regexp.MustCompile(` and also | and | also `)

// SplitClauses splits an utterance on coordinating conjunctions.
func SplitClauses(text string) []string {
	return clauseSeparator.Split(text, -1)
}

// Dispatcher hands a resolved structure to whatever acts on it.
type Dispatcher interface {
	Dispatch(ctx context.Context, s *TextStructure) error
}

type DispatchFunc func(ctx context.Context, s *TextStructure) error

func (f DispatchFunc) Dispatch(ctx context.Context, s *TextStructure) error { return f(ctx, s) }

// Processor runs turns for one dialogue session. It is not safe for
// concurrent use; give every conversation its own Processor.
type Processor struct {
	nlu       *Understander
	completed []*TextStructure
	previous  []*TextStructure
}

func NewProcessor(u *Understander) *Processor {
	return &Processor{nlu: u}
}

// Completed returns the structures dispatched so far in the current turn.
func (p *Processor) Completed() []*TextStructure {
	return append([]*TextStructure{}, p.completed...)
}

// Previous returns the structures dispatched in the last finished turn.
func (p *Processor) Previous() []*TextStructure {
	return append([]*TextStructure{}, p.previous...)
}

// Structs yields one structure per clause of text, unmatched clauses
// included. Text already handled this turn is removed before splitting.
func (p *Processor) Structs(text string) iter.Seq[*TextStructure] {
	return func(yield func(*TextStructure) bool) {
		text := strings.ToLower(text)
		for _, done := range p.completed {
			if done.Text != "" {
				text = strings.ReplaceAll(text, done.Text, "")
			}
		}
		for _, clause := range SplitClauses(text) {
			if !yield(p.nlu.Understand(clause)) {
				return
			}
		}
	}
}

// ContextStructs is Structs with carry-over: a clause that matched no
// intent but carries entities is merged with the latest structure of the
// previous turn that has an intent.
func (p *Processor) ContextStructs(text string) iter.Seq[*TextStructure] {
	return func(yield func(*TextStructure) bool) {
		for s := range p.Structs(text) {
			if s.Intent == "" && len(s.Entities) > 0 {
				if prev := p.lastPrevious(); prev != nil {
					s.Merge(prev)
				}
			}
			if !yield(s) {
				return
			}
		}
	}
}

func (p *Processor) lastPrevious() *TextStructure {
	for i := len(p.previous) - 1; i >= 0; i-- {
		if p.previous[i].Intent != "" {
			return p.previous[i]
		}
	}
	return nil
}

func (p *Processor) isCompleted(s *TextStructure) bool {
	for _, done := range p.completed {
		if done.Equal(s) {
			return true
		}
	}
	return false
}

// FastAssist dispatches every complete structure of text not yet handled
// this turn. It is meant for interim transcripts and may run many times per
// turn.
func (p *Processor) FastAssist(ctx context.Context, text string, d Dispatcher) error {
	var errs []error
	for s := range p.ContextStructs(text) {
		if !s.IsComplete() || p.isCompleted(s) {
			continue
		}
		if err := d.Dispatch(ctx, s); err != nil {
			errs = append(errs, err)
		}
		p.completed = append(p.completed, s)
	}
	return errors.Join(errs...)
}

// FinalAssist dispatches every structure of text not yet handled this turn,
// complete or not, then closes the turn: what was handled becomes the
// previous turn.
func (p *Processor) FinalAssist(ctx context.Context, text string, d Dispatcher) error {
	var errs []error
	for s := range p.ContextStructs(text) {
		if p.isCompleted(s) {
			continue
		}
		if err := d.Dispatch(ctx, s); err != nil {
			errs = append(errs, err)
		}
		p.completed = append(p.completed, s)
	}
	p.previous = p.completed
	p.completed = nil
	return errors.Join(errs...)
}
