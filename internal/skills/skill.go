package skills

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"friday/internal/nlu"
)

var (
	ErrInputUnavailable = errors.New("interface cannot ask the user")
	ErrMissingHandler   = errors.New("no handler registered for intent")
	ErrDuplicateHandler = errors.New("handler already registered for intent")
)

// Interface is the surface a turn came from: a terminal, the HTTP API or
// the command line. Handlers talk back to the user through it.
type Interface interface {
	// Kind names the surface, e.g. "mqtt", "http", "cli".
	Kind() string
	Output(ctx context.Context, text string) error
	// Input shows prompt and waits for the user's answer.
	Input(ctx context.Context, prompt string) (string, error)
}

// Assistant is the context every handler receives.
type Assistant struct {
	Name            string
	CallsMe         string
	DefaultLocation string
	Logger          logrus.FieldLogger
}

// Handler acts on a resolved structure.
type Handler func(ctx context.Context, ts *nlu.TextStructure, iface Interface, a *Assistant) error

// IntentSpec lists the phrase patterns of one intent, most specific first.
type IntentSpec struct {
	Intent   string   `yaml:"intent"`
	Patterns []string `yaml:"patterns"`
}

// Skill is what a skill module registers: its patterns, its fixed
// vocabulary and a handler per intent. Handlers are keyed by the intent
// without subintent; a skill may add patterns to an intent whose handler
// another skill registered earlier.
type Skill struct {
	Name     string
	Intents  []IntentSpec
	Entities []nlu.Category
	Handlers map[string]Handler
}

// OnlyOn restricts h to the given interface kinds; elsewhere it does nothing.
func OnlyOn(h Handler, kinds ...string) Handler {
	return func(ctx context.Context, ts *nlu.TextStructure, iface Interface, a *Assistant) error {
		if !slices.Contains(kinds, iface.Kind()) {
			return nil
		}
		return h(ctx, ts, iface, a)
	}
}

// PickPhrase returns one of phrases at random with {me} replaced.
func PickPhrase(phrases []string, me string) string {
	if len(phrases) == 0 {
		return ""
	}
	return strings.ReplaceAll(phrases[rand.IntN(len(phrases))], "{me}", me)
}
