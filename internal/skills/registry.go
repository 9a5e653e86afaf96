package skills

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"friday/internal/nlu"
)

// Registry collects skills at startup. Registration order is match order:
// patterns of an earlier skill shadow overlapping patterns of a later one.
type Registry struct {
	mu     sync.Mutex
	skills []Skill
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(skills ...Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills = append(r.skills, skills...)
}

func (r *Registry) Skills() []Skill {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Skill{}, r.skills...)
}

// Build compiles every registered skill into a Catalog. It fails on the
// first pattern that does not compile and on any intent left without a
// handler, naming the skill responsible.
func (r *Registry) Build(assistant *Assistant) (*Catalog, error) {
	skills := r.Skills()

	builder := nlu.NewTableBuilder()
	handlers := map[string]Handler{}
	owners := map[string]string{}
	var categories []nlu.Category

	for _, sk := range skills {
		for intent, h := range sk.Handlers {
			if _, dup := handlers[intent]; dup {
				return nil, &nlu.RegistrationError{Source: sk.Name, Intent: intent, Err: ErrDuplicateHandler}
			}
			if h == nil {
				return nil, &nlu.RegistrationError{Source: sk.Name, Intent: intent, Err: ErrMissingHandler}
			}
			handlers[intent] = h
		}
		for _, spec := range sk.Intents {
			if err := builder.Add(sk.Name, spec.Intent, spec.Patterns...); err != nil {
				return nil, err
			}
			if _, ok := owners[spec.Intent]; !ok {
				owners[spec.Intent] = sk.Name
			}
		}
		categories = append(categories, sk.Entities...)
	}

	table := builder.Build()
	for _, intent := range table.Intents() {
		base, _, _ := strings.Cut(intent, ".")
		if _, ok := handlers[base]; !ok {
			return nil, &nlu.RegistrationError{Source: owners[intent], Intent: intent, Err: ErrMissingHandler}
		}
	}

	if assistant == nil {
		assistant = &Assistant{}
	}
	if assistant.Logger == nil {
		assistant.Logger = logrus.StandardLogger()
	}

	return &Catalog{
		understander: nlu.NewUnderstander(table, nlu.NewVocabulary(categories...)),
		handlers:     handlers,
		assistant:    assistant,
	}, nil
}

// Catalog is the immutable result of registration: the understander every
// session shares and the handler of every intent.
type Catalog struct {
	understander *nlu.Understander
	handlers     map[string]Handler
	assistant    *Assistant
}

func (c *Catalog) Understander() *nlu.Understander { return c.understander }

func (c *Catalog) Assistant() *Assistant { return c.assistant }

// Dispatcher returns a dispatcher that runs handlers against iface.
func (c *Catalog) Dispatcher(iface Interface) nlu.Dispatcher {
	return &dispatcher{catalog: c, iface: iface}
}

type dispatcher struct {
	catalog *Catalog
	iface   Interface
}

// Dispatch skips blank clauses and clauses without an intent. A failing
// handler is reported to the user and returned.
func (d *dispatcher) Dispatch(ctx context.Context, ts *nlu.TextStructure) error {
	if strings.TrimSpace(ts.Text) == "" || ts.Intent == "" {
		return nil
	}
	h, ok := d.catalog.handlers[ts.Intent]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingHandler, ts.Intent)
	}

	log := d.catalog.assistant.Logger.WithFields(logrus.Fields{
		"intent":    ts.IntentName(),
		"interface": d.iface.Kind(),
		"entities":  ts.Entities,
	})
	log.Debug("dispatching")

	if err := h(ctx, ts, d.iface, d.catalog.assistant); err != nil {
		log.WithError(err).Warn("skill failed")
		if outErr := d.iface.Output(ctx, "Error occurred."); outErr != nil {
			log.WithError(outErr).Warn("report skill failure")
		}
		return fmt.Errorf("skill %s: %w", ts.IntentName(), err)
	}
	return nil
}
