package skills

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"friday/internal/domain"
	"friday/internal/nlu"
)

var ErrNotRemote = errors.New("interface cannot run remote skills")

// Invoker runs a skill on a terminal and waits for its result.
type Invoker interface {
	InvokeSkill(ctx context.Context, terminalID, skill string, args json.RawMessage) (domain.InvokeResult, error)
}

// Terminal is implemented by interfaces bound to one terminal.
type Terminal interface {
	TerminalID() string
}

// Remote returns a handler that executes the intent on the terminal the
// turn came from, passing the entities as JSON arguments.
func Remote(invoker Invoker, timeout time.Duration) Handler {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return func(ctx context.Context, ts *nlu.TextStructure, iface Interface, _ *Assistant) error {
		term, ok := iface.(Terminal)
		if !ok || invoker == nil {
			return fmt.Errorf("%w: %s", ErrNotRemote, iface.Kind())
		}
		args, err := json.Marshal(ts.Entities)
		if err != nil {
			return err
		}

		invCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		result, err := invoker.InvokeSkill(invCtx, term.TerminalID(), ts.IntentName(), args)
		if err != nil {
			return err
		}
		if strings.TrimSpace(result.Output) == "" {
			return nil
		}
		return iface.Output(ctx, result.Output)
	}
}

type catalogFile struct {
	Skills []catalogSkill `yaml:"skills"`
}

type catalogSkill struct {
	Name     string            `yaml:"name"`
	Remote   bool              `yaml:"remote"`
	Intents  []IntentSpec      `yaml:"intents"`
	Entities []catalogCategory `yaml:"entities"`
}

type catalogCategory struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

// LoadCatalogFile reads skills declared in a YAML file.
func LoadCatalogFile(path string, invoker Invoker, timeout time.Duration) ([]Skill, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skill catalog: %w", err)
	}
	skills, err := ParseCatalog(bytes.NewReader(raw), invoker, timeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return skills, nil
}

// ParseCatalog decodes a skill catalog. Skills marked remote get a Remote
// handler for each of their intents; other skills only add patterns and
// vocabulary to intents handled elsewhere.
func ParseCatalog(r io.Reader, invoker Invoker, timeout time.Duration) ([]Skill, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode skill catalog: %w", err)
	}

	out := make([]Skill, 0, len(file.Skills))
	for i, cs := range file.Skills {
		if strings.TrimSpace(cs.Name) == "" {
			return nil, fmt.Errorf("skill catalog entry %d has no name", i)
		}
		sk := Skill{Name: cs.Name, Intents: cs.Intents}
		for _, c := range cs.Entities {
			sk.Entities = append(sk.Entities, nlu.Category{Name: c.Name, Values: c.Values})
		}
		if cs.Remote {
			sk.Handlers = map[string]Handler{}
			handler := Remote(invoker, timeout)
			for _, spec := range cs.Intents {
				base, _, _ := strings.Cut(spec.Intent, ".")
				sk.Handlers[base] = handler
			}
		}
		out = append(out, sk)
	}
	return out, nil
}
