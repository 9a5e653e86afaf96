package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"friday/internal/domain"
)

type lineKind int

const (
	lineUtterance lineKind = iota
	lineReply
)

// dialog turns console lines into utterances or prompt replies. Lines
// accumulate into a transcript that is published on every line; an empty
// line publishes it as final and starts the next turn. While a prompt is
// open the next line answers it instead.
type dialog struct {
	mu         sync.Mutex
	transcript []string
	promptID   string
}

func (d *dialog) ask(requestID string) {
	d.mu.Lock()
	d.promptID = requestID
	d.mu.Unlock()
}

func (d *dialog) next(line string) (lineKind, any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.promptID != "" {
		reply := domain.Reply{RequestID: d.promptID, Text: strings.TrimSpace(line)}
		d.promptID = ""
		return lineReply, reply, true
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return d.finalLocked()
	}
	d.transcript = append(d.transcript, line)
	return lineUtterance, domain.Utterance{Text: strings.Join(d.transcript, " ")}, true
}

// flush returns the pending transcript as final, if any.
func (d *dialog) flush() (lineKind, any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finalLocked()
}

func (d *dialog) finalLocked() (lineKind, any, bool) {
	if len(d.transcript) == 0 {
		return lineUtterance, nil, false
	}
	u := domain.Utterance{Text: strings.Join(d.transcript, " "), Final: true}
	d.transcript = nil
	return lineUtterance, u, true
}

// deviceState simulates the lights a terminal controls.
type deviceState struct {
	mu     sync.Mutex
	lights map[string]bool
}

func newDeviceState() *deviceState {
	return &deviceState{lights: map[string]bool{}}
}

func (s *deviceState) handleSkill(req domain.InvokeRequest) domain.InvokeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := domain.InvokeResult{RequestID: req.RequestID, OK: true}
	setError := func(msg string) {
		result.OK = false
		result.Error = msg
		result.Output = msg
	}

	var args struct {
		Room string `json:"room"`
	}
	if err := decodeSkillArgs(req.Arguments, &args); err != nil {
		setError(req.Skill + ": " + err.Error())
		return result
	}
	room := strings.TrimSpace(args.Room)
	if room == "" {
		room = "living room"
	}

	switch req.Skill {
	case "lights.on":
		s.lights[room] = true
		result.Output = fmt.Sprintf("Lights on in the %s.", room)
	case "lights.off":
		s.lights[room] = false
		result.Output = fmt.Sprintf("Lights off in the %s.", room)
	case "lights.status", "lights":
		var on []string
		for _, r := range slices.Sorted(maps.Keys(s.lights)) {
			if s.lights[r] {
				on = append(on, r)
			}
		}
		if len(on) == 0 {
			result.Output = "All lights are off."
		} else {
			result.Output = "Lights on in: " + strings.Join(on, ", ") + "."
		}
	default:
		setError("unknown skill: " + req.Skill)
	}
	return result
}

func decodeSkillArgs(raw json.RawMessage, out any) error {
	payload := strings.TrimSpace(string(raw))
	if payload == "" || payload == "null" {
		payload = "{}"
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("invalid json args: %w", err)
	}
	return nil
}
