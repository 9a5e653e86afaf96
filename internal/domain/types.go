package domain

import (
	"encoding/json"
	"maps"
	"slices"

	"friday/internal/nlu"
)

// StructureView is the wire form of a TextStructure.
type StructureView struct {
	Text             string            `json:"text"`
	Intent           string            `json:"intent,omitempty"`
	Subintent        string            `json:"subintent,omitempty"`
	Entities         map[string]string `json:"entities"`
	CompleteEntities []string          `json:"complete_entities,omitempty"`
	Expression       string            `json:"expression,omitempty"`
	Complete         bool              `json:"complete"`
}

func NewStructureView(s *nlu.TextStructure) StructureView {
	complete, _ := s.CheckComplete()
	entities := s.Entities
	if entities == nil {
		entities = map[string]string{}
	}
	return StructureView{
		Text:             s.Text,
		Intent:           s.Intent,
		Subintent:        s.Subintent,
		Entities:         entities,
		CompleteEntities: slices.Sorted(maps.Keys(s.CompleteEntities)),
		Expression:       s.Expression,
		Complete:         complete,
	}
}

type UnderstandRequest struct {
	Text string `json:"text"`
}

type UnderstandResponse struct {
	Structures []StructureView `json:"structures"`
}

type TurnRequest struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type TurnResponse struct {
	SessionID  string          `json:"session_id"`
	Outputs    []string        `json:"outputs"`
	Dispatched []StructureView `json:"dispatched"`
	Error      string          `json:"error,omitempty"`
}

// MQTT payloads

type Utterance struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type Output struct {
	Text string `json:"text"`
}

type Prompt struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
}

type Reply struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
}

type InvokeRequest struct {
	RequestID string          `json:"request_id"`
	Skill     string          `json:"skill"`
	Arguments json.RawMessage `json:"arguments"`
}

type InvokeResult struct {
	RequestID string `json:"request_id"`
	OK        bool   `json:"ok"`
	Output    string `json:"output"`
	Error     string `json:"error,omitempty"`
}
