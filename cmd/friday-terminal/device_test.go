package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friday/internal/domain"
)

func TestDialogLines(t *testing.T) {
	d := &dialog{}

	kind, payload, ok := d.next("order food")
	require.True(t, ok)
	assert.Equal(t, lineUtterance, kind)
	assert.Equal(t, domain.Utterance{Text: "order food"}, payload)

	_, payload, ok = d.next("from kfc")
	require.True(t, ok)
	assert.Equal(t, domain.Utterance{Text: "order food from kfc"}, payload)

	_, payload, ok = d.next("")
	require.True(t, ok)
	assert.Equal(t, domain.Utterance{Text: "order food from kfc", Final: true}, payload)

	_, _, ok = d.next("  ")
	assert.False(t, ok)
}

func TestDialogAnswersOpenPrompt(t *testing.T) {
	d := &dialog{}
	d.next("order food")
	d.ask("req-1")

	kind, payload, ok := d.next(" kfc ")
	require.True(t, ok)
	assert.Equal(t, lineReply, kind)
	assert.Equal(t, domain.Reply{RequestID: "req-1", Text: "kfc"}, payload)

	// the transcript survives the prompt
	_, payload, ok = d.flush()
	require.True(t, ok)
	assert.Equal(t, domain.Utterance{Text: "order food", Final: true}, payload)

	_, _, ok = d.flush()
	assert.False(t, ok)
}

func TestDeviceLights(t *testing.T) {
	s := newDeviceState()

	res := s.handleSkill(domain.InvokeRequest{RequestID: "1", Skill: "lights.on", Arguments: json.RawMessage(`{"room":"kitchen"}`)})
	assert.True(t, res.OK)
	assert.Equal(t, "1", res.RequestID)
	assert.Equal(t, "Lights on in the kitchen.", res.Output)

	res = s.handleSkill(domain.InvokeRequest{Skill: "lights.on"})
	assert.Equal(t, "Lights on in the living room.", res.Output)

	res = s.handleSkill(domain.InvokeRequest{Skill: "lights.status"})
	assert.Equal(t, "Lights on in: kitchen, living room.", res.Output)

	s.handleSkill(domain.InvokeRequest{Skill: "lights.off", Arguments: json.RawMessage(`{"room":"kitchen"}`)})
	s.handleSkill(domain.InvokeRequest{Skill: "lights.off", Arguments: json.RawMessage(`null`)})
	res = s.handleSkill(domain.InvokeRequest{Skill: "lights.status"})
	assert.Equal(t, "All lights are off.", res.Output)
}

func TestDeviceRejectsUnknownSkillAndBadArgs(t *testing.T) {
	s := newDeviceState()

	res := s.handleSkill(domain.InvokeRequest{Skill: "door.open"})
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "unknown skill")

	res = s.handleSkill(domain.InvokeRequest{Skill: "lights.on", Arguments: json.RawMessage(`[1]`)})
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "invalid json args")
}
