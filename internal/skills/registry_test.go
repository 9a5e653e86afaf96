package skills

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friday/internal/nlu"
)

type fakeInterface struct {
	kind    string
	outputs []string
	prompts []string
	answers []string
}

func (f *fakeInterface) Kind() string { return f.kind }

func (f *fakeInterface) Output(_ context.Context, text string) error {
	f.outputs = append(f.outputs, text)
	return nil
}

func (f *fakeInterface) Input(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if len(f.answers) == 0 {
		return "", ErrInputUnavailable
	}
	answer := f.answers[0]
	f.answers = f.answers[1:]
	return answer, nil
}

func echoHandler(ctx context.Context, ts *nlu.TextStructure, iface Interface, _ *Assistant) error {
	return iface.Output(ctx, ts.IntentName())
}

func TestBuildRegistersInOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(
		Skill{
			Name:     "music",
			Intents:  []IntentSpec{{Intent: "play", Patterns: []string{"play <<song>>"}}},
			Handlers: map[string]Handler{"play": echoHandler},
		},
		Skill{
			Name:     "radio",
			Intents:  []IntentSpec{{Intent: "play", Patterns: []string{"play radio <station>"}}},
			Entities: []nlu.Category{{Name: "station", Values: []string{"BBC"}}},
		},
	)

	catalog, err := r.Build(nil)
	require.NoError(t, err)

	table := catalog.Understander().Table()
	assert.Equal(t, []string{"play"}, table.Intents())
	require.Len(t, table.Expressions("play"), 2)
	assert.Equal(t, "play radio <station>", table.Expressions("play")[1].Raw())

	// the earlier, more general pattern shadows the radio one
	s := catalog.Understander().Understand("play radio bbc")
	assert.Equal(t, "play <<song>>", s.Expression)
	assert.Equal(t, "bbc", s.Entities["station"])
}

func TestBuildRejectsMissingHandler(t *testing.T) {
	r := NewRegistry()
	r.Register(Skill{
		Name:    "orphan",
		Intents: []IntentSpec{{Intent: "lights.on", Patterns: []string{"lights on"}}},
	})

	_, err := r.Build(nil)
	require.ErrorIs(t, err, ErrMissingHandler)
	var regErr *nlu.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "orphan", regErr.Source)
	assert.Equal(t, "lights.on", regErr.Intent)
}

func TestBuildRejectsDuplicateHandler(t *testing.T) {
	r := NewRegistry()
	r.Register(
		Skill{Name: "a", Handlers: map[string]Handler{"stop": echoHandler}},
		Skill{Name: "b", Handlers: map[string]Handler{"stop": echoHandler}},
	)
	_, err := r.Build(nil)
	assert.ErrorIs(t, err, ErrDuplicateHandler)
}

func TestBuildRejectsMalformedPattern(t *testing.T) {
	r := NewRegistry()
	r.Register(Skill{
		Name:     "broken",
		Intents:  []IntentSpec{{Intent: "play", Patterns: []string{"play <<song>"}}},
		Handlers: map[string]Handler{"play": echoHandler},
	})
	_, err := r.Build(nil)
	require.ErrorIs(t, err, nlu.ErrUnbalancedPlaceholder)
	assert.Contains(t, err.Error(), `skill "broken"`)
}

func TestDispatcherSkipsBlankAndUnknown(t *testing.T) {
	called := 0
	r := NewRegistry()
	r.Register(Skill{
		Name:    "core",
		Intents: []IntentSpec{{Intent: "stop", Patterns: []string{"stop"}}},
		Handlers: map[string]Handler{"stop": func(context.Context, *nlu.TextStructure, Interface, *Assistant) error {
			called++
			return nil
		}},
	})
	catalog, err := r.Build(nil)
	require.NoError(t, err)

	d := catalog.Dispatcher(&fakeInterface{kind: "cli"})
	u := catalog.Understander()
	require.NoError(t, d.Dispatch(context.Background(), u.Understand(" ")))
	require.NoError(t, d.Dispatch(context.Background(), u.Understand("hello")))
	assert.Equal(t, 0, called)

	require.NoError(t, d.Dispatch(context.Background(), u.Understand("stop")))
	assert.Equal(t, 1, called)
}

func TestDispatcherReportsHandlerFailure(t *testing.T) {
	boom := errors.New("no speaker")
	r := NewRegistry()
	r.Register(Skill{
		Name:    "core",
		Intents: []IntentSpec{{Intent: "stop", Patterns: []string{"stop"}}},
		Handlers: map[string]Handler{"stop": func(context.Context, *nlu.TextStructure, Interface, *Assistant) error {
			return boom
		}},
	})
	catalog, err := r.Build(&Assistant{Name: "friday"})
	require.NoError(t, err)

	iface := &fakeInterface{kind: "cli"}
	err = catalog.Dispatcher(iface).Dispatch(context.Background(), catalog.Understander().Understand("stop"))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"Error occurred."}, iface.outputs)
}

func TestOnlyOn(t *testing.T) {
	h := OnlyOn(echoHandler, "mqtt")
	ts := &nlu.TextStructure{Text: "stop", Intent: "stop"}

	cli := &fakeInterface{kind: "cli"}
	require.NoError(t, h(context.Background(), ts, cli, &Assistant{}))
	assert.Empty(t, cli.outputs)

	term := &fakeInterface{kind: "mqtt"}
	require.NoError(t, h(context.Background(), ts, term, &Assistant{}))
	assert.Equal(t, []string{"stop"}, term.outputs)
}

func TestPickPhrase(t *testing.T) {
	assert.Equal(t, "done sir", PickPhrase([]string{"done {me}"}, "sir"))
	assert.Empty(t, PickPhrase(nil, "sir"))
	got := PickPhrase([]string{"a", "b"}, "")
	assert.True(t, got == "a" || got == "b")
}

func TestBuiltinSkillsEndToEnd(t *testing.T) {
	r := NewRegistry()
	r.Register(Builtin()...)
	catalog, err := r.Build(&Assistant{Name: "friday", CallsMe: "boss", DefaultLocation: "london"})
	require.NoError(t, err)

	tests := []struct {
		name        string
		text        string
		answers     []string
		wantOutputs []string
		wantPrompts int
	}{
		{name: "volume set", text: "set the volume to 30", wantOutputs: []string{"Volume 30."}},
		{name: "volume up from 30", text: "louder", wantOutputs: []string{"Volume 40."}},
		{name: "volume out of range", text: "volume to 300", wantOutputs: []string{"Volume goes from 0 to 100."}},
		{name: "order with vocabulary", text: "order from KFC", wantOutputs: []string{"Ordering from kfc."}},
		{name: "order asks", text: "order food", answers: []string{" Starbucks "}, wantOutputs: []string{"Ordering from Starbucks."}, wantPrompts: 1},
		{name: "weather default location", text: "what's the weather like", wantOutputs: []string{"Looking up the forecast for london."}},
		{name: "weather with location", text: "weather in new york", wantOutputs: []string{"Looking up the forecast for new york."}},
		{name: "timer", text: "set a timer for 5 minutes", wantOutputs: []string{"Timer set for 5 minutes."}},
		{name: "timer asks", text: "set a timer", answers: []string{"ten"}, wantOutputs: []string{"I need a number of minutes."}, wantPrompts: 1},
		{name: "say", text: "repeat after me hello world", wantOutputs: []string{"hello world"}},
		{name: "no intent", text: "blah", wantOutputs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iface := &fakeInterface{kind: "cli", answers: tt.answers}
			p := nlu.NewProcessor(catalog.Understander())
			require.NoError(t, p.FinalAssist(context.Background(), tt.text, catalog.Dispatcher(iface)))
			assert.Equal(t, tt.wantOutputs, iface.outputs)
			assert.Len(t, iface.prompts, tt.wantPrompts)
		})
	}
}

func TestAskedEntityLeavesStructureUntouched(t *testing.T) {
	r := NewRegistry()
	r.Register(Builtin()...)
	catalog, err := r.Build(&Assistant{CallsMe: "boss"})
	require.NoError(t, err)

	iface := &fakeInterface{kind: "cli", answers: []string{"kfc"}}
	p := nlu.NewProcessor(catalog.Understander())
	require.NoError(t, p.FinalAssist(context.Background(), "order food", catalog.Dispatcher(iface)))
	assert.Equal(t, []string{"Ordering from kfc."}, iface.outputs)

	prev := p.Previous()
	require.Len(t, prev, 1)
	assert.Equal(t, "food", prev[0].Intent)
	assert.NotContains(t, prev[0].Entities, "restaurant")
	assert.True(t, prev[0].Equal(catalog.Understander().Understand("order food")))
}

func TestBuiltinMultiIntentTurn(t *testing.T) {
	r := NewRegistry()
	r.Register(Builtin()...)
	catalog, err := r.Build(&Assistant{CallsMe: "boss"})
	require.NoError(t, err)

	iface := &fakeInterface{kind: "cli"}
	p := nlu.NewProcessor(catalog.Understander())
	require.NoError(t, p.FastAssist(context.Background(), "set the volume to 20 and also what time is it", catalog.Dispatcher(iface)))

	require.Len(t, iface.outputs, 2)
	assert.Equal(t, "Volume 20.", iface.outputs[0])
	assert.True(t, strings.HasPrefix(iface.outputs[1], "It's "))
}

func TestBuiltinAskWithoutInputFails(t *testing.T) {
	r := NewRegistry()
	r.Register(Builtin()...)
	catalog, err := r.Build(&Assistant{})
	require.NoError(t, err)

	iface := &fakeInterface{kind: "http"}
	p := nlu.NewProcessor(catalog.Understander())
	err = p.FinalAssist(context.Background(), "order food", catalog.Dispatcher(iface))
	require.ErrorIs(t, err, ErrInputUnavailable)
	assert.Equal(t, []string{"Error occurred."}, iface.outputs)
}
