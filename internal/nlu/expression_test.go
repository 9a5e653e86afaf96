package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePlaceholders(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantSource string
		wantNames  []string
		wantOpen   bool
		lastOpen   bool
	}{
		{
			name:       "closed only",
			raw:        "set <a> to <b>",
			wantSource: "set ([a-zA-Z0-9_]+) to ([a-zA-Z0-9_]+)",
			wantNames:  []string{"a", "b"},
		},
		{
			name:       "open then closed",
			raw:        "remind me to <<task>> at <time>",
			wantSource: "remind me to (.*) at ([a-zA-Z0-9_]+)",
			wantNames:  []string{"task", "time"},
			wantOpen:   true,
		},
		{
			name:       "trailing open",
			raw:        "(?:new|add) skill as(?: a)? <type> name(?: it)? <<name>>",
			wantSource: "(?:new|add) skill as(?: a)? ([a-zA-Z0-9_]+) name(?: it)? (.*)",
			wantNames:  []string{"type", "name"},
			wantOpen:   true,
			lastOpen:   true,
		},
		{
			name:       "no placeholders",
			raw:        "stop",
			wantSource: "stop",
			wantNames:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Compile(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, e.Raw())
			assert.Equal(t, tt.wantSource, e.Source())
			assert.Equal(t, tt.wantNames, e.EntityNames())
			assert.Equal(t, tt.wantOpen, e.HasOpen())
			assert.Equal(t, tt.lastOpen, e.LastIsOpen())
		})
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	a := MustCompile("play <<song>> by <artist>")
	b := MustCompile("play <<song>> by <artist>")
	assert.Equal(t, a.Source(), b.Source())
	assert.Equal(t, a.Placeholders(), b.Placeholders())
}

func TestCompileRejectsMalformedPatterns(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr error
	}{
		{raw: "play <genre", wantErr: ErrUnbalancedPlaceholder},
		{raw: "play genre>", wantErr: ErrUnbalancedPlaceholder},
		{raw: "play <<song>", wantErr: ErrUnbalancedPlaceholder},
		{raw: "play <song>>", wantErr: ErrUnbalancedPlaceholder},
		{raw: "play <>", wantErr: ErrEmptyPlaceholder},
		{raw: "move <a> to <<a>>", wantErr: ErrDuplicatePlaceholder},
		{raw: "move <a> to <a>", wantErr: ErrDuplicatePlaceholder},
		{raw: "(new|add) skill <name>", wantErr: ErrInvalidPattern},
		{raw: "play ( <song>", wantErr: ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := Compile(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMustCompilePanics(t *testing.T) {
	assert.Panics(t, func() { MustCompile("<broken") })
}

func TestTableBuilderKeepsRegistrationOrder(t *testing.T) {
	b := NewTableBuilder()
	require.NoError(t, b.Add("music", "play", "play <<song>> by <<artist>>"))
	require.NoError(t, b.Add("core", "stop", "stop"))
	require.NoError(t, b.Add("music-extra", "play", "play <<song>>"))

	table := b.Build()
	assert.Equal(t, []string{"play", "stop"}, table.Intents())
	assert.Equal(t, 3, table.Len())

	exprs := table.Expressions("play")
	require.Len(t, exprs, 2)
	assert.Equal(t, "play <<song>> by <<artist>>", exprs[0].Raw())
	assert.Equal(t, "play <<song>>", exprs[1].Raw())

	ref, ok := table.Reference("play")
	require.True(t, ok)
	assert.Equal(t, exprs[0].Raw(), ref.Raw())

	_, ok = table.Reference("missing")
	assert.False(t, ok)
}

func TestTableBuilderRejectsWithRegistrationError(t *testing.T) {
	b := NewTableBuilder()
	err := b.Add("broken-skill", "play", "play <song>", "play <genre")
	require.Error(t, err)

	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "broken-skill", regErr.Source)
	assert.Equal(t, "play", regErr.Intent)
	assert.Equal(t, "play <genre", regErr.Pattern)
	assert.ErrorIs(t, err, ErrUnbalancedPlaceholder)
	assert.Contains(t, err.Error(), "broken-skill")

	// nothing from the failed call is kept
	assert.Equal(t, 0, b.Build().Len())
}

func TestBuildSnapshotIsIndependent(t *testing.T) {
	b := NewTableBuilder()
	require.NoError(t, b.Add("core", "stop", "stop"))
	table := b.Build()
	require.NoError(t, b.Add("core", "stop", "quiet"))

	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 2, b.Build().Len())
}

func TestValidateIntent(t *testing.T) {
	for _, ok := range []string{"stop", "weather.forecast", "add_skill"} {
		assert.NoError(t, ValidateIntent(ok), ok)
	}
	for _, bad := range []string{"", ".forecast", "weather.", "a.b.c", "play music"} {
		assert.ErrorIs(t, ValidateIntent(bad), ErrInvalidIntent, bad)
	}
}
