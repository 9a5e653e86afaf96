package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsComplete(t *testing.T) {
	vocab := NewVocabulary(Category{Name: "restaurant", Values: []string{"kfc"}})
	u := newTestUnderstander(t, vocab,
		intentPatterns{"stop", []string{"stop"}},
		intentPatterns{"say", []string{"say <<phrase>>"}},
		intentPatterns{"remind", []string{"remind me to <<task>> at <time>"}},
		intentPatterns{"music", []string{"play <<song>> by <<artist>>", "play <<song>>"}},
		intentPatterns{"food.order", []string{"order from <<restaurant>>", "order food"}},
		intentPatterns{"timer", []string{"timer for <minutes> minutes", "timer"}},
	)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "no intent", text: "hello there", want: false},
		{name: "no placeholders", text: "stop", want: true},
		{name: "trailing open runs to the end", text: "say hello", want: false},
		{name: "open followed by closed", text: "remind me to buy milk at 5", want: true},
		{name: "trailing open located earlier", text: "hi there, say hi", want: true},
		{name: "trailing open located earlier ending in a", text: "pizza, say pizza", want: false},
		{name: "required entity missing", text: "play hello", want: false},
		{name: "both open entities, last trailing", text: "play hello by adele", want: false},
		{name: "vocabulary satisfies requirements", text: "order from kfc", want: true},
		{name: "general template lacks entity", text: "order food", want: false},
		{name: "closed only reference", text: "timer for 5 minutes", want: true},
		{name: "closed reference unmet", text: "timer", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := u.Understand(tt.text)
			complete, err := s.CheckComplete()
			require.NoError(t, err)
			assert.Equal(t, tt.want, complete)
			assert.Equal(t, tt.want, s.IsComplete())
		})
	}
}

func TestCheckCompleteUnknownIntent(t *testing.T) {
	table := NewTableBuilder().Build()
	s := &TextStructure{Text: "ghost", Intent: "ghost", table: table}

	_, err := s.CheckComplete()
	assert.ErrorIs(t, err, ErrUnknownIntent)
	assert.Panics(t, func() { s.IsComplete() })
	assert.Contains(t, s.String(), "complete: unknown intent")
}

func TestEqualIgnoresTextAndOffsets(t *testing.T) {
	a := &TextStructure{Text: "play jazz", Intent: "play", Entities: map[string]string{"genre": "jazz"}, End: 9}
	b := &TextStructure{Text: "please play jazz", Intent: "play", Entities: map[string]string{"genre": "jazz"}, End: 16}
	c := &TextStructure{Text: "play rock", Intent: "play", Entities: map[string]string{"genre": "rock"}}
	d := &TextStructure{Text: "play jazz", Intent: "play", Subintent: "radio", Entities: map[string]string{"genre": "jazz"}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.False(t, a.Equal(nil))
}

func TestMerge(t *testing.T) {
	prev := &TextStructure{
		Intent:   "food",
		Entities: map[string]string{"restaurant": "mcdonalds", "size": "large"},
	}

	s := &TextStructure{Entities: map[string]string{"restaurant": "kfc"}}
	s.Merge(prev)
	assert.Equal(t, "food", s.Intent)
	assert.Equal(t, map[string]string{"restaurant": "mcdonalds", "size": "large"}, s.Entities)

	own := &TextStructure{Intent: "play", Subintent: "radio", Entities: map[string]string{}}
	own.Merge(prev)
	assert.Equal(t, "play", own.Intent)
	assert.Equal(t, "radio", own.Subintent)
	assert.Len(t, own.Entities, 2)
}

func TestIsSimilarTo(t *testing.T) {
	s := &TextStructure{Entities: map[string]string{"song": "yellow", "artist": "coldplay"}}
	assert.True(t, s.IsSimilarTo(&TextStructure{Entities: map[string]string{"song": "clocks"}}))
	assert.True(t, s.IsSimilarTo(&TextStructure{}))
	assert.False(t, s.IsSimilarTo(&TextStructure{Entities: map[string]string{"genre": "rock"}}))
}

func TestCloneIsDeep(t *testing.T) {
	u := newTestUnderstander(t, nil, intentPatterns{"setvol", []string{"set <a> to <b>"}})
	s := u.Understand("set volume to 10")

	c := s.Clone()
	c.Entities["b"] = "11"
	assert.Equal(t, "10", s.Entities["b"])
	assert.True(t, s.Clone().IsComplete())
}

func TestString(t *testing.T) {
	u := newTestUnderstander(t, nil, intentPatterns{"weather.forecast", []string{"weather in <city>"}})

	out := u.Understand("weather in paris").String()
	assert.Contains(t, out, "text: weather in paris")
	assert.Contains(t, out, "intent: weather")
	assert.Contains(t, out, "subintent: forecast")
	assert.Contains(t, out, "entities: city=paris")
	assert.Contains(t, out, "complete: true")

	out = u.Understand("nothing").String()
	assert.Contains(t, out, "intent: none")
	assert.Contains(t, out, "complete: false")
}
