package skills

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"friday/internal/nlu"
)

var (
	acknowledgements = []string{"ok", "okay {me}", "sure", "done"}
	askRestaurant    = []string{"Where would you like to order from?", "Which place, {me}?"}
	askLocation      = []string{"For which city?", "Where, {me}?"}
)

// Builtin returns the skills shipped with the assistant, in match order.
func Builtin() []Skill {
	vol := &volume{level: 50}
	return []Skill{
		{
			Name: "core",
			Intents: []IntentSpec{
				{Intent: "stop", Patterns: []string{"stop", `(?:be )?quiet\b`, "shut up"}},
				{Intent: "time", Patterns: []string{"what time is it", `(?:tell me )?the time\b`}},
				{Intent: "say", Patterns: []string{"(?:say|repeat after me) <<phrase>>", "repeat after me"}},
			},
			Handlers: map[string]Handler{
				"stop": stop,
				"time": tellTime,
				"say":  say,
			},
		},
		{
			Name: "volume",
			Intents: []IntentSpec{
				{Intent: "volume.up", Patterns: []string{"(?:turn )?(?:the )?volume up", "louder"}},
				{Intent: "volume.down", Patterns: []string{"(?:turn )?(?:the )?volume down", "quieter"}},
				{Intent: "volume.set", Patterns: []string{"set (?:the )?volume to <level>", "volume (?:to )?<level>"}},
			},
			Handlers: map[string]Handler{"volume": vol.handle},
		},
		{
			Name: "timer",
			Intents: []IntentSpec{
				{Intent: "timer.set", Patterns: []string{"set (?:a )?timer for <minutes> minutes?", "set (?:a )?timer"}},
			},
			Handlers: map[string]Handler{"timer": setTimer},
		},
		{
			Name: "weather",
			Intents: []IntentSpec{
				{Intent: "weather.forecast", Patterns: []string{
					"weather (?:in|for) <<location>>",
					"(?:what's|what is) the weather like",
					"weather",
				}},
			},
			Handlers: map[string]Handler{"weather": forecast},
		},
		{
			Name: "food",
			Intents: []IntentSpec{
				{Intent: "food.order", Patterns: []string{"order (?:food )?from <<restaurant>>", "order (?:some )?food"}},
			},
			Entities: []nlu.Category{
				{Name: "restaurant", Values: []string{"McDonalds", "Starbucks", "Nando's", "KFC", "BK"}},
			},
			Handlers: map[string]Handler{"food": orderFood},
		},
	}
}

func stop(ctx context.Context, _ *nlu.TextStructure, iface Interface, a *Assistant) error {
	return iface.Output(ctx, PickPhrase(acknowledgements, a.CallsMe))
}

func tellTime(ctx context.Context, _ *nlu.TextStructure, iface Interface, _ *Assistant) error {
	return iface.Output(ctx, "It's "+time.Now().Format("15:04")+".")
}

func say(ctx context.Context, ts *nlu.TextStructure, iface Interface, _ *Assistant) error {
	phrase, err := entityOrAsk(ctx, ts, iface, "phrase", "What should I say?")
	if err != nil {
		return err
	}
	return iface.Output(ctx, phrase)
}

func setTimer(ctx context.Context, ts *nlu.TextStructure, iface Interface, _ *Assistant) error {
	raw, err := entityOrAsk(ctx, ts, iface, "minutes", "For how many minutes?")
	if err != nil {
		return err
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || minutes <= 0 {
		return iface.Output(ctx, "I need a number of minutes.")
	}
	return iface.Output(ctx, fmt.Sprintf("Timer set for %d minutes.", minutes))
}

func forecast(ctx context.Context, ts *nlu.TextStructure, iface Interface, a *Assistant) error {
	location := ts.Entities["location"]
	if location == "" {
		location = a.DefaultLocation
	}
	if location == "" {
		var err error
		if location, err = iface.Input(ctx, PickPhrase(askLocation, a.CallsMe)); err != nil {
			return err
		}
	}
	return iface.Output(ctx, "Looking up the forecast for "+strings.TrimSpace(location)+".")
}

func orderFood(ctx context.Context, ts *nlu.TextStructure, iface Interface, a *Assistant) error {
	restaurant, err := entityOrAsk(ctx, ts, iface, "restaurant", PickPhrase(askRestaurant, a.CallsMe))
	if err != nil {
		return err
	}
	return iface.Output(ctx, "Ordering from "+restaurant+".")
}

// entityOrAsk returns the named entity, asking the user when the structure
// lacks it. The structure is not modified: it is what the processor records
// as handled.
func entityOrAsk(ctx context.Context, ts *nlu.TextStructure, iface Interface, name, prompt string) (string, error) {
	if v := strings.TrimSpace(ts.Entities[name]); v != "" {
		return v, nil
	}
	answer, err := iface.Input(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

type volume struct {
	mu    sync.Mutex
	level int
}

func (v *volume) handle(ctx context.Context, ts *nlu.TextStructure, iface Interface, _ *Assistant) error {
	v.mu.Lock()
	switch ts.Subintent {
	case "up":
		v.level = min(v.level+10, 100)
	case "down":
		v.level = max(v.level-10, 0)
	default:
		level, err := strconv.Atoi(ts.Entities["level"])
		if err != nil || level < 0 || level > 100 {
			v.mu.Unlock()
			return iface.Output(ctx, "Volume goes from 0 to 100.")
		}
		v.level = level
	}
	level := v.level
	v.mu.Unlock()
	return iface.Output(ctx, fmt.Sprintf("Volume %d.", level))
}
