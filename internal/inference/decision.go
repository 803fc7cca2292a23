package inference

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"franz/internal/coords"
)

const (
	// MaxArgumentBytes bounds the raw argument payload accepted from the model.
	MaxArgumentBytes = 64 << 10

	// MaxNarrativeRunes bounds the narrative kept per cycle.
	MaxNarrativeRunes = 8000
)

// Decision is one parsed model response: the chosen action, its arguments
// and the rewritten narrative.
type Decision struct {
	Action Action

	// Narrative is the model's story. HasNarrative is false when the model
	// omitted it or left it blank; the caller keeps the previous one.
	Narrative    string
	HasNarrative bool

	// Point is the click target or drag start; Target is the drag end.
	// Both are normalized and clamped to [0,1000].
	Point  coords.Point
	Target coords.Point

	Text  string
	Delta float64
}

// ParseToolCall validates the arguments of a tool call against the
// catalogue. Unknown action names are accepted with only the narrative read.
func ParseToolCall(name, arguments string) (Decision, error) {
	d := Decision{Action: Action(strings.TrimSpace(name))}
	if len(arguments) > MaxArgumentBytes {
		return d, schemaErr("arguments of %d bytes exceed %d", len(arguments), MaxArgumentBytes)
	}

	args := map[string]json.RawMessage{}
	if strings.TrimSpace(arguments) != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return d, schemaErr("arguments are not a JSON object: %v", err)
		}
	}

	if story, ok := stringArg(args, "story"); ok && strings.TrimSpace(story) != "" {
		d.Narrative = truncateRunes(story, MaxNarrativeRunes)
		d.HasNarrative = true
	}

	var err error
	switch d.Action {
	case ActionClick, ActionRightClick, ActionDoubleClick:
		d.Point, err = pointArg(args, "x", "y")
	case ActionDrag:
		if d.Point, err = pointArg(args, "x1", "y1"); err == nil {
			d.Target, err = pointArg(args, "x2", "y2")
		}
	case ActionType:
		text, ok := stringArg(args, "text")
		if !ok {
			return d, schemaErr("%s: missing string argument %q", d.Action, "text")
		}
		d.Text = text
	case ActionScroll:
		d.Delta, err = numberArg(args, "dy")
	}
	if err != nil {
		return d, schemaErr("%s: %v", d.Action, err)
	}
	return d, nil
}

type argError string

func (e argError) Error() string { return string(e) }

func pointArg(args map[string]json.RawMessage, xKey, yKey string) (coords.Point, error) {
	x, err := numberArg(args, xKey)
	if err != nil {
		return coords.Point{}, err
	}
	y, err := numberArg(args, yKey)
	if err != nil {
		return coords.Point{}, err
	}
	return coords.Clamp(coords.Point{X: x, Y: y}), nil
}

// numberArg reads a JSON number or a string holding one.
func numberArg(args map[string]json.RawMessage, key string) (float64, error) {
	raw, ok := args[key]
	if !ok || string(raw) == "null" {
		return 0, argError("missing argument " + strconv.Quote(key))
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, argError("argument " + strconv.Quote(key) + " is not a number")
		}
		v, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, argError("argument " + strconv.Quote(key) + " is not a number")
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, argError("argument " + strconv.Quote(key) + " is not finite")
	}
	return v, nil
}

func stringArg(args map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := args[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
