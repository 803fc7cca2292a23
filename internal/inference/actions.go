package inference

import (
	openai "github.com/sashabaranov/go-openai"
)

// Action names one entry of the action catalogue.
type Action string

const (
	ActionObserve     Action = "observe"
	ActionClick       Action = "click"
	ActionRightClick  Action = "right_click"
	ActionDoubleClick Action = "double_click"
	ActionDrag        Action = "drag"
	ActionType        Action = "type"
	ActionScroll      Action = "scroll"
)

// Known reports whether a is part of the catalogue.
func (a Action) Known() bool {
	switch a {
	case ActionObserve, ActionClick, ActionRightClick, ActionDoubleClick,
		ActionDrag, ActionType, ActionScroll:
		return true
	}
	return false
}

type param struct {
	name string
	typ  string
	desc string
}

type actionSpec struct {
	action Action
	desc   string
	params []param
}

var storyParam = param{"story", "string", "Your rewritten narrative"}

var catalogue = []actionSpec{
	{ActionObserve, "Continue the story with new observations", nil},
	{ActionClick, "Left-click at a position and update the story", []param{
		{"x", "number", "X coordinate (0-1000)"},
		{"y", "number", "Y coordinate (0-1000)"},
	}},
	{ActionRightClick, "Right-click at a position to open context menu and update the story", []param{
		{"x", "number", "X coordinate (0-1000)"},
		{"y", "number", "Y coordinate (0-1000)"},
	}},
	{ActionDoubleClick, "Double left-click at a position to open or select and update the story", []param{
		{"x", "number", "X coordinate (0-1000)"},
		{"y", "number", "Y coordinate (0-1000)"},
	}},
	{ActionDrag, "Drag from one position to another and update the story", []param{
		{"x1", "number", "Start X (0-1000)"},
		{"y1", "number", "Start Y (0-1000)"},
		{"x2", "number", "End X (0-1000)"},
		{"y2", "number", "End Y (0-1000)"},
	}},
	{ActionType, "Type text and update the story", []param{
		{"text", "string", "Text to type"},
	}},
	{ActionScroll, "Scroll up or down and update the story", []param{
		{"dy", "number", "Scroll amount (positive=up, negative=down)"},
	}},
}

// Tools returns the action catalogue as function tools. Every action
// requires a story argument.
func Tools() []openai.Tool {
	tools := make([]openai.Tool, 0, len(catalogue))
	for _, spec := range catalogue {
		props := make(map[string]any, len(spec.params)+1)
		required := make([]string, 0, len(spec.params)+1)
		for _, p := range append(append([]param(nil), spec.params...), storyParam) {
			props[p.name] = map[string]any{"type": p.typ, "description": p.desc}
			required = append(required, p.name)
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        string(spec.action),
				Description: spec.desc,
				Parameters: map[string]any{
					"type":       "object",
					"properties": props,
					"required":   required,
				},
			},
		})
	}
	return tools
}
