package main

import (
	"franz/internal/agent"
	"franz/internal/backoff"
	"franz/internal/config"
	"franz/internal/inference"
	"franz/internal/input"
	"franz/internal/overlay"
	"franz/internal/platform"
)

func inferenceConfig(cfg config.Config) inference.Config {
	c := cfg.Inference
	return inference.Config{
		BaseURL:      c.BaseURL,
		Model:        c.Model,
		APIKey:       c.APIKey,
		Temperature:  c.Temperature,
		MaxTokens:    c.MaxTokens,
		Timeout:      c.Timeout,
		SystemPrompt: c.SystemPrompt,
	}
}

func inputTiming(cfg config.Config) input.Timing {
	t := cfg.Timing
	return input.Timing{
		Settle:         t.ActionSettle,
		DoubleClickGap: t.DoubleClickGap,
		DragSteps:      t.DragSteps,
		DragStepDelay:  t.DragStepDelay,
	}
}

func overlayOptions(cfg config.Config, screen platform.Size) (overlay.Options, error) {
	o := cfg.Overlay
	bg, err := overlay.ParseRGB(o.Background)
	if err != nil {
		return overlay.Options{}, err
	}
	return overlay.Options{
		Layout:       overlay.Layout(o.Layout),
		Panel:        overlay.Rect{X: o.X, Y: o.Y, Width: o.Width, Height: o.Height},
		Screen:       screen,
		Font:         o.Font,
		FontSize:     o.FontSize,
		Background:   bg,
		InitialText:  o.InitialText,
		ReadyTimeout: o.ReadyTimeout,
		StopTimeout:  o.StopTimeout,
	}, nil
}

func agentOptions(cfg config.Config, screen platform.Size, maxCycles int) agent.Options {
	t := cfg.Timing
	return agent.Options{
		Screen:          screen,
		Perception:      platform.Size{Width: cfg.Perception.Width, Height: cfg.Perception.Height},
		NarrativeSettle: t.NarrativeSettle,
		PostAction:      t.PostAction,
		ObservePause:    t.ObservePause,
		Backoff: backoff.Policy{
			Initial: t.ErrorBackoffInitial,
			Max:     t.ErrorBackoffMax,
			Factor:  2,
			Jitter:  0.1,
		},
		MaxCycles:        maxCycles,
		InitialNarrative: cfg.Overlay.InitialText,
	}
}
