// Package picker asks for the initial clock selection with interactive
// prompts.
package picker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codeGROOVE-dev/tzclock/pkg/catalog"
	"github.com/codeGROOVE-dev/tzclock/pkg/clockwidget"
)

// SuggestLimit caps the completions offered per keystroke.
const SuggestLimit = 10

// Widget is the part of the clock controller the picker drives.
type Widget interface {
	View() clockwidget.View
	Catalog() *catalog.Catalog
	Suggest(text string, limit int) []string
	SetAutoDetect(ctx context.Context, on bool)
	SetLocal(ctx context.Context, text string)
	CommitTarget(ctx context.Context, text string)
}

// Pick walks through the auto-detect choice, the local timezone and the
// target timezone. The widget is updated after each answer.
func Pick(ctx context.Context, d Driver, w Widget) error {
	view := w.View()
	cat := w.Catalog()
	suggest := func(text string) []string {
		return w.Suggest(text, SuggestLimit)
	}

	if err := d.Info(ctx, fmt.Sprintf("Detected timezone: %s", view.DetectedTimezone)); err != nil {
		return err
	}

	auto, err := d.Confirm(ctx, ConfirmConfig{
		Message: fmt.Sprintf("Use detected timezone %s?", view.DetectedTimezone),
		Default: view.AutoDetect,
	})
	if err != nil {
		return fmt.Errorf("asking for auto-detect: %w", err)
	}
	if auto != view.AutoDetect {
		w.SetAutoDetect(ctx, auto)
	}

	if !auto {
		local, err := d.Input(ctx, InputConfig{
			Message:   "Local timezone:",
			Default:   view.DetectedTimezone,
			Help:      "IANA name such as Europe/Paris. Tab completes.",
			Suggest:   suggest,
			Validator: known(cat, false),
		})
		if err != nil {
			return fmt.Errorf("asking for local timezone: %w", err)
		}
		w.SetLocal(ctx, local)
	}

	target, err := d.Input(ctx, InputConfig{
		Message:   "Compare with timezone:",
		Default:   view.TargetInput,
		Help:      "Leave blank to show only the local clock.",
		Suggest:   suggest,
		Validator: known(cat, true),
	})
	if err != nil {
		return fmt.Errorf("asking for target timezone: %w", err)
	}
	w.CommitTarget(ctx, target)
	return nil
}

// known accepts names in the catalog. Anything goes when the catalog failed
// to load; the time service has the final word.
func known(cat *catalog.Catalog, allowBlank bool) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			if allowBlank {
				return nil
			}
			return errors.New("a timezone is required")
		}
		if cat.Len() == 0 || cat.Contains(s) {
			return nil
		}
		return fmt.Errorf("unknown timezone %q", s)
	}
}
