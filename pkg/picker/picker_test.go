package picker

import (
	"context"
	"errors"
	"testing"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/tzclock/pkg/catalog"
	"github.com/codeGROOVE-dev/tzclock/pkg/clockwidget"
)

type stubDriver struct {
	inputs     []string
	confirm    []bool
	inputPos   int
	confirmPos int
	infos      []string
	asked      []InputConfig
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.asked = append(s.asked, cfg)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

type fakeWidget struct {
	view  clockwidget.View
	cat   *catalog.Catalog
	calls []string
}

func (f *fakeWidget) View() clockwidget.View    { return f.view }
func (f *fakeWidget) Catalog() *catalog.Catalog { return f.cat }

func (f *fakeWidget) Suggest(text string, limit int) []string {
	return f.cat.Search(text, limit)
}

func (f *fakeWidget) SetAutoDetect(_ context.Context, on bool) {
	if on {
		f.calls = append(f.calls, "auto on")
		return
	}
	f.calls = append(f.calls, "auto off")
}

func (f *fakeWidget) SetLocal(_ context.Context, text string) {
	f.calls = append(f.calls, "local "+text)
}

func (f *fakeWidget) CommitTarget(_ context.Context, text string) {
	f.calls = append(f.calls, "target "+text)
}

func newFakeWidget() *fakeWidget {
	return &fakeWidget{
		view: clockwidget.View{DetectedTimezone: "UTC", AutoDetect: true, LocalInputDisabled: true},
		cat:  catalog.New([]string{"UTC", "Asia/Tokyo", "Europe/Paris", "America/New_York"}),
	}
}

func TestPick(t *testing.T) {
	tests := []struct {
		name    string
		confirm []bool
		inputs  []string
		want    []string
	}{
		{
			name:    "keep detected",
			confirm: []bool{true},
			inputs:  []string{"Asia/Tokyo"},
			want:    []string{"target Asia/Tokyo"},
		},
		{
			name:    "manual local",
			confirm: []bool{false},
			inputs:  []string{"Europe/Paris", "America/New_York"},
			want:    []string{"auto off", "local Europe/Paris", "target America/New_York"},
		},
		{
			name:    "no target",
			confirm: []bool{true},
			inputs:  []string{""},
			want:    []string{"target "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &stubDriver{confirm: tt.confirm, inputs: tt.inputs}
			w := newFakeWidget()
			if err := Pick(context.Background(), d, w); err != nil {
				t.Fatalf("Pick() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, w.calls); diff != "" {
				t.Errorf("widget calls mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]string{"Detected timezone: UTC"}, d.infos); diff != "" {
				t.Errorf("info mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPickSuggests(t *testing.T) {
	d := &stubDriver{confirm: []bool{true}, inputs: []string{"Asia/Tokyo"}}
	if err := Pick(context.Background(), d, newFakeWidget()); err != nil {
		t.Fatalf("Pick() error = %v", err)
	}
	if len(d.asked) != 1 || d.asked[0].Suggest == nil {
		t.Fatalf("target prompt has no suggestions: %+v", d.asked)
	}
	if diff := cmp.Diff([]string{"Europe/Paris"}, d.asked[0].Suggest("eur")); diff != "" {
		t.Errorf("Suggest(eur) mismatch (-want +got):\n%s", diff)
	}
}

func TestPickDriverError(t *testing.T) {
	d := &stubDriver{confirm: []bool{false}}
	w := newFakeWidget()
	err := Pick(context.Background(), d, w)
	if err == nil {
		t.Fatal("Pick() error = nil")
	}
	if diff := cmp.Diff([]string{"auto off"}, w.calls); diff != "" {
		t.Errorf("widget calls mismatch (-want +got):\n%s", diff)
	}
}

func TestKnown(t *testing.T) {
	full := catalog.New([]string{"UTC", "Asia/Tokyo"})
	tests := []struct {
		name       string
		cat        *catalog.Catalog
		allowBlank bool
		input      string
		wantErr    bool
	}{
		{"listed", full, false, "Asia/Tokyo", false},
		{"case insensitive", full, false, " asia/tokyo ", false},
		{"unlisted", full, false, "Mars/Olympus", true},
		{"blank required", full, false, "  ", true},
		{"blank allowed", full, true, "", false},
		{"empty catalog accepts anything", catalog.New(nil), false, "Mars/Olympus", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := known(tt.cat, tt.allowBlank)(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("known(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestTranslateSurveyErr(t *testing.T) {
	other := errors.New("boom")
	if got := translateSurveyErr(other); !errors.Is(got, other) {
		t.Errorf("translateSurveyErr(other) = %v", got)
	}
	if got := translateSurveyErr(terminal.InterruptErr); !errors.Is(got, ErrAborted) {
		t.Errorf("translateSurveyErr(interrupt) = %v, want ErrAborted", got)
	}
}
