// Package screen paints the clock widget's view to a terminal.
package screen

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/codeGROOVE-dev/tzclock/pkg/clockwidget"
)

const (
	ruleWidth   = 50
	clearScreen = "\033[H\033[2J"
)

// Help lists the commands understood by the CLI.
const Help = "commands: auto on|off · local <tz> · target [tz] · offset <h> · + · - · reset · search <q> · quit"

type palette struct {
	clock  *color.Color
	label  *color.Color
	failed *color.Color
	muted  *color.Color
	knob   *color.Color
	track  *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		clock:  color.New(color.FgGreen, color.Bold),
		label:  color.New(color.FgCyan),
		failed: color.New(color.FgRed),
		muted:  color.New(color.FgHiBlack),
		knob:   color.New(color.FgYellow, color.Bold),
		track:  color.New(color.FgBlue),
	}
	if noColor {
		for _, c := range []*color.Color{p.clock, p.label, p.failed, p.muted, p.knob, p.track} {
			c.DisableColor()
		}
	}
	return p
}

// Screen repaints a view on every change. It is safe for concurrent use.
type Screen struct {
	out      io.Writer
	colors   palette
	mu       sync.Mutex
	clear    bool
	showHelp bool
}

// Option configures a Screen.
type Option func(*Screen)

// WithoutColor disables ANSI colours.
func WithoutColor() Option {
	return func(s *Screen) {
		s.colors = newPalette(true)
	}
}

// WithClear clears the terminal before each paint.
func WithClear() Option {
	return func(s *Screen) {
		s.clear = true
	}
}

// WithHelp prints the command list under the clocks.
func WithHelp() Option {
	return func(s *Screen) {
		s.showHelp = true
	}
}

// New creates a screen writing to out.
func New(out io.Writer, opts ...Option) *Screen {
	s := &Screen{out: out, colors: newPalette(color.NoColor)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Paint writes v. Write errors are ignored; a broken terminal must not stop
// the clock.
func (s *Screen) Paint(v clockwidget.View) {
	frame := s.Format(v)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clear {
		frame = clearScreen + frame
	}
	_, _ = io.WriteString(s.out, frame)
}

// Format renders v as text.
func (s *Screen) Format(v clockwidget.View) string {
	var b strings.Builder
	c := s.colors

	b.WriteString("🕐 World Clock\n")
	b.WriteString(strings.Repeat("─", ruleWidth) + "\n")

	auto := "off"
	if v.AutoDetect {
		auto = "on"
	}
	fmt.Fprintf(&b, "📍 Detected:     %s (auto-detect %s)\n", c.label.Sprint(v.DetectedTimezone), auto)

	localInput := v.LocalInput
	switch {
	case v.LocalInputDisabled:
		localInput = c.muted.Sprint("[disabled]")
	case strings.TrimSpace(localInput) == "":
		localInput = c.muted.Sprint("[empty]")
	}
	targetInput := v.TargetInput
	if strings.TrimSpace(targetInput) == "" {
		targetInput = c.muted.Sprint("[empty]")
	}
	fmt.Fprintf(&b, "⌨️  Local input:  %s\n", localInput)
	fmt.Fprintf(&b, "⌨️  Target input: %s\n", targetInput)
	b.WriteString(strings.Repeat("─", ruleWidth) + "\n")

	b.WriteString(s.region("🏠 Local ", v.Local))
	b.WriteString(s.region("🌍 Target", v.Target))
	b.WriteString(strings.Repeat("─", ruleWidth) + "\n")

	fmt.Fprintf(&b, "⏱️  Offset %s %s\n", s.Slider(v.Slider, v.SliderValue), c.knob.Sprint(v.OffsetLabel))
	if n := len(v.Suggestions); n > 0 {
		fmt.Fprintf(&b, "%s\n", c.muted.Sprintf("%d timezones available", n))
	} else {
		fmt.Fprintf(&b, "%s\n", c.muted.Sprint("timezone list unavailable"))
	}
	if s.showHelp {
		fmt.Fprintf(&b, "%s\n", c.muted.Sprint(Help))
	}
	return b.String()
}

func (s *Screen) region(title string, r clockwidget.Region) string {
	c := s.colors

	text := c.clock.Sprint(r.DisplayText)
	switch {
	case r.Failed:
		text = c.failed.Sprint(r.DisplayText)
	case r.DisplayText == clockwidget.PlaceholderText || r.DisplayText == "":
		text = c.muted.Sprint(r.DisplayText)
	}

	line := fmt.Sprintf("%s  %s  %s", title, text, c.label.Sprint(r.TimezoneLabel))
	if r.Detail != "" {
		line += "  " + c.muted.Sprint(r.Detail)
	}
	return line + "\n"
}

// Slider draws the offset track with the knob at value, one cell per step.
// A value outside the declared range pins the knob to the nearest end and
// marks that end.
func (s *Screen) Slider(sl clockwidget.Slider, value float64) string {
	c := s.colors
	if sl.Step <= 0 || sl.Max <= sl.Min {
		return ""
	}

	cells := int(math.Round((sl.Max-sl.Min)/sl.Step)) + 1
	pos := int(math.Round((value - sl.Min) / sl.Step))
	left, right := "├", "┤"
	switch {
	case pos < 0:
		pos = 0
		left = "◀"
	case pos >= cells:
		pos = cells - 1
		right = "▶"
	}
	zero := int(math.Round(-sl.Min / sl.Step))

	var b strings.Builder
	b.WriteString(c.track.Sprint(left))
	for i := range cells {
		switch {
		case i == pos:
			b.WriteString(c.knob.Sprint("●"))
		case i == zero:
			b.WriteString(c.muted.Sprint("┼"))
		default:
			b.WriteString(c.track.Sprint("─"))
		}
	}
	b.WriteString(c.track.Sprint(right))
	return b.String()
}
