// Package clockwidget implements the world clock controller: it owns the
// selected timezones and hour offset, and on every render asks the time
// service for the local and target clocks in parallel.
package clockwidget

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/tzclock/pkg/catalog"
	"github.com/codeGROOVE-dev/tzclock/pkg/timeapi"
	"github.com/codeGROOVE-dev/tzclock/pkg/tzconvert"
)

// DefaultInterval is the periodic render cadence.
const DefaultInterval = time.Second

// TimeService is the backend the widget renders against.
type TimeService interface {
	ListTimezones(ctx context.Context) ([]string, error)
	LocalTime(ctx context.Context, timezone string, offsetHours float64) (*timeapi.TimeResponse, error)
	Convert(ctx context.Context, from, to string, offsetHours float64) (*timeapi.TimeResponse, error)
}

// Option configures a Widget.
type Option func(*Widget)

// WithDetectedTimezone overrides environment detection.
func WithDetectedTimezone(tz string) Option {
	return func(w *Widget) {
		if tz = strings.TrimSpace(tz); tz != "" {
			w.detected = tz
		}
	}
}

// WithSlider sets the declared offset range.
func WithSlider(s Slider) Option {
	return func(w *Widget) {
		w.slider = s
	}
}

// WithInterval sets the periodic render cadence.
func WithInterval(d time.Duration) Option {
	return func(w *Widget) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithSequencedRegions drops region updates that belong to a render older than
// the one already shown in that region. Without it the last response to
// arrive wins.
func WithSequencedRegions() Option {
	return func(w *Widget) {
		w.sequenced = true
	}
}

// WithTarget preselects the target timezone shown by the first render.
func WithTarget(tz string) Option {
	return func(w *Widget) {
		w.target = tz
	}
}

// WithOffset preselects the hour offset used by the first render.
func WithOffset(hours float64) Option {
	return func(w *Widget) {
		w.offset = hours
	}
}

// WithOnChange registers fn to receive a snapshot after every view change.
// fn may be called from several goroutines at once.
func WithOnChange(fn func(View)) Option {
	return func(w *Widget) {
		w.onChange = fn
	}
}

// Widget is the clock controller. All methods are safe for concurrent use.
type Widget struct {
	service  TimeService
	logger   *slog.Logger
	onChange func(View)
	catalog  *catalog.Catalog
	detected string
	slider   Slider
	interval time.Duration
	target   string
	offset   float64

	mu        sync.Mutex
	state     State
	view      View
	seq       uint64
	applied   [regionCount]uint64
	sequenced bool
}

// New creates a widget. The detected timezone comes from the environment
// unless WithDetectedTimezone is given.
func New(service TimeService, logger *slog.Logger, opts ...Option) *Widget {
	w := &Widget{
		service:  service,
		logger:   logger,
		slider:   DefaultSlider,
		interval: DefaultInterval,
		catalog:  catalog.New(nil),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.detected == "" {
		w.detected = tzconvert.DetectLocal()
	}
	if w.slider.Step <= 0 {
		w.slider.Step = DefaultSlider.Step
	}

	w.state = State{
		DetectedTimezone: w.detected,
		LocalTimezone:    w.detected,
		TargetTimezone:   strings.TrimSpace(w.target),
		OffsetHours:      w.offset,
		AutoDetect:       true,
	}
	w.view = View{
		DetectedTimezone:   w.detected,
		TargetInput:        w.target,
		AutoDetect:         true,
		LocalInputDisabled: true,
		Slider:             w.slider,
		SliderValue:        w.offset,
		OffsetLabel:        tzconvert.FormatOffset(w.offset),
		Local:              Region{Reading: Reading{TimezoneLabel: w.detected}},
		Target:             Region{Reading: Reading{DisplayText: PlaceholderText, TimezoneLabel: PlaceholderLabel}},
	}
	return w
}

// Start loads the catalog, seeds the view from the detected timezone and
// performs the first render. A catalog failure leaves suggestions empty.
func (w *Widget) Start(ctx context.Context) {
	cat := catalog.Load(ctx, w.service, w.logger)

	w.mu.Lock()
	w.catalog = cat
	w.view.Suggestions = cat.Names()
	w.view.DetectedTimezone = w.detected
	w.view.LocalInput = ""
	w.view.LocalInputDisabled = true
	w.state.LocalTimezone = w.detected
	w.state.AutoDetect = true
	w.view.AutoDetect = true
	w.mu.Unlock()

	w.logger.Info("clock started", "detected_timezone", w.detected, "timezones", cat.Len())
	w.Render(ctx)
}

// Run renders every interval until ctx is done. Each tick renders in its own
// goroutine, so a slow response never delays the next tick.
func (w *Widget) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.Render(ctx)
			}()
		}
	}
}

// State returns a copy of the current model.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// View returns a copy of the current view.
func (w *Widget) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view
}

// Catalog returns the loaded timezone catalog.
func (w *Widget) Catalog() *catalog.Catalog {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.catalog
}

// Suggest returns catalog entries matching the text typed so far.
func (w *Widget) Suggest(text string, limit int) []string {
	return w.Catalog().Search(text, limit)
}

// SetOffset applies a raw slider value and renders. An unparsable value is
// rejected and nothing changes.
func (w *Widget) SetOffset(ctx context.Context, raw string) error {
	hours, err := tzconvert.ParseOffset(raw)
	if err != nil {
		return err
	}
	w.SetOffsetHours(ctx, hours)
	return nil
}

// SetOffsetHours applies an hour offset and renders.
func (w *Widget) SetOffsetHours(ctx context.Context, hours float64) {
	w.mu.Lock()
	w.state.OffsetHours = hours
	w.view.SliderValue = hours
	w.mu.Unlock()

	w.Render(ctx)
}

// Nudge moves the offset by steps slider steps, like dragging the slider.
func (w *Widget) Nudge(ctx context.Context, steps int) {
	w.mu.Lock()
	hours := w.state.OffsetHours + float64(steps)*w.slider.Step
	// Keep step arithmetic from drifting, e.g. 0.1+0.2.
	hours = math.Round(hours/w.slider.Step) * w.slider.Step
	w.mu.Unlock()

	w.SetOffsetHours(ctx, hours)
}

// SetAutoDetect toggles auto-detection and renders. Turning it on reverts the
// local timezone to the detected one and clears the input; turning it off
// adopts the trimmed input text, or keeps the detected timezone if blank.
func (w *Widget) SetAutoDetect(ctx context.Context, on bool) {
	w.mu.Lock()
	w.state.AutoDetect = on
	w.view.AutoDetect = on
	w.view.LocalInputDisabled = on
	if on {
		w.state.LocalTimezone = w.state.DetectedTimezone
		w.view.LocalInput = ""
	} else if value := strings.TrimSpace(w.view.LocalInput); value != "" {
		w.state.LocalTimezone = value
	} else {
		w.state.LocalTimezone = w.state.DetectedTimezone
	}
	w.mu.Unlock()

	w.Render(ctx)
}

// SetLocalInput updates the local input text without applying it, like a
// keystroke. Input is ignored while the field is disabled.
func (w *Widget) SetLocalInput(text string) {
	w.mu.Lock()
	if !w.view.LocalInputDisabled {
		w.view.LocalInput = text
	}
	w.mu.Unlock()
	w.notify()
}

// CommitLocal applies the local input text, like a change event. It is a
// no-op while auto-detect is on or when the text is blank.
func (w *Widget) CommitLocal(ctx context.Context) {
	w.mu.Lock()
	value := strings.TrimSpace(w.view.LocalInput)
	if w.state.AutoDetect || value == "" {
		w.mu.Unlock()
		return
	}
	w.state.LocalTimezone = value
	w.view.Local.TimezoneLabel = value
	w.mu.Unlock()

	w.Render(ctx)
}

// SetLocal types text into the local input and commits it.
func (w *Widget) SetLocal(ctx context.Context, text string) {
	w.SetLocalInput(text)
	w.CommitLocal(ctx)
}

// CommitTarget sets the target input and renders. Blank text clears the
// target selection.
func (w *Widget) CommitTarget(ctx context.Context, text string) {
	w.mu.Lock()
	w.view.TargetInput = text
	w.state.TargetTimezone = strings.TrimSpace(text)
	w.mu.Unlock()

	w.Render(ctx)
}

// Reset restores auto-detect, clears both inputs and the target, zeroes the
// offset, then renders.
func (w *Widget) Reset(ctx context.Context) {
	w.mu.Lock()
	w.state.AutoDetect = true
	w.state.LocalTimezone = w.state.DetectedTimezone
	w.state.TargetTimezone = ""
	w.state.OffsetHours = 0
	w.view.AutoDetect = true
	w.view.LocalInputDisabled = true
	w.view.DetectedTimezone = w.state.DetectedTimezone
	w.view.LocalInput = ""
	w.view.TargetInput = ""
	w.view.SliderValue = 0
	w.mu.Unlock()

	w.Render(ctx)
}

// Render updates the offset label, then resolves both clocks concurrently.
// Each region is updated independently; a failure in one never touches the
// other.
func (w *Widget) Render(ctx context.Context) {
	w.mu.Lock()
	w.seq++
	seq := w.seq
	local := w.state.LocalTimezone
	target := w.state.TargetTimezone
	offset := w.state.OffsetHours
	w.view.OffsetLabel = tzconvert.FormatOffset(offset)
	w.mu.Unlock()
	w.notify()

	var g errgroup.Group
	g.Go(func() error {
		w.renderLocal(ctx, seq, local, offset)
		return nil
	})
	g.Go(func() error {
		w.renderTarget(ctx, seq, local, target, offset)
		return nil
	})
	_ = g.Wait()
}

func (w *Widget) renderLocal(ctx context.Context, seq uint64, local string, offset float64) {
	resp, err := w.service.LocalTime(ctx, local, offset)
	if err != nil {
		w.fail(regionLocal, seq, err)
		return
	}
	w.succeed(regionLocal, seq, resp)
}

func (w *Widget) renderTarget(ctx context.Context, seq uint64, local, target string, offset float64) {
	if target == "" {
		w.apply(regionTarget, seq, func(r *Region) {
			r.DisplayText = PlaceholderText
			r.TimezoneLabel = PlaceholderLabel
			r.Detail = ""
			r.Failed = false
		})
		return
	}

	resp, err := w.service.Convert(ctx, local, target, offset)
	if err != nil {
		w.fail(regionTarget, seq, err)
		return
	}
	w.succeed(regionTarget, seq, resp)
}

func (w *Widget) succeed(id regionID, seq uint64, resp *timeapi.TimeResponse) {
	reading, err := readingFrom(resp)
	if err != nil {
		w.fail(id, seq, err)
		return
	}
	w.apply(id, seq, func(r *Region) {
		r.Reading = reading
		r.Failed = false
	})
}

// fail shows the error placeholder. The region's timezone label is left as is.
func (w *Widget) fail(id regionID, seq uint64, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	w.logger.Error("failed to fetch time", "region", id.String(), "error", err)
	w.apply(id, seq, func(r *Region) {
		r.DisplayText = ErrorText
		r.Detail = ""
		r.Failed = true
	})
}

func (w *Widget) apply(id regionID, seq uint64, update func(*Region)) {
	w.mu.Lock()
	if shown := w.applied[id]; w.sequenced && seq < shown {
		w.mu.Unlock()
		w.logger.Debug("dropping stale region update", "region", id.String(), "seq", seq, "shown", shown)
		return
	}
	w.applied[id] = seq

	region := &w.view.Local
	if id == regionTarget {
		region = &w.view.Target
	}
	update(region)
	region.Seq = seq
	w.mu.Unlock()

	w.notify()
}

func (w *Widget) notify() {
	if w.onChange == nil {
		return
	}
	w.onChange(w.View())
}

func readingFrom(resp *timeapi.TimeResponse) (Reading, error) {
	t, err := resp.Time()
	if err != nil {
		return Reading{}, err
	}
	return Reading{
		DisplayText:   t.Format(clockLayout),
		TimezoneLabel: resp.Timezone,
		Detail:        t.Format(detailLayout) + " " + tzconvert.UTCOffsetLabel(t),
	}, nil
}
