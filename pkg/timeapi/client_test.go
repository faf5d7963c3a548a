package timeapi_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/tzclock/pkg/timeapi"
	"github.com/codeGROOVE-dev/tzclock/pkg/timeapi/timeapitest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T, baseURL string, opts ...timeapi.Option) *timeapi.Client {
	t.Helper()
	c, err := timeapi.New(baseURL, discardLogger(), opts...)
	if err != nil {
		t.Fatalf("New(%q): %v", baseURL, err)
	}
	return c
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "ftp://example.com", "://nope"} {
		if _, err := timeapi.New(raw, discardLogger()); err == nil {
			t.Errorf("New(%q) succeeded, want error", raw)
		}
	}
}

func TestListTimezones(t *testing.T) {
	svc := timeapitest.New("Asia/Tokyo", "Europe/Paris", "UTC")
	defer svc.Close()

	got, err := newClient(t, svc.URL).ListTimezones(context.Background())
	if err != nil {
		t.Fatalf("ListTimezones: %v", err)
	}
	if diff := cmp.Diff([]string{"Asia/Tokyo", "Europe/Paris", "UTC"}, got); diff != "" {
		t.Errorf("ListTimezones mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchTimezonesSendsQuery(t *testing.T) {
	svc := timeapitest.New("America/Chicago", "America/New_York", "Europe/Paris")
	defer svc.Close()

	got, err := newClient(t, svc.URL).SearchTimezones(context.Background(), "america")
	if err != nil {
		t.Fatalf("SearchTimezones: %v", err)
	}
	if diff := cmp.Diff([]string{"America/Chicago", "America/New_York"}, got); diff != "" {
		t.Errorf("SearchTimezones mismatch (-want +got):\n%s", diff)
	}
	if calls := svc.CallsTo(timeapi.PathTimezones); len(calls) != 1 || calls[0].Query != "america" {
		t.Errorf("calls = %+v, want one with query %q", calls, "america")
	}
}

func TestLocalTimeLabelEqualsRequestedZone(t *testing.T) {
	svc := timeapitest.New()
	defer svc.Close()
	client := newClient(t, svc.URL)

	for _, zone := range []string{"UTC", "Asia/Tokyo", "America/New_York", "Australia/Adelaide", "Asia/Kathmandu"} {
		t.Run(zone, func(t *testing.T) {
			resp, err := client.LocalTime(context.Background(), zone, 0)
			if err != nil {
				t.Fatalf("LocalTime: %v", err)
			}
			if resp.Timezone != zone {
				t.Errorf("Timezone = %q, want %q", resp.Timezone, zone)
			}
			parsed, err := resp.Time()
			if err != nil {
				t.Fatalf("Time(): %v", err)
			}
			if !parsed.Equal(svc.Now) {
				t.Errorf("instant = %v, want %v", parsed, svc.Now)
			}
		})
	}
}

func TestLocalTimeSendsOffset(t *testing.T) {
	svc := timeapitest.New()
	defer svc.Close()

	resp, err := newClient(t, svc.URL).LocalTime(context.Background(), "UTC", 1.5)
	if err != nil {
		t.Fatalf("LocalTime: %v", err)
	}
	calls := svc.CallsTo(timeapi.PathLocal)
	if len(calls) != 1 {
		t.Fatalf("got %d local calls, want 1", len(calls))
	}
	if diff := cmp.Diff(&timeapi.LocalTimeRequest{Timezone: "UTC", OffsetHours: 1.5}, calls[0].Local); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}
	if resp.OffsetHoursApplied != 1.5 {
		t.Errorf("OffsetHoursApplied = %v, want 1.5", resp.OffsetHoursApplied)
	}
}

func TestConvert(t *testing.T) {
	svc := timeapitest.New()
	defer svc.Close()

	resp, err := newClient(t, svc.URL).Convert(context.Background(), "UTC", "Asia/Tokyo", 1)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if resp.Timezone != "Asia/Tokyo" {
		t.Errorf("Timezone = %q, want Asia/Tokyo", resp.Timezone)
	}
	parsed, err := resp.Time()
	if err != nil {
		t.Fatal(err)
	}
	// 12:00 UTC + 1h = 13:00 UTC = 22:00 JST.
	if got := parsed.Format("15:04:05"); got != "22:00:00" {
		t.Errorf("wall clock = %s, want 22:00:00", got)
	}

	want := &timeapi.ConvertTimeRequest{FromTimezone: "UTC", ToTimezone: "Asia/Tokyo", OffsetHours: 1}
	if diff := cmp.Diff(want, svc.CallsTo(timeapi.PathConvert)[0].Convert); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidTimezoneIsStatusError(t *testing.T) {
	svc := timeapitest.New()
	defer svc.Close()

	_, err := newClient(t, svc.URL, timeapi.WithAttempts(3)).LocalTime(context.Background(), "Mars/Olympus", 0)
	if !errors.Is(err, timeapi.ErrInvalidTimezone) {
		t.Fatalf("error = %v, want ErrInvalidTimezone", err)
	}
	var statusErr *timeapi.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusBadRequest {
		t.Fatalf("error = %v, want StatusError 400", err)
	}
	// 4xx is never retried.
	if n := len(svc.CallsTo(timeapi.PathLocal)); n != 1 {
		t.Errorf("local calls = %d, want 1", n)
	}
}

func TestServerErrorsRetryOnlyWhenConfigured(t *testing.T) {
	tests := []struct {
		name      string
		attempts  uint
		wantCalls int
	}{
		{"default single attempt", 0, 1},
		{"three attempts", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := timeapitest.New()
			defer svc.Close()
			svc.FailWith(timeapi.PathConvert, http.StatusServiceUnavailable)

			var opts []timeapi.Option
			if tt.attempts > 0 {
				opts = append(opts, timeapi.WithAttempts(tt.attempts), timeapi.WithRetryDelay(0))
			}
			_, err := newClient(t, svc.URL, opts...).Convert(context.Background(), "UTC", "Asia/Tokyo", 0)
			var statusErr *timeapi.StatusError
			if !errors.As(err, &statusErr) || statusErr.Code != http.StatusServiceUnavailable {
				t.Fatalf("error = %v, want StatusError 503", err)
			}
			if n := len(svc.CallsTo(timeapi.PathConvert)); n != tt.wantCalls {
				t.Errorf("convert calls = %d, want %d", n, tt.wantCalls)
			}
		})
	}
}

func TestUndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>not json</html>")
	}))
	defer srv.Close()

	if _, err := newClient(t, srv.URL).ListTimezones(context.Background()); err == nil {
		t.Fatal("ListTimezones succeeded on HTML body, want error")
	}
}

func TestCatalogClientIsUsedForList(t *testing.T) {
	svc := timeapitest.New("UTC")
	defer svc.Close()

	var catalogHits atomic.Int32
	catalog := doerFunc(func(req *http.Request) (*http.Response, error) {
		catalogHits.Add(1)
		return http.DefaultClient.Do(req)
	})

	client := newClient(t, svc.URL, timeapi.WithCatalogClient(catalog))
	if _, err := client.ListTimezones(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := client.LocalTime(context.Background(), "UTC", 0); err != nil {
		t.Fatal(err)
	}
	if got := catalogHits.Load(); got != 1 {
		t.Errorf("catalog transport hits = %d, want 1", got)
	}
}

func TestHealth(t *testing.T) {
	svc := timeapitest.New()
	defer svc.Close()

	if err := newClient(t, svc.URL).Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }
