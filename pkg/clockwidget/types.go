package clockwidget

// Display text for the two clock regions.
const (
	ErrorText        = "Error fetching time"
	PlaceholderText  = "Choose a timezone"
	PlaceholderLabel = "--"
	clockLayout      = "15:04:05"
	detailLayout     = "Mon 2006-01-02"
)

// State is the controller's model. LocalTimezone equals DetectedTimezone
// whenever AutoDetect is set.
type State struct {
	DetectedTimezone string  `json:"detected_timezone"`
	LocalTimezone    string  `json:"local_timezone"`
	TargetTimezone   string  `json:"target_timezone,omitempty"`
	OffsetHours      float64 `json:"offset_hours"`
	AutoDetect       bool    `json:"auto_detect"`
}

// Reading is one rendered clock.
type Reading struct {
	DisplayText   string
	TimezoneLabel string
	// Detail is the date and UTC offset of the reading, e.g. "Fri 2024-03-01 UTC+09:00".
	Detail string
}

// Slider bounds the offset control. Values outside [Min, Max] are still
// accepted and sent to the time service unchanged.
type Slider struct {
	Min  float64 `yaml:"min" validate:"ltfield=Max"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step" validate:"gt=0"`
}

// DefaultSlider is ±12 hours in half-hour steps.
var DefaultSlider = Slider{Min: -12, Max: 12, Step: 0.5}

// Region is one clock display area.
type Region struct {
	Reading
	// Failed is set when the last update was an error placeholder.
	Failed bool
	// Seq is the render that produced the current content.
	Seq uint64
}

// View is everything a renderer needs to paint the widget.
type View struct {
	DetectedTimezone   string
	LocalInput         string
	TargetInput        string
	OffsetLabel        string
	Suggestions        []string
	Local              Region
	Target             Region
	Slider             Slider
	SliderValue        float64
	AutoDetect         bool
	LocalInputDisabled bool
}

type regionID int

const (
	regionLocal regionID = iota
	regionTarget
	regionCount
)

func (r regionID) String() string {
	if r == regionLocal {
		return "local"
	}
	return "target"
}
