// Package config loads and validates tzclock settings.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"gopkg.in/yaml.v3"

	"github.com/codeGROOVE-dev/tzclock/pkg/clockwidget"
)

// DefaultAPI is the time service used when nothing else is configured.
const DefaultAPI = "http://localhost:8000"

// Environment variables consulted by ApplyEnv.
const (
	EnvAPI      = "TZCLOCK_API"
	EnvTarget   = "TZCLOCK_TARGET"
	EnvCacheDir = "CACHE_DIR"
)

// ErrTranslatorNotFound indicates the English translator could not be built.
var ErrTranslatorNotFound = errors.New("translator not found")

// Config holds every tunable of the CLI.
type Config struct {
	API        string             `yaml:"api" validate:"required,url"`
	Target     string             `yaml:"target"`
	Timezone   string             `yaml:"timezone"`
	Offset     float64            `yaml:"offset"`
	Slider     clockwidget.Slider `yaml:"slider"`
	Interval   time.Duration      `yaml:"interval" validate:"gte=100ms"`
	Timeout    time.Duration      `yaml:"timeout" validate:"gt=0"`
	Attempts   uint               `yaml:"attempts" validate:"min=1,max=10"`
	RetryDelay time.Duration      `yaml:"retry_delay" validate:"gte=0"`
	CacheDir   string             `yaml:"cache_dir"`
	CacheTTL   time.Duration      `yaml:"cache_ttl" validate:"gte=0"`
	Sequenced  bool               `yaml:"sequenced"`
	NoColor    bool               `yaml:"no_color"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		API:        DefaultAPI,
		Slider:     clockwidget.DefaultSlider,
		Interval:   time.Second,
		Timeout:    10 * time.Second,
		Attempts:   1,
		RetryDelay: 250 * time.Millisecond,
		CacheTTL:   24 * time.Hour,
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := Decode(bytes.NewReader(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays YAML from r onto cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPI); ok && strings.TrimSpace(v) != "" {
		c.API = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvTarget); ok && strings.TrimSpace(v) != "" {
		c.Target = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvCacheDir); ok && v != "" {
		c.CacheDir = v
	}
}

// ValidationError maps a yaml field name to a readable message.
type ValidationError map[string]string

func (ve ValidationError) Error() string {
	if len(ve) == 0 {
		return "validation error"
	}
	b, err := json.Marshal(ve)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return "invalid config: " + string(b)
}

// Validator checks a Config against its struct tags.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator builds a Validator with English messages.
func NewValidator() (*Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(yamlName)

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	trans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, fmt.Errorf("registering translations: %w", err)
	}
	return &Validator{validate: validate, translator: trans}, nil
}

// Validate returns a ValidationError listing every failing field.
func (v *Validator) Validate(cfg Config) error {
	err := v.validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	ve := make(ValidationError, len(fieldErrs))
	for _, fe := range fieldErrs {
		ve[strings.TrimPrefix(fe.Namespace(), "Config.")] = fe.Translate(v.translator)
	}
	return ve
}

// Validate checks cfg with a fresh Validator.
func Validate(cfg Config) error {
	v, err := NewValidator()
	if err != nil {
		return err
	}
	return v.Validate(cfg)
}

func yamlName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
