package config

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/ironsheep/maze-ar-mcp/internal/tracking"
)

// EnvPrefix is prepended to every configuration key.
const EnvPrefix = "MAZE_MCP_"

// Config holds server and tracking settings.
type Config struct {
	LogLevel  string `validate:"oneof=trace debug info warn error"`
	LogFormat string `validate:"oneof=text json nested"`

	// LogFile, when set, receives a rotated copy of the log stream.
	LogFile string

	// MaxDimension bounds the longer side of loaded frames; 0 disables
	// downsampling.
	MaxDimension int `validate:"gte=0,lte=16384"`

	TemplateRadius int     `validate:"gte=1,lte=64"`
	SearchRadius   int     `validate:"gte=1,lte=256"`
	BlurRadius     float64 `validate:"gte=0,lte=16"`

	RANSACIterations int     `validate:"gte=1,lte=100000"`
	RANSACThreshold  float64 `validate:"gt=0,lte=100"`

	// RANSACSeed seeds sampling. Zero uses the tracker's fixed default.
	RANSACSeed int64
}

// Default returns the built-in configuration.
func Default() Config {
	bm := tracking.NewBlockMatcher()
	rc := tracking.DefaultRANSACConfig()
	return Config{
		LogLevel:         "info",
		LogFormat:        "text",
		MaxDimension:     1024,
		TemplateRadius:   bm.TemplateRadius,
		SearchRadius:     bm.SearchRadius,
		BlurRadius:       bm.BlurRadius,
		RANSACIterations: rc.Iterations,
		RANSACThreshold:  rc.Threshold,
	}
}

var validate = validator.New()

// Validate checks every field against its allowed range.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads envFiles into the environment (missing files are ignored) and
// then builds the configuration from the environment. Variables already set
// take precedence over file values.
func Load(envFiles ...string) (*Config, error) {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a validated configuration from lookup, starting from
// Default. Keys are looked up with EnvPrefix.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	c := Default()
	p := parser{lookup: lookup}

	p.stringVar("LOG_LEVEL", &c.LogLevel)
	p.stringVar("LOG_FORMAT", &c.LogFormat)
	p.stringVar("LOG_FILE", &c.LogFile)
	p.intVar("MAX_DIMENSION", &c.MaxDimension)
	p.intVar("TEMPLATE_RADIUS", &c.TemplateRadius)
	p.intVar("SEARCH_RADIUS", &c.SearchRadius)
	p.floatVar("BLUR_RADIUS", &c.BlurRadius)
	p.intVar("RANSAC_ITERATIONS", &c.RANSACIterations)
	p.floatVar("RANSAC_THRESHOLD", &c.RANSACThreshold)
	p.int64Var("RANSAC_SEED", &c.RANSACSeed)

	if len(p.errs) > 0 {
		return nil, fmt.Errorf("invalid config: %w", errors.Join(p.errs...))
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// TrackingConfig builds a tracker configuration. Each call returns an
// independent random source.
func (c *Config) TrackingConfig() tracking.Config {
	bm := tracking.NewBlockMatcher()
	bm.TemplateRadius = c.TemplateRadius
	bm.SearchRadius = c.SearchRadius
	bm.BlurRadius = c.BlurRadius

	rc := tracking.RANSACConfig{Iterations: c.RANSACIterations, Threshold: c.RANSACThreshold}
	if c.RANSACSeed != 0 {
		rc.Rand = rand.New(rand.NewSource(c.RANSACSeed))
	}
	return tracking.Config{Matcher: bm, RANSAC: rc}
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(EnvPrefix + key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) stringVar(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) intVar(key string, dst *int) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return
	}
	*dst = n
}

func (p *parser) int64Var(key string, dst *int64) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return
	}
	*dst = n
}

func (p *parser) floatVar(key string, dst *float64) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return
	}
	*dst = f
}
