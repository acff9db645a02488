package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the configuration struct for the service.
type Config struct {
	// BaseURL is the orchestrator api base url.
	BaseURL string `yaml:"baseurl"`
	// RunID is the id of the run to watch.
	RunID string `yaml:"run"`
	// ListRuns lists recent runs instead of watching one.
	ListRuns bool `yaml:"list"`
	// Follow keeps refreshing the run list on a schedule.
	Follow bool `yaml:"follow"`
	// Sweep enqueues a new mm mtf sweep preset run and watches it.
	Sweep bool `yaml:"sweep"`
	// Symbol is the sweep market symbol.
	Symbol string `yaml:"symbol"`
	// Start is the sweep start date.
	Start string `yaml:"start"`
	// End is the sweep end date.
	End string `yaml:"end"`
	// MakerFeeBpsList is the sweep maker fee candidates in basis points.
	MakerFeeBpsList string `yaml:"makerfeebpslist"`
	// HtfInterval is the sweep higher timeframe interval in minutes.
	HtfInterval string `yaml:"htfinterval"`
	// LtfInterval is the sweep lower timeframe interval in minutes.
	LtfInterval string `yaml:"ltfinterval"`
	// TopN is the number of top sweep results to keep.
	TopN int `yaml:"topn"`
	// DatabaseEndpoint is the optional run archive endpoint.
	DatabaseEndpoint string `yaml:"databaseendpoint"`
	// DatabaseUser is the run archive database user.
	DatabaseUser string `yaml:"databaseuser"`
	// DatabasePass is the run archive database user pass.
	DatabasePass string `yaml:"databasepass"`
	// CanvasWidth is the chart canvas width in pixels.
	CanvasWidth int `yaml:"canvaswidth"`
	// CanvasHeight is the chart canvas height in pixels.
	CanvasHeight int `yaml:"canvasheight"`

	registeredFlags map[string]bool
}

// Validate asserts the config has sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.BaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("orchestrator base url cannot be an empty string"))
	}

	modes := 0
	if cfg.RunID != "" {
		modes++
	}
	if cfg.ListRuns {
		modes++
	}
	if cfg.Sweep {
		modes++
	}
	switch {
	case modes == 0:
		errs = errors.Join(errs, fmt.Errorf("one of run, list or sweep must be provided"))
	case modes > 1:
		errs = errors.Join(errs, fmt.Errorf("run, list and sweep are mutually exclusive"))
	}

	if cfg.Sweep {
		if cfg.Symbol == "" {
			errs = errors.Join(errs, fmt.Errorf("sweep symbol cannot be an empty string"))
		}
		if cfg.Start == "" || cfg.End == "" {
			errs = errors.Join(errs, fmt.Errorf("sweep start and end dates cannot be empty strings"))
		}
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
// Environment variables take precedence over config file values as flag defaults.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		def := *value.(*string)
		if defValue != "" {
			def = defValue
		}
		flag.StringVar(value.(*string), name, def, usage)
	case reflect.Bool:
		def := *value.(*bool)
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		def := *value.(*int)
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfigFile loads configuration defaults from a yaml file when one exists.
func loadConfigFile(cfg *Config, path string) error {
	if path == "" {
		path = "pulse.yml"
	}

	_, err := os.Stat(path)
	if err != nil {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// loadConfig loads the configuration from the config file, environment
// variables and command line flags, in ascending order of precedence.
func loadConfig(cfg *Config, envPath string, configPath string) error {
	if envPath == "" {
		envPath = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(envPath)
	if err == nil {
		err := godotenv.Load(envPath)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	err = loadConfigFile(cfg, configPath)
	if err != nil {
		return err
	}

	// Register command line arguments using loaded environment variables and
	// config file values as defaults.
	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"baseurl", &cfg.BaseURL, "the orchestrator api base url"},
		{"run", &cfg.RunID, "the id of the run to watch"},
		{"list", &cfg.ListRuns, "list recent runs"},
		{"follow", &cfg.Follow, "keep refreshing the run list"},
		{"sweep", &cfg.Sweep, "enqueue a new mm mtf sweep run and watch it"},
		{"symbol", &cfg.Symbol, "the sweep market symbol"},
		{"start", &cfg.Start, "the sweep start date"},
		{"end", &cfg.End, "the sweep end date"},
		{"makerfeebpslist", &cfg.MakerFeeBpsList, "the sweep maker fee candidates (bps)"},
		{"htfinterval", &cfg.HtfInterval, "the sweep higher timeframe interval (minutes)"},
		{"ltfinterval", &cfg.LtfInterval, "the sweep lower timeframe interval (minutes)"},
		{"topn", &cfg.TopN, "the number of top sweep results to keep"},
		{"databaseendpoint", &cfg.DatabaseEndpoint, "the run archive database endpoint"},
		{"databaseuser", &cfg.DatabaseUser, "the run archive database user"},
		{"databasepass", &cfg.DatabasePass, "the run archive database pass"},
		{"canvaswidth", &cfg.CanvasWidth, "the chart canvas width"},
		{"canvasheight", &cfg.CanvasHeight, "the chart canvas height"},
	}

	for idx := range flags {
		err = cfg.registerFlag(flags[idx].name, flags[idx].value, flags[idx].usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}

// sweepTopN clamps the configured top n to the range accepted by the api,
// falling back to the api default when unset.
func (cfg *Config) sweepTopN() int {
	const (
		defaultTopN = 30
		minTopN     = 1
		maxTopN     = 200
	)

	switch {
	case cfg.TopN == 0:
		return defaultTopN
	case cfg.TopN < minTopN:
		return minTopN
	case cfg.TopN > maxTopN:
		return maxTopN
	default:
		return cfg.TopN
	}
}
