// Package config loads the hotkeys command configuration from a TOML file,
// then applies HOTKEYS_* environment overrides (optionally read from .env).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jedisct1/dlog"
	"github.com/joho/godotenv"

	"github.com/IvanBrykalov/hotkeys/policy"
	"github.com/IvanBrykalov/hotkeys/topkeys"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HOTKEYS_"

// Config is the file format. Durations are whole seconds.
type Config struct {
	Capacity       int      `toml:"capacity"`
	Policy         string   `toml:"policy"`
	SketchDepth    int      `toml:"sketch_depth"`
	SketchWidth    int      `toml:"sketch_width"`
	Shards         int      `toml:"shards"`
	MaxKeyLen      int      `toml:"max_key_len"`
	MaxKeyBytes    int64    `toml:"max_key_bytes"`
	IgnorePrefixes []string `toml:"ignore_prefixes"`

	LogLevel      string `toml:"log_level"`
	LogFile       string `toml:"log_file"`
	ListenAddress string `toml:"listen_address"`
	DumpFile      string `toml:"dump_file"`
	DumpInterval  int    `toml:"dump_interval"`
	LogMaxSize    int    `toml:"log_max_size"`
	LogMaxAge     int    `toml:"log_max_age"`
	LogMaxBackups int    `toml:"log_max_backups"`

	// Synthetic workload
	Workers  int     `toml:"workers"`
	Duration int     `toml:"duration"`
	Keys     uint64  `toml:"keys"`
	ZipfS    float64 `toml:"zipf_s"`
	ZipfV    float64 `toml:"zipf_v"`
	Seed     int64   `toml:"seed"`
	WritePct int     `toml:"write_pct"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Capacity:      1000,
		Policy:        policy.SpaceSaving.String(),
		SketchDepth:   4,
		SketchWidth:   1 << 14,
		Shards:        1,
		MaxKeyLen:     topkeys.DefaultMaxKeyLen,
		LogLevel:      "notice",
		ListenAddress: "127.0.0.1:9108",
		DumpInterval:  10,
		LogMaxSize:    10,
		LogMaxAge:     7,
		LogMaxBackups: 3,
		Workers:       8,
		Duration:      30,
		Keys:          1 << 20,
		ZipfS:         1.1,
		ZipfV:         1,
		Seed:          1,
		WritePct:      10,
	}
}

// Load decodes path over Default. Unknown keys are an error. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("config %s: unsupported keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// LoadDotEnv reads .env files into the process environment without
// overriding variables already set. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				dlog.Debugf("no %s file, using the process environment", f)
				continue
			}
			return fmt.Errorf("env file %s: %w", f, err)
		}
		dlog.Debugf("loaded environment from %s", f)
	}
	return nil
}

// ApplyEnv overrides fields from HOTKEYS_<KEY> variables, where KEY is the
// upper-cased TOML key. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, f := range c.fields() {
		v, ok := lookup(EnvPrefix + strings.ToUpper(f.name))
		if !ok {
			continue
		}
		if err := f.set(strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%s%s=%q: %w", EnvPrefix, strings.ToUpper(f.name), v, err)
		}
	}
	return nil
}

type field struct {
	name string
	set  func(string) error
}

func (c *Config) fields() []field {
	return []field{
		{"capacity", intVar(&c.Capacity)},
		{"policy", stringVar(&c.Policy)},
		{"sketch_depth", intVar(&c.SketchDepth)},
		{"sketch_width", intVar(&c.SketchWidth)},
		{"shards", intVar(&c.Shards)},
		{"max_key_len", intVar(&c.MaxKeyLen)},
		{"max_key_bytes", int64Var(&c.MaxKeyBytes)},
		{"ignore_prefixes", listVar(&c.IgnorePrefixes)},
		{"log_level", stringVar(&c.LogLevel)},
		{"log_file", stringVar(&c.LogFile)},
		{"listen_address", stringVar(&c.ListenAddress)},
		{"dump_file", stringVar(&c.DumpFile)},
		{"dump_interval", intVar(&c.DumpInterval)},
		{"log_max_size", intVar(&c.LogMaxSize)},
		{"log_max_age", intVar(&c.LogMaxAge)},
		{"log_max_backups", intVar(&c.LogMaxBackups)},
		{"workers", intVar(&c.Workers)},
		{"duration", intVar(&c.Duration)},
		{"keys", uint64Var(&c.Keys)},
		{"zipf_s", floatVar(&c.ZipfS)},
		{"zipf_v", floatVar(&c.ZipfV)},
		{"seed", int64Var(&c.Seed)},
		{"write_pct", intVar(&c.WritePct)},
	}
}

func intVar(p *int) func(string) error {
	return func(s string) (err error) {
		*p, err = strconv.Atoi(s)
		return err
	}
}

func int64Var(p *int64) func(string) error {
	return func(s string) (err error) {
		*p, err = strconv.ParseInt(s, 10, 64)
		return err
	}
}

func uint64Var(p *uint64) func(string) error {
	return func(s string) (err error) {
		*p, err = strconv.ParseUint(s, 10, 64)
		return err
	}
}

func floatVar(p *float64) func(string) error {
	return func(s string) (err error) {
		*p, err = strconv.ParseFloat(s, 64)
		return err
	}
}

func stringVar(p *string) func(string) error {
	return func(s string) error {
		*p = s
		return nil
	}
}

// listVar splits on commas and drops empty items.
func listVar(p *[]string) func(string) error {
	return func(s string) error {
		var out []string
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*p = out
		return nil
	}
}

// Validate checks the fields the tracker does not check itself.
func (c Config) Validate() error {
	var errs []error
	if c.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("capacity must be > 0, got %d", c.Capacity))
	}
	if _, err := policy.ParseKind(c.Policy); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Severity(); err != nil {
		errs = append(errs, err)
	}
	if c.DumpInterval < 0 || c.Duration < 0 {
		errs = append(errs, fmt.Errorf("dump_interval and duration must be >= 0"))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be > 0, got %d", c.Workers))
	}
	if c.Keys == 0 {
		errs = append(errs, fmt.Errorf("keys must be > 0"))
	}
	if c.ZipfS <= 1 || c.ZipfV < 1 {
		errs = append(errs, fmt.Errorf("zipf_s must be > 1 and zipf_v >= 1, got %v/%v", c.ZipfS, c.ZipfV))
	}
	if c.WritePct < 0 || c.WritePct > 100 {
		errs = append(errs, fmt.Errorf("write_pct must be in [0,100], got %d", c.WritePct))
	}
	return errors.Join(errs...)
}

// TrackerOptions maps the file settings onto topkeys.Options.
func (c Config) TrackerOptions() (topkeys.Options, error) {
	kind, err := policy.ParseKind(c.Policy)
	if err != nil {
		return topkeys.Options{}, err
	}
	return topkeys.Options{
		Capacity:       c.Capacity,
		Kind:           kind,
		Sketch:         topkeys.SketchDims{Depth: c.SketchDepth, Width: c.SketchWidth},
		Shards:         c.Shards,
		MaxKeyLen:      c.MaxKeyLen,
		MaxKeyBytes:    c.MaxKeyBytes,
		IgnorePrefixes: c.IgnorePrefixes,
	}, nil
}

// Severity parses LogLevel as a dlog severity name or number.
func (c Config) Severity() (dlog.Severity, error) {
	s := strings.TrimSpace(c.LogLevel)
	for i, name := range dlog.SeverityName {
		if strings.EqualFold(s, name) || (strings.EqualFold(s, "warn") && dlog.Severity(i) == dlog.SeverityWarning) {
			return dlog.Severity(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(dlog.SeverityName) {
		return dlog.Severity(n), nil
	}
	return 0, fmt.Errorf("unknown log_level %q", c.LogLevel)
}

// DumpEvery returns DumpInterval as a duration (0 disables dumps).
func (c Config) DumpEvery() time.Duration { return time.Duration(c.DumpInterval) * time.Second }

// RunFor returns Duration as a duration (0 runs until interrupted).
func (c Config) RunFor() time.Duration { return time.Duration(c.Duration) * time.Second }
