package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucax88x/deskwatch/internal/homedir"
	"github.com/lucax88x/deskwatch/internal/record"
	"github.com/lucax88x/deskwatch/internal/vdesktop"
	"github.com/lucax88x/deskwatch/internal/vdesktop/events"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// viper keys, shared by flags, env vars and the yaml file.
const (
	KeyConfig    = "config"
	KeyLogLevel  = "log_level"
	KeyBuffer    = "buffer"
	KeyFormat    = "format"
	KeyPidFile   = "pid_file"
	KeyServeAddr = "serve.addr"
)

const EnvPrefix = "DESKWATCH"

const fileName = "config.yaml"

type ServeCfg struct {
	Addr string `yaml:"addr"`
}

// Cfg is the effective configuration. Hooks maps an event name to the
// commands run when it occurs, every command being an argv list.
type Cfg struct {
	LogLevel string                `yaml:"log_level"`
	Buffer   int                   `yaml:"buffer"`
	Format   string                `yaml:"format"`
	PidFile  string                `yaml:"pid_file"`
	Serve    ServeCfg              `yaml:"serve"`
	Hooks    map[string][][]string `yaml:"hooks"`
}

func Default() *Cfg {
	return &Cfg{
		LogLevel: "info",
		Buffer:   vdesktop.DefaultBuffer,
		Format:   record.FormatText,
		PidFile:  filepath.Join(os.TempDir(), "deskwatch.pid"),
		Serve: ServeCfg{
			Addr: "127.0.0.1:7625",
		},
	}
}

// Path returns the default location of the config file.
func Path() (string, error) {
	dir, err := homedir.Get()

	if err != nil {
		//nolint:errorlint // no wrap
		return "", fmt.Errorf("config: error getting home dir. %v", err)
	}

	return filepath.Join(dir, fileName), nil
}

// ReadYaml overlays the file at path on top of cfg.
func ReadYaml(path string, cfg *Cfg) error {
	yamlData, err := os.ReadFile(path)

	if err != nil {
		return fmt.Errorf("config: could not read file: %w", err)
	}

	err = yaml.UnmarshalStrict(yamlData, cfg)

	if err != nil {
		//nolint:errorlint // no wrap
		return fmt.Errorf("config: could not unmarshal cfg. %v", err)
	}

	return nil
}

// Load builds the effective configuration: defaults, then the yaml file, then
// whatever viper has from flags and DESKWATCH_* env vars.
func Load(logger *slog.Logger, v *viper.Viper) (*Cfg, error) {
	cfg := Default()

	path := v.GetString(KeyConfig)
	explicit := path != ""

	if !explicit {
		var err error
		path, err = Path()
		if err != nil {
			return nil, err
		}
	}

	err := ReadYaml(path, cfg)

	switch {
	case err == nil:
		logger.Debug("config: loaded", slog.String("path", path))
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		logger.Debug("config: no config file, using defaults", slog.String("path", path))
	default:
		return nil, err
	}

	if v.IsSet(KeyLogLevel) {
		cfg.LogLevel = v.GetString(KeyLogLevel)
	}
	if v.IsSet(KeyBuffer) {
		cfg.Buffer = v.GetInt(KeyBuffer)
	}
	if v.IsSet(KeyFormat) {
		cfg.Format = v.GetString(KeyFormat)
	}
	if v.IsSet(KeyPidFile) {
		cfg.PidFile = v.GetString(KeyPidFile)
	}
	if v.IsSet(KeyServeAddr) {
		cfg.Serve.Addr = v.GetString(KeyServeAddr)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigureViper makes DESKWATCH_LOG_LEVEL, DESKWATCH_SERVE_ADDR and friends
// visible to Load.
func ConfigureViper(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func (c *Cfg) Validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("config: invalid log_level %q: %w", c.LogLevel, err)
	}

	if c.Buffer <= 0 {
		return fmt.Errorf("config: buffer must be positive, got %d", c.Buffer)
	}

	if !record.ValidFormat(c.Format) {
		return fmt.Errorf("config: invalid format %q", c.Format)
	}

	for name, commands := range c.Hooks {
		if !events.Valid(name) {
			return fmt.Errorf("config: unknown hook event %q, expected one of %s", name, strings.Join(events.All, ", "))
		}
		for i, argv := range commands {
			if len(argv) == 0 || argv[0] == "" {
				return fmt.Errorf("config: hook %d of %s has no command", i, name)
			}
		}
	}

	return nil
}
