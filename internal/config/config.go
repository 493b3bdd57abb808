// Package config resolves client settings from defaults, ~/.trackflow/config.json
// and TRACKFLOW_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "TRACKFLOW"
	DefaultAPIURL  = "http://127.0.0.1:8000"
	DefaultTimeout = 10 * time.Second
)

type Config struct {
	APIURL    string
	Timeout   time.Duration
	LogLevel  string
	LogFile   string
	Theme     string
	DevServer DevServerConfig
}

type DevServerConfig struct {
	Addr   string
	DBPath string
}

// Keys lists the settable keys, for `config set` and `config show`.
var Keys = []string{"api_url", "timeout", "log_level", "log_file", "theme", "dev_server.addr", "dev_server.db"}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.trackflow).
	if v := strings.TrimSpace(os.Getenv("TRACKFLOW_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".trackflow"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("timeout", DefaultTimeout.String())
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", filepath.Join(dir, "trackflow.log"))
	v.SetDefault("theme", "auto")
	v.SetDefault("dev_server.addr", "127.0.0.1:8000")
	v.SetDefault("dev_server.db", filepath.Join(dir, "devserver.sqlite"))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads config.json when present. Environment variables override the file.
func Load() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	v := newViper(dir)
	v.SetConfigFile(filepath.Join(dir, "config.json"))
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	timeout, err := parseTimeout(v.GetString("timeout"))
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		APIURL:   strings.TrimRight(strings.TrimSpace(v.GetString("api_url")), "/"),
		Timeout:  timeout,
		LogLevel: v.GetString("log_level"),
		LogFile:  v.GetString("log_file"),
		Theme:    strings.ToLower(strings.TrimSpace(v.GetString("theme"))),
		DevServer: DevServerConfig{
			Addr:   v.GetString("dev_server.addr"),
			DBPath: v.GetString("dev_server.db"),
		},
	}
	if err := ValidateAPIURL(cfg.APIURL); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateAPIURL requires an absolute http(s) URL.
func ValidateAPIURL(s string) error {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return fmt.Errorf("api_url must start with http:// or https:// (got %q)", s)
	}
	if !govalidator.IsURL(s) {
		return fmt.Errorf("api_url is not a valid URL: %q", s)
	}
	return nil
}

func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if govalidator.IsInt(s) {
		s += "s"
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("timeout must be a positive duration (got %q)", s)
	}
	return d, nil
}

// Set persists one key into config.json, keeping the other keys as they are.
func Set(key, value string) error {
	if !knownKey(key) {
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys, ", "))
	}
	switch key {
	case "api_url":
		value = strings.TrimRight(strings.TrimSpace(value), "/")
		if err := ValidateAPIURL(value); err != nil {
			return err
		}
	case "timeout":
		if _, err := parseTimeout(value); err != nil {
			return err
		}
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}
	raw := map[string]any{}
	if b, err := os.ReadFile(path); err == nil && len(b) > 0 {
		if err := json.Unmarshal(b, &raw); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if parent, child, ok := strings.Cut(key, "."); ok {
		sub, _ := raw[parent].(map[string]any)
		if sub == nil {
			sub = map[string]any{}
		}
		sub[child] = value
		raw[parent] = sub
	} else {
		raw[key] = value
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

// Settings flattens cfg for display.
func (c *Config) Settings() map[string]string {
	return map[string]string{
		"api_url":         c.APIURL,
		"timeout":         c.Timeout.String(),
		"log_level":       c.LogLevel,
		"log_file":        c.LogFile,
		"theme":           c.Theme,
		"dev_server.addr": c.DevServer.Addr,
		"dev_server.db":   c.DevServer.DBPath,
	}
}

func knownKey(k string) bool {
	i := sort.SearchStrings(sortedKeys, k)
	return i < len(sortedKeys) && sortedKeys[i] == k
}

var sortedKeys = func() []string {
	out := append([]string(nil), Keys...)
	sort.Strings(out)
	return out
}()

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(perm); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
