// Package config holds the tetraview settings. Values come from the YAML
// config file, TETRAVIEW_* environment variables and command line flags,
// merged by viper and decoded into Config.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ghodss/yaml"
	"github.com/spf13/viper"

	"github.com/notargets/tetraview/transport"
)

const EnvPrefix = "TETRAVIEW"

type Config struct {
	Server   Server   `json:"server"`
	Scene    Scene    `json:"scene"`
	Progress Progress `json:"progress"`
	Readers  Readers  `json:"readers"`
	Log      Log      `json:"log"`
}

type Server struct {
	BaseURL     string   `json:"base_url"` // overrides Origin/DevPort when set
	Origin      string   `json:"origin"`
	DevPort     int      `json:"dev_port"`
	Timeout     Duration `json:"timeout"`
	Listen      string   `json:"listen"`
	StaticDir   string   `json:"static_dir"`
	DemoPayload string   `json:"demo_payload"`
	Upstream    string   `json:"upstream"`
}

type Scene struct {
	Edges  bool    `json:"edges"`
	Margin float32 `json:"margin"`
	FOV    float32 `json:"fov"`
}

type Progress struct {
	LocalWeight float64 `json:"local_weight"`
}

type Readers struct {
	Weld bool `json:"weld"`
}

type Log struct {
	Level string `json:"level"`
}

func Default() *Config {
	return &Config{
		Server: Server{
			Origin:  "http://localhost:8000",
			Timeout: Duration{5 * time.Minute},
			Listen:  "0.0.0.0:8000",
		},
		Scene:    Scene{Edges: true, Margin: 1.2, FOV: 50},
		Progress: Progress{LocalWeight: 50},
		Readers:  Readers{Weld: true},
		Log:      Log{Level: "info"},
	}
}

// Parse overlays YAML data onto c; keys missing from data keep their value.
func (c *Config) Parse(data []byte) error {
	return yaml.Unmarshal(data, c)
}

func (c *Config) Validate() error {
	var problems []string
	if c.Server.BaseURL != "" {
		if u, err := url.Parse(c.Server.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("server.base_url %q is not an absolute URL", c.Server.BaseURL))
		}
	}
	if c.Server.DevPort < 0 || c.Server.DevPort > 65535 {
		problems = append(problems, fmt.Sprintf("server.dev_port %d out of range", c.Server.DevPort))
	}
	if c.Server.Timeout.Duration < 0 {
		problems = append(problems, "server.timeout is negative")
	}
	if c.Scene.Margin <= 0 {
		problems = append(problems, fmt.Sprintf("scene.margin %v must be positive", c.Scene.Margin))
	}
	if c.Scene.FOV <= 0 || c.Scene.FOV >= 180 {
		problems = append(problems, fmt.Sprintf("scene.fov %v must be between 0 and 180 degrees", c.Scene.FOV))
	}
	if c.Progress.LocalWeight <= 0 || c.Progress.LocalWeight >= 100 {
		problems = append(problems, fmt.Sprintf("progress.local_weight %v must be between 0 and 100", c.Progress.LocalWeight))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level: %v", err))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ServiceURL is the base address of the tetrahedralization service.
func (c *Config) ServiceURL() (string, error) {
	if c.Server.BaseURL != "" {
		return c.Server.BaseURL, nil
	}
	return transport.ResolveBaseURL(c.Server.Origin, c.Server.DevPort)
}

// Print writes the settings as sorted key = value lines.
func (c *Config) Print(w io.Writer) error {
	settings, err := c.flatten()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err = fmt.Fprintf(w, "%-22s = %v\n", k, settings[k]); err != nil {
			return err
		}
	}
	return nil
}

// flatten returns the dotted keys of c and their values.
func (c *Config) flatten() (map[string]interface{}, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var nested map[string]interface{}
	if err = json.Unmarshal(data, &nested); err != nil {
		return nil, err
	}
	flat := make(map[string]interface{})
	for section, v := range nested {
		for key, value := range v.(map[string]interface{}) {
			flat[section+"."+key] = value
		}
	}
	return flat, nil
}

// SetDefaults registers every key with its default value so that
// environment variables are seen for keys absent from the config file.
func SetDefaults(v *viper.Viper) error {
	defaults, err := Default().flatten()
	if err != nil {
		return err
	}
	for k, value := range defaults {
		v.SetDefault(k, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return nil
}

// FromViper reads every known key from v, typed after its default, and
// decodes the result. Environment values arrive as strings, so they are
// converted here rather than by the YAML decoder.
func FromViper(v *viper.Viper) (*Config, error) {
	defaults, err := Default().flatten()
	if err != nil {
		return nil, err
	}
	nested := make(map[string]map[string]interface{})
	for key, def := range defaults {
		section, name, _ := strings.Cut(key, ".")
		if nested[section] == nil {
			nested[section] = make(map[string]interface{})
		}
		switch def.(type) {
		case bool:
			nested[section][name] = v.GetBool(key)
		case float64:
			nested[section][name] = v.GetFloat64(key)
		default:
			nested[section][name] = v.GetString(key)
		}
	}
	data, err := yaml.Marshal(nested)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err = c.Parse(data); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err = c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Duration accepts "90s" style strings or a number of seconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value * float64(time.Second))
	case string:
		if secs, err := strconv.ParseFloat(value, 64); err == nil {
			d.Duration = time.Duration(secs * float64(time.Second))
			return nil
		}
		dur, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = dur
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}
