package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	fileInput := []byte(`
server:
  origin: https://viewer.example.com
  dev_port: 5173
  timeout: 90s
scene:
  edges: false
  fov: 35
progress:
  local_weight: 30
log:
  level: debug
`)
	c := Default()
	require.NoError(t, c.Parse(fileInput))
	require.NoError(t, c.Validate())

	assert.Equal(t, "https://viewer.example.com", c.Server.Origin)
	assert.Equal(t, 5173, c.Server.DevPort)
	assert.Equal(t, 90*time.Second, c.Server.Timeout.Duration)
	assert.False(t, c.Scene.Edges)
	assert.Equal(t, float32(35), c.Scene.FOV)
	// untouched keys keep their defaults
	assert.Equal(t, float32(1.2), c.Scene.Margin)
	assert.True(t, c.Readers.Weld)
	assert.Equal(t, "0.0.0.0:8000", c.Server.Listen)

	url, err := c.ServiceURL()
	require.NoError(t, err)
	assert.Equal(t, "https://viewer.example.com:5173", url)

	c.Server.BaseURL = "http://10.0.0.2:9000"
	url, err = c.ServiceURL()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:9000", url)
}

func TestTimeoutInSeconds(t *testing.T) {
	c := Default()
	require.NoError(t, c.Parse([]byte("server:\n  timeout: 2.5\n")))
	assert.Equal(t, 2500*time.Millisecond, c.Server.Timeout.Duration)
	assert.Error(t, c.Parse([]byte("server:\n  timeout: soon\n")))
}

func TestValidate(t *testing.T) {
	tests := map[string]func(c *Config){
		"base_url":     func(c *Config) { c.Server.BaseURL = "localhost" },
		"dev_port":     func(c *Config) { c.Server.DevPort = 70000 },
		"timeout":      func(c *Config) { c.Server.Timeout.Duration = -time.Second },
		"margin":       func(c *Config) { c.Scene.Margin = 0 },
		"fov":          func(c *Config) { c.Scene.FOV = 180 },
		"local_weight": func(c *Config) { c.Progress.LocalWeight = 100 },
		"level":        func(c *Config) { c.Log.Level = "loud" },
	}
	require.NoError(t, Default().Validate())
	for name, breakIt := range tests {
		c := Default()
		breakIt(c)
		err := c.Validate()
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), name)
	}
}

func TestPrint(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, Default().Print(&b))
	out := b.String()
	assert.Contains(t, out, "scene.margin           = 1.2\n")
	assert.Contains(t, out, "server.timeout         = 5m0s\n")
	assert.Less(t, bytes.Index(b.Bytes(), []byte("log.level")), bytes.Index(b.Bytes(), []byte("server.origin")))
}

func TestFromViper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tetraview.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scene:\n  margin: 1.5\nreaders:\n  weld: false\n"), 0o644))
	t.Setenv("TETRAVIEW_SERVER_DEV_PORT", "5173")
	t.Setenv("TETRAVIEW_SCENE_EDGES", "false")
	t.Setenv("TETRAVIEW_SERVER_TIMEOUT", "45")

	v := viper.New()
	require.NoError(t, SetDefaults(v))
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	c, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), c.Scene.Margin)
	assert.False(t, c.Readers.Weld)
	assert.Equal(t, 5173, c.Server.DevPort)
	assert.False(t, c.Scene.Edges)
	assert.Equal(t, 45*time.Second, c.Server.Timeout.Duration)
	assert.Equal(t, "info", c.Log.Level)

	t.Setenv("TETRAVIEW_LOG_LEVEL", "chatty")
	_, err = FromViper(v)
	assert.Error(t, err)
}
