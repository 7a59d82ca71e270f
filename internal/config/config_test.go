package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/parley/pkg/runinput"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parley.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
store:
  backend: redis
  redis_url: redis://localhost:6379
poll:
  timeout: 5m
  interval: 2s
log:
  level: debug
  format: json
inputs:
  Approval:
    fields:
      - name: approved
        type: boolean
        required: true
      - name: reason
        type: string
        default: "n/a"
      - name: tags
        type: array
        default: []
`)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "default", config.Store.Namespace)
	assert.Equal(t, "debug", config.Log.Level)

	schema, err := config.Schema("Approval")
	require.NoError(t, err)
	assert.Equal(t, "Approval", schema.Name())

	fields := schema.Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, "approved", fields[0].Name)
	assert.True(t, fields[0].Required)
	assert.Equal(t, "n/a", fields[1].Default)
	assert.True(t, fields[2].HasDefault)

	out, err := schema.Validate([]byte(`{"approved": true}`))
	require.NoError(t, err)
	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"approved": true, "reason": "n/a", "tags": []}`, string(data))
}

func TestLoad_NullDefault(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
store:
  backend: memory
inputs:
  Note:
    fields:
      - name: text
        type: string
        required: true
        default: null
      - name: author
        type: string
`)

	config, err := Load(path)
	require.NoError(t, err)

	schema, err := config.Schema("Note")
	require.NoError(t, err)

	text, ok := schema.Field("text")
	require.True(t, ok)
	assert.True(t, text.HasDefault)
	assert.False(t, text.Required)
	assert.Nil(t, text.Default)

	author, _ := schema.Field("author")
	assert.False(t, author.HasDefault)

	out, err := schema.Validate([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"text": nil}, out)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/parley.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
store:
  - this is invalid
    yaml syntax
`)

	config, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv(EnvRedisURL, "redis://override:6380")

	path := writeConfig(t, `version: "1.0"
store:
  backend: redis
`)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis://override:6380", config.Store.RedisURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ParleyConfig)
		wantErr string
	}{
		{"default is valid", func(c *ParleyConfig) {}, ""},
		{"unsupported version", func(c *ParleyConfig) { c.Version = "2.0" }, "unsupported version: 2.0"},
		{"missing backend", func(c *ParleyConfig) { c.Store.Backend = "" }, "store.backend is required"},
		{"unknown backend", func(c *ParleyConfig) { c.Store.Backend = "etcd" }, "invalid store.backend"},
		{"redis without url", func(c *ParleyConfig) { c.Store.RedisURL = "" }, "store.redis_url is required"},
		{"postgres without dsn", func(c *ParleyConfig) { c.Store.Backend = BackendPostgres }, "store.postgres_dsn is required"},
		{"memory needs nothing", func(c *ParleyConfig) { c.Store = StoreConfig{Backend: BackendMemory} }, ""},
		{"bad timeout", func(c *ParleyConfig) { c.Poll.Timeout = "soon" }, "invalid poll.timeout"},
		{"zero interval", func(c *ParleyConfig) { c.Poll.Interval = "0s" }, "poll.interval must be > 0"},
		{"negative initial delay", func(c *ParleyConfig) { c.Poll.InitialDelay = "-1s" }, "poll.initial_delay must be >= 0"},
		{"bad log level", func(c *ParleyConfig) { c.Log.Level = "loud" }, "invalid log level"},
		{"unknown field type", func(c *ParleyConfig) {
			c.Inputs["Bad"] = InputConfig{Fields: []FieldConfig{{Name: "x", Type: "date"}}}
		}, "input 'Bad'"},
		{"duplicate field", func(c *ParleyConfig) {
			c.Inputs["Dup"] = InputConfig{Fields: []FieldConfig{{Name: "x"}, {Name: "x"}}}
		}, "duplicate field 'x'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPollConfig_Options(t *testing.T) {
	opts, err := PollConfig{}.Options()
	require.NoError(t, err)
	assert.Empty(t, opts)

	opts, err = PollConfig{Timeout: "1m", Interval: "1s", InitialDelay: "0s", RaiseTimeoutError: true}.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 4)
}

func TestSchema_Undeclared(t *testing.T) {
	_, err := Default().Schema("Nope")
	assert.ErrorContains(t, err, "not declared")
}

func TestInputNames(t *testing.T) {
	config := Default()
	config.Inputs["Comment"] = InputConfig{Fields: []FieldConfig{{Name: "text", Type: "string"}}}
	assert.Equal(t, []string{"Approval", "Comment"}, config.InputNames())
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.yml")

	require.NoError(t, Default().Write(path, false))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Store, loaded.Store)

	schema, err := loaded.Schema("Approval")
	require.NoError(t, err)
	reason, ok := schema.Field("reason")
	require.True(t, ok)
	assert.Equal(t, "", reason.Default)
	assert.Equal(t, runinput.KindString, reason.Kind)

	t.Run("refuses to overwrite", func(t *testing.T) {
		err := Default().Write(path, false)
		assert.ErrorContains(t, err, "already exists")
	})

	t.Run("force overwrites", func(t *testing.T) {
		assert.NoError(t, Default().Write(path, true))
	})
}
