package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const validYAML = `
version: "1"
server:
  http_port: 9090
integrator:
  client_id: team42
  client_secret: s3cret
upstream:
  base_domain: open.bankingapi.ru
  timeout: 15s
banks:
  - name: vbank
  - name: sbank
    base_url: https://sbank.example.test
`

func TestParseValid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.HTTPPort)
	require.Equal(t, "team42", cfg.Integrator.ClientID)
	require.Equal(t, 15*time.Second, cfg.Upstream.Timeout)

	// Defaults survive partial configs.
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, "X-API-Key", cfg.API.Auth.HeaderName)
}

func TestBankBaseURLDerivation(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	vbank := cfg.Banks[0].Bank(cfg.Upstream.BaseDomain)
	require.Equal(t, "https://vbank.open.bankingapi.ru", vbank.BaseURL)

	sbank := cfg.Banks[1].Bank(cfg.Upstream.BaseDomain)
	require.Equal(t, "https://sbank.example.test", sbank.BaseURL)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing client id", `
integrator:
  client_secret: s
`},
		{"missing client secret", `
integrator:
  client_id: c
`},
		{"duplicate bank", `
integrator:
  client_id: c
  client_secret: s
banks:
  - name: vbank
  - name: vbank
`},
		{"bad bank name", `
integrator:
  client_id: c
  client_secret: s
banks:
  - name: "v bank"
`},
		{"telegram enabled without token", `
integrator:
  client_id: c
  client_secret: s
telegram:
  enabled: true
`},
		{"not yaml", "{{{"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoaderEnvSubstitution(t *testing.T) {
	t.Setenv("MULTIBANK_TEST_SECRET", "from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
integrator:
  client_id: team42
  client_secret: ${MULTIBANK_TEST_SECRET}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Integrator.ClientSecret)
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	require.Error(t, err)
}

func TestLoaderReloadCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))

	loader := NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)

	var got *Config
	loader.SetOnChange(func(c *Config) { got = c })

	_, err = loader.Reload()
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, loader.Get(), got)
}
