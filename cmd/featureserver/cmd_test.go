package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/geojson-featureserver/internal/core/config"
)

const goodDoc = `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"name":"a"}}]}`

const badDoc = `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[0,0]]]},"properties":{}}]}`

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLint_CleanFile(t *testing.T) {
	var out bytes.Buffer
	n, err := lintFiles(&out, []string{writeTemp(t, "good.geojson", goodDoc)})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, out.String())
}

func TestLint_ReportsProblems(t *testing.T) {
	good := writeTemp(t, "good.geojson", goodDoc)
	bad := writeTemp(t, "bad.geojson", badDoc)
	broken := writeTemp(t, "broken.geojson", `{"type":`)

	var out bytes.Buffer
	n, err := lintFiles(&out, []string{good, bad, broken})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 2)
	assert.Contains(t, out.String(), bad+": ")
	assert.Contains(t, out.String(), broken+": $: ")
	assert.NotContains(t, out.String(), good)
}

func TestLintCmd_ExitsWithErrorOnProblems(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"lint", writeTemp(t, "bad.geojson", badDoc)})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "problem(s) found")
}

func TestLint_MissingFile(t *testing.T) {
	_, err := lintFiles(&bytes.Buffer{}, []string{filepath.Join(t.TempDir(), "nope.geojson")})
	require.Error(t, err)
}

func TestLoadConfig_OverrideAndValidate(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("SOURCE_DRIVER", "file")

	cfg, err := loadConfig(nil, func(c *config.Config) { c.Addr = ":7000" })
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)

	_, err = loadConfig(nil, func(c *config.Config) { c.Source.Driver = "s3" })
	require.Error(t, err)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	env := writeTemp(t, "test.env", "LOG_LEVEL=debug\n")
	t.Setenv("LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))

	cfg, err := loadConfig([]string{env}, nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestOpenStores_FileDriver(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cities.geojson"), []byte(goodDoc), 0o600))
	catalog := filepath.Join(dir, "sources.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte("sources:\n  - id: cities\n    path: cities.geojson\n"), 0o600))

	cfg := config.FromEnv()
	cfg.Source = config.SourceCfg{Driver: config.DriverFile, Catalog: catalog, CacheSize: 4}

	st, err := openStores(context.Background(), cfg, newLogger(cfg, "test"))
	require.NoError(t, err)
	defer st.close()

	fc, err := st.provider.Get(context.Background(), "cities")
	require.NoError(t, err)
	assert.Equal(t, 1, fc.Len())
	assert.Nil(t, st.remover)
	require.Len(t, st.checks, 1)
	assert.NoError(t, st.checks[0].Probe(context.Background()))
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"serve", "lint", "load"} {
		assert.Contains(t, joined, want)
	}
	assert.NotNil(t, root.Flags().Lookup("addr"))
}
