package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveConfigFile_PrefersEnvOverride(t *testing.T) {
	dir := t.TempDir()
	confPath := filepath.Join(dir, "wsss_conf.toml")
	require := func(err error) {
		if err != nil {
			t.Fatalf("writing test config file: %v", err)
		}
	}
	require(os.WriteFile(confPath, []byte("http_port = 9000\n"), 0o644))

	t.Setenv("WSS_CONF_FILE", confPath)

	assert.Equal(t, confPath, resolveConfigFile())
}

func TestResolveConfigFile_MissingEnvFileIsSkipped(t *testing.T) {
	t.Setenv("WSS_CONF_FILE", filepath.Join(t.TempDir(), "does-not-exist.toml"))
	got := resolveConfigFile()
	assert.NotEqual(t, os.Getenv("WSS_CONF_FILE"), got)
}
