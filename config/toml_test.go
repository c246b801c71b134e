package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ensureFiles(t *testing.T, rootDir string, files ...string) {
	for _, f := range files {
		p := rootify(f, rootDir)
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestEnsureRoot(t *testing.T) {
	tmpDir := t.TempDir()

	// create root dir
	EnsureRoot(tmpDir)
	require.NoError(t, WriteConfigFile(tmpDir, DefaultConfig()))

	// make sure config is set properly
	data, err := os.ReadFile(filepath.Join(tmpDir, defaultConfigFilePath))
	require.NoError(t, err)
	checkConfig(t, string(data))

	ensureFiles(t, tmpDir, "data")
}

func TestEnsureTestRoot(t *testing.T) {
	testName := "ensureTestRoot"

	// create root dir
	cfg, err := ResetTestRoot(t.TempDir(), testName)
	require.NoError(t, err)
	rootDir := cfg.RootDir

	// make sure config is set properly
	data, err := os.ReadFile(filepath.Join(rootDir, defaultConfigFilePath))
	require.NoError(t, err)
	checkConfig(t, string(data))

	ensureFiles(t, rootDir, "data", defaultConfigFilePath)
	assert.True(t, strings.HasPrefix(cfg.Instrumentation.Namespace, testName+"_"))
}

func TestWrittenConfigDecodes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Moniker = "node-a"
	cfg.P2P.Peers = "127.0.0.1:9001,127.0.0.1:9002"
	cfg.P2P.GossipFanOut = 3
	cfg.Instrumentation.Prometheus = true

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, cfg.WriteToTemplate(path))

	var decoded map[string]interface{}
	_, err := toml.DecodeFile(path, &decoded)
	require.NoError(t, err)

	assert.Equal(t, "node-a", decoded["moniker"])
	assert.Equal(t, DBBackendGoLevelDB, decoded["db_backend"])

	p2p := decoded["p2p"].(map[string]interface{})
	assert.Equal(t, "127.0.0.1:9001,127.0.0.1:9002", p2p["peers"])
	assert.EqualValues(t, 3, p2p["gossip_fan_out"])

	ledger := decoded["ledger"].(map[string]interface{})
	assert.Equal(t, "1s", ledger["block_interval"])
	assert.EqualValues(t, 1000, ledger["max_block_events"])

	instr := decoded["instrumentation"].(map[string]interface{})
	assert.Equal(t, true, instr["prometheus"])
	assert.Equal(t, ":26660", instr["prometheus_listen_addr"])
}

func checkConfig(t *testing.T, configFile string) {
	t.Helper()

	// list of words we expect in the config
	var elems = []string{
		"moniker",
		"db_backend",
		"db_dir",
		"log_level",
		"log_format",
		"[p2p]",
		"laddr",
		"peers",
		"gossip_fan_out",
		"[ledger]",
		"block_interval",
		"max_block_events",
		"seen_cache_size",
		"[instrumentation]",
		"prometheus_listen_addr",
		"namespace",
	}
	for _, e := range elems {
		if !strings.Contains(configFile, e) {
			t.Errorf("config file was expected to contain %s but did not", e)
		}
	}
}
