package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const partialConfig = `# hand-written
moniker = "old-node"

[p2p]
# keep this comment
laddr = "127.0.0.1:7000"
`

func TestUpgradeConfigFileAddsMissingSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(partialConfig), 0600))

	cfg := DefaultConfig()
	cfg.Moniker = "ignored"
	added, err := UpgradeConfigFile(context.Background(), path, cfg)
	require.NoError(t, err)

	assert.Contains(t, added, "p2p.gossip_fan_out")
	assert.Contains(t, added, "ledger.block_interval")
	assert.Contains(t, added, "instrumentation.namespace")
	assert.NotContains(t, added, "moniker")
	assert.NotContains(t, added, "p2p.laddr")

	var decoded map[string]interface{}
	_, err = toml.DecodeFile(path, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "old-node", decoded["moniker"])
	assert.Equal(t, DBBackendGoLevelDB, decoded["db_backend"])

	p2p := decoded["p2p"].(map[string]interface{})
	assert.Equal(t, "127.0.0.1:7000", p2p["laddr"])
	assert.EqualValues(t, DefaultP2PConfig().GossipFanOut, p2p["gossip_fan_out"])

	ledger := decoded["ledger"].(map[string]interface{})
	assert.Equal(t, "1s", ledger["block_interval"])
	assert.EqualValues(t, 1000, ledger["max_block_events"])

	instr := decoded["instrumentation"].(map[string]interface{})
	assert.Equal(t, false, instr["prometheus"])
	assert.Equal(t, "ledgerd", instr["namespace"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "keep this comment")
}

func TestUpgradeConfigFileIsNoopWhenComplete(t *testing.T) {
	dir := t.TempDir()
	EnsureRoot(dir)
	require.NoError(t, WriteConfigFile(dir, DefaultConfig()))

	path := ConfigFile(dir)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	added, err := UpgradeConfigFile(context.Background(), path, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, added)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestUpgradeConfigFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := UpgradeConfigFile(context.Background(), filepath.Join(dir, "missing.toml"), DefaultConfig())
	require.Error(t, err)

	path := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("moniker = \n"), 0600))
	_, err = UpgradeConfigFile(context.Background(), path, DefaultConfig())
	require.Error(t, err)
}
