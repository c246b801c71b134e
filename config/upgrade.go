package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/creachadair/tomledit"
	"github.com/creachadair/tomledit/parser"
	"github.com/creachadair/tomledit/transform"

	tmos "github.com/tendermint/ledgerd/libs/os"
)

// setting is one key of the config file together with the TOML text of its
// value.
type setting struct {
	table   string
	name    string
	comment string
	value   string
}

func (s setting) key() []string {
	if s.table == "" {
		return []string{s.name}
	}
	return []string{s.table, s.name}
}

var tableHeadings = map[string]string{
	"p2p":             "P2P Configuration Options",
	"ledger":          "Ledger Configuration Options",
	"instrumentation": "Instrumentation Configuration Options",
}

// settings lists every key written by the config template, in template
// order, with values taken from cfg.
func (cfg *Config) settings() []setting {
	str := strconv.Quote
	num := strconv.Itoa
	return []setting{
		{"", "moniker", "A custom human readable name for this node", str(cfg.Moniker)},
		{"", "db_backend", "Database backend: goleveldb | memdb", str(cfg.DBBackend)},
		{"", "db_dir", "Database directory", str(cfg.DBPath)},
		{"", "log_level", "Output level for logging: debug | info | warn | error", str(cfg.LogLevel)},
		{"", "log_format", "Output format: 'plain' (colored text) or 'json'", str(cfg.LogFormat)},

		{"p2p", "laddr", "Address to bind the UDP socket to", str(cfg.P2P.ListenAddress)},
		{"p2p", "peers", "Comma separated list of host:port UDP addresses events are gossiped to", str(cfg.P2P.Peers)},
		{"p2p", "gossip_fan_out", "Number of distinct peers each event is sent to", num(cfg.P2P.GossipFanOut)},

		{"ledger", "block_interval", "How often pending events are cut into a block", str(cfg.Ledger.BlockInterval.String())},
		{"ledger", "max_block_events", "Maximum number of events in one block", num(cfg.Ledger.MaxBlockEvents)},
		{"ledger", "seen_cache_size", "Number of recently seen event hashes remembered for deduplication", num(cfg.Ledger.SeenCacheSize)},
		{"ledger", "max_pending_events", "Maximum number of events waiting for a block (0 - unlimited)", num(cfg.Ledger.MaxPendingEvents)},

		{"instrumentation", "prometheus", "When true, Prometheus metrics are served under /metrics", strconv.FormatBool(cfg.Instrumentation.Prometheus)},
		{"instrumentation", "prometheus_listen_addr", "Address to listen for Prometheus collector(s) connections", str(cfg.Instrumentation.PrometheusListenAddr)},
		{"instrumentation", "max_open_connections", "Maximum number of simultaneous connections (0 - unlimited)", num(cfg.Instrumentation.MaxOpenConnections)},
		{"instrumentation", "namespace", "Instrumentation namespace", str(cfg.Instrumentation.Namespace)},
	}
}

// ensureSetting adds s to the document if it is missing, creating its table
// first when needed.
func ensureSetting(s setting) transform.Func {
	return transform.Func(func(ctx context.Context, doc *tomledit.Document) error {
		var table parser.Key
		if s.table != "" {
			table = parser.Key{s.table}
			if transform.FindTable(doc, s.table) == nil {
				doc.Sections = append(doc.Sections, &tomledit.Section{
					Heading: &parser.Heading{
						Block: parser.Comments{
							"#######################################################",
							fmt.Sprintf("###  %-45s  ###", tableHeadings[s.table]),
							"#######################################################",
						},
						Name: table,
					},
				})
			}
		}
		return transform.EnsureKey(table, &parser.KeyValue{
			Block: parser.Comments{s.comment},
			Name:  parser.Key{s.name},
			Value: parser.MustValue(s.value),
		})(ctx, doc)
	})
}

// UpgradeConfigFile adds every setting missing from the config file at path,
// using the values in cfg, and rewrites the file atomically. Settings already
// present are left as they are. It returns the dotted names of the added
// settings; when nothing is missing the file is not touched.
func UpgradeConfigFile(ctx context.Context, path string, cfg *Config) ([]string, error) {
	doc, err := loadConfigDocument(path)
	if err != nil {
		return nil, err
	}

	var (
		added []string
		plan  transform.Plan
	)
	for _, s := range cfg.settings() {
		if doc.First(s.key()...) != nil {
			continue
		}
		name := strings.Join(s.key(), ".")
		added = append(added, name)
		plan = append(plan, transform.Step{
			Desc: fmt.Sprintf("Add %s setting", name),
			T:    ensureSetting(s),
		})
	}
	if len(plan) == 0 {
		return nil, nil
	}

	if err := plan.Apply(ctx, doc); err != nil {
		return nil, fmt.Errorf("upgrading %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := tomledit.Format(&buf, doc); err != nil {
		return nil, fmt.Errorf("formatting %s: %w", path, err)
	}
	if err := tmos.WriteFileAtomic(path, buf.Bytes(), 0644); err != nil {
		return nil, err
	}
	return added, nil
}

func loadConfigDocument(path string) (*tomledit.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := tomledit.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}
