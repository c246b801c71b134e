package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version = LedgerdSemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

const (
	// LedgerdSemVer is the semantic version of ledgerd.
	LedgerdSemVer = "0.1.0"
)

// Protocol is used for implementation agnostic versioning.
type Protocol uint64

// Uint64 returns the Protocol version as a uint64.
func (p Protocol) Uint64() uint64 {
	return uint64(p)
}

var (
	// GossipProtocol versions the datagram envelope and the event encoding.
	GossipProtocol Protocol = 1

	// BlockProtocol versions the block structure and its hash.
	BlockProtocol Protocol = 1
)
