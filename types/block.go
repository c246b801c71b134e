package types

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	tmbytes "github.com/tendermint/ledgerd/libs/bytes"
)

// ErrInvalidBlock is returned by ValidateBasic for malformed blocks.
var ErrInvalidBlock = errors.New("invalid block")

// Block is a batch of events assembled locally and handed to the block
// pipeline. Blocks are linked by PrevHash.
type Block struct {
	Height   int64            `json:"height"`
	Time     time.Time        `json:"time"`
	PrevHash tmbytes.HexBytes `json:"prev_hash"`
	Events   []Event          `json:"events"`
	Hash     tmbytes.HexBytes `json:"hash"`
}

// MakeBlock assembles the block following prev (nil for the first block)
// and fills in its hash. The events slice is copied.
func MakeBlock(prev *Block, events []Event) Block {
	b := Block{
		Height: 1,
		Time:   Now(),
		Events: make([]Event, len(events)),
	}
	for i := range events {
		b.Events[i] = events[i].Clone()
	}
	if prev != nil {
		b.Height = prev.Height + 1
		b.PrevHash = prev.Hash.Copy()
	}
	b.Hash = b.ComputeHash()
	return b
}

// blockHeader is what the block hash commits to.
type blockHeader struct {
	Height      int64              `json:"height"`
	Time        time.Time          `json:"time"`
	PrevHash    tmbytes.HexBytes   `json:"prev_hash"`
	EventHashes []tmbytes.HexBytes `json:"event_hashes"`
}

// ComputeHash returns the sha256 of the block header and its event hashes.
func (b *Block) ComputeHash() tmbytes.HexBytes {
	hdr := blockHeader{
		Height:      b.Height,
		Time:        b.Time,
		PrevHash:    b.PrevHash,
		EventHashes: make([]tmbytes.HexBytes, len(b.Events)),
	}
	for i, ev := range b.Events {
		hdr.EventHashes[i] = ev.Hash()
	}
	bz, err := json.Marshal(hdr)
	if err != nil {
		panic(fmt.Errorf("marshal block header: %w", err))
	}
	sum := sha256.Sum256(bz)
	return sum[:]
}

// Clone returns a deep copy of the block. Announced blocks are always
// handed over as clones so producers and consumers never share memory.
func (b Block) Clone() Block {
	cp := b
	cp.PrevHash = b.PrevHash.Copy()
	cp.Hash = b.Hash.Copy()
	if b.Events != nil {
		cp.Events = make([]Event, len(b.Events))
		for i := range b.Events {
			cp.Events[i] = b.Events[i].Clone()
		}
	}
	return cp
}

// ValidateBasic performs stateless validation of the block.
func (b *Block) ValidateBasic() error {
	if b.Height <= 0 {
		return fmt.Errorf("%w: non-positive height %d", ErrInvalidBlock, b.Height)
	}
	if b.Height == 1 && len(b.PrevHash) != 0 {
		return fmt.Errorf("%w: first block has a previous hash", ErrInvalidBlock)
	}
	if b.Height > 1 && len(b.PrevHash) != sha256.Size {
		return fmt.Errorf("%w: previous hash has %d bytes", ErrInvalidBlock, len(b.PrevHash))
	}
	for i, ev := range b.Events {
		if err := ev.ValidateBasic(); err != nil {
			return fmt.Errorf("%w: event %d: %v", ErrInvalidBlock, i, err)
		}
	}
	if !b.Hash.Equal(b.ComputeHash()) {
		return fmt.Errorf("%w: hash mismatch", ErrInvalidBlock)
	}
	return nil
}

// String returns a short human readable form, for logs.
func (b *Block) String() string {
	return fmt.Sprintf("Block{#%d %s %d events}", b.Height, b.Hash.ShortString(), len(b.Events))
}
