package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/ledgerd/types"
)

// ErrNonContiguous is returned by SaveBlock when the block does not extend
// the stored chain by exactly one height.
var ErrNonContiguous = errors.New("non-contiguous block")

/*
BlockStore is a simple low level store for blocks produced by the ledger.

Two kinds of records are stored:
  - Block:      the JSON encoded block, keyed by height
  - Block hash: the height of a block, keyed by its hash

The store can be assumed to contain all contiguous blocks between base and
height (inclusive).

// NOTE: BlockStore methods will panic if they encounter errors
// deserializing loaded data, indicating probable corruption on disk.
*/
type BlockStore struct {
	db dbm.DB
}

// NewBlockStore returns a new BlockStore with the given DB,
// initialized to the last height that was committed to the DB.
func NewBlockStore(db dbm.DB) *BlockStore {
	return &BlockStore{db}
}

// Base returns the first known contiguous block height, or 0 for empty block stores.
func (bs *BlockStore) Base() int64 {
	iter, err := bs.db.Iterator(
		blockKey(1),
		blockKey(1<<63-1),
	)
	if err != nil {
		panic(err)
	}
	defer iter.Close()

	if iter.Valid() {
		height, err := decodeBlockKey(iter.Key())
		if err == nil {
			return height
		}
	}
	if err := iter.Error(); err != nil {
		panic(err)
	}

	return 0
}

// Height returns the last known contiguous block height, or 0 for empty block stores.
func (bs *BlockStore) Height() int64 {
	iter, err := bs.db.ReverseIterator(
		blockKey(1),
		blockKey(1<<63-1),
	)
	if err != nil {
		panic(err)
	}
	defer iter.Close()

	if iter.Valid() {
		height, err := decodeBlockKey(iter.Key())
		if err == nil {
			return height
		}
	}
	if err := iter.Error(); err != nil {
		panic(err)
	}

	return 0
}

// Size returns the number of blocks in the block store.
func (bs *BlockStore) Size() int64 {
	height := bs.Height()
	if height == 0 {
		return 0
	}
	return height + 1 - bs.Base()
}

// LoadBlock returns the block with the given height.
// If no block is found for that height, it returns nil.
func (bs *BlockStore) LoadBlock(height int64) *types.Block {
	bz, err := bs.db.Get(blockKey(height))
	if err != nil {
		panic(err)
	}
	if len(bz) == 0 {
		return nil
	}

	block := new(types.Block)
	if err := json.Unmarshal(bz, block); err != nil {
		panic(fmt.Errorf("error reading block %d: %w", height, err))
	}
	return block
}

// LoadTip returns the block at the current height, or nil for an empty store.
func (bs *BlockStore) LoadTip() *types.Block {
	height := bs.Height()
	if height == 0 {
		return nil
	}
	return bs.LoadBlock(height)
}

// LoadBlockByHash returns the block with the given hash.
// If no block is found for that hash, it returns nil.
// Panics if it fails to parse height associated with the given hash.
func (bs *BlockStore) LoadBlockByHash(hash []byte) *types.Block {
	bz, err := bs.db.Get(blockHashKey(hash))
	if err != nil {
		panic(err)
	}
	if len(bz) == 0 {
		return nil
	}

	s := string(bz)
	height, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		panic(fmt.Sprintf("failed to extract height from %s: %v", s, err))
	}
	return bs.LoadBlock(height)
}

// SaveBlock persists the block and its hash index in one synced batch.
// The first block saved may have any height; afterwards only the block at
// Height()+1 is accepted.
func (bs *BlockStore) SaveBlock(block types.Block) error {
	if g, w := block.Height, bs.Height()+1; bs.Base() > 0 && g != w {
		return fmt.Errorf("%w: wanted %v, got %v", ErrNonContiguous, w, g)
	}

	bz, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("unable to marshal block: %w", err)
	}

	batch := bs.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(blockKey(block.Height), bz); err != nil {
		return err
	}
	if err := batch.Set(blockHashKey(block.Hash), []byte(fmt.Sprintf("%d", block.Height))); err != nil {
		return err
	}
	return batch.WriteSync()
}

// Close closes the underlying database.
func (bs *BlockStore) Close() error {
	return bs.db.Close()
}

//---------------------------------- KEY ENCODING -----------------------------------------

// key prefixes
const (
	prefixBlock     = int64(0)
	prefixBlockHash = int64(1)
)

func blockKey(height int64) []byte {
	key, err := orderedcode.Append(nil, prefixBlock, height)
	if err != nil {
		panic(err)
	}
	return key
}

func decodeBlockKey(key []byte) (height int64, err error) {
	var prefix int64
	remaining, err := orderedcode.Parse(string(key), &prefix, &height)
	if err != nil {
		return
	}
	if len(remaining) != 0 {
		return -1, fmt.Errorf("expected complete key but got remainder: %s", remaining)
	}
	if prefix != prefixBlock {
		return -1, fmt.Errorf("incorrect prefix. Expected %v, got %v", prefixBlock, prefix)
	}
	return
}

func blockHashKey(hash []byte) []byte {
	key, err := orderedcode.Append(nil, prefixBlockHash, string(hash))
	if err != nil {
		panic(err)
	}
	return key
}
