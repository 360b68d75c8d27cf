// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/holiman/uint256"

	"github.com/nodeseeker/evmcore/cache"
	"github.com/nodeseeker/evmcore/thor"
)

// storageCellKey is the composite key cachedStorage caches Storage reads
// under, mirroring storageKey's (addr, index) shape in state.go.
type storageCellKey struct {
	addr  thor.Address
	index uint256.Int
}

// cachedStorage wraps an AccountStorage with two bounded caches, the same
// roles package cache's PrioCache and LRU play elsewhere in this corpus
// (bft.Engine's justifier cache, chain's block-header LRU): contract code is
// cached by PrioCache, evicted by ascending block number the same way
// bft.Engine's justifier cache is, since the coldest cached contract (the
// one not read at the most recent block) is the one worth dropping first.
// Storage-cell reads are cached by a plain LRU instead — there is no
// meaningful "recency of the chain" priority for an individual storage slot
// the way there is for a whole contract's code, so GetOrLoad's simpler
// recently-used policy fits better.
type cachedStorage struct {
	AccountStorage
	code    *cache.PrioCache
	storage *cache.LRU
	stats   cache.Stats
}

// NewCachedStorage wraps storage with in-memory code and storage-cell
// caches. The code cache holds at most limit entries; the storage-cell cache
// holds at most limit entries or 16, whichever is larger (cache.NewLRU's
// minimum size).
func NewCachedStorage(storage AccountStorage, limit int) AccountStorage {
	return &cachedStorage{
		AccountStorage: storage,
		code:           cache.NewPrioCache(limit),
		storage:        cache.NewLRU(limit),
	}
}

func (cs *cachedStorage) Code(addr thor.Address) []byte {
	if v, _, ok := cs.code.Get(addr); ok {
		cs.stats.Hit()
		cs.code.Set(addr, v, float64(cs.AccountStorage.BlockNumber()))
		return v.([]byte)
	}
	cs.stats.Miss()
	code := cs.AccountStorage.Code(addr)
	cs.code.Set(addr, code, float64(cs.AccountStorage.BlockNumber()))
	return code
}

func (cs *cachedStorage) Storage(addr thor.Address, index *uint256.Int) thor.Bytes32 {
	v, err := cs.storage.GetOrLoad(storageCellKey{addr, *index}, func(key interface{}) (interface{}, error) {
		k := key.(storageCellKey)
		return cs.AccountStorage.Storage(k.addr, &k.index), nil
	})
	if err != nil {
		// GetOrLoad's loader above never errors; this is unreachable.
		return thor.Bytes32{}
	}
	return v.(thor.Bytes32)
}

// CacheStats reports the code cache's cumulative hit/miss counts and
// whether the hit rate changed since the last call (cache.Stats' own
// contract), useful for a host wiring these counters into its own metrics.
func (cs *cachedStorage) CacheStats() (changed bool, hits, misses int64) {
	return cs.stats.Stats()
}
