package sharding

import (
	"sort"
	"sync"
)

type ShardRouter struct {
	ShardCount int // Number of shards
}

func NewShardRouter(shardCount int) *ShardRouter {
	if shardCount < 1 {
		shardCount = 1
	}
	return &ShardRouter{ShardCount: shardCount}
}

func (r *ShardRouter) GetShard(id int) int {
	shardIndex := id % r.ShardCount
	if shardIndex < 0 {
		shardIndex += r.ShardCount
	}
	return shardIndex
}

// LockTable hands out one mutex per id. The id -> mutex map is split across
// shards so that looking up locks for different products rarely contends.
type LockTable struct {
	router *ShardRouter
	shards []*lockShard
}

type lockShard struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewLockTable(shardCount int) *LockTable {
	router := NewShardRouter(shardCount)
	shards := make([]*lockShard, router.ShardCount)
	for i := range shards {
		shards[i] = &lockShard{locks: make(map[int]*sync.Mutex)}
	}
	return &LockTable{router: router, shards: shards}
}

func (t *LockTable) mutex(id int) *sync.Mutex {
	shard := t.shards[t.router.GetShard(id)]
	shard.mu.Lock()
	defer shard.mu.Unlock()

	m, ok := shard.locks[id]
	if !ok {
		m = &sync.Mutex{}
		shard.locks[id] = m
	}
	return m
}

// Lock acquires the lock of a single id and returns its release func.
func (t *LockTable) Lock(id int) func() {
	m := t.mutex(id)
	m.Lock()
	return m.Unlock
}

// LockAll acquires the locks of every distinct id in ascending order, so two
// callers locking overlapping sets cannot deadlock.
func (t *LockTable) LockAll(ids []int) func() {
	sorted := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		sorted = append(sorted, id)
	}
	sort.Ints(sorted)

	held := make([]*sync.Mutex, 0, len(sorted))
	for _, id := range sorted {
		m := t.mutex(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
