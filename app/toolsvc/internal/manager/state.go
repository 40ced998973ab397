package manager

import (
	"sort"
	"sync"
	"time"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
)

// OwnerState 玩家缓存状态
type OwnerState int

const (
	StateUnloaded OwnerState = iota
	StateLoading
	StateClean
	StateDirty
	StateFlushing
)

func (s OwnerState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateFlushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// ownerEntry 单个玩家的缓存条目，所有字段受 mu 保护
type ownerEntry struct {
	mu sync.Mutex

	ownerID    string
	collection *model.OwnerCollection
	state      OwnerState

	// generation 每次修改递增
	generation uint64
	// flushedGen 进行中快照捕获的 generation
	flushedGen uint64
	// savedGen 最近一次成功落盘的 generation
	savedGen   uint64
	flushing   bool
	// flushDone 进行中的刷盘结束时关闭
	flushDone  chan struct{}

	online bool
	quitAt time.Time
}

func newOwnerEntry(ownerID string, c *model.OwnerCollection, online bool) *ownerEntry {
	return &ownerEntry{
		ownerID:    ownerID,
		collection: c,
		state:      StateClean,
		online:     online,
	}
}

// touchLocked 记录一次修改，调用方持有锁
func (e *ownerEntry) touchLocked() {
	e.generation++
	if !e.flushing {
		e.state = StateDirty
	}
}

func (e *ownerEntry) dirtyLocked() bool {
	return e.generation != e.savedGen
}

// settleLocked 根据 generation 重新计算状态
func (e *ownerEntry) settleLocked() {
	switch {
	case e.flushing:
		e.state = StateFlushing
	case e.dirtyLocked():
		e.state = StateDirty
	default:
		e.state = StateClean
	}
}

// dirtySet 待刷盘玩家集合，Add/Remove 幂等
type dirtySet struct {
	mu     sync.Mutex
	owners map[string]struct{}
}

func newDirtySet() *dirtySet {
	return &dirtySet{owners: make(map[string]struct{})}
}

func (d *dirtySet) Add(ownerID string) {
	d.mu.Lock()
	d.owners[ownerID] = struct{}{}
	d.mu.Unlock()
}

func (d *dirtySet) Remove(ownerID string) {
	d.mu.Lock()
	delete(d.owners, ownerID)
	d.mu.Unlock()
}

func (d *dirtySet) Has(ownerID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.owners[ownerID]
	return ok
}

func (d *dirtySet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.owners)
}

// Snapshot 返回排序后的副本
func (d *dirtySet) Snapshot() []string {
	d.mu.Lock()
	out := make([]string, 0, len(d.owners))
	for id := range d.owners {
		out = append(out, id)
	}
	d.mu.Unlock()
	sort.Strings(out)
	return out
}
