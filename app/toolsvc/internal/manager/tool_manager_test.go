package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/attribute"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/dao"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
	"github.com/ImOpaque/GensTools-sub000/pkg/idgen"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

// testStorage 可阻塞、可注入失败的内存存储
type testStorage struct {
	*dao.MemoryStorage

	gate    chan struct{}
	entered chan struct{}
	fail    atomic.Bool
	loadErr error

	active    atomic.Int64
	maxActive atomic.Int64
	saves     atomic.Int64
}

func newTestStorage() *testStorage {
	return &testStorage{
		MemoryStorage: dao.NewMemoryStorage(),
		entered:       make(chan struct{}, 1),
	}
}

func (s *testStorage) Save(ctx context.Context, ownerID string, c *model.OwnerCollection) error {
	n := s.active.Inc()
	defer s.active.Dec()
	for {
		cur := s.maxActive.Load()
		if n <= cur || s.maxActive.CAS(cur, n) {
			break
		}
	}
	s.saves.Inc()

	select {
	case s.entered <- struct{}{}:
	default:
	}
	if s.gate != nil {
		<-s.gate
	}
	if s.fail.Load() {
		return errors.New("disk full")
	}
	return s.MemoryStorage.Save(ctx, ownerID, c)
}

func (s *testStorage) Load(ctx context.Context, ownerID string) (*model.OwnerCollection, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.MemoryStorage.Load(ctx, ownerID)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingLocker struct {
	keys []string
}

func (l *recordingLocker) WithLock(_ context.Context, key string, _ time.Duration, fn func() error) error {
	l.keys = append(l.keys, key)
	return fn()
}

const testGrace = time.Minute

func newTestManager(t *testing.T, s dao.Storage, opts ...Option) *ToolManager {
	t.Helper()
	m, err := New(&Config{
		EvictionGrace: testGrace,
		IOWorkers:     4,
		FlushTimeout:  5 * time.Second,
	}, s, attribute.NewStore(""), idgen.NewUUID(), logger.NewNoop(), nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func newToolItem(store *attribute.Store, uniqueID string, level int) *model.ItemStack {
	item := model.NewItemStack("DIAMOND_PICKAXE")
	rec := model.NewToolRecord(uniqueID, "pickaxe")
	rec.Level = level
	rec.Enchantments["efficiency"] = 3
	store.WriteRecord(item, rec)
	return item
}

func savedLevel(t *testing.T, s *testStorage, owner, uid string) int {
	t.Helper()
	c, err := s.MemoryStorage.Load(context.Background(), owner)
	require.NoError(t, err)
	require.NotNil(t, c)
	rec, ok := c.Get(uid)
	require.True(t, ok)
	return rec.Level
}

func TestOwnerStateString(t *testing.T) {
	tests := []struct {
		state OwnerState
		want  string
	}{
		{StateUnloaded, "unloaded"},
		{StateLoading, "loading"},
		{StateClean, "clean"},
		{StateDirty, "dirty"},
		{StateFlushing, "flushing"},
		{OwnerState(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestDirtySet(t *testing.T) {
	d := newDirtySet()
	d.Add("b")
	d.Add("a")
	d.Add("a")
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []string{"a", "b"}, d.Snapshot())

	d.Remove("a")
	d.Remove("a")
	assert.False(t, d.Has("a"))
	assert.True(t, d.Has("b"))
}

func TestRegisterTool(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()
	m := newTestManager(t, s)
	store := attribute.NewStore("")

	item := newToolItem(store, "", 1)
	rec, err := m.RegisterTool(ctx, "alice", item)
	require.NoError(t, err)
	require.NotEmpty(t, rec.UniqueID)

	uid, ok := store.GetString(item, attribute.FieldUniqueID)
	require.True(t, ok)
	assert.Equal(t, rec.UniqueID, uid)
	assert.Equal(t, StateDirty, m.State("alice"))
	assert.True(t, m.IsDirty("alice"))

	tools, err := m.Tools(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, 3, tools[0].EnchantLevel("efficiency"))

	// 非工具物品
	_, err = m.RegisterTool(ctx, "alice", model.NewItemStack("STONE"))
	assert.True(t, errors.Is(err, model.ErrNotATool))
}

func TestUnchangedUpdateStaysClean(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()
	m := newTestManager(t, s)
	store := attribute.NewStore("")

	item := newToolItem(store, "", 1)
	_, err := m.RegisterTool(ctx, "alice", item)
	require.NoError(t, err)
	require.NoError(t, m.Flush(ctx, "alice"))
	require.Equal(t, StateClean, m.State("alice"))

	_, err = m.HandleToolUpdate(ctx, "alice", item)
	require.NoError(t, err)
	assert.Equal(t, StateClean, m.State("alice"))
	assert.EqualValues(t, 1, s.saves.Load())
}

func TestFlushPersistsAndCleans(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()
	m := newTestManager(t, s)
	store := attribute.NewStore("")

	rec, err := m.RegisterTool(ctx, "alice", newToolItem(store, "", 2))
	require.NoError(t, err)

	require.NoError(t, m.Flush(ctx, "alice"))
	assert.Equal(t, StateClean, m.State("alice"))
	assert.False(t, m.IsDirty("alice"))
	assert.Equal(t, 2, savedLevel(t, s, "alice", rec.UniqueID))

	// 未加载的玩家
	assert.NoError(t, m.Flush(ctx, "nobody"))
}

func TestMutationDuringFlushIsNotLost(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()
	s.gate = make(chan struct{})
	m := newTestManager(t, s)
	store := attribute.NewStore("")

	item := newToolItem(store, "", 1)
	rec, err := m.RegisterTool(ctx, "alice", item)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- m.Flush(ctx, "alice") }()
	<-s.entered
	assert.Equal(t, StateFlushing, m.State("alice"))

	// 快照之后的修改
	require.NoError(t, store.SetField(item, attribute.FieldLevel, 5))
	_, err = m.HandleToolUpdate(ctx, "alice", item)
	require.NoError(t, err)
	assert.Equal(t, StateFlushing, m.State("alice"))

	close(s.gate)
	require.NoError(t, <-errCh)

	assert.Equal(t, StateDirty, m.State("alice"))
	assert.True(t, m.IsDirty("alice"))
	assert.Equal(t, 1, savedLevel(t, s, "alice", rec.UniqueID))

	require.NoError(t, m.Flush(ctx, "alice"))
	assert.Equal(t, StateClean, m.State("alice"))
	assert.Equal(t, 5, savedLevel(t, s, "alice", rec.UniqueID))
}

func TestWriteFailureKeepsOwnerDirty(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()
	s.fail.Store(true)
	m := newTestManager(t, s)
	store := attribute.NewStore("")

	rec, err := m.RegisterTool(ctx, "alice", newToolItem(store, "", 3))
	require.NoError(t, err)

	err = m.Flush(ctx, "alice")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrStorage))
	assert.Equal(t, StateDirty, m.State("alice"))
	assert.True(t, m.IsDirty("alice"))

	tools, err := m.Tools(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, rec.UniqueID, tools[0].UniqueID)

	s.fail.Store(false)
	require.NoError(t, m.FlushAllSync(ctx))
	assert.Equal(t, StateClean, m.State("alice"))
	assert.Equal(t, 3, savedLevel(t, s, "alice", rec.UniqueID))
}

func TestNoConcurrentFlushPerOwner(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()
	s.gate = make(chan struct{})
	m := newTestManager(t, s)
	store := attribute.NewStore("")

	_, err := m.RegisterTool(ctx, "alice", newToolItem(store, "", 1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Flush(ctx, "alice")
		}()
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.FlushAll(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = m.FlushAllSync(ctx)
	}()

	<-s.entered
	time.Sleep(20 * time.Millisecond)
	close(s.gate)
	wg.Wait()

	assert.EqualValues(t, 1, s.maxActive.Load())
	assert.EqualValues(t, 1, s.saves.Load())
	assert.Equal(t, StateClean, m.State("alice"))
}

func TestEvictionAfterGraceFlushesFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()
	clock := newFakeClock()
	m := newTestManager(t, s, WithClock(clock.Now))
	store := attribute.NewStore("")

	item := newToolItem(store, "", 1)
	report, err := m.HandleJoin(ctx, "alice", []model.Item{item})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Registered)
	uid, _ := store.GetString(item, attribute.FieldUniqueID)

	// 在线玩家不会被淘汰
	clock.Advance(2 * testGrace)
	assert.Zero(t, m.Sweep())

	m.HandleQuit(ctx, "alice")
	require.NoError(t, m.Flush(ctx, "alice"))

	// 宽限期内的修改
	require.NoError(t, store.SetField(item, attribute.FieldLevel, 9))
	_, err = m.HandleToolUpdate(ctx, "alice", item)
	require.NoError(t, err)
	require.Equal(t, StateDirty, m.State("alice"))

	clock.Advance(testGrace / 2)
	assert.Zero(t, m.Sweep())

	clock.Advance(testGrace)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, StateUnloaded, m.State("alice"))
	assert.Empty(t, m.Owners())
	assert.Equal(t, 9, savedLevel(t, s, "alice", uid))
}

func TestEvictionAbortedOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()
	clock := newFakeClock()
	m := newTestManager(t, s, WithClock(clock.Now))
	store := attribute.NewStore("")

	item := newToolItem(store, "", 4)
	_, err := m.HandleJoin(ctx, "alice", []model.Item{item})
	require.NoError(t, err)
	uid, _ := store.GetString(item, attribute.FieldUniqueID)

	s.fail.Store(true)
	m.HandleQuit(ctx, "alice")
	clock.Advance(2 * testGrace)
	m.Sweep()

	assert.Equal(t, StateDirty, m.State("alice"))
	assert.Equal(t, []string{"alice"}, m.Owners())

	// 下一次扫描重试
	s.fail.Store(false)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, StateUnloaded, m.State("alice"))
	assert.Equal(t, 4, savedLevel(t, s, "alice", uid))
}

func TestCorruptLoadKeepsOwnerUnloaded(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()
	s.loadErr = errors.Mark(errors.New("checksum mismatch"), dao.ErrCorruptRecord)
	m := newTestManager(t, s)

	_, err := m.Tools(ctx, "bob")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrStorage))
	assert.True(t, errors.Is(err, dao.ErrCorruptRecord))
	assert.Equal(t, StateUnloaded, m.State("bob"))

	s.loadErr = nil
	tools, err := m.Tools(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, tools)
	assert.Equal(t, StateClean, m.State("bob"))
}

func TestReconcileAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()
	m := newTestManager(t, s)
	store := attribute.NewStore("")

	rec, err := m.RegisterTool(ctx, "alice", newToolItem(store, "", 4))
	require.NoError(t, err)

	stale := newToolItem(store, rec.UniqueID, 1)
	dup := newToolItem(store, rec.UniqueID, 9)
	fresh := newToolItem(store, "", 2)

	report, err := m.ReconcileAll(ctx, "alice", []model.Item{
		stale,
		dup,
		model.NewItemStack("STONE"),
		fresh,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reconciled)
	assert.Equal(t, 1, report.Registered)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Duplicates, 1)
	assert.Equal(t, Duplicate{UniqueID: rec.UniqueID, Index: 1, FirstIndex: 0}, report.Duplicates[0])

	// 缓存记录写回物品，重复物品保持原样
	lv, _ := store.GetInt(stale, attribute.FieldLevel)
	assert.EqualValues(t, 4, lv)
	lv, _ = store.GetInt(dup, attribute.FieldLevel)
	assert.EqualValues(t, 9, lv)

	tools, err := m.Tools(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, tools, 2)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()
	m := newTestManager(t, s)
	store := attribute.NewStore("")

	rec, err := m.RegisterTool(ctx, "alice", newToolItem(store, "", 1))
	require.NoError(t, err)
	require.NoError(t, m.Flush(ctx, "alice"))

	require.NoError(t, m.Delete(ctx, "alice", rec.UniqueID))
	tools, err := m.Tools(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, tools)

	c, err := s.MemoryStorage.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, c.Len())

	err = m.Delete(ctx, "alice", "missing")
	assert.True(t, errors.Is(err, dao.ErrToolNotFound))
}

func TestUpdateAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()
	m := newTestManager(t, s)
	store := attribute.NewStore("")

	_, err := m.RegisterTool(ctx, "alice", newToolItem(store, "", 1))
	require.NoError(t, err)
	_, err = m.RegisterTool(ctx, "bob", newToolItem(store, "", 6))
	require.NoError(t, err)
	require.NoError(t, m.FlushAllSync(ctx))

	n := m.UpdateAll(func(rec *model.ToolRecord) bool {
		if rec.Level < 5 {
			return false
		}
		rec.Level = 5
		return true
	})
	assert.Equal(t, 1, n)
	assert.Equal(t, StateClean, m.State("alice"))
	assert.Equal(t, StateDirty, m.State("bob"))
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()
	locker := &recordingLocker{}
	m := newTestManager(t, s, WithLocker(locker))

	require.NoError(t, m.Backup(ctx))
	assert.Equal(t, 1, s.Backups())
	assert.Equal(t, []string{backupLockKey}, locker.keys)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()
	m := newTestManager(t, s)
	store := attribute.NewStore("")

	_, err := m.RegisterTool(ctx, "alice", newToolItem(store, "", 1))
	require.NoError(t, err)

	stats := m.Stats()
	assert.Equal(t, 1, stats.Cached)
	assert.Equal(t, 1, stats.Dirty)
	assert.Equal(t, 1, stats.Grace)
	assert.Len(t, stats.Jobs, 2)
}
