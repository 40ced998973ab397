package manager

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/attribute"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/dao"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/metrics"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
	"github.com/ImOpaque/GensTools-sub000/pkg/cache/lru"
	"github.com/ImOpaque/GensTools-sub000/pkg/config"
	"github.com/ImOpaque/GensTools-sub000/pkg/idgen"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
	"github.com/ImOpaque/GensTools-sub000/pkg/metrics/sliding"
	"github.com/ImOpaque/GensTools-sub000/pkg/scheduler"
	"github.com/ImOpaque/GensTools-sub000/pkg/util/conc"
)

// 定时任务名
const (
	JobAutosave = "tools.autosave"
	JobSweep    = "tools.sweep"
	JobBackup   = "tools.backup"

	backupLockKey = "tools:lock:backup"
)

// 刷盘触发方式（指标标签）
const (
	TriggerAutosave = "autosave"
	TriggerExplicit = "explicit"
	TriggerQuit     = "quit"
	TriggerEviction = "eviction"
	TriggerShutdown = "shutdown"
)

// ErrBackupFailed 存储后端报告备份失败
var ErrBackupFailed = errors.New("storage backup failed")

// Config 缓存与同步配置
type Config struct {
	// AutosaveCron 自动保存周期（cron 表达式或 @every）
	AutosaveCron string `mapstructure:"autosave_cron" json:"autosave_cron" yaml:"autosave_cron"`
	// EvictionGrace 下线后保留缓存的宽限期
	EvictionGrace time.Duration `mapstructure:"eviction_grace" json:"eviction_grace" yaml:"eviction_grace"`
	// SweepInterval 淘汰扫描间隔
	SweepInterval time.Duration `mapstructure:"sweep_interval" json:"sweep_interval" yaml:"sweep_interval"`
	// IOWorkers 存储 I/O 协程数
	IOWorkers int `mapstructure:"io_workers" json:"io_workers" yaml:"io_workers" validate:"omitempty,min=1"`
	// FlushRate 自动保存时每秒最多提交的刷盘数
	FlushRate float64 `mapstructure:"flush_rate" json:"flush_rate" yaml:"flush_rate"`
	// FlushTimeout 单次写入超时
	FlushTimeout time.Duration `mapstructure:"flush_timeout" json:"flush_timeout" yaml:"flush_timeout"`
	// BackupCron 定时备份，为空不启用
	BackupCron string `mapstructure:"backup_cron" json:"backup_cron" yaml:"backup_cron"`
	// BackupLockTTL 多实例备份互斥锁的过期时间
	BackupLockTTL time.Duration `mapstructure:"backup_lock_ttl" json:"backup_lock_ttl" yaml:"backup_lock_ttl"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		AutosaveCron:  "@every 5m",
		EvictionGrace: 5 * time.Minute,
		SweepInterval: 30 * time.Second,
		IOWorkers:     8,
		FlushRate:     50,
		FlushTimeout:  10 * time.Second,
		BackupLockTTL: 10 * time.Minute,
	}
}

// Locker 互斥执行，*redis.Client 满足该接口
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

// Option 管理器选项
type Option func(*ToolManager)

// WithLocker 设置备份互斥锁
func WithLocker(l Locker) Option {
	return func(m *ToolManager) {
		m.locker = l
	}
}

// WithClock 设置时间源（测试用）
func WithClock(now func() time.Time) Option {
	return func(m *ToolManager) {
		m.now = now
	}
}

// Duplicate 同一批次中重复出现的 uniqueId
type Duplicate struct {
	UniqueID string `json:"unique_id"`
	// Index 被跳过的物品在批次中的下标
	Index int `json:"index"`
	// FirstIndex 首次出现的下标
	FirstIndex int `json:"first_index"`
}

// JoinReport 上线对账结果
type JoinReport struct {
	Reconciled int         `json:"reconciled"`
	Registered int         `json:"registered"`
	Skipped    int         `json:"skipped"`
	Duplicates []Duplicate `json:"duplicates,omitempty"`
}

// Stats 管理器运行状态
type Stats struct {
	Cached  int                 `json:"cached"`
	Dirty   int                 `json:"dirty"`
	Grace   int                 `json:"grace"`
	Flushes sliding.Stats       `json:"flushes"`
	Jobs    []scheduler.JobInfo `json:"jobs"`
}

// ToolManager 玩家工具缓存与持久化同步协调器
//
// 状态机：Unloaded -> Loading -> Clean <-> Dirty -> Flushing -> Clean|Dirty。
// 每个玩家同一时刻至多一个刷盘；快照之后的修改会让玩家重新变脏。
type ToolManager struct {
	config  *Config
	logger  logger.Logger
	storage dao.Storage
	store   *attribute.Store
	ids     idgen.Generator
	metrics *metrics.ToolMetrics
	locker  Locker
	now     func() time.Time

	entries sync.Map // ownerID -> *ownerEntry
	loading sync.Map // ownerID -> struct{}
	cached  atomic.Int64
	dirty   *dirtySet
	loads   singleflight.Group

	// sessions 下线玩家的宽限期跟踪
	sessions *lru.LRU[string, struct{}]
	pool     *conc.Pool[struct{}]
	limiter  *rate.Limiter
	sched    *scheduler.Scheduler

	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建管理器
func New(
	cfg *Config,
	storage dao.Storage,
	store *attribute.Store,
	ids idgen.Generator,
	l logger.Logger,
	m *metrics.ToolMetrics,
	opts ...Option,
) (*ToolManager, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge manager config: %w", err)
	}
	if storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if store == nil {
		store = attribute.NewStore("")
	}
	if ids == nil {
		ids = idgen.NewUUID()
	}
	if l == nil {
		l = logger.NewNoop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	mgr := &ToolManager{
		config:  newCfg,
		logger:  l.Named("manager.tool"),
		storage: storage,
		store:   store,
		ids:     ids,
		metrics: m,
		now:     time.Now,
		dirty:   newDirtySet(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(mgr)
	}

	mgr.sessions = lru.New[string, struct{}](
		&lru.Config{DefaultTTL: newCfg.EvictionGrace},
		lru.WithOnEvict(mgr.onSessionEvict),
		lru.WithClock[string, struct{}](mgr.now),
	)
	mgr.pool = conc.NewPool[struct{}](newCfg.IOWorkers)

	burst := int(math.Ceil(newCfg.FlushRate))
	if burst < 1 {
		burst = 1
	}
	mgr.limiter = rate.NewLimiter(rate.Limit(newCfg.FlushRate), burst)

	sched, err := scheduler.New(scheduler.DefaultConfig(), scheduler.WithLogger(mgr.logger))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	mgr.sched = sched
	if err := mgr.registerJobs(); err != nil {
		cancel()
		return nil, err
	}
	return mgr, nil
}

func (m *ToolManager) registerJobs() error {
	// 1. 自动保存
	if _, err := m.sched.AddFunc(JobAutosave, m.config.AutosaveCron, func() error {
		n := m.FlushAll(m.ctx)
		m.logger.Debug("autosave submitted", "owners", n)
		return nil
	}, scheduler.WithNoRetry()); err != nil {
		return fmt.Errorf("failed to schedule autosave: %w", err)
	}

	// 2. 宽限期淘汰
	sweepSpec := "@every " + m.config.SweepInterval.String()
	if _, err := m.sched.AddFunc(JobSweep, sweepSpec, func() error {
		m.Sweep()
		return nil
	}, scheduler.WithNoRetry()); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	// 3. 定时备份
	if m.config.BackupCron != "" {
		if _, err := m.sched.AddFunc(JobBackup, m.config.BackupCron, func() error {
			return m.Backup(m.ctx)
		}, scheduler.WithMaxRetries(2)); err != nil {
			return fmt.Errorf("failed to schedule backup: %w", err)
		}
	}
	return nil
}

// Start 启动定时任务
func (m *ToolManager) Start() error {
	m.sched.Start()
	m.logger.Info("tool manager started",
		"autosave", m.config.AutosaveCron,
		"grace", m.config.EvictionGrace.String(),
		"backup", m.config.BackupCron,
	)
	return nil
}

// Stop 停止定时任务并等待运行中的任务结束
func (m *ToolManager) Stop() error {
	m.cancel()
	<-m.sched.Stop().Done()
	return nil
}

// Close 释放 I/O 协程池，须在最终刷盘之后调用
func (m *ToolManager) Close() error {
	m.cancel()
	m.sched.Release()
	m.pool.Release()
	return m.sessions.Close()
}

// ==================== 缓存条目 ====================

// entry 返回已加载的条目，必要时从存储加载（同一玩家并发加载只执行一次）
func (m *ToolManager) entry(ctx context.Context, ownerID string) (*ownerEntry, error) {
	if ownerID == "" {
		return nil, dao.ErrInvalidOwnerID
	}
	if v, ok := m.entries.Load(ownerID); ok {
		m.metrics.RecordCache(true)
		e := v.(*ownerEntry)
		m.touchSession(e)
		return e, nil
	}
	m.metrics.RecordCache(false)

	v, err, _ := m.loads.Do(ownerID, func() (any, error) {
		if v, ok := m.entries.Load(ownerID); ok {
			return v, nil
		}
		m.loading.Store(ownerID, struct{}{})
		defer m.loading.Delete(ownerID)

		var loaded *model.OwnerCollection
		_, err := m.pool.Submit(func() (struct{}, error) {
			c, err := m.storage.Load(ctx, ownerID)
			loaded = c
			return struct{}{}, err
		}).Await()
		if err != nil {
			// 损坏的记录不能被空集合覆盖，保持 Unloaded
			m.logger.Error("failed to load tool collection",
				"owner_id", ownerID,
				"error", err,
			)
			return nil, model.StorageError(err, "load tool collection")
		}
		if loaded == nil {
			loaded = model.NewOwnerCollection(ownerID)
		}
		loaded.OwnerID = ownerID

		e := newOwnerEntry(ownerID, loaded, false)
		actual, existed := m.entries.LoadOrStore(ownerID, e)
		if !existed {
			m.cached.Inc()
			m.metrics.SetCachedOwners(int(m.cached.Load()))
			m.sessions.Set(ownerID, struct{}{})
		}
		m.logger.Debug("tool collection loaded", "owner_id", ownerID, "tools", loaded.Len())
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ownerEntry), nil
}

// withEntry 在条目锁内执行 fn，条目在取得锁之前被淘汰时重新加载
func (m *ToolManager) withEntry(ctx context.Context, ownerID string, fn func(e *ownerEntry) error) error {
	for {
		e, err := m.entry(ctx, ownerID)
		if err != nil {
			return err
		}
		e.mu.Lock()
		if e.state == StateUnloaded {
			e.mu.Unlock()
			continue
		}
		err = fn(e)
		e.mu.Unlock()
		return err
	}
}

// markDirtyLocked 记录一次修改，调用方持有条目锁
func (m *ToolManager) markDirtyLocked(e *ownerEntry) {
	e.touchLocked()
	m.dirty.Add(e.ownerID)
	m.metrics.SetDirtyOwners(m.dirty.Len())
}

// touchSession 离线玩家被访问时刷新宽限期
func (m *ToolManager) touchSession(e *ownerEntry) {
	e.mu.Lock()
	online := e.online
	e.mu.Unlock()
	if !online {
		m.sessions.Set(e.ownerID, struct{}{})
	}
}

// upsert 写入记录，内容未变化时不标脏
func (m *ToolManager) upsert(ctx context.Context, ownerID string, rec *model.ToolRecord) error {
	return m.withEntry(ctx, ownerID, func(e *ownerEntry) error {
		if cur, ok := e.collection.Get(rec.UniqueID); ok && cur.Equal(rec) {
			return nil
		}
		e.collection.Put(rec.Clone())
		m.markDirtyLocked(e)
		return nil
	})
}

// ==================== 对账与修改 ====================

// RegisterTool 为物品分配 uniqueId（如缺失）并写入缓存
func (m *ToolManager) RegisterTool(ctx context.Context, ownerID string, item model.Item) (*model.ToolRecord, error) {
	if !m.store.IsTool(item) {
		return nil, model.ErrNotATool
	}
	rec, warnings := m.store.ReadRecord(item)
	m.reportDecode(ownerID, warnings)

	if rec.UniqueID == "" {
		id, err := m.ids.NextID()
		if err != nil {
			return nil, errors.Wrap(err, "generate unique id")
		}
		if err := m.store.SetField(item, attribute.FieldUniqueID, id); err != nil {
			return nil, err
		}
		rec.UniqueID = id
		m.logger.Debug("tool registered", "owner_id", ownerID, "unique_id", id, "tool_type", rec.ToolTypeID)
	}

	if err := m.upsert(ctx, ownerID, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// HandleToolUpdate 从物品状态重新推导记录并写入缓存
func (m *ToolManager) HandleToolUpdate(ctx context.Context, ownerID string, item model.Item) (*model.ToolRecord, error) {
	if !m.store.IsTool(item) {
		return nil, model.ErrNotATool
	}
	uid, _ := m.store.GetString(item, attribute.FieldUniqueID)
	if uid == "" {
		return m.RegisterTool(ctx, ownerID, item)
	}

	rec, warnings := m.store.ReadRecord(item)
	m.reportDecode(ownerID, warnings)
	if err := m.upsert(ctx, ownerID, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ReconcileOnEncounter 缓存中已有记录时以缓存为准写回物品，否则登记该物品
func (m *ToolManager) ReconcileOnEncounter(ctx context.Context, ownerID string, item model.Item) (*model.ToolRecord, error) {
	rec, _, err := m.reconcile(ctx, ownerID, item)
	return rec, err
}

func (m *ToolManager) reconcile(ctx context.Context, ownerID string, item model.Item) (*model.ToolRecord, bool, error) {
	if !m.store.IsTool(item) {
		return nil, false, model.ErrNotATool
	}
	m.checkConsistency(ownerID, item)

	uid, _ := m.store.GetString(item, attribute.FieldUniqueID)
	if uid != "" {
		var cached *model.ToolRecord
		err := m.withEntry(ctx, ownerID, func(e *ownerEntry) error {
			if rec, ok := e.collection.Get(uid); ok {
				cached = rec.Clone()
			}
			return nil
		})
		if err != nil {
			return nil, false, err
		}
		if cached != nil {
			m.store.WriteRecord(item, cached)
			return cached, false, nil
		}
	}

	rec, err := m.RegisterTool(ctx, ownerID, item)
	return rec, true, err
}

// ReconcileAll 上线时对玩家持有的全部物品对账
//
// 同一批次中重复的 uniqueId 只处理第一次出现，后续物品保持原样并记录在报告中。
func (m *ToolManager) ReconcileAll(ctx context.Context, ownerID string, items []model.Item) (*JoinReport, error) {
	report := &JoinReport{}
	seen := make(map[string]int)

	for i, item := range items {
		if !m.store.IsTool(item) {
			report.Skipped++
			continue
		}

		uid, _ := m.store.GetString(item, attribute.FieldUniqueID)
		if uid != "" {
			if first, ok := seen[uid]; ok {
				report.Duplicates = append(report.Duplicates, Duplicate{UniqueID: uid, Index: i, FirstIndex: first})
				m.metrics.RecordDuplicate()
				m.logger.Warn("duplicate unique id in owner inventory",
					"owner_id", ownerID,
					"unique_id", uid,
					"index", i,
					"first_index", first,
				)
				continue
			}
			seen[uid] = i
		}

		_, registered, err := m.reconcile(ctx, ownerID, item)
		if err != nil {
			return report, err
		}
		if registered {
			report.Registered++
		} else {
			report.Reconciled++
		}
	}
	return report, nil
}

// UpdateAll 对所有缓存记录执行 fn，fn 返回 true 表示记录被修改
func (m *ToolManager) UpdateAll(fn func(rec *model.ToolRecord) bool) int {
	changed := 0
	m.entries.Range(func(_, v any) bool {
		e := v.(*ownerEntry)
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.state == StateUnloaded {
			return true
		}
		n := 0
		for _, rec := range e.collection.Tools {
			if fn(rec) {
				n++
			}
		}
		if n > 0 {
			m.markDirtyLocked(e)
			changed += n
		}
		return true
	})
	return changed
}

// Delete 删除一件工具：从缓存移除并从存储删除
func (m *ToolManager) Delete(ctx context.Context, ownerID, uniqueID string) error {
	removed := false
	if v, ok := m.entries.Load(ownerID); ok {
		e := v.(*ownerEntry)
		e.mu.Lock()
		if e.state != StateUnloaded && e.collection.Remove(uniqueID) {
			removed = true
			m.markDirtyLocked(e)
		}
		e.mu.Unlock()
	}

	err := m.storage.Delete(ctx, ownerID, uniqueID)
	if err == nil {
		m.logger.Info("tool deleted", "owner_id", ownerID, "unique_id", uniqueID)
		return nil
	}
	if removed {
		// 缓存已移除且已标脏，下一次刷盘会覆盖存储中的记录
		m.logger.Warn("tool removed from cache, storage delete deferred to next flush",
			"owner_id", ownerID,
			"unique_id", uniqueID,
			"error", err,
		)
		return nil
	}
	return err
}

// ==================== 会话 ====================

// HandleJoin 玩家上线：加载集合、标记在线并对账
func (m *ToolManager) HandleJoin(ctx context.Context, ownerID string, items []model.Item) (*JoinReport, error) {
	err := m.withEntry(ctx, ownerID, func(e *ownerEntry) error {
		e.online = true
		e.quitAt = time.Time{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.sessions.Delete(ownerID)
	return m.ReconcileAll(ctx, ownerID, items)
}

// HandleQuit 玩家下线：开始宽限期并异步刷盘
func (m *ToolManager) HandleQuit(ctx context.Context, ownerID string) {
	v, ok := m.entries.Load(ownerID)
	if !ok {
		return
	}
	e := v.(*ownerEntry)
	e.mu.Lock()
	e.online = false
	e.quitAt = m.now()
	e.mu.Unlock()

	m.sessions.Set(ownerID, struct{}{})
	m.submitFlush(ctx, e, TriggerQuit)
}

// Sweep 淘汰宽限期已过的玩家，返回到期数量
func (m *ToolManager) Sweep() int {
	return m.sessions.Sweep()
}

func (m *ToolManager) onSessionEvict(ownerID string, _ struct{}, reason lru.EvictReason) {
	if reason != lru.EvictExpired {
		return
	}
	m.evict(ownerID)
}

// evict 阻塞刷盘后移除条目；刷盘失败时放回，下一次扫描重试
func (m *ToolManager) evict(ownerID string) {
	v, ok := m.entries.Load(ownerID)
	if !ok {
		return
	}
	e := v.(*ownerEntry)

	ctx, cancel := context.WithTimeout(context.Background(), m.config.FlushTimeout)
	defer cancel()
	err := m.flushEntry(ctx, e, TriggerEviction)

	e.mu.Lock()
	if e.online {
		e.mu.Unlock()
		return
	}
	if err != nil || e.flushing || e.dirtyLocked() {
		e.mu.Unlock()
		m.metrics.RecordEviction(false)
		m.logger.Warn("eviction aborted, retrying on next sweep",
			"owner_id", ownerID,
			"error", err,
		)
		m.sessions.SetWithTTL(ownerID, struct{}{}, 0)
		return
	}
	e.state = StateUnloaded
	m.entries.Delete(ownerID)
	m.dirty.Remove(ownerID)
	e.mu.Unlock()

	m.cached.Dec()
	m.metrics.SetCachedOwners(int(m.cached.Load()))
	m.metrics.RecordEviction(true)
	m.logger.Debug("owner evicted", "owner_id", ownerID)
}

// ==================== 刷盘 ====================

// submitFlush 在锁内取快照并提交写入，已有刷盘进行中或无需刷盘时返回 false
func (m *ToolManager) submitFlush(ctx context.Context, e *ownerEntry, trigger string) (*conc.Future[struct{}], bool) {
	e.mu.Lock()
	if e.flushing || e.state == StateUnloaded || !e.dirtyLocked() {
		e.mu.Unlock()
		return nil, false
	}
	e.flushing = true
	e.flushedGen = e.generation
	e.flushDone = make(chan struct{})
	e.state = StateFlushing
	captured := e.flushedGen
	snapshot := e.collection.DeepCopy()
	snapshot.LastSaved = m.now()
	e.mu.Unlock()

	start := m.now()
	started := atomic.NewBool(false)
	f := m.pool.Submit(func() (struct{}, error) {
		started.Store(true)
		wctx, cancel := context.WithTimeout(ctx, m.config.FlushTimeout)
		defer cancel()
		err := m.storage.Save(wctx, e.ownerID, snapshot)
		m.finishFlush(e, captured, snapshot.LastSaved, trigger, start, err)
		return struct{}{}, err
	})
	if f.Done() && !started.Load() {
		// 提交失败，任务不会执行
		m.finishFlush(e, captured, snapshot.LastSaved, trigger, start, f.Err())
	}
	return f, true
}

func (m *ToolManager) finishFlush(e *ownerEntry, captured uint64, savedAt time.Time, trigger string, start time.Time, err error) {
	e.mu.Lock()
	e.flushing = false
	if err == nil {
		e.savedGen = captured
		e.collection.LastSaved = savedAt
	}
	e.settleLocked()
	if e.state == StateClean {
		m.dirty.Remove(e.ownerID)
	} else {
		m.dirty.Add(e.ownerID)
	}
	done := e.flushDone
	e.flushDone = nil
	e.mu.Unlock()
	if done != nil {
		close(done)
	}

	m.metrics.RecordFlush(trigger, err == nil, m.now().Sub(start))
	m.metrics.SetDirtyOwners(m.dirty.Len())
	if err != nil {
		m.logger.Error("failed to flush tool collection",
			"owner_id", e.ownerID,
			"trigger", trigger,
			"error", err,
		)
	}
}

// flushEntry 阻塞刷盘；已有刷盘进行中时等待其结束，仍为脏再刷一次
func (m *ToolManager) flushEntry(ctx context.Context, e *ownerEntry, trigger string) error {
	for {
		f, ok := m.submitFlush(ctx, e, trigger)
		if ok {
			if err := f.Err(); err != nil {
				return model.StorageError(err, "flush tool collection")
			}
			return nil
		}

		e.mu.Lock()
		done := e.flushDone
		e.mu.Unlock()
		if done == nil {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Flush 阻塞刷盘单个玩家，未加载的玩家直接返回
func (m *ToolManager) Flush(ctx context.Context, ownerID string) error {
	v, ok := m.entries.Load(ownerID)
	if !ok {
		return nil
	}
	return m.flushEntry(ctx, v.(*ownerEntry), TriggerExplicit)
}

// FlushAll 按速率限制异步提交所有脏玩家的刷盘，返回提交数量
func (m *ToolManager) FlushAll(ctx context.Context) int {
	submitted := 0
	for _, ownerID := range m.dirty.Snapshot() {
		v, ok := m.entries.Load(ownerID)
		if !ok {
			m.dirty.Remove(ownerID)
			continue
		}
		if err := m.limiter.Wait(ctx); err != nil {
			m.logger.Warn("autosave interrupted", "submitted", submitted, "error", err)
			break
		}
		if _, ok := m.submitFlush(ctx, v.(*ownerEntry), TriggerAutosave); ok {
			submitted++
		}
	}
	return submitted
}

// FlushAllSync 并行刷盘全部缓存玩家并等待结束，返回第一个失败
func (m *ToolManager) FlushAllSync(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(m.config.IOWorkers)

	m.entries.Range(func(_, v any) bool {
		e := v.(*ownerEntry)
		g.Go(func() error {
			return m.flushEntry(ctx, e, TriggerShutdown)
		})
		return true
	})
	err := g.Wait()
	if err != nil {
		m.logger.Error("flush all incomplete", "dirty", m.dirty.Len(), "error", err)
		return err
	}
	m.logger.Info("all tool collections flushed", "cached", m.cached.Load())
	return nil
}

// Backup 触发存储备份，配置了 Locker 时多实例互斥
func (m *ToolManager) Backup(ctx context.Context) error {
	run := func() error {
		if !m.storage.Backup(ctx) {
			return ErrBackupFailed
		}
		m.logger.Info("storage backup finished")
		return nil
	}
	if m.locker == nil {
		return run()
	}
	return m.locker.WithLock(ctx, backupLockKey, m.config.BackupLockTTL, run)
}

// ==================== 查询 ====================

// Tools 返回玩家的全部记录副本（按 uniqueId 排序），必要时加载
func (m *ToolManager) Tools(ctx context.Context, ownerID string) ([]*model.ToolRecord, error) {
	var out []*model.ToolRecord
	err := m.withEntry(ctx, ownerID, func(e *ownerEntry) error {
		out = make([]*model.ToolRecord, 0, e.collection.Len())
		for _, rec := range e.collection.Tools {
			out = append(out, rec.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UniqueID < out[j].UniqueID })
	return out, nil
}

// State 返回玩家当前状态，不触发加载
func (m *ToolManager) State(ownerID string) OwnerState {
	if _, ok := m.loading.Load(ownerID); ok {
		return StateLoading
	}
	v, ok := m.entries.Load(ownerID)
	if !ok {
		return StateUnloaded
	}
	e := v.(*ownerEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsDirty 玩家是否在待刷盘集合中
func (m *ToolManager) IsDirty(ownerID string) bool {
	return m.dirty.Has(ownerID)
}

// Owners 返回已缓存的玩家
func (m *ToolManager) Owners() []string {
	var out []string
	m.entries.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	sort.Strings(out)
	return out
}

// Stats 运行状态快照
func (m *ToolManager) Stats() Stats {
	return Stats{
		Cached:  int(m.cached.Load()),
		Dirty:   m.dirty.Len(),
		Grace:   m.sessions.Len(),
		Flushes: m.metrics.FlushStats(),
		Jobs:    m.sched.ListJobs(),
	}
}

func (m *ToolManager) reportDecode(ownerID string, warnings []*attribute.DecodeError) {
	for _, w := range warnings {
		m.metrics.RecordDecodeWarning(w.Field)
		m.logger.Warn("malformed encoded attribute",
			"owner_id", ownerID,
			"field", w.Field,
			"error", w.Error(),
		)
	}
}

func (m *ToolManager) checkConsistency(ownerID string, item model.Item) {
	divergences := m.store.CheckConsistency(item)
	if len(divergences) == 0 {
		return
	}
	m.metrics.RecordDivergence(len(divergences))
	m.logger.Warn("cube multiplier fields diverge from applied_cubes",
		"owner_id", ownerID,
		"divergences", fmt.Sprint(divergences),
	)
}
