package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/atomic"
)

var (
	// ErrEmptyJobName 任务名为空
	ErrEmptyJobName = errors.New("scheduler: job name is empty")
	// ErrDuplicateJob 任务名重复
	ErrDuplicateJob = errors.New("scheduler: job already exists")
	// ErrJobNotFound 任务不存在
	ErrJobNotFound = errors.New("scheduler: job not found")
)

// JobID 任务标识
type JobID int

// Job 任务接口
type Job interface {
	Run() error
	Name() string
}

// JobInfo 任务快照信息
type JobInfo struct {
	ID        JobID
	Name      string
	Spec      string
	NextRun   time.Time
	PrevRun   time.Time
	RunCount  int64
	FailCount int64
}

type jobEntry struct {
	id        JobID
	name      string
	spec      string
	fn        func() error
	opts      JobOptions
	runCount  atomic.Int64
	failCount atomic.Int64
}

// Option 调度器选项
type Option func(*Scheduler)

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// Scheduler 基于 robfig/cron 的定时任务调度器，支持重试与退避
type Scheduler struct {
	cfg    *Config
	cron   *cron.Cron
	logger logger.Logger

	mu     sync.RWMutex
	jobs   map[JobID]*jobEntry
	byName map[string]JobID

	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建调度器
func New(cfg *Config, opts ...Option) (*Scheduler, error) {
	newCfg, err := mergeConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge scheduler config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cfg:    newCfg,
		logger: logger.NewNoop(),
		jobs:   make(map[JobID]*jobEntry),
		byName: make(map[string]JobID),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("scheduler")

	cronLog := &cronLogger{l: s.logger}
	cronOpts := []cron.Option{cron.WithLogger(cronLog)}

	if newCfg.Timezone != "" {
		loc, err := time.LoadLocation(newCfg.Timezone)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("invalid timezone %q: %w", newCfg.Timezone, err)
		}
		cronOpts = append(cronOpts, cron.WithLocation(loc))
	}
	if newCfg.WithSeconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}

	wrappers := make([]cron.JobWrapper, 0, 2)
	if newCfg.Middleware.Recovery {
		wrappers = append(wrappers, cron.Recover(cronLog))
	}
	if newCfg.SkipIfStillRunning {
		wrappers = append(wrappers, cron.SkipIfStillRunning(cronLog))
	}
	cronOpts = append(cronOpts, cron.WithChain(wrappers...))

	s.cron = cron.New(cronOpts...)
	return s, nil
}

// AddFunc 添加函数任务
func (s *Scheduler) AddFunc(name, spec string, fn func() error, opts ...JobOption) (JobID, error) {
	if name == "" {
		return 0, ErrEmptyJobName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[name]; ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	jobOpts := s.cfg.DefaultJobOptions
	for _, opt := range opts {
		opt(&jobOpts)
	}

	entry := &jobEntry{
		name: name,
		spec: spec,
		fn:   fn,
		opts: jobOpts,
	}

	id, err := s.cron.AddFunc(spec, func() { s.execute(entry) })
	if err != nil {
		return 0, fmt.Errorf("failed to add job %s: %w", name, err)
	}

	entry.id = JobID(id)
	s.jobs[entry.id] = entry
	s.byName[name] = entry.id

	s.logger.Debug("job added", "name", name, "spec", spec, "id", entry.id)
	return entry.id, nil
}

// AddJob 添加 Job 接口任务
func (s *Scheduler) AddJob(name, spec string, job Job, opts ...JobOption) (JobID, error) {
	return s.AddFunc(name, spec, job.Run, opts...)
}

// Remove 移除任务
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	s.cron.Remove(cron.EntryID(id))
	delete(s.jobs, id)
	delete(s.byName, name)
	return nil
}

// RunNow 立即同步执行一次指定任务（不影响调度）
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	id, ok := s.byName[name]
	var entry *jobEntry
	if ok {
		entry = s.jobs[id]
	}
	s.mu.RUnlock()

	if entry == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.execute(entry)
}

// execute 执行任务（含重试）
func (s *Scheduler) execute(e *jobEntry) error {
	start := time.Now()
	e.runCount.Inc()

	err := e.fn()
	for attempt := 1; err != nil && attempt <= e.opts.MaxRetries; attempt++ {
		wait := e.opts.backoff(attempt)
		s.logger.Warn("job failed, retrying",
			"job", e.name,
			"attempt", attempt,
			"backoff", wait.String(),
			"error", err,
		)

		select {
		case <-time.After(wait):
		case <-s.ctx.Done():
			return err
		}
		err = e.fn()
	}

	if err != nil {
		e.failCount.Inc()
		s.logger.Error("job failed", "job", e.name, "error", err)
		return err
	}

	if s.cfg.Middleware.Logging {
		s.logger.Debug("job finished", "job", e.name, "elapsed", time.Since(start).String())
	}
	return nil
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度，返回的 context 在运行中的任务结束后 Done
func (s *Scheduler) Stop() context.Context {
	s.cancel()
	return s.cron.Stop()
}

// Release 停止调度并等待运行中的任务结束
func (s *Scheduler) Release() {
	<-s.Stop().Done()
}

// ListJobs 列出所有任务
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for id, e := range s.jobs {
		ce := s.cron.Entry(cron.EntryID(id))
		infos = append(infos, JobInfo{
			ID:        id,
			Name:      e.name,
			Spec:      e.spec,
			NextRun:   ce.Next,
			PrevRun:   ce.Prev,
			RunCount:  e.runCount.Load(),
			FailCount: e.failCount.Load(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// cronLogger 适配 cron.Logger
type cronLogger struct {
	l logger.Logger
}

func (c *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
