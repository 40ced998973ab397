// Package app 进程生命周期：启动 Server，等待信号，停止 Server 后逆序关闭资源
package app

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

var ErrAppAlreadyRunning = errors.New("app: already running")

type Application interface {
	Run() error
	Stop()
	Shutdown() error
	Logger() logger.Logger
}

// Server 长期运行的组件，Start 不阻塞
type Server interface {
	Start() error
	Stop() error
}

type Closer interface {
	Close() error
}

// BaseApp Server 按注册顺序启动、并发停止；Closer 在全部 Server 停止后逆序关闭
type BaseApp struct {
	opts   Options
	logger logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	servers  []Server
	closers  []Closer
	running  bool
	shutdown bool
}

func NewBaseApp(opts ...Option) *BaseApp {
	o := Options{
		Name:        AppName,
		Version:     Version,
		StopTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = logger.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &BaseApp{opts: o, logger: o.Logger.Named(o.Name), ctx: ctx, cancel: cancel}
}

func (a *BaseApp) Logger() logger.Logger { return a.logger }

// Run 阻塞到 SIGINT/SIGTERM 或 Stop，然后执行 Shutdown
func (a *BaseApp) Run() error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrAppAlreadyRunning
	}
	a.running = true
	servers := append([]Server(nil), a.servers...)
	a.mu.Unlock()

	a.logger.Info("starting", "version", a.opts.Version, "build", BuildInfo().String())

	for i, srv := range servers {
		if err := srv.Start(); err != nil {
			a.logger.Error("server failed to start", "index", i, "error", err)
			return errors.Join(err, a.Shutdown())
		}
	}

	sigCtx, stop := signal.NotifyContext(a.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	if a.ctx.Err() == nil {
		a.logger.Info("signal received")
	}

	return a.Shutdown()
}

func (a *BaseApp) Stop() { a.cancel() }

// Shutdown 只执行一次，之后返回 nil
func (a *BaseApp) Shutdown() error {
	a.mu.Lock()
	if a.shutdown {
		a.mu.Unlock()
		return nil
	}
	a.shutdown = true
	servers, closers := a.servers, a.closers
	a.mu.Unlock()

	a.cancel()
	var errs []error

	// 1. 并发停止 Server，超过 StopTimeout 不再等待
	g := new(errgroup.Group)
	for _, srv := range servers {
		g.Go(srv.Stop)
	}
	stopped := make(chan error, 1)
	go func() { stopped <- g.Wait() }()

	select {
	case err := <-stopped:
		if err != nil {
			a.logger.Error("server stop failed", "error", err)
			errs = append(errs, err)
		}
	case <-time.After(a.opts.StopTimeout):
		a.logger.Warn("servers did not stop in time", "timeout", a.opts.StopTimeout)
	}

	// 2. 逆序关闭，后注册的依赖先注册的
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			a.logger.Error("close failed", "index", i, "error", err)
			errs = append(errs, err)
		}
	}

	a.logger.Info("stopped")
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

func (a *BaseApp) AppendServer(srv ...Server) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.servers = append(a.servers, srv...)
}

func (a *BaseApp) AppendCloser(c ...Closer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, c...)
}
