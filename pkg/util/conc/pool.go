package conc

import (
	"fmt"
	"runtime"

	"github.com/panjf2000/ants/v2"
)

// poolOptions 协程池选项
type poolOptions struct {
	preAlloc     bool
	nonBlocking  bool
	panicHandler func(any)
}

// PoolOption 协程池配置函数
type PoolOption func(*poolOptions)

// WithPreAlloc 是否预分配 worker 队列
func WithPreAlloc(v bool) PoolOption {
	return func(o *poolOptions) { o.preAlloc = v }
}

// WithNonBlocking 池满时立即返回 ErrPoolOverload 而不是阻塞等待
func WithNonBlocking(v bool) PoolOption {
	return func(o *poolOptions) { o.nonBlocking = v }
}

// WithPanicHandler 设置 worker panic 处理函数
func WithPanicHandler(fn func(any)) PoolOption {
	return func(o *poolOptions) { o.panicHandler = fn }
}

// Pool 基于 ants 的泛型协程池，Submit 返回 Future
type Pool[T any] struct {
	inner *ants.Pool
}

// NewPool 创建指定容量的协程池
func NewPool[T any](cap int, opts ...PoolOption) *Pool[T] {
	o := &poolOptions{preAlloc: false}
	for _, opt := range opts {
		opt(o)
	}

	antsOpts := []ants.Option{
		ants.WithPreAlloc(o.preAlloc),
		ants.WithNonblocking(o.nonBlocking),
	}
	if o.panicHandler != nil {
		antsOpts = append(antsOpts, ants.WithPanicHandler(o.panicHandler))
	}

	p, err := ants.NewPool(cap, antsOpts...)
	if err != nil {
		// 仅在 cap 非法且启用预分配时出现，属于调用方编程错误
		panic(fmt.Sprintf("conc: failed to create pool: %v", err))
	}
	return &Pool[T]{inner: p}
}

// NewDefaultPool 创建容量为 GOMAXPROCS 的协程池
func NewDefaultPool[T any](opts ...PoolOption) *Pool[T] {
	return NewPool[T](runtime.GOMAXPROCS(0), opts...)
}

// Submit 提交任务
func (p *Pool[T]) Submit(fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	err := p.inner.Submit(func() {
		var (
			value T
			err   error
		)
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
			}
			f.complete(value, err)
		}()
		value, err = fn()
	})
	if err != nil {
		var zero T
		f.complete(zero, fmt.Errorf("conc: submit failed: %w", err))
	}
	return f
}

// Running 正在运行的 worker 数
func (p *Pool[T]) Running() int {
	return p.inner.Running()
}

// Free 空闲容量
func (p *Pool[T]) Free() int {
	return p.inner.Free()
}

// Cap 池容量
func (p *Pool[T]) Cap() int {
	return p.inner.Cap()
}

// Release 释放协程池
func (p *Pool[T]) Release() {
	p.inner.Release()
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("conc: task panicked: %w", err)
	}
	return fmt.Errorf("conc: task panicked: %v", r)
}
