package conc

// Future 异步任务的结果句柄
type Future[T any] struct {
	ch    chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{
		ch: make(chan struct{}),
	}
}

// Inner 返回任务完成信号通道，可用于 select
func (f *Future[T]) Inner() <-chan struct{} {
	return f.ch
}

// Done 任务是否已完成（非阻塞）
func (f *Future[T]) Done() bool {
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}

// Await 阻塞等待任务完成并返回结果
func (f *Future[T]) Await() (T, error) {
	<-f.ch
	return f.value, f.err
}

// Value 等待并返回结果值（忽略错误）
func (f *Future[T]) Value() T {
	<-f.ch
	return f.value
}

// Err 等待并返回错误
func (f *Future[T]) Err() error {
	<-f.ch
	return f.err
}

// OK 任务是否成功完成
func (f *Future[T]) OK() bool {
	<-f.ch
	return f.err == nil
}

func (f *Future[T]) complete(value T, err error) {
	f.value = value
	f.err = err
	close(f.ch)
}

// AwaitAll 等待所有 Future 完成，返回遇到的第一个错误
func AwaitAll[T any](futures ...*Future[T]) error {
	var first error
	for _, f := range futures {
		if err := f.Err(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Go 在新协程中执行函数并返回 Future
func Go[T any](fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
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
	}()
	return f
}
