package app

import "github.com/google/wire"

var ProviderSet = wire.NewSet(NewBaseApp)

// AppComponents 由 wire 收集，Closers 按依赖顺序排列
type AppComponents struct {
	Servers []Server
	Closers []Closer
}

func InitApp(a *BaseApp, comps AppComponents) Application {
	a.AppendServer(comps.Servers...)
	a.AppendCloser(comps.Closers...)
	return a
}

type CloserFunc func() error

func (f CloserFunc) Close() error { return f() }

// MapCloser 适配没有返回值的 Close
func MapCloser(c interface{ Close() }) Closer {
	return CloserFunc(func() error { c.Close(); return nil })
}
