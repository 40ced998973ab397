// Package bytebuff 临时编码缓冲，基于 valyala/bytebufferpool
package bytebuff

import (
	"slices"

	"github.com/valyala/bytebufferpool"
)

type Buffer = bytebufferpool.ByteBuffer

var pool bytebufferpool.Pool

// Render 在池化缓冲上执行 fn，返回内容副本；缓冲在返回前归还
func Render(fn func(*Buffer) error) ([]byte, error) {
	buf := pool.Get()
	defer pool.Put(buf)

	if err := fn(buf); err != nil {
		return nil, err
	}
	return slices.Clone(buf.B), nil
}
