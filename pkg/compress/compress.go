// Package compress 存储载荷的压缩算法
//
// 每种算法有一个写入存储头部的编号，编号一经使用不可更改。
package compress

import (
	"fmt"
	"slices"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

type Compressor interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
	Name() string
	ID() byte
}

type Type string

const (
	TypeNone   Type = "none"
	TypeSnappy Type = "snappy"
	TypeZstd   Type = "zstd"
	TypeLZ4    Type = "lz4"
)

// 下标即编号
var registry = [...]Type{TypeNone, TypeSnappy, TypeZstd, TypeLZ4}

// zstd 编解码器可并发使用 EncodeAll/DecodeAll，全进程共享一份
var zstdCodec = sync.OnceValues(func() (*zstdCompressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, err
	}
	return &zstdCompressor{enc: enc, dec: dec}, nil
})

// New 空字符串等同 TypeNone
func New(t Type) (Compressor, error) {
	switch t {
	case TypeNone, "":
		return noop{}, nil
	case TypeSnappy:
		return snappyCompressor{}, nil
	case TypeZstd:
		return zstdCodec()
	case TypeLZ4:
		return lz4Compressor{}, nil
	}
	return nil, fmt.Errorf("compress: unknown algorithm %q", t)
}

// ByID 按存储头部中的编号还原压缩器
func ByID(id byte) (Compressor, error) {
	if int(id) >= len(registry) {
		return nil, fmt.Errorf("compress: unknown algorithm id %d", id)
	}
	return New(registry[id])
}

func idOf(t Type) byte {
	return byte(slices.Index(registry[:], t))
}

// nil 进 nil 出
func guard(src []byte, fn func([]byte) ([]byte, error)) ([]byte, error) {
	if src == nil {
		return nil, nil
	}
	return fn(src)
}

type noop struct{}

func (noop) Compress(src []byte) ([]byte, error) { return slices.Clone(src), nil }
func (noop) Decompress(src []byte) ([]byte, error) { return slices.Clone(src), nil }
func (noop) Name() string { return string(TypeNone) }
func (noop) ID() byte { return idOf(TypeNone) }

type snappyCompressor struct{}

func (snappyCompressor) Compress(src []byte) ([]byte, error) {
	return guard(src, func(b []byte) ([]byte, error) { return snappy.Encode(nil, b), nil })
}

func (snappyCompressor) Decompress(src []byte) ([]byte, error) {
	return guard(src, func(b []byte) ([]byte, error) { return snappy.Decode(nil, b) })
}

func (snappyCompressor) Name() string { return string(TypeSnappy) }
func (snappyCompressor) ID() byte { return idOf(TypeSnappy) }

type zstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func (z *zstdCompressor) Compress(src []byte) ([]byte, error) {
	return guard(src, func(b []byte) ([]byte, error) { return z.enc.EncodeAll(b, nil), nil })
}

func (z *zstdCompressor) Decompress(src []byte) ([]byte, error) {
	return guard(src, func(b []byte) ([]byte, error) { return z.dec.DecodeAll(b, nil) })
}

func (z *zstdCompressor) Name() string { return string(TypeZstd) }
func (z *zstdCompressor) ID() byte { return idOf(TypeZstd) }
