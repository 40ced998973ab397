package compress

import (
	"encoding/binary"
	"errors"
	"slices"

	"github.com/pierrec/lz4/v4"
)

var ErrCorruptLZ4 = errors.New("compress: corrupt lz4 block")

// 块格式: 原始长度 uint32 LE | 模式 1B | 数据
// 模式 0 为 lz4 块，1 为不可压缩时的原样拷贝
type lz4Compressor struct{}

const (
	lz4HeaderSize = 5
	lz4Block      = 0
	lz4Raw        = 1
	lz4MaxSize    = 64 << 20
)

func (lz4Compressor) Compress(src []byte) ([]byte, error) {
	if src == nil {
		return nil, nil
	}

	dst := make([]byte, lz4HeaderSize+lz4.CompressBlockBound(len(src)))
	binary.LittleEndian.PutUint32(dst, uint32(len(src)))

	n, err := lz4.CompressBlock(src, dst[lz4HeaderSize:], nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		dst[4] = lz4Raw
		copy(dst[lz4HeaderSize:], src)
		return dst[:lz4HeaderSize+len(src)], nil
	}
	dst[4] = lz4Block
	return dst[:lz4HeaderSize+n], nil
}

func (lz4Compressor) Decompress(src []byte) ([]byte, error) {
	if src == nil {
		return nil, nil
	}
	if len(src) < lz4HeaderSize {
		return nil, ErrCorruptLZ4
	}

	size := binary.LittleEndian.Uint32(src)
	if size > lz4MaxSize {
		return nil, ErrCorruptLZ4
	}
	body := src[lz4HeaderSize:]

	switch src[4] {
	case lz4Raw:
		if uint32(len(body)) != size {
			return nil, ErrCorruptLZ4
		}
		return slices.Clone(body), nil
	case lz4Block:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(body, dst)
		if err != nil {
			return nil, err
		}
		if uint32(n) != size {
			return nil, ErrCorruptLZ4
		}
		return dst, nil
	default:
		return nil, ErrCorruptLZ4
	}
}

func (lz4Compressor) Name() string { return string(TypeLZ4) }
func (lz4Compressor) ID() byte { return idOf(TypeLZ4) }
