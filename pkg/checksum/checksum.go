// Package checksum 存储载荷的 32 位校验和
package checksum

import (
	"fmt"
	"hash/crc32"

	"github.com/cespare/xxhash/v2"
)

type Hasher interface {
	Sum(data []byte) uint32
	Verify(data []byte, expected uint32) bool
	Name() string
	// ID 写入存储头部，0 保留
	ID() byte
}

type Type string

const (
	TypeCRC32  Type = "crc32"
	TypeCRC32C Type = "crc32c"
	// TypeXXHash 取 xxhash64 的低 32 位
	TypeXXHash Type = "xxhash"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// 下标即编号
var algorithms = [...]hasher{
	1: {id: 1, name: TypeCRC32, sum: crc32.ChecksumIEEE},
	2: {id: 2, name: TypeCRC32C, sum: func(b []byte) uint32 { return crc32.Checksum(b, castagnoli) }},
	3: {id: 3, name: TypeXXHash, sum: func(b []byte) uint32 { return uint32(xxhash.Sum64(b)) }},
}

// New 空类型使用 CRC32C
func New(t Type) (Hasher, error) {
	if t == "" {
		t = TypeCRC32C
	}
	for i := range algorithms {
		if h := &algorithms[i]; h.id != 0 && h.name == t {
			return h, nil
		}
	}
	return nil, fmt.Errorf("checksum: unknown algorithm %q", t)
}

func ByID(id byte) (Hasher, error) {
	if id == 0 || int(id) >= len(algorithms) {
		return nil, fmt.Errorf("checksum: unknown algorithm id %d", id)
	}
	return &algorithms[id], nil
}

type hasher struct {
	id   byte
	name Type
	sum  func([]byte) uint32
}

func (h *hasher) Sum(data []byte) uint32 { return h.sum(data) }

func (h *hasher) Verify(data []byte, expected uint32) bool { return h.sum(data) == expected }

func (h *hasher) Name() string { return string(h.name) }

func (h *hasher) ID() byte { return h.id }
