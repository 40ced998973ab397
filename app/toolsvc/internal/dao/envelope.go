package dao

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-version"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
	"github.com/ImOpaque/GensTools-sub000/pkg/checksum"
	"github.com/ImOpaque/GensTools-sub000/pkg/compress"
	"github.com/ImOpaque/GensTools-sub000/pkg/pool/bytebuff"
	"github.com/ImOpaque/GensTools-sub000/pkg/serializer"
)

// 二进制记录布局：
//
//	magic "TOOL"(4) | version len(1) | version | compression(1) | checksum type(1) | checksum(4) | body
//
// body 为压缩后的 msgpack，checksum 覆盖 body。
const (
	EnvelopeVersion = "1.0.0"

	envelopeMagic = "TOOL"
)

var supportedVersions = version.MustConstraints(version.NewConstraint(">= 1.0.0, < 2.0.0"))

var (
	// ErrCorruptRecord 记录损坏（截断、校验失败、无法解码）
	ErrCorruptRecord = errors.New("corrupt tool record")
	// ErrUnsupportedVersion 记录版本高于当前支持的主版本
	ErrUnsupportedVersion = errors.New("unsupported record version")
)

// Envelope 二进制记录编解码
//
// 写入使用配置的压缩与校验算法，读取按头部记录的算法解码。
type Envelope struct {
	compressor compress.Compressor
	hasher     checksum.Hasher
	serializer serializer.Serializer
}

// NewEnvelope 创建编解码器
func NewEnvelope(c compress.Type, h checksum.Type) (*Envelope, error) {
	comp, err := compress.New(c)
	if err != nil {
		return nil, err
	}
	hasher, err := checksum.New(h)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		compressor: comp,
		hasher:     hasher,
		serializer: serializer.NewMsgpack(),
	}, nil
}

// Marshal 编码玩家集合
func (e *Envelope) Marshal(ownerID string, c *model.OwnerCollection) ([]byte, error) {
	raw, err := e.serializer.Serialize(toRecordSet(ownerID, c))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize record set: %w", err)
	}
	body, err := e.compressor.Compress(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to compress record set: %w", err)
	}

	return bytebuff.Render(func(buf *bytebuff.Buffer) error {
		_, _ = buf.WriteString(envelopeMagic)
		_ = buf.WriteByte(byte(len(EnvelopeVersion)))
		_, _ = buf.WriteString(EnvelopeVersion)
		_ = buf.WriteByte(e.compressor.ID())
		_ = buf.WriteByte(e.hasher.ID())
		_, _ = buf.Write(binary.BigEndian.AppendUint32(nil, e.hasher.Sum(body)))
		_, err := buf.Write(body)
		return err
	})
}

// Unmarshal 解码玩家集合，任何结构问题都返回 ErrCorruptRecord
func (e *Envelope) Unmarshal(data []byte) (*model.OwnerCollection, error) {
	if len(data) < len(envelopeMagic)+1 || !bytes.HasPrefix(data, []byte(envelopeMagic)) {
		return nil, errors.Wrap(ErrCorruptRecord, "bad magic")
	}
	p := len(envelopeMagic)
	vlen := int(data[p])
	p++
	if len(data) < p+vlen+2+4 {
		return nil, errors.Wrap(ErrCorruptRecord, "truncated header")
	}
	rawVersion := string(data[p : p+vlen])
	p += vlen

	v, err := version.NewVersion(rawVersion)
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptRecord, "bad version %q", rawVersion)
	}
	if !supportedVersions.Check(v) {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %s", v)
	}

	comp, err := compress.ByID(data[p])
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptRecord, "%v", err)
	}
	hasher, err := checksum.ByID(data[p+1])
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptRecord, "%v", err)
	}
	p += 2
	sum := binary.BigEndian.Uint32(data[p : p+4])
	body := data[p+4:]
	if !hasher.Verify(body, sum) {
		return nil, errors.Wrap(ErrCorruptRecord, "checksum mismatch")
	}

	raw, err := comp.Decompress(body)
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptRecord, "decompress: %v", err)
	}
	var rs recordSet
	if err := e.serializer.Deserialize(raw, &rs); err != nil {
		return nil, errors.Wrapf(ErrCorruptRecord, "decode: %v", err)
	}
	return rs.collection(), nil
}
