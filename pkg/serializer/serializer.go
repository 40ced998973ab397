// Package serializer 记录集的编码格式
package serializer

import (
	"bytes"
	"reflect"

	"github.com/hashicorp/go-msgpack/v2/codec"
	"gopkg.in/yaml.v3"

	"github.com/ImOpaque/GensTools-sub000/pkg/pool/bytebuff"
)

type Serializer interface {
	Serialize(v any) ([]byte, error)
	Deserialize(data []byte, v any) error
	// Name 写入日志
	Name() string
}

// 字符串按 str 类型读出，嵌套 map 解成 map[string]interface{}
var msgpackHandle = func() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.MapType = reflect.TypeOf(map[string]interface{}{})
	h.RawToString = true
	return h
}()

// Encode 以 msgpack 编码，字段名取 codec tag
func Encode(v any) ([]byte, error) {
	return bytebuff.Render(func(b *bytebuff.Buffer) error {
		return codec.NewEncoder(b, msgpackHandle).Encode(v)
	})
}

func Decode(data []byte, v any) error {
	return codec.NewDecoderBytes(data, msgpackHandle).Decode(v)
}

type Msgpack struct{}

func NewMsgpack() *Msgpack { return &Msgpack{} }

func (Msgpack) Serialize(v any) ([]byte, error) { return Encode(v) }

func (Msgpack) Deserialize(data []byte, v any) error { return Decode(data, v) }

func (Msgpack) Name() string { return "msgpack" }

// YAML 两格缩进，字段名取 yaml tag
type YAML struct{}

func NewYAML() *YAML { return &YAML{} }

func (YAML) Serialize(v any) ([]byte, error) {
	return bytebuff.Render(func(b *bytebuff.Buffer) error {
		enc := yaml.NewEncoder(b)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	})
}

func (YAML) Deserialize(data []byte, v any) error {
	return yaml.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (YAML) Name() string { return "yaml" }
