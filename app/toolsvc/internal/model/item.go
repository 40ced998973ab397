package model

import (
	"sort"
)

// DataContainer 物品上的命名空间键值存储，值类型限定为 string / int64 / float64
type DataContainer map[string]any

// GetString 读取字符串值，类型不符视为不存在
func (d DataContainer) GetString(key string) (string, bool) {
	v, ok := d[key].(string)
	return v, ok
}

// GetInt 读取整数值，兼容宿主写入的 int / int32
func (d DataContainer) GetInt(key string) (int64, bool) {
	switch v := d[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	default:
		return 0, false
	}
}

// GetFloat 读取浮点值
func (d DataContainer) GetFloat(key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	default:
		return 0, false
	}
}

// Has 判断键是否存在
func (d DataContainer) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Keys 返回排序后的全部键
func (d DataContainer) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone 浅拷贝（值均为标量）
func (d DataContainer) Clone() DataContainer {
	out := make(DataContainer, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// ItemMeta 物品元数据快照
type ItemMeta struct {
	DisplayName string
	Lore        []string
	Data        DataContainer
}

// Clone 深拷贝
func (m ItemMeta) Clone() ItemMeta {
	out := ItemMeta{DisplayName: m.DisplayName}
	if m.Lore != nil {
		out.Lore = append([]string(nil), m.Lore...)
	}
	if m.Data != nil {
		out.Data = m.Data.Clone()
	} else {
		out.Data = DataContainer{}
	}
	return out
}

// Item 宿主物品
//
// Meta 返回的是与物品分离的快照，修改后必须通过 SetMeta 写回。
type Item interface {
	TypeKey() string
	Meta() ItemMeta
	SetMeta(meta ItemMeta)
}

// ItemStack Item 的内存实现，供服务创建物品和测试使用
type ItemStack struct {
	Material string
	Amount   int
	meta     ItemMeta
}

var _ Item = (*ItemStack)(nil)

// NewItemStack 创建物品
func NewItemStack(material string) *ItemStack {
	return &ItemStack{
		Material: material,
		Amount:   1,
		meta:     ItemMeta{Data: DataContainer{}},
	}
}

// TypeKey 返回物品材质
func (s *ItemStack) TypeKey() string {
	return s.Material
}

// Meta 返回元数据快照
func (s *ItemStack) Meta() ItemMeta {
	return s.meta.Clone()
}

// SetMeta 写回元数据
func (s *ItemStack) SetMeta(meta ItemMeta) {
	s.meta = meta.Clone()
}
