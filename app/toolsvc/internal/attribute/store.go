package attribute

import (
	"fmt"
	"maps"
	"math"
	"strings"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
)

// DefaultNamespace 默认键命名空间
const DefaultNamespace = "gens"

// 物品上的字段名
const (
	FieldToolID       = "tool_id"
	FieldUniqueID     = "unique_id"
	FieldLevel        = "level"
	FieldExperience   = "experience"
	FieldEnchantments = "enchantments"
	FieldAppliedCubes = "applied_cubes"

	multiplierPrefix = "enchant_multiplier_"

	multiplierTolerance = 1e-4
)

// Divergence applied_cubes 与 enchant_multiplier_<id> 不一致的一项
type Divergence struct {
	EnchantID string
	// Encoded applied_cubes 中的强化比例，缺失为 0
	Encoded float64
	// Scalar 冗余字段中的倍率，缺失为 0
	Scalar float64
}

func (d Divergence) String() string {
	return fmt.Sprintf("%s(encoded=%.4f scalar=%.4f)", d.EnchantID, d.Encoded, d.Scalar)
}

// Store 物品属性存储的访问层
//
// 所有写操作都经由 Update 完成一次完整的读-改-写。
type Store struct {
	namespace string
}

// NewStore 创建属性存储，namespace 为空时使用 DefaultNamespace
func NewStore(namespace string) *Store {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Store{namespace: namespace}
}

// Namespace 返回键命名空间
func (s *Store) Namespace() string {
	return s.namespace
}

// Key 返回带命名空间的完整键
func (s *Store) Key(field string) string {
	return s.namespace + ":" + field
}

// MultiplierField 返回附魔倍率字段名
func MultiplierField(enchantID string) string {
	return multiplierPrefix + enchantID
}

// IsTool 物品是否携带工具类型字段
func (s *Store) IsTool(item model.Item) bool {
	if item == nil {
		return false
	}
	id, ok := s.GetString(item, FieldToolID)
	return ok && id != ""
}

// GetString 读取字符串字段
func (s *Store) GetString(item model.Item, field string) (string, bool) {
	if item == nil {
		return "", false
	}
	return item.Meta().Data.GetString(s.Key(field))
}

// GetInt 读取整数字段
func (s *Store) GetInt(item model.Item, field string) (int64, bool) {
	if item == nil {
		return 0, false
	}
	return item.Meta().Data.GetInt(s.Key(field))
}

// GetFloat 读取浮点字段
func (s *Store) GetFloat(item model.Item, field string) (float64, bool) {
	if item == nil {
		return 0, false
	}
	return item.Meta().Data.GetFloat(s.Key(field))
}

// SetField 写入单个字段，值类型限定为 string / int / int64 / float64
func (s *Store) SetField(item model.Item, field string, value any) error {
	v, err := normalize(value)
	if err != nil {
		return err
	}
	s.Update(item, func(meta *model.ItemMeta) {
		meta.Data[s.Key(field)] = v
	})
	return nil
}

// Update 读-改-写入口：取快照，修改，整体写回
func (s *Store) Update(item model.Item, fn func(meta *model.ItemMeta)) {
	if item == nil {
		return
	}
	meta := item.Meta()
	if meta.Data == nil {
		meta.Data = model.DataContainer{}
	}
	fn(&meta)
	item.SetMeta(meta)
}

// ReadRecord 从物品状态推导工具记录，非工具返回 nil
//
// 编码字段的解析问题以报告形式返回，记录本身总是可用。
func (s *Store) ReadRecord(item model.Item) (*model.ToolRecord, []*DecodeError) {
	if !s.IsTool(item) {
		return nil, nil
	}
	data := item.Meta().Data

	toolID, _ := data.GetString(s.Key(FieldToolID))
	uniqueID, _ := data.GetString(s.Key(FieldUniqueID))
	rec := model.NewToolRecord(uniqueID, toolID)

	if lv, ok := data.GetInt(s.Key(FieldLevel)); ok && lv >= 1 {
		rec.Level = int(lv)
	}
	if exp, ok := data.GetInt(s.Key(FieldExperience)); ok && exp > 0 {
		rec.Experience = exp
	}

	var warnings []*DecodeError
	raw, _ := data.GetString(s.Key(FieldEnchantments))
	enchants, report := DecodeLevelsReport(raw)
	if report != nil {
		report.Field = FieldEnchantments
		warnings = append(warnings, report)
	}
	maps.Copy(rec.Enchantments, enchants)

	raw, _ = data.GetString(s.Key(FieldAppliedCubes))
	boosts, report := DecodeBoostsReport(raw)
	if report != nil {
		report.Field = FieldAppliedCubes
		warnings = append(warnings, report)
	}
	rec.CubeBoosts = boosts

	return rec, warnings
}

// WriteRecord 在一次读-改-写中写入全部字段，包括冗余倍率字段及过期倍率字段的清理
func (s *Store) WriteRecord(item model.Item, rec *model.ToolRecord) {
	s.Update(item, func(meta *model.ItemMeta) {
		d := meta.Data
		d[s.Key(FieldToolID)] = rec.ToolTypeID
		d[s.Key(FieldUniqueID)] = rec.UniqueID
		d[s.Key(FieldLevel)] = int64(rec.Level)
		d[s.Key(FieldExperience)] = rec.Experience
		d[s.Key(FieldEnchantments)] = Encode(rec.Enchantments)
		d[s.Key(FieldAppliedCubes)] = EncodeBoosts(rec.CubeBoosts)

		prefix := s.Key(multiplierPrefix)
		for _, k := range d.Keys() {
			if strings.HasPrefix(k, prefix) {
				delete(d, k)
			}
		}
		for id, boost := range rec.CubeBoosts {
			if boost > 0 {
				d[s.Key(MultiplierField(id))] = 1 + boost
			}
		}
	})
}

// CheckConsistency 比对 applied_cubes 与倍率冗余字段，返回所有不一致项
func (s *Store) CheckConsistency(item model.Item) []Divergence {
	if !s.IsTool(item) {
		return nil
	}
	data := item.Meta().Data

	raw, _ := data.GetString(s.Key(FieldAppliedCubes))
	boosts := DecodeBoosts(raw)

	scalars := make(map[string]float64)
	prefix := s.Key(multiplierPrefix)
	for _, k := range data.Keys() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		v, _ := data.GetFloat(k)
		scalars[strings.TrimPrefix(k, prefix)] = v
	}

	var out []Divergence
	for _, id := range sortedKeys(boosts) {
		b := boosts[id]
		m, ok := scalars[id]
		if !ok || math.Abs(m-(1+b)) > multiplierTolerance {
			out = append(out, Divergence{EnchantID: id, Encoded: b, Scalar: m})
		}
	}
	for _, id := range sortedKeys(scalars) {
		if _, ok := boosts[id]; !ok {
			out = append(out, Divergence{EnchantID: id, Scalar: scalars[id]})
		}
	}
	return out
}

func normalize(value any) (any, error) {
	switch v := value.(type) {
	case string, int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float32:
		return float64(v), nil
	default:
		return nil, fmt.Errorf("unsupported attribute value type %T", value)
	}
}
