package model

import (
	"maps"
	"time"
)

// ToolRecord 工具记录，工具状态在缓存与存储中的权威表示
type ToolRecord struct {
	UniqueID     string             `codec:"unique_id" yaml:"unique_id" json:"unique_id"`
	ToolTypeID   string             `codec:"tool_type_id" yaml:"tool_type_id" json:"tool_type_id"`
	Level        int                `codec:"level" yaml:"level" json:"level"`
	Experience   int64              `codec:"experience" yaml:"experience" json:"experience"`
	Enchantments map[string]int     `codec:"enchantments" yaml:"enchantments" json:"enchantments"`
	CubeBoosts   map[string]float64 `codec:"cube_boosts,omitempty" yaml:"cube_boosts,omitempty" json:"cube_boosts,omitempty"`
}

// NewToolRecord 创建 1 级空白工具记录
func NewToolRecord(uniqueID, toolTypeID string) *ToolRecord {
	return &ToolRecord{
		UniqueID:     uniqueID,
		ToolTypeID:   toolTypeID,
		Level:        1,
		Enchantments: make(map[string]int),
		CubeBoosts:   make(map[string]float64),
	}
}

// Clone 深拷贝
func (r *ToolRecord) Clone() *ToolRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Enchantments = maps.Clone(r.Enchantments)
	if out.Enchantments == nil {
		out.Enchantments = make(map[string]int)
	}
	out.CubeBoosts = maps.Clone(r.CubeBoosts)
	if out.CubeBoosts == nil {
		out.CubeBoosts = make(map[string]float64)
	}
	return &out
}

// EnsureMaps 补齐反序列化后可能为 nil 的 map
func (r *ToolRecord) EnsureMaps() {
	if r.Enchantments == nil {
		r.Enchantments = make(map[string]int)
	}
	if r.CubeBoosts == nil {
		r.CubeBoosts = make(map[string]float64)
	}
}

// EnchantLevel 返回附魔等级，未持有为 0
func (r *ToolRecord) EnchantLevel(id string) int {
	return r.Enchantments[id]
}

// Equal 判断两条记录内容是否一致
func (r *ToolRecord) Equal(o *ToolRecord) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.UniqueID == o.UniqueID &&
		r.ToolTypeID == o.ToolTypeID &&
		r.Level == o.Level &&
		r.Experience == o.Experience &&
		maps.Equal(r.Enchantments, o.Enchantments) &&
		maps.Equal(r.CubeBoosts, o.CubeBoosts)
}

// ToolSnapshot 重置前的附魔与强化状态
type ToolSnapshot struct {
	Enchantments map[string]int     `json:"enchantments"`
	CubeBoosts   map[string]float64 `json:"cube_boosts"`
}

// RecoveredCube 移除强化时回收的强化方块
type RecoveredCube struct {
	EnchantID string  `json:"enchant_id"`
	Boost     float64 `json:"boost"`
}

// OwnerCollection 单个玩家的工具集合
type OwnerCollection struct {
	OwnerID   string
	LastSaved time.Time
	Tools     map[string]*ToolRecord
}

// NewOwnerCollection 创建空集合
func NewOwnerCollection(ownerID string) *OwnerCollection {
	return &OwnerCollection{
		OwnerID: ownerID,
		Tools:   make(map[string]*ToolRecord),
	}
}

// Get 按 uniqueID 获取记录
func (c *OwnerCollection) Get(uniqueID string) (*ToolRecord, bool) {
	rec, ok := c.Tools[uniqueID]
	return rec, ok
}

// Put 写入记录（按 uniqueID 覆盖）
func (c *OwnerCollection) Put(rec *ToolRecord) {
	if c.Tools == nil {
		c.Tools = make(map[string]*ToolRecord)
	}
	c.Tools[rec.UniqueID] = rec
}

// Remove 删除记录，返回是否存在
func (c *OwnerCollection) Remove(uniqueID string) bool {
	if _, ok := c.Tools[uniqueID]; !ok {
		return false
	}
	delete(c.Tools, uniqueID)
	return true
}

// Len 记录数
func (c *OwnerCollection) Len() int {
	return len(c.Tools)
}

// DeepCopy 深拷贝，用于刷盘快照
func (c *OwnerCollection) DeepCopy() *OwnerCollection {
	if c == nil {
		return nil
	}
	out := &OwnerCollection{
		OwnerID:   c.OwnerID,
		LastSaved: c.LastSaved,
		Tools:     make(map[string]*ToolRecord, len(c.Tools)),
	}
	for id, rec := range c.Tools {
		out.Tools[id] = rec.Clone()
	}
	return out
}
