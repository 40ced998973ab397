// Package catalog 附魔表、工具类型表与适用性表
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ImOpaque/GensTools-sub000/pkg/gameconfig"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

// 配置表名
const (
	TableEnchantments = "enchantments"
	TableToolTypes    = "tool_types"
)

// Enchantment 附魔定义
type Enchantment struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	// MaxLevel 本附魔的等级上限，<= 0 表示只受全局上限约束
	MaxLevel int    `yaml:"max_level"`
	Currency string `yaml:"currency"`
	// BaseCost 各货币的 0 级升级基础价格
	BaseCost map[string]float64 `yaml:"base_cost"`
	// CostMultiplier 价格倍率，<= 0 时使用全局倍率
	CostMultiplier float64 `yaml:"cost_multiplier"`
	// ToolTypes 可附魔的工具类型，为空表示不适用任何工具
	ToolTypes []string `yaml:"tool_types"`
}

// ToolType 工具类型定义
type ToolType struct {
	ID                  string         `yaml:"id"`
	DisplayName         string         `yaml:"display_name"`
	Material            string         `yaml:"material"`
	DefaultEnchantments map[string]int `yaml:"default_enchantments"`
}

// EnchantmentCatalog 附魔定义查询
type EnchantmentCatalog interface {
	Lookup(id string) (Enchantment, bool)
}

// ToolTypeCatalog 工具类型查询
type ToolTypeCatalog interface {
	LookupToolType(id string) (ToolType, bool)
}

// Applicability 附魔与工具类型的适用关系
type Applicability interface {
	IsApplicable(enchantID, toolType string) bool
}

// Tables 一次完整加载的配置表
type Tables struct {
	Enchantments []Enchantment
	ToolTypes    []ToolType
}

// LoadTables 从目录加载全部配置表
func LoadTables(dir string, l logger.Logger) (*Tables, error) {
	enchants, err := gameconfig.LoadTable[Enchantment](dir, TableEnchantments, l)
	if err != nil {
		return nil, err
	}
	toolTypes, err := gameconfig.LoadTable[ToolType](dir, TableToolTypes, l)
	if err != nil {
		return nil, err
	}
	return &Tables{Enchantments: enchants, ToolTypes: toolTypes}, nil
}

type index struct {
	enchants  map[string]Enchantment
	toolTypes map[string]ToolType
	// applicable enchantID -> toolType 集合
	applicable map[string]map[string]struct{}
}

func buildIndex(t *Tables) (*index, error) {
	idx := &index{
		enchants:   make(map[string]Enchantment, len(t.Enchantments)),
		toolTypes:  make(map[string]ToolType, len(t.ToolTypes)),
		applicable: make(map[string]map[string]struct{}, len(t.Enchantments)),
	}
	for _, e := range t.Enchantments {
		if e.ID == "" {
			return nil, fmt.Errorf("enchantment with empty id")
		}
		if _, dup := idx.enchants[e.ID]; dup {
			return nil, fmt.Errorf("duplicate enchantment id %q", e.ID)
		}
		if e.DisplayName == "" {
			e.DisplayName = e.ID
		}
		idx.enchants[e.ID] = e

		set := make(map[string]struct{}, len(e.ToolTypes))
		for _, tt := range e.ToolTypes {
			set[tt] = struct{}{}
		}
		idx.applicable[e.ID] = set
	}
	for _, tt := range t.ToolTypes {
		if tt.ID == "" {
			return nil, fmt.Errorf("tool type with empty id")
		}
		if _, dup := idx.toolTypes[tt.ID]; dup {
			return nil, fmt.Errorf("duplicate tool type id %q", tt.ID)
		}
		if tt.DisplayName == "" {
			tt.DisplayName = tt.ID
		}
		idx.toolTypes[tt.ID] = tt
	}
	return idx, nil
}

// Catalog 内存配置表，实现 EnchantmentCatalog / ToolTypeCatalog / Applicability
//
// Replace 整体替换索引，读者看到的总是某一次完整加载的结果。
type Catalog struct {
	logger logger.Logger

	mu  sync.RWMutex
	idx *index
}

var (
	_ EnchantmentCatalog = (*Catalog)(nil)
	_ ToolTypeCatalog    = (*Catalog)(nil)
	_ Applicability      = (*Catalog)(nil)
)

// New 由已加载的表创建目录
func New(t *Tables, l logger.Logger) (*Catalog, error) {
	if t == nil {
		t = &Tables{}
	}
	idx, err := buildIndex(t)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}
	return &Catalog{logger: l.Named("catalog"), idx: idx}, nil
}

// Load 从目录加载并创建目录
func Load(dir string, l logger.Logger) (*Catalog, error) {
	t, err := LoadTables(dir, l)
	if err != nil {
		return nil, err
	}
	return New(t, l)
}

// Replace 替换全部表，校验失败时保留旧表
func (c *Catalog) Replace(t *Tables) error {
	idx, err := buildIndex(t)
	if err != nil {
		return fmt.Errorf("failed to build catalog: %w", err)
	}
	c.mu.Lock()
	c.idx = idx
	c.mu.Unlock()

	c.logger.Info("catalog replaced",
		"enchantments", len(idx.enchants),
		"tool_types", len(idx.toolTypes),
	)
	return nil
}

// Reload 从目录重新加载
func (c *Catalog) Reload(dir string) error {
	t, err := LoadTables(dir, c.logger)
	if err != nil {
		return err
	}
	return c.Replace(t)
}

func (c *Catalog) current() *index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idx
}

// Lookup 查询附魔定义
func (c *Catalog) Lookup(id string) (Enchantment, bool) {
	e, ok := c.current().enchants[id]
	return e, ok
}

// LookupToolType 查询工具类型
func (c *Catalog) LookupToolType(id string) (ToolType, bool) {
	t, ok := c.current().toolTypes[id]
	return t, ok
}

// IsApplicable 附魔是否可用于该工具类型
func (c *Catalog) IsApplicable(enchantID, toolType string) bool {
	set, ok := c.current().applicable[enchantID]
	if !ok {
		return false
	}
	_, ok = set[toolType]
	return ok
}

// Enchantments 按 id 排序返回全部附魔定义
func (c *Catalog) Enchantments() []Enchantment {
	idx := c.current()
	out := make([]Enchantment, 0, len(idx.enchants))
	for _, e := range idx.enchants {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ToolTypes 按 id 排序返回全部工具类型
func (c *Catalog) ToolTypes() []ToolType {
	idx := c.current()
	out := make([]ToolType, 0, len(idx.toolTypes))
	for _, t := range idx.toolTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
