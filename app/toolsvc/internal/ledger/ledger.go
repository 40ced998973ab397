// Package ledger 附魔等级与强化方块的修改规则
//
// 所有校验在修改之前完成，校验失败时记录保持原样。
package ledger

import (
	"math/rand/v2"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/attribute"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/catalog"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
)

// Config 账本参数
type Config struct {
	// MaxLevel 全局附魔等级上限
	MaxLevel int `mapstructure:"max_enchant_level" validate:"gte=1"`
	// CubeRecoveryChance 移除强化时回收方块的概率
	CubeRecoveryChance float64 `mapstructure:"cube_recovery_chance" validate:"gte=0,lte=1"`
}

// DefaultConfig 默认参数
func DefaultConfig() *Config {
	return &Config{
		MaxLevel:           1000,
		CubeRecoveryChance: 0.5,
	}
}

// UpgradeResult 附魔升级结果
type UpgradeResult struct {
	EnchantID   string
	Previous    int
	Level       int
	RefreshLore bool
}

// Option 账本选项
type Option func(*Ledger)

// WithRand 设置随机源，返回 [0,1) 的浮点数
func WithRand(fn func() float64) Option {
	return func(l *Ledger) {
		l.rand = fn
	}
}

// Ledger 附魔账本
type Ledger struct {
	enchants      catalog.EnchantmentCatalog
	applicability catalog.Applicability
	rand          func() float64

	mu             sync.RWMutex
	maxLevel       int
	recoveryChance float64
}

// New 创建账本
func New(enchants catalog.EnchantmentCatalog, applicability catalog.Applicability, cfg *Config, opts ...Option) *Ledger {
	l := &Ledger{
		enchants:      enchants,
		applicability: applicability,
		rand:          rand.Float64,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.Configure(cfg)
	return l
}

// Configure 更新运行期参数，非法值回落到默认值
func (l *Ledger) Configure(cfg *Config) {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}
	maxLevel := cfg.MaxLevel
	if maxLevel < 1 {
		maxLevel = def.MaxLevel
	}
	chance := min(max(cfg.CubeRecoveryChance, 0), 1)

	l.mu.Lock()
	l.maxLevel = maxLevel
	l.recoveryChance = chance
	l.mu.Unlock()
}

// MaxLevel 当前全局等级上限
func (l *Ledger) MaxLevel() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.maxLevel
}

func (l *Ledger) chance() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.recoveryChance
}

// SetEnchantmentLevel 无条件设置附魔等级，level <= 0 时移除附魔及其强化
func (l *Ledger) SetEnchantmentLevel(rec *model.ToolRecord, id string, level int) {
	rec.EnsureMaps()
	if level <= 0 {
		delete(rec.Enchantments, id)
		delete(rec.CubeBoosts, id)
		return
	}
	rec.Enchantments[id] = level
}

// UpgradeEnchantment 校验并设置附魔等级
//
// 校验顺序：附魔存在 -> 适用于工具类型 -> 按上限截断 -> 等级为正。
func (l *Ledger) UpgradeEnchantment(rec *model.ToolRecord, id string, target int, toolType string) (UpgradeResult, error) {
	// 1. 附魔定义
	def, ok := l.enchants.Lookup(id)
	if !ok {
		return UpgradeResult{}, errors.Wrapf(model.ErrUnknownEnchantment, "enchantment %q", id)
	}

	// 2. 适用性
	if !l.applicability.IsApplicable(id, toolType) {
		return UpgradeResult{}, errors.Wrapf(model.ErrIncompatibleTool, "enchantment %q on tool type %q", id, toolType)
	}

	// 3. 截断到上限
	target = l.Clamp(def, target)

	// 4. 等级校验
	if target <= 0 {
		return UpgradeResult{}, errors.Wrapf(model.ErrInvalidLevel, "enchantment %q level %d", id, target)
	}

	rec.EnsureMaps()
	prev := rec.Enchantments[id]
	rec.Enchantments[id] = target
	return UpgradeResult{
		EnchantID:   id,
		Previous:    prev,
		Level:       target,
		RefreshLore: true,
	}, nil
}

// Clamp 将目标等级截断到全局上限和附魔自身上限
func (l *Ledger) Clamp(def catalog.Enchantment, target int) int {
	target = min(target, l.MaxLevel())
	if def.MaxLevel > 0 {
		target = min(target, def.MaxLevel)
	}
	return target
}

// ApplyCubeBoost 应用强化方块，只接受更高的强化比例，返回原比例
func (l *Ledger) ApplyCubeBoost(rec *model.ToolRecord, id string, boost float64) (float64, error) {
	if rec.Enchantments[id] < 1 {
		return 0, errors.Wrapf(model.ErrMissingEnchantment, "enchantment %q", id)
	}
	points, ok := attribute.BoostPoints(boost)
	if !ok {
		return 0, errors.Wrapf(model.ErrInvalidBoost, "enchantment %q boost %v", id, boost)
	}
	current := rec.CubeBoosts[id]
	// 按存储精度比较，否则低于一个基点的提升会在落盘后消失
	if cur, _ := attribute.BoostPoints(current); points <= cur {
		return current, errors.Wrapf(model.ErrNotAnImprovement, "enchantment %q boost %.4f <= %.4f", id, boost, current)
	}
	rec.EnsureMaps()
	rec.CubeBoosts[id] = boost
	return current, nil
}

// RemoveCubeBoost 移除强化，按概率回收方块
//
// 第二个返回值表示是否存在被移除的强化；未回收时方块为 nil。
func (l *Ledger) RemoveCubeBoost(rec *model.ToolRecord, id string) (*model.RecoveredCube, bool) {
	boost, ok := rec.CubeBoosts[id]
	if !ok {
		return nil, false
	}
	delete(rec.CubeBoosts, id)

	if l.rand() < l.chance() {
		return &model.RecoveredCube{EnchantID: id, Boost: boost}, true
	}
	return nil, true
}

// ResetAll 清空全部附魔与强化，返回清空前的状态
func (l *Ledger) ResetAll(rec *model.ToolRecord) model.ToolSnapshot {
	snap := model.ToolSnapshot{
		Enchantments: rec.Enchantments,
		CubeBoosts:   rec.CubeBoosts,
	}
	if snap.Enchantments == nil {
		snap.Enchantments = make(map[string]int)
	}
	if snap.CubeBoosts == nil {
		snap.CubeBoosts = make(map[string]float64)
	}
	rec.Enchantments = make(map[string]int)
	rec.CubeBoosts = make(map[string]float64)
	return snap
}
