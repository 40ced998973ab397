// Package cost 附魔升级价格与重置返还
package cost

import (
	"math"
	"sync"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/catalog"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
)

// Config 价格参数
type Config struct {
	// CostMultiplier 全局价格倍率，附魔未配置自身倍率时使用
	CostMultiplier float64 `mapstructure:"cost_multiplier" validate:"gt=0"`
	// RefundRate 重置时的返还比例
	RefundRate float64 `mapstructure:"refund_rate" validate:"gte=0,lte=1"`
}

// DefaultConfig 默认参数
func DefaultConfig() *Config {
	return &Config{
		CostMultiplier: 1.15,
		RefundRate:     0.75,
	}
}

// Model 价格模型
//
//	Cost(id, L, c)         = BaseCost(id, c) * Multiplier(id)^L
//	TotalCost(id, a, b, c) = sum Cost(id, L, c), L in [a, b)
type Model struct {
	enchants catalog.EnchantmentCatalog

	mu         sync.RWMutex
	multiplier float64
	refundRate float64
}

// New 创建价格模型
func New(enchants catalog.EnchantmentCatalog, cfg *Config) *Model {
	m := &Model{enchants: enchants}
	m.Configure(cfg)
	return m
}

// Configure 更新运行期参数
func (m *Model) Configure(cfg *Config) {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}
	mult := cfg.CostMultiplier
	if mult <= 0 {
		mult = def.CostMultiplier
	}

	m.mu.Lock()
	m.multiplier = mult
	m.refundRate = clampRate(cfg.RefundRate)
	m.mu.Unlock()
}

// RefundRate 当前返还比例
func (m *Model) RefundRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refundRate
}

// Multiplier 附魔的价格倍率
func (m *Model) Multiplier(def catalog.Enchantment) float64 {
	if def.CostMultiplier > 0 {
		return def.CostMultiplier
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.multiplier
}

// Cost 从 level 升到 level+1 的价格，未知附魔或未定价货币为 0
func (m *Model) Cost(id string, level int, currency string) float64 {
	def, ok := m.enchants.Lookup(id)
	if !ok {
		return 0
	}
	return m.cost(def, level, currency)
}

func (m *Model) cost(def catalog.Enchantment, level int, currency string) float64 {
	base := def.BaseCost[currency]
	if base <= 0 {
		return 0
	}
	return base * math.Pow(m.Multiplier(def), float64(level))
}

// TotalCost 从 from 升到 to 的总价，to <= from 时为 0
func (m *Model) TotalCost(id string, from, to int, currency string) float64 {
	if to <= from {
		return 0
	}
	def, ok := m.enchants.Lookup(id)
	if !ok {
		return 0
	}
	from = max(from, 0)
	var total float64
	for level := from; level < to; level++ {
		total += m.cost(def, level, currency)
	}
	return total
}

// Refund 按比例返还已持有附魔的总价，按货币汇总
func (m *Model) Refund(enchantments map[string]int, rate float64) map[string]float64 {
	rate = clampRate(rate)
	out := make(map[string]float64)
	for id, held := range enchantments {
		def, ok := m.enchants.Lookup(id)
		if !ok || held <= 0 {
			continue
		}
		amount := m.TotalCost(id, 0, held, def.Currency) * rate
		if amount > 0 {
			out[def.Currency] += amount
		}
	}
	return out
}

// RefundRecord 对工具记录计算返还
func (m *Model) RefundRecord(rec *model.ToolRecord, rate float64) map[string]float64 {
	return m.Refund(rec.Enchantments, rate)
}

// HeldCost 已持有附魔的总价（返还比例为 1）
func (m *Model) HeldCost(rec *model.ToolRecord) map[string]float64 {
	return m.Refund(rec.Enchantments, 1)
}

func clampRate(rate float64) float64 {
	if math.IsNaN(rate) {
		return 0
	}
	return min(max(rate, 0), 1)
}
