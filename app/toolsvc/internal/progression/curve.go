// Package progression 工具等级与经验曲线
package progression

import (
	"math"
	"sync"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
)

// Config 经验曲线配置
type Config struct {
	Base      int64 `mapstructure:"base" validate:"omitempty,gte=1"`
	Increment int64 `mapstructure:"increment" validate:"gte=0"`
}

// DefaultConfig 默认曲线：RequiredExp(level) = 1000 + level*500
func DefaultConfig() *Config {
	return &Config{
		Base:      1000,
		Increment: 500,
	}
}

// Curve 经验曲线，等级引擎与 lore 展示共用同一实例
type Curve struct {
	mu        sync.RWMutex
	base      int64
	increment int64
}

// NewCurve 创建曲线，非法参数回落到默认值
func NewCurve(cfg *Config) *Curve {
	c := &Curve{}
	c.Configure(cfg)
	return c
}

// Configure 替换曲线参数，已有记录需要调用方 Normalize
func (c *Curve) Configure(cfg *Config) {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}
	base, increment := cfg.Base, cfg.Increment
	if base < 1 {
		base = def.Base
	}
	if increment < 0 {
		increment = def.Increment
	}
	c.mu.Lock()
	c.base, c.increment = base, increment
	c.mu.Unlock()
}

// RequiredExp 从 level 升到 level+1 所需经验
func (c *Curve) RequiredExp(level int) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base + int64(level)*c.increment
}

// AddExperience 增加经验并连续升级，不设等级上限
//
// amount <= 0 时不做任何修改。
func (c *Curve) AddExperience(rec *model.ToolRecord, amount int64) bool {
	if amount <= 0 {
		return false
	}
	start := rec.Level
	// 饱和加法，溢出会变成负经验
	if amount > math.MaxInt64-rec.Experience {
		rec.Experience = math.MaxInt64
	} else {
		rec.Experience += amount
	}
	c.settle(rec)
	return rec.Level > start
}

// Normalize 曲线变更后恢复 level/experience 不变式，返回是否有修改
func (c *Curve) Normalize(rec *model.ToolRecord) bool {
	level, exp := rec.Level, rec.Experience
	if rec.Level < 1 {
		rec.Level = 1
	}
	if rec.Experience < 0 {
		rec.Experience = 0
	}
	c.settle(rec)
	return rec.Level != level || rec.Experience != exp
}

// Progress 当前经验与升级所需经验，用于展示
func (c *Curve) Progress(rec *model.ToolRecord) (current, required int64) {
	return rec.Experience, c.RequiredExp(rec.Level)
}

// settle 二分求出可连续升的级数
func (c *Curve) settle(rec *model.ToolRecord) {
	c.mu.RLock()
	base, inc := c.base, c.increment
	c.mu.RUnlock()

	level := int64(rec.Level)
	// 每级至少花费 base
	lo, hi := int64(0), min(rec.Experience/base, int64(math.MaxInt-rec.Level))
	for lo < hi {
		mid := hi - (hi-lo)/2
		if levelsCost(level, mid, base, inc) <= rec.Experience {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	rec.Experience -= levelsCost(level, lo, base, inc)
	rec.Level += int(lo)
}

// levelsCost 从 level 连升 k 级的总经验，溢出时饱和到 MaxInt64
//
// sum(base + (level+i)*inc) = k*base + inc*(k*level + k*(k-1)/2)
func levelsCost(level, k, base, inc int64) int64 {
	if k == 0 {
		return 0
	}
	var tri int64
	if k%2 == 0 {
		tri = satMul(k/2, k-1)
	} else {
		tri = satMul(k, (k-1)/2)
	}
	steps := satAdd(satMul(k, level), tri)
	return satAdd(satMul(k, base), satMul(inc, steps))
}

func satMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

func satAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
