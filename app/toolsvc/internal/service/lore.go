package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/catalog"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/progression"
)

// LoreRenderer 根据工具记录生成物品描述
type LoreRenderer struct {
	enchants catalog.EnchantmentCatalog
	curve    *progression.Curve
}

// NewLoreRenderer 创建描述渲染器，经验显示与升级计算共用同一条曲线
func NewLoreRenderer(enchants catalog.EnchantmentCatalog, curve *progression.Curve) *LoreRenderer {
	return &LoreRenderer{enchants: enchants, curve: curve}
}

// Render 生成描述行：
//
//	Efficiency XII (+25%)
//	Fortune III
//
//	Level 7
//	Experience 1234/4500
func (r *LoreRenderer) Render(rec *model.ToolRecord) []string {
	ids := make([]string, 0, len(rec.Enchantments))
	for id, lv := range rec.Enchantments {
		if lv > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	lines := make([]string, 0, len(ids)+3)
	for _, id := range ids {
		name := id
		if def, ok := r.enchants.Lookup(id); ok {
			name = def.DisplayName
		}
		line := name + " " + Roman(rec.Enchantments[id])
		if boost := rec.CubeBoosts[id]; boost > 0 {
			line += fmt.Sprintf(" (+%s%%)", formatPercent(boost))
		}
		lines = append(lines, line)
	}
	if len(lines) > 0 {
		lines = append(lines, "")
	}

	current, required := r.curve.Progress(rec)
	lines = append(lines,
		fmt.Sprintf("Level %d", rec.Level),
		fmt.Sprintf("Experience %d/%d", current, required),
	)
	return lines
}

func formatPercent(fraction float64) string {
	pct := math.Round(fraction*10000) / 100
	return strconv.FormatFloat(pct, 'f', -1, 64)
}

var romanTable = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// Roman 罗马数字，超出 [1, 3999] 时退回十进制
func Roman(n int) string {
	if n < 1 || n > 3999 {
		return strconv.Itoa(n)
	}
	var b strings.Builder
	for _, r := range romanTable {
		for n >= r.value {
			b.WriteString(r.symbol)
			n -= r.value
		}
	}
	return b.String()
}
