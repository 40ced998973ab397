package attribute

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
)

// 编码格式：v1|id:value,id:value
//
// 不带版本前缀的输入按旧版无版本格式 id:value,... 解析。
const (
	CodecVersion = "v1"

	versionSep = "|"
	pairSep    = ","
	kvSep      = ":"

	// boostScale 强化比例以百分比的基点存储：0.25 -> 25% -> 2500
	boostScale = 10000
	// maxBoostPoints 基点上限，超出后 32 位平台上无法编码
	maxBoostPoints = math.MaxInt32
)

// MaxBoost 可存储的最大强化比例
const MaxBoost = float64(maxBoostPoints) / boostScale

// BoostPoints 将强化比例换算为存储精度的基点。
// 非有限值、换算后不为正或超过上限时 ok 为 false，这些值编码时会被丢弃。
func BoostPoints(b float64) (int, bool) {
	if math.IsNaN(b) || math.IsInf(b, 0) {
		return 0, false
	}
	bp := math.Round(b * boostScale)
	if bp < 1 || bp > maxBoostPoints {
		return 0, false
	}
	return int(bp), true
}

// DecodeError 解析报告，只用于 warn 日志，从不作为错误返回给调用方
type DecodeError struct {
	// Field 由 Store 填写的来源字段
	Field   string
	Input   string
	Version string
	Dropped []string
}

func (e *DecodeError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("unsupported codec version %q in %q", e.Version, e.Input)
	}
	return fmt.Sprintf("dropped %d malformed token(s) %q in %q", len(e.Dropped), e.Dropped, e.Input)
}

func (e *DecodeError) Unwrap() error {
	return model.ErrDecode
}

// Encode 编码附魔等级表，按 id 排序保证输出稳定；空表编码为空串
func Encode(m map[string]int) string {
	if len(m) == 0 {
		return ""
	}
	ids := sortedKeys(m)
	pairs := make([]string, 0, len(ids))
	for _, id := range ids {
		if !validID(id) {
			continue
		}
		pairs = append(pairs, id+kvSep+strconv.Itoa(m[id]))
	}
	if len(pairs) == 0 {
		return ""
	}
	return CodecVersion + versionSep + strings.Join(pairs, pairSep)
}

// Decode 解析附魔等级表，任何格式错误只会丢弃对应片段
func Decode(s string) map[string]int {
	m, _ := DecodeReport(s)
	return m
}

// DecodeReport 同 Decode，额外返回被丢弃片段的报告（无丢弃时为 nil）
func DecodeReport(s string) (map[string]int, *DecodeError) {
	out := make(map[string]int)
	body, version, ok := splitVersion(s)
	if !ok {
		return out, &DecodeError{Input: s, Version: version}
	}

	var dropped []string
	for _, tok := range splitPairs(body) {
		id, raw, ok := splitPair(tok)
		if !ok {
			dropped = append(dropped, tok)
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			dropped = append(dropped, tok)
			continue
		}
		out[id] = v
	}
	if len(dropped) > 0 {
		return out, &DecodeError{Input: s, Dropped: dropped}
	}
	return out, nil
}

// DecodeLevelsReport 解析附魔等级表，非正数等级被丢弃并记入报告
func DecodeLevelsReport(s string) (map[string]int, *DecodeError) {
	levels, report := DecodeReport(s)
	for _, id := range sortedKeys(levels) {
		if lv := levels[id]; lv <= 0 {
			if report == nil {
				report = &DecodeError{Input: s}
			}
			report.Dropped = append(report.Dropped, id+kvSep+strconv.Itoa(lv))
			delete(levels, id)
		}
	}
	return levels, report
}

// EncodeBoosts 编码强化比例表，BoostPoints 不接受的值被跳过
func EncodeBoosts(m map[string]float64) string {
	if len(m) == 0 {
		return ""
	}
	scaled := make(map[string]int, len(m))
	for id, b := range m {
		bp, ok := BoostPoints(b)
		if !ok {
			continue
		}
		scaled[id] = bp
	}
	return Encode(scaled)
}

// DecodeBoosts 解析强化比例表，非正数基点被丢弃
func DecodeBoosts(s string) map[string]float64 {
	m, _ := DecodeBoostsReport(s)
	return m
}

// DecodeBoostsReport 同 DecodeBoosts，额外返回解析报告
func DecodeBoostsReport(s string) (map[string]float64, *DecodeError) {
	scaled, report := DecodeReport(s)
	out := make(map[string]float64, len(scaled))
	for _, id := range sortedKeys(scaled) {
		bp := scaled[id]
		if bp <= 0 {
			if report == nil {
				report = &DecodeError{Input: s}
			}
			report.Dropped = append(report.Dropped, id+kvSep+strconv.Itoa(bp))
			continue
		}
		out[id] = float64(bp) / boostScale
	}
	return out, report
}

func splitVersion(s string) (body, version string, ok bool) {
	if s == "" {
		return "", "", true
	}
	prefix, rest, found := strings.Cut(s, versionSep)
	if !found {
		return s, "", true
	}
	if prefix != CodecVersion {
		return "", prefix, false
	}
	return rest, CodecVersion, true
}

func splitPairs(body string) []string {
	if body == "" {
		return nil
	}
	return strings.Split(body, pairSep)
}

func splitPair(tok string) (id, value string, ok bool) {
	parts := strings.Split(tok, kvSep)
	if len(parts) != 2 {
		return "", "", false
	}
	id = strings.TrimSpace(parts[0])
	value = strings.TrimSpace(parts[1])
	if id == "" || value == "" {
		return "", "", false
	}
	return id, value, true
}

func validID(id string) bool {
	return id != "" && strings.TrimSpace(id) == id && !strings.ContainsAny(id, versionSep+pairSep+kvSep)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
