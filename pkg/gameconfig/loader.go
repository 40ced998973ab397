package gameconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

// TablePath 返回表文件路径 <dir>/<table>.yaml
func TablePath(dir, table string) string {
	return filepath.Join(dir, table+".yaml")
}

// LoadTable 读取 YAML 配置表，文件内容为行的列表
//
// 文件不存在时视为可选表，记录 warn 并返回空表；解析失败返回错误。
func LoadTable[T any](dir, table string, l logger.Logger) ([]T, error) {
	path := TablePath(dir, table)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if l != nil {
				l.Warn("optional config table not found, initializing as empty",
					"table", table,
					"path", path)
			}
			return []T{}, nil
		}
		return nil, fmt.Errorf("failed to read config table %s: %w", path, err)
	}

	var rows []T
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rows); err != nil {
		if errors.Is(err, io.EOF) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("failed to unmarshal config table %s: %w", path, err)
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

// LoadSingleton 读取单例表（文件内容为一个对象），文件不存在时返回 def
func LoadSingleton[T any](dir, table string, def T, l logger.Logger) (T, error) {
	path := TablePath(dir, table)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if l != nil {
				l.Warn("optional config table not found, using defaults", "table", table, "path", path)
			}
			return def, nil
		}
		return def, fmt.Errorf("failed to read config table %s: %w", path, err)
	}

	out := def
	if err := yaml.Unmarshal(data, &out); err != nil {
		return def, fmt.Errorf("failed to unmarshal config table %s: %w", path, err)
	}
	return out, nil
}
