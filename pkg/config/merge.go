package config

import (
	"fmt"
	"reflect"
)

// MergeConfig 把 src 中已设置的字段叠加到 dst（通常是 DefaultConfig()）并返回 dst
//
// 零值视为未设置：bool 不能被 src 改回 false，这类开关的默认值应为 false。
// 结构体与指针逐字段递归，map 按 key 合并，切片整体替换。
func MergeConfig[T any](dst, src *T) (*T, error) {
	switch {
	case dst == nil && src == nil:
		return nil, ErrNilConfig
	case dst == nil:
		return src, nil
	case src == nil:
		return dst, nil
	}

	if err := overlay(reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem(), ""); err != nil {
		return nil, err
	}
	return dst, nil
}

func overlay(dst, src reflect.Value, path string) error {
	if !src.IsValid() || src.IsZero() {
		return nil
	}
	if dst.Kind() != src.Kind() {
		return fmt.Errorf("config: cannot merge %s into %s at %q", src.Kind(), dst.Kind(), path)
	}

	switch src.Kind() {
	case reflect.Struct:
		t := src.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if err := overlay(dst.Field(i), src.Field(i), joinPath(path, f.Name)); err != nil {
				return err
			}
		}

	case reflect.Ptr:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return overlay(dst.Elem(), src.Elem(), path)

	case reflect.Map:
		if dst.IsNil() {
			dst.Set(reflect.MakeMapWithSize(dst.Type(), src.Len()))
		}
		it := src.MapRange()
		for it.Next() {
			merged := reflect.New(dst.Type().Elem()).Elem()
			if cur := dst.MapIndex(it.Key()); cur.IsValid() {
				merged.Set(cur)
			}
			if err := overlay(merged, it.Value(), joinPath(path, fmt.Sprint(it.Key()))); err != nil {
				return err
			}
			dst.SetMapIndex(it.Key(), merged)
		}

	default:
		// 标量、切片、time.Duration 等整体覆盖
		dst.Set(src)
	}
	return nil
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
