package model

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// 错误分类，均可用 errors.Is 判断
var (
	// ErrValidation 参数校验失败，发生在任何修改之前
	ErrValidation = errors.New("validation failed")
	// ErrDecode 编码字段解析失败，仅用于日志
	ErrDecode = errors.New("malformed encoded field")
	// ErrStorage 存储读写失败
	ErrStorage = errors.New("storage failure")
	// ErrEconomy 校验通过后扣款失败
	ErrEconomy = errors.New("economy transaction failed")
)

// 校验类错误
var (
	ErrUnknownEnchantment   = validation("unknown enchantment", "That enchantment does not exist.")
	ErrIncompatibleTool     = validation("enchantment not applicable to tool type", "This enchantment cannot be applied to this tool.")
	ErrInvalidLevel         = validation("invalid enchantment level", "The level must be at least 1.")
	ErrMissingEnchantment   = validation("enchantment not present on tool", "The tool must have this enchantment before a cube can be applied.")
	ErrNotAnImprovement     = validation("boost is not an improvement", "The tool already has an equal or better cube for this enchantment.")
	ErrInvalidBoost         = validation("invalid cube boost", "That cube boost is not valid.")
	ErrInsufficientCurrency = validation("insufficient currency", "You cannot afford this upgrade.")
	ErrNotATool             = validation("item is not a tool", "This item is not a tool.")
	ErrUnknownToolType      = validation("unknown tool type", "That tool type does not exist.")
)

const genericMessage = "Something went wrong. Please try again later."

func validation(msg, hint string) error {
	return errors.WithHint(errors.Mark(errors.New(msg), ErrValidation), hint)
}

// StorageError 将后端错误标记为 ErrStorage
func StorageError(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, op), ErrStorage)
}

// EconomyError 将扣款失败标记为 ErrEconomy
func EconomyError(err error, msg string) error {
	if err == nil {
		err = errors.New("debit rejected")
	}
	return errors.WithHint(
		errors.Mark(errors.Wrap(err, msg), ErrEconomy),
		"The payment could not be completed. Nothing was changed.",
	)
}

// UserMessage 提取面向玩家的提示文本
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		return strings.Join(hints, "\n")
	}
	if errors.Is(err, ErrValidation) {
		return err.Error()
	}
	return genericMessage
}
