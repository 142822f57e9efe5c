package domain

import "errors"

var (
	// ErrInvalidInput 调用方输入非法：空查找文本、查找/替换数量不一致等
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformedDocument 文档包或 XML 结构缺失预期内容
	ErrMalformedDocument = errors.New("malformed document")
	// ErrInvariantViolation 内部不变量被破坏，例如匹配位置找不到对应的 Run
	ErrInvariantViolation = errors.New("internal invariant violation")
)
