package sourcing

import (
	"errors"
	"strings"
)

var (
	ErrInvalidRequest = errors.New("invalid generation request")
	// ErrNoMatchingContent 生成服务与题库均未提供任何题目
	ErrNoMatchingContent = errors.New("no matching content")
	// ErrStoreExhausted 最宽松一级查询仍无结果
	ErrStoreExhausted = errors.New("content store exhausted")
)

// ValidationError 请求校验失败，列出全部问题
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidRequest.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

func (e *ValidationError) add(problem string) {
	e.Problems = append(e.Problems, problem)
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
