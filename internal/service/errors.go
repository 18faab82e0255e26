package service

import (
	"errors"
	"fmt"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrLikeNotFound = errors.New("like not found")
)

// ValidationError 调用方输入不合法，属于预期结果而非故障。
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation 判断 err 是否为输入校验失败。
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
