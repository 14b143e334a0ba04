package common

import (
	"errors"

	"github.com/mhsanaei/xui-gateway/logger"
)

// Recover must be deferred directly. It logs and swallows a panic.
func Recover(msg string) any {
	panicErr := recover()
	if panicErr != nil {
		if msg != "" {
			logger.Error(msg, "panic:", panicErr)
		}
	}
	return panicErr
}

// Combine joins the non-nil errors, returning nil when there are none.
func Combine(errs ...error) error {
	return errors.Join(errs...)
}
