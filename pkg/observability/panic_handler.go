package observability

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// RecoverPanic recovers from a panic and logs it with its stack.
//
// Usage in defer statements:
//
//	func runRule() {
//	    defer observability.RecoverPanic(logger, "rule react/no-unescaped-entities")
//	    // ... code that might panic
//	}
//
// The panic is not re-raised.
func RecoverPanic(logger logrus.FieldLogger, context string) {
	if r := recover(); r != nil {
		logger.WithFields(logrus.Fields{
			"panic":   r,
			"stack":   string(debug.Stack()),
			"context": context,
		}).Error("PANIC recovered")
	}
}

// RecoverPanicWithCallback recovers from a panic, logs it and then runs
// callback. The callback only runs when a panic occurred.
func RecoverPanicWithCallback(logger logrus.FieldLogger, context string, callback func(r interface{})) {
	if r := recover(); r != nil {
		logger.WithFields(logrus.Fields{
			"panic":   r,
			"stack":   string(debug.Stack()),
			"context": context,
		}).Error("PANIC recovered")
		if callback != nil {
			callback(r)
		}
	}
}
