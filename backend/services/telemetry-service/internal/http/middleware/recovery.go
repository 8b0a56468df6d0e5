package middleware

import (
	"net/http"

	"github.com/gorilla/handlers"
	"go.uber.org/zap"
)

// Recovery turns handler panics into 500 responses and logs the stack through zap.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(logger.Named("recovery"))),
		handlers.PrintRecoveryStack(true),
	)
}
