// Package logging provides the service logger and log sanitization helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds the service logger for the given environment. Production
// gets sampled JSON output; everything else gets the development console
// with debug enabled, which is where per-request read logging shows up.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		logger, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("failed to build production logger: %w", err)
		}
		return logger, nil
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("failed to build development logger: %w", err)
	}
	return logger, nil
}
