package openai

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kotonoha-labs/birthdex/internal/metrics"
)

const (
	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// IsRetryable reports whether err is a transient upstream failure
// (502, 503, 504) worth another attempt.
func IsRetryable(err error) bool {
	status := 0
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		status = reqErr.HTTPStatusCode
	}
	switch status {
	case 502, 503, 504:
		return true
	}
	return false
}

// withRetry runs fn, retrying transient upstream failures with exponential
// backoff (500ms, 1s, 2s). The context deadline dominates: a retry never
// sleeps past it.
func withRetry(ctx context.Context, logger *zap.Logger, operation, model string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !IsRetryable(err) || attempt >= maxRetries {
			return err
		}

		delay := baseRetryWait << attempt
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= delay {
			return err
		}

		metrics.ProviderRetriesTotal.WithLabelValues(operation, model).Inc()
		logger.Warn("retrying provider request",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
