package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kotonoha-labs/birthdex/internal/domain"
)

// parseAPIError maps a client error to the domain. Context errors keep
// their identity so callers can tell a deadline from an upstream failure;
// everything else wraps domain.ErrProviderFailure.
func parseAPIError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w", op, apiErr.HTTPStatusCode, apiErr.Message, domain.ErrProviderFailure)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%s API error %d: %s: %w", op, reqErr.HTTPStatusCode, string(reqErr.Body), domain.ErrProviderFailure)
	}

	return fmt.Errorf("%s request failed: %v: %w", op, err, domain.ErrProviderFailure)
}
