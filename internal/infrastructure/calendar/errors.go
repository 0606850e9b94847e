package calendar

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"

	"mentor-agenda/internal/domain/entity"
)

func isUnauthorized(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusUnauthorized
	}
	return false
}

// retryAfter returns the Retry-After seconds of a 429, or -1 when err is not a rate limit.
func retryAfter(err error) int {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusTooManyRequests {
		return -1
	}
	if gerr.Header != nil {
		if secs, convErr := strconv.Atoi(gerr.Header.Get("Retry-After")); convErr == nil {
			return secs
		}
	}
	return 0
}

// wrapProviderError keeps the provider's status and message readable for the caller
func wrapProviderError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fmt.Errorf("%w: %s: status %d: %s", entity.ErrProvider, op, gerr.Code, gerr.Message)
	}
	return fmt.Errorf("%w: %s: %v", entity.ErrProvider, op, err)
}
