package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUpload          = errors.New("upload failed")
	ErrSubmit          = errors.New("submit failed")
	ErrPoll            = errors.New("job status query failed")
	ErrUnknownJobState = errors.New("unknown job state")
	ErrAuthentication  = errors.New("authentication error")
	ErrConfiguration   = errors.New("configuration error")
	ErrTransient       = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether err should be retried on the next polling round
// instead of ending the job.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrPoll) || errors.Is(err, ErrTransient)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
