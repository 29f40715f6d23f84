// Package services contains the business logic between the HTTP layer and
// the storage/engine clients, plus the shared error taxonomy.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when attempting to create a duplicate entity
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrLLMUnavailable is returned when no configured engine can serve a request
	ErrLLMUnavailable = errors.New("language model unavailable")

	// ErrRedisUnavailable is returned when Redis cannot be reached
	ErrRedisUnavailable = errors.New("redis unavailable")

	// ErrSandboxUnavailable is returned when the code sandbox cannot be reached
	ErrSandboxUnavailable = errors.New("sandbox unavailable")

	// ErrRateLimited is returned when a client exceeds the request budget
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ValidationError wraps field-specific validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RecoverySteps returns operator guidance for a service-level failure.
// The text is appended to error responses so a user can unstick the system
// without reading logs.
func RecoverySteps(err error) []string {
	switch {
	case errors.Is(err, ErrLLMUnavailable):
		return []string{
			"Check if Docker containers are running: docker ps",
			"Start the engine: docker-compose up -d vorpal",
			"Check engine logs: docker logs archive-ai-vorpal",
			"Verify the model is loaded (may take 1-2 minutes on startup)",
		}
	case errors.Is(err, ErrRedisUnavailable):
		return []string{
			"Check if Redis is running: docker ps | grep redis",
			"Restart Redis: docker-compose restart redis-stack",
			"Check Redis logs: docker logs archive-ai-redis",
			"Verify REDIS_URL is correct",
		}
	case errors.Is(err, ErrSandboxUnavailable):
		return []string{
			"Check if the sandbox is running: docker ps | grep sandbox",
			"Restart the sandbox: docker-compose restart sandbox",
			"Check sandbox logs: docker logs archive-ai-sandbox",
		}
	default:
		return nil
	}
}
