package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks lookups for unknown songs or cache keys.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyProcessing marks duplicate submissions for an active job.
	ErrAlreadyProcessing = errors.New("already processing")
	// ErrAcquisitionFailed marks runs where every ranked source was exhausted.
	ErrAcquisitionFailed = errors.New("acquisition failed")
	// ErrSeparationFailed marks vocal separation failures; there is no fallback.
	ErrSeparationFailed = errors.New("separation failed")
	// ErrComposeFailed marks video composition failures under either strategy.
	ErrComposeFailed = errors.New("compose failed")
	// ErrTimeout marks stage deadline expiry before mapping to a stage failure.
	ErrTimeout = errors.New("timeout exceeded")
	// ErrCancelled marks runs stopped by an explicit cancel request.
	ErrCancelled = errors.New("cancelled")
	// ErrCacheIntegrity marks self-healed cache entries; never user-visible.
	ErrCacheIntegrity = errors.New("cache integrity error")
	// ErrExternalTool marks collaborator process or protocol failures.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks rejected inputs and illegal status transitions.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration discovered at run time.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
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

// FailureReason renders a stage error as the reason string persisted on a
// failed song record ("stage: cause").
func FailureReason(stage string, err error) string {
	stage = strings.TrimSpace(stage)
	message := "failed"
	if err != nil {
		message = strings.TrimSpace(err.Error())
	}
	if stage == "" {
		return message
	}
	if strings.HasPrefix(message, stage+":") || strings.HasPrefix(message, stage+" ") {
		return message
	}
	return stage + ": " + message
}
