package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Render flow markers.
var (
	// ErrNoData marks a session whose identity has no statistics record.
	ErrNoData = errors.New("no profile data")
	// ErrUnclassifiableLanguage marks a language outside the designed set.
	// composition.MatchDesigned returns it; ClassifyLanguage absorbs it into
	// an "other" slot, so derivation never fails with it.
	ErrUnclassifiableLanguage = errors.New("unclassifiable language")
	// ErrSubmission marks a failed POST /api/render.
	ErrSubmission = errors.New("render submission failed")
	// ErrJobFailed marks a render job that reached the failed state.
	ErrJobFailed = errors.New("render job failed")
	// ErrJobNotFound marks a progress query for a job the service does not know.
	ErrJobNotFound = fmt.Errorf("render job %w", ErrNotFound)
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureKind returns a short label for the category of err, used as the
// error hint on persisted job failures and notifications.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrExternalTool):
		return "renderer"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "transient"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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

const maxFailureMessage = 512

// FailureMessage returns the text persisted on a failed job: the error
// string collapsed to one line and bounded in length.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if len(msg) > maxFailureMessage {
		msg = msg[:maxFailureMessage-3] + "..."
	}
	return msg
}
