package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason      = "reason"
	MetaStage       = "stage"
	MetaField       = "field"
	MetaLocator     = "locator"
	MetaStrategy    = "strategy"
	MetaDescription = "description"
	MetaURL         = "url"

	StageBrowser     = "browser"
	StageNavigation  = "navigation"
	StageLookup      = "lookup"
	StageScreenshot  = "screenshot"
	StageSnapshot    = "snapshot"
	StageAI          = "ai"
	StageHistory     = "history"
	StageAlternative = "alternative"
	StageSemantic    = "semantic"
	StageVisual      = "visual"

	CodeInternal        = "internal"
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeUnavailable     = "unavailable"
	CodeTimeout         = "timeout"
	CodeBrowserNotReady = "browser_not_ready"
	CodeAIError         = "ai_error"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

func NotFoundError(op string, err error) error {
	return Wrap(op, CodeNotFound, err, map[string]any{
		MetaReason: "not_found",
	})
}

// CodeOf returns the code of the outermost *Error in the chain, or CodeInternal
// for errors that were never wrapped.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return CodeInternal
}

// IsNotFound reports whether any *Error in the chain carries CodeNotFound.
func IsNotFound(err error) bool {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return false
		}

		if appErr.Code == CodeNotFound {
			return true
		}

		err = appErr.Err
	}

	return false
}
