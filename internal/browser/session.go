package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"locator-healing/internal/entity"
	"locator-healing/internal/ports"
	"locator-healing/pkg/apperr"
	"locator-healing/pkg/logg"
	"locator-healing/pkg/tracing"
)

const (
	sessionName   = "BrowserSession"
	sessionTracer = "browser.session"
)

var _ ports.Session = (*Session)(nil)

// Session adapts one playwright page to ports.Session. Every test owns its own.
type Session struct {
	page        playwright.Page
	findTimeout float64
	logger      *zap.Logger
	tracer      trace.Tracer
}

// NewSession wraps page. findTimeout is the implicit wait per lookup in
// milliseconds; zero means a single immediate query.
func NewSession(page playwright.Page, findTimeout int, logger *zap.Logger) *Session {
	return &Session{
		page:        page,
		findTimeout: float64(findTimeout),
		logger:      logger.With(zap.String(logg.Layer, sessionName)),
		tracer:      otel.Tracer(sessionTracer),
	}
}

func (s *Session) FindElement(ctx context.Context, locator entity.Locator) (el entity.ElementHandle, err error) {
	const op = "FindElement"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.Stringer(logg.Locator, locator))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("locator", locator.String()))
	defer func() {
		step.End(err)
	}()

	selector := playwrightSelector(locator)
	if selector == "" {
		return nil, apperr.InvalidReqError(op, "locator", fmt.Errorf("unsupported locator %q", locator.String()))
	}

	var handle playwright.ElementHandle

	if s.findTimeout > 0 {
		handle, err = s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(s.findTimeout),
			State:   playwright.WaitForSelectorStateAttached,
		})
	} else {
		handle, err = s.page.QuerySelector(selector)
	}

	if err != nil || handle == nil {
		return nil, lookupError(op, locator, err)
	}

	return &element{handle: handle}, nil
}

// lookupError classifies a failed lookup. A nil err means the query matched
// nothing. Timeouts and empty matches are not_found, anything else is internal.
func lookupError(op string, locator entity.Locator, err error) error {
	code, reason := apperr.CodeNotFound, "element_not_found"

	switch {
	case err == nil:
		err = fmt.Errorf("element not found: %s", locator)
	case !errors.Is(err, playwright.ErrTimeout):
		code, reason = apperr.CodeInternal, "query_failed"
	}

	return apperr.Wrap(op, code, err, map[string]any{
		apperr.MetaReason:  reason,
		apperr.MetaStage:   apperr.StageLookup,
		apperr.MetaLocator: locator.String(),
	})
}

func (s *Session) Snapshot(ctx context.Context) (elements []entity.Element, err error) {
	const op = "Snapshot"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	result, err := s.page.Evaluate(snapshotScript)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageSnapshot,
		})
	}

	rows, ok := result.([]interface{})
	if !ok {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeInternal, "unexpected_result_type")
	}

	elements = make([]entity.Element, 0, len(rows))

	for _, row := range rows {
		m, ok := row.(map[string]interface{})
		if !ok {
			continue
		}

		elements = append(elements, elementFromRow(m))
	}

	step.SetAttributes(attribute.Int("elements", len(elements)))

	return elements, nil
}

func (s *Session) Screenshot(ctx context.Context) (image []byte, err error) {
	const op = "Screenshot"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	image, err = s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(false),
		Type:     playwright.ScreenshotTypeJpeg,
		Quality:  playwright.Int(60),
	})
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
		})
	}

	return image, nil
}

func (s *Session) ElementAt(ctx context.Context, x, y float64) (el entity.ElementHandle, err error) {
	const op = "ElementAt"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.Float64("x", x),
		attribute.Float64("y", y))
	defer func() {
		step.End(err)
	}()

	js, err := s.page.EvaluateHandle(elementAtScript, []float64{x, y})
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageLookup,
		})
	}

	handle := js.AsElement()
	if handle == nil {
		_ = js.Dispose()

		return nil, apperr.NotFoundError(op, fmt.Errorf("no element at (%.0f, %.0f)", x, y))
	}

	return &element{handle: handle}, nil
}

type element struct {
	handle playwright.ElementHandle
}

func (e *element) Click(_ context.Context) error {
	return e.handle.Click()
}

func (e *element) Fill(_ context.Context, value string) error {
	return e.handle.Fill(value)
}

func (e *element) Text(_ context.Context) (string, error) {
	text, err := e.handle.TextContent()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

func elementFromRow(m map[string]interface{}) entity.Element {
	elem := entity.Element{
		Tag:        getString(m, "tag"),
		Text:       strings.TrimSpace(getString(m, "text")),
		Selector:   getString(m, "selector"),
		Visible:    getBool(m, "visible"),
		Clickable:  getBool(m, "clickable"),
		Attributes: make(map[string]string),
		BoundingBox: entity.BoundingBox{
			X:      getFloat(m, "x"),
			Y:      getFloat(m, "y"),
			Width:  getFloat(m, "width"),
			Height: getFloat(m, "height"),
		},
	}

	if attrs, ok := m["attributes"].(map[string]interface{}); ok {
		for k, v := range attrs {
			if str, ok := v.(string); ok {
				elem.Attributes[k] = str
			}
		}
	}

	return elem
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}

	return ""
}

func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}

	return false
}

func getFloat(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}

	return 0
}
