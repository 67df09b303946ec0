package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

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
	visualFinderName = "VisualFinder"
	visualTracer     = "ai.visual"
)

var _ ports.VisualFinder = (*VisualFinder)(nil)

var pointAtElementTool = claudeTool{
	Name:        "point_at_element",
	Description: "Report the viewport coordinates of the center of the described element",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"found": map[string]interface{}{
				"type": "boolean",
			},
			"x": map[string]interface{}{
				"type": "number",
			},
			"y": map[string]interface{}{
				"type": "number",
			},
		},
		"required": []string{"found"},
	},
}

// VisualFinder locates the described element on a viewport screenshot and
// resolves whatever element sits at the reported point. Without a
// description it has nothing to look for and reports not found.
type VisualFinder struct {
	client *Client
	logger *zap.Logger
	tracer trace.Tracer
}

func NewVisualFinder(client *Client, logger *zap.Logger) *VisualFinder {
	return &VisualFinder{
		client: client,
		logger: logger.With(zap.String(logg.Layer, visualFinderName)),
		tracer: otel.Tracer(visualTracer),
	}
}

func (f *VisualFinder) FindElement(ctx context.Context, session ports.Session, description string) (el entity.ElementHandle, err error) {
	const op = "FindElement"
	logger := f.logger.With(zap.String(logg.Operation, op), zap.String(logg.Description, description))

	ctx, step := tracing.StartSpan(ctx, f.tracer, logger, op,
		attribute.String("description", description))
	defer func() {
		step.End(err)
	}()

	if description == "" {
		return nil, apperr.NotFoundError(op, errors.New("visual lookup needs a description"))
	}

	screenshot, err := session.Screenshot(ctx)
	if err != nil {
		return nil, err
	}

	var point struct {
		Found bool    `json:"found"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
	}

	content := []contentBlock{
		jpegBlock(base64.StdEncoding.EncodeToString(screenshot)),
		textBlock(fmt.Sprintf("Find this element on the screenshot: %s. Call point_at_element with found=false if it is not visible.", description)),
	}

	if err = f.client.callTool(ctx, content, pointAtElementTool, &point); err != nil {
		return nil, err
	}

	if !point.Found {
		return nil, apperr.NotFoundError(op, fmt.Errorf("%q not visible on screenshot", description))
	}

	step.SetAttributes(attribute.Float64("x", point.X), attribute.Float64("y", point.Y))

	return session.ElementAt(ctx, point.X, point.Y)
}
