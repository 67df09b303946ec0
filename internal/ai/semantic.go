package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

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
	semanticFinderName = "SemanticFinder"
	semanticTracer     = "ai.semantic"
)

var _ ports.SemanticFinder = (*SemanticFinder)(nil)

var selectElementTool = claudeTool{
	Name:        "select_element",
	Description: "Pick the element that matches the description, or -1 if none does",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"index": map[string]interface{}{
				"type": "integer",
			},
		},
		"required": []string{"index"},
	},
}

// SemanticFinder asks the model to pick the described element out of a DOM
// snapshot, then resolves the picked row's selector on the page.
type SemanticFinder struct {
	client *Client
	logger *zap.Logger
	tracer trace.Tracer
}

func NewSemanticFinder(client *Client, logger *zap.Logger) *SemanticFinder {
	return &SemanticFinder{
		client: client,
		logger: logger.With(zap.String(logg.Layer, semanticFinderName)),
		tracer: otel.Tracer(semanticTracer),
	}
}

func (f *SemanticFinder) FindElement(ctx context.Context, session ports.Session, description string) (el entity.ElementHandle, err error) {
	const op = "FindElement"
	logger := f.logger.With(zap.String(logg.Operation, op), zap.String(logg.Description, description))

	ctx, step := tracing.StartSpan(ctx, f.tracer, logger, op,
		attribute.String("description", description))
	defer func() {
		step.End(err)
	}()

	if description == "" {
		return nil, apperr.InvalidReqError(op, "description", errors.New("description cannot be empty"))
	}

	elements, err := session.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if len(elements) == 0 {
		return nil, apperr.NotFoundError(op, errors.New("page has no candidate elements"))
	}

	var choice struct {
		Index int `json:"index"`
	}

	if err = f.client.callTool(ctx, []contentBlock{textBlock(semanticPrompt(description, elements))}, selectElementTool, &choice); err != nil {
		return nil, err
	}

	step.SetAttributes(attribute.Int("index", choice.Index))

	if choice.Index < 0 || choice.Index >= len(elements) {
		return nil, apperr.NotFoundError(op, fmt.Errorf("no element matches %q", description))
	}

	picked := elements[choice.Index]
	logger.Debug("Model picked element", zap.String("selector", picked.Selector), zap.String("text", picked.Text))

	return session.FindElement(ctx, entity.ByCSSSelector(picked.Selector))
}

func semanticPrompt(description string, elements []entity.Element) string {
	var b strings.Builder

	b.WriteString("A UI test lost track of an element. Find it on the current page.\n\n")
	fmt.Fprintf(&b, "Description: %s\n\nElements:\n", description)

	for i, el := range elements {
		fmt.Fprintf(&b, "[%d] <%s> %q", i, el.Tag, el.Text)

		keys := make([]string, 0, len(el.Attributes))
		for k := range el.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%q", k, el.Attributes[k])
		}

		if !el.Visible {
			b.WriteString(" (hidden)")
		}

		b.WriteString("\n")
	}

	b.WriteString("\nCall select_element with the index of the best match, or -1 if nothing matches.")

	return b.String()
}
