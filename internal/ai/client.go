// Package ai backs the semantic and visual finders with the Anthropic
// Messages API. Both finders force a single tool call and read its input.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"locator-healing/internal/config"
	"locator-healing/pkg/apperr"
	"locator-healing/pkg/logg"
	"locator-healing/pkg/tracing"
)

const (
	aiClientName     = "AIClient"
	aiTracer         = "ai.client"
	anthropicVersion = "2023-06-01"
	maxTokens        = 1024
)

type Client struct {
	config     *config.AIConfig
	logger     *zap.Logger
	tracer     trace.Tracer
	httpClient *http.Client
	endpoint   string
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewClient(params Params) *Client {
	aiConfig := params.Config.AIConfig

	return &Client{
		config:     aiConfig,
		logger:     params.Logger.With(zap.String(logg.Layer, aiClientName)),
		tracer:     otel.Tracer(aiTracer),
		httpClient: &http.Client{Timeout: time.Duration(aiConfig.Timeout) * time.Millisecond},
		endpoint:   strings.TrimRight(aiConfig.BaseURL, "/") + "/v1/messages",
	}
}

type claudeRequest struct {
	Model      string          `json:"model"`
	MaxTokens  int             `json:"max_tokens"`
	Messages   []claudeMessage `json:"messages"`
	Tools      []claudeTool    `json:"tools"`
	ToolChoice toolChoice      `json:"tool_choice"`
}

type claudeMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type claudeResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text,omitempty"`
		Name  string          `json:"name,omitempty"`
		Input json.RawMessage `json:"input,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func textBlock(text string) contentBlock {
	return contentBlock{Type: "text", Text: text}
}

func jpegBlock(data string) contentBlock {
	return contentBlock{
		Type: "image",
		Source: &imageSource{
			Type:      "base64",
			MediaType: "image/jpeg",
			Data:      data,
		},
	}
}

// callTool sends one user turn and decodes the forced tool call's input into out.
func (c *Client) callTool(ctx context.Context, content []contentBlock, tool claudeTool, out any) (err error) {
	const op = "callTool"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String("tool", tool.Name))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.String("tool", tool.Name))
	defer func() {
		step.End(err)
	}()

	reqBody := claudeRequest{
		Model:      c.config.Model,
		MaxTokens:  maxTokens,
		Messages:   []claudeMessage{{Role: "user", Content: content}},
		Tools:      []claudeTool{tool},
		ToolChoice: toolChoice{Type: "tool", Name: tool.Name},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "marshal_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "request_create_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	step.AddEvent("sending HTTP request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
				apperr.MetaReason: "http_timeout",
				apperr.MetaStage:  apperr.StageAI,
			})
		}

		return apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "http_request_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "read_body_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	if resp.StatusCode != http.StatusOK {
		return apperr.Wrap(op, apperr.CodeAIError, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body)), map[string]any{
			apperr.MetaReason: "api_error",
			apperr.MetaStage:  apperr.StageAI,
			"status_code":     resp.StatusCode,
		})
	}

	var claudeResp claudeResponse
	if err = json.Unmarshal(body, &claudeResp); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "unmarshal_failed",
			apperr.MetaStage:  apperr.StageAI,
		})
	}

	for _, block := range claudeResp.Content {
		if block.Type != "tool_use" || block.Name != tool.Name {
			continue
		}

		if err = json.Unmarshal(block.Input, out); err != nil {
			return apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
				apperr.MetaReason: "tool_input_invalid",
				apperr.MetaStage:  apperr.StageAI,
			})
		}

		return nil
	}

	return apperr.WrapErrorWithReason(op, apperr.CodeAIError, "tool_not_called")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
