package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"

	"github.com/at-ishikawa/preppal/internal/inference"
)

const defaultBaseURL = "https://api.openai.com/v1"

type Client struct {
	httpClient       *resty.Client
	model            string
	maxRetryAttempts uint
}

var _ inference.Client = (*Client)(nil)

func NewClient(apiKey, model string, retryAttempts uint) *Client {
	client := resty.New()
	client.SetBaseURL(defaultBaseURL)
	client.SetHeader("Authorization", "Bearer "+apiKey)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		httpClient:       client,
		model:            model,
		maxRetryAttempts: retryAttempts,
	}
}

func (client Client) Close() error {
	return client.httpClient.Close()
}

// GetModel returns the model name configured for this client
func (client Client) GetModel() string {
	return client.model
}

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float32         `json:"temperature,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type ChoiceMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Incomplete responses
	errStr := err.Error()
	if strings.Contains(errStr, "json.Unmarshal") || strings.Contains(errStr, "unexpected end of JSON input") {
		return true
	}

	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "i/o timeout") {
		return true
	}

	// Server errors and rate limiting
	if strings.Contains(errStr, "response error 5") || strings.Contains(errStr, "response error 429") {
		return true
	}

	return false
}

// Summarize implements the inference.Client interface
func (client *Client) Summarize(
	ctx context.Context,
	params inference.SummarizeRequest,
) (inference.SummarizeResponse, error) {
	if strings.TrimSpace(params.Text) == "" {
		return inference.SummarizeResponse{}, fmt.Errorf("transcript text is empty")
	}

	var result inference.SummarizeResponse
	if err := retry.Do(
		func() error {
			response, err := client.summarize(ctx, params)
			if err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				slog.Default().Debug("retrying summarization", "error", err)
				return err
			}
			result = response
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(client.maxRetryAttempts+1),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	); err != nil {
		return inference.SummarizeResponse{}, err
	}
	return result, nil
}

const summarizeSystemPrompt = `You help students review their lectures.
You receive the title and the transcript of one lecture, recorded by speech recognition.
The transcript may contain recognition mistakes; infer the intended words.

Return ONLY a JSON object:
{
  "summary": "<two or three sentences describing what the lecture covered>",
  "key_points": ["<a fact, definition or idea the student should remember>", ...],
  "tags": ["<a short lower-case topic>", ...]
}

RULES
- Write in the language of the transcript.
- Give 3 to 7 key points, ordered as they appear in the lecture.
- Give at most 5 tags without "#".
- Do not include any text outside the JSON.`

func (client *Client) summarize(ctx context.Context, params inference.SummarizeRequest) (inference.SummarizeResponse, error) {
	userMessage := fmt.Sprintf("Title: %s\n\nTranscript:\n%s", params.Title, params.Text)
	requestBody := ChatCompletionRequest{
		Model:       client.model,
		Temperature: 0.2,
		Messages: []Message{
			{Role: RoleSystem, Content: summarizeSystemPrompt},
			{Role: RoleUser, Content: userMessage},
		},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	response, err := client.httpClient.R().
		SetContext(ctx).
		SetBody(requestBody).
		SetResult(&ChatCompletionResponse{}).
		Post("/chat/completions")
	if err != nil {
		return inference.SummarizeResponse{}, fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return inference.SummarizeResponse{}, fmt.Errorf("response error %d: %s", response.StatusCode(), response.String())
	}

	responseBody := response.Result().(*ChatCompletionResponse)
	if responseBody == nil || len(responseBody.Choices) == 0 {
		return inference.SummarizeResponse{}, fmt.Errorf("empty response body or choices: %s", response.String())
	}

	content := responseBody.Choices[0].Message.Content
	if content == "" {
		return inference.SummarizeResponse{}, fmt.Errorf("empty response content: %s", response.String())
	}

	slog.Default().Debug("summarize response",
		"title", params.Title,
		"response", content,
	)

	var decoded inference.SummarizeResponse
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &decoded); err != nil {
		return inference.SummarizeResponse{}, fmt.Errorf("json.Unmarshal(%s) > %w", content, err)
	}
	decoded.Tags = normalizeTags(decoded.Tags)
	return decoded, nil
}

// extractJSONObject returns the first complete JSON object in content,
// ignoring any text the model wrapped around it.
func extractJSONObject(content string) string {
	first := -1
	depth := 0
	inString := false
	escapeNext := false

	for i, ch := range content {
		if escapeNext {
			escapeNext = false
			continue
		}
		if ch == '\\' && inString {
			escapeNext = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			if first == -1 {
				first = i
			}
			depth++
		case '}':
			if first == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return content[first : i+1]
			}
		}
	}
	return content
}

func normalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]bool)
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#")))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}
	return result
}
