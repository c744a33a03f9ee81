package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"resty.dev/v3"
)

// Client calls the transcription REST backend. Every request is authenticated.
type Client struct {
	httpClient  *resty.Client
	tokens      TokenSource
	transformer Transformer
}

var _ Gateway = (*Client)(nil)

func NewClient(baseURL string, tokens TokenSource, options ...TransformerOption) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		httpClient:  client,
		tokens:      tokens,
		transformer: NewTransformer(options...),
	}
}

func (client *Client) Close() error {
	return client.httpClient.Close()
}

func (client *Client) GetTranscriptions(ctx context.Context) ([]Transcription, error) {
	var records []Record
	if err := client.do(ctx, http.MethodGet, "/transcriptions", "", nil, &records); err != nil {
		return nil, err
	}

	result := make([]Transcription, 0, len(records))
	for _, record := range records {
		result = append(result, client.transformer.Transform(record))
	}
	return result, nil
}

func (client *Client) GetTranscription(ctx context.Context, id string) (Transcription, error) {
	var record Record
	if err := client.do(ctx, http.MethodGet, "/transcriptions/{id}", id, nil, &record); err != nil {
		return Transcription{}, err
	}
	return client.transformer.Transform(record), nil
}

func (client *Client) CreateTranscription(ctx context.Context, text string, duration float64) (Transcription, error) {
	var record Record
	body := CreateRequest{Text: text, Duration: duration}
	if err := client.do(ctx, http.MethodPost, "/transcriptions", "", body, &record); err != nil {
		return Transcription{}, err
	}
	return client.transformer.Transform(record), nil
}

func (client *Client) UpdateTranscription(ctx context.Context, id string, updates UpdateRequest) (Transcription, error) {
	var record Record
	if err := client.do(ctx, http.MethodPut, "/transcriptions/{id}", id, updates, &record); err != nil {
		return Transcription{}, err
	}
	return client.transformer.Transform(record), nil
}

func (client *Client) DeleteTranscription(ctx context.Context, id string) error {
	return client.do(ctx, http.MethodDelete, "/transcriptions/{id}", id, nil, nil)
}

func (client *Client) do(ctx context.Context, method, path, id string, body, result any) error {
	token, err := client.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("tokens.Token > %w", err)
	}

	request := client.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token)
	if id != "" {
		request.SetPathParam("id", id)
	}
	if body != nil {
		request.SetBody(body)
	}
	if result != nil {
		request.SetResult(result)
	}

	response, err := request.Execute(method, path)
	if err != nil {
		return fmt.Errorf("httpClient.%s(%s) > %w", method, path, err)
	}
	if response.IsError() {
		slog.Default().Debug("transcription backend returned an error",
			"method", method,
			"path", path,
			"status", response.StatusCode(),
			"body", response.String(),
		)
		return newRequestFailedError(response.StatusCode(), response.String())
	}
	return nil
}
