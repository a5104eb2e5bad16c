package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CredentialSource yields the access credential. It is invoked fresh on every
// call so a corrected deployment configuration takes effect on the very next
// capture without a restart.
type CredentialSource func() string

// Request is the immutable value handed to the analysis service: one encoded
// still frame plus the fixed instruction and schema constraints. Created once
// per capture, never mutated.
type Request struct {
	ID          string
	ImageData   []byte
	MimeType    string
	Instruction string
	Schema      *Schema
}

// Service is the remote vision-analysis capability at its interface boundary:
// image in, raw text out (which should parse into the response schema), or a
// failure.
type Service interface {
	AnalyzeImage(ctx context.Context, req Request) (string, error)
}

// Options controls how the client is configured.
type Options struct {
	Credentials CredentialSource
	BaseURL     string
	Model       string
	HTTPClient  *http.Client
}

// Client calls the Gemini generateContent endpoint with an inline image part
// and a JSON response schema, and returns the raw candidate text untouched.
// All parsing and validation of that text happens downstream.
type Client struct {
	credentials CredentialSource
	baseURL     string
	model       string
	httpClient  *http.Client
}

// NewClient constructs a client with sane defaults. A nil HTTP client gets
// replaced by one with a generous timeout; the pipeline-level deadline is
// enforced by the orchestrator, not here.
func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	credentials := opts.Credentials
	if credentials == nil {
		credentials = func() string { return "" }
	}

	return &Client{
		credentials: credentials,
		baseURL:     baseURL,
		model:       model,
		httpClient:  client,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts,omitempty"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema `json:"responseSchema,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// AnalyzeImage performs exactly one generateContent call and returns the raw
// text output of the first candidate.
func (c *Client) AnalyzeImage(ctx context.Context, req Request) (string, error) {
	payload := generateContentRequest{
		Contents: []content{
			{
				Role: "user",
				Parts: []part{
					{Text: req.Instruction},
					{InlineData: &inlineData{
						MimeType: req.MimeType,
						Data:     base64.StdEncoding.EncodeToString(req.ImageData),
					}},
				},
			},
		},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   req.Schema,
		},
	}

	var response generateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model))
	if err := c.invoke(ctx, path, payload, &response); err != nil {
		return "", err
	}

	if len(response.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}

	var b strings.Builder
	for _, p := range response.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

func (c *Client) invoke(ctx context.Context, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if key := strings.TrimSpace(c.credentials()); key != "" {
		q := req.URL.Query()
		q.Set("key", key)
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke analysis service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("analysis service status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("analysis service status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("analysis service status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode analysis response: %w", err)
	}
	return nil
}
