package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"barter_backend/internal/config"
)

// TextGenerator turns a prompt into text.
type TextGenerator interface {
	Enabled() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageClassifier returns the most likely labels for an image, best first.
type ImageClassifier interface {
	Enabled() bool
	Classify(ctx context.Context, imageB64 string) ([]Prediction, error)
}

// UpstreamError is a non-200 answer from a collaborator.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.StatusCode, e.Message)
}

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

var _ TextGenerator = (*GeminiClient)(nil)

func NewGeminiClient(cfg *config.Config, httpClient *http.Client) *GeminiClient {
	return &GeminiClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.GeminiBaseURL, "/"),
		model:      cfg.GeminiModel,
		apiKey:     cfg.GeminiAPIKey,
	}
}

func (g *GeminiClient) Enabled() bool { return g.apiKey != "" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate returns the text of the first candidate.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	wire := geminiRequest{Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}}

	var resp geminiResponse
	if err := postJSON(ctx, g.httpClient, "gemini", endpoint, map[string]string{"x-goog-api-key": g.apiKey}, wire, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: response has no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// VisionClient calls an image classification service that answers
// POST /classify {"image_b64"} with {"predictions":[{"label","score"}]}.
type VisionClient struct {
	httpClient *http.Client
	baseURL    string
	enabled    bool
}

var _ ImageClassifier = (*VisionClient)(nil)

func NewVisionClient(cfg *config.Config, httpClient *http.Client) *VisionClient {
	return &VisionClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.VisionServiceURL, "/"),
		enabled:    cfg.VisionEnabled && cfg.VisionServiceURL != "",
	}
}

func (v *VisionClient) Enabled() bool { return v.enabled }

func (v *VisionClient) Classify(ctx context.Context, imageB64 string) ([]Prediction, error) {
	var resp struct {
		Predictions []Prediction `json:"predictions"`
	}
	if err := postJSON(ctx, v.httpClient, "vision", v.baseURL+"/classify", nil, map[string]string{"image_b64": imageB64}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Predictions) == 0 {
		return nil, fmt.Errorf("vision: response has no predictions")
	}
	return resp.Predictions, nil
}

func postJSON(ctx context.Context, client *http.Client, service, endpoint string, headers map[string]string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshaling request: %w", service, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: sending request: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readUpstreamError(service, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", service, err)
	}
	return nil
}

// readUpstreamError understands the {"error":{"message":...}} shape and
// falls back to the raw body.
func readUpstreamError(service string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var wire struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &wire) == nil && wire.Error.Message != "" {
		msg = wire.Error.Message
	}
	return &UpstreamError{Service: service, StatusCode: resp.StatusCode, Message: msg}
}
