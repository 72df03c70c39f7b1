package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"barter_backend/internal/common"
	"barter_backend/internal/config"
	"barter_backend/internal/listing"

	"go.uber.org/zap"
)

const maxTopPredictions = 5

// Service fronts the text-generation and vision collaborators.
type Service interface {
	EstimateValue(ctx context.Context, req EstimateValueRequest) (*ValueEstimate, error)
	GenerateDescription(ctx context.Context, req DescriptionRequest) (*DescriptionResponse, error)
	ClassifyImage(ctx context.Context, imageB64 string) (*Classification, error)
}

// ServiceImplementation implements the AI Service interface.
type ServiceImplementation struct {
	text   TextGenerator
	vision ImageClassifier
	logger *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewHTTPClient returns the client shared by the AI collaborators.
func NewHTTPClient(cfg *config.Config) *http.Client {
	timeout := cfg.AIRequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func NewService(text TextGenerator, vision ImageClassifier, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		text:   text,
		vision: vision,
		logger: logger.Named("AIService"),
	}
}

func (s *ServiceImplementation) EstimateValue(ctx context.Context, req EstimateValueRequest) (*ValueEstimate, error) {
	description := "N/A"
	if req.Description != nil && strings.TrimSpace(*req.Description) != "" {
		description = strings.TrimSpace(*req.Description)
	}
	prompt := fmt.Sprintf(`You are estimating fair market value for a used item in USD.
Return ONLY valid JSON (no markdown, no code fence) with exactly these keys:
{
  "min_value": number,
  "max_value": number,
  "suggested_value": number,
  "reasoning": string,
  "confidence": "low" | "medium" | "high"
}

Item details:
- title: %s
- category: %s
- condition: %s
- description: %s`, req.Title, req.Category, req.Condition, description)

	text, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	estimate, err := parseEstimate(text)
	if err != nil {
		s.logger.Warn("Unusable value estimate", zap.Error(err))
		return nil, common.ErrBadGateway.WithDetails(err.Error())
	}
	return estimate, nil
}

func (s *ServiceImplementation) GenerateDescription(ctx context.Context, req DescriptionRequest) (*DescriptionResponse, error) {
	prompt := fmt.Sprintf(`Write a compelling 2-3 sentence listing description for a used item.
Do not include any price, bullet points, markdown, or hashtags.

Item details:
- title: %s
- category: %s
- condition: %s`, req.Title, req.Category, req.Condition)

	text, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &DescriptionResponse{Description: text}, nil
}

func (s *ServiceImplementation) ClassifyImage(ctx context.Context, imageB64 string) (*Classification, error) {
	if !s.vision.Enabled() {
		return nil, common.ErrServiceUnavailable.WithDetails("Vision service is disabled.")
	}
	payload, err := normalizeImage(imageB64)
	if err != nil {
		return nil, common.ErrBadRequest.WithDetails(err.Error())
	}

	predictions, err := s.vision.Classify(ctx, payload)
	if err != nil {
		s.logger.Warn("Vision request failed", zap.Error(err))
		return nil, upstreamFailure(err)
	}
	if len(predictions) > maxTopPredictions {
		predictions = predictions[:maxTopPredictions]
	}

	top := predictions[0]
	category := listing.CategoryOther
	for _, p := range predictions {
		if c := categoryForLabel(p.Label); c != listing.CategoryOther {
			category = c
			break
		}
	}
	return &Classification{
		Category:      category,
		ImageNetLabel: top.Label,
		Confidence:    top.Score,
		Top5:          predictions,
	}, nil
}

func (s *ServiceImplementation) generate(ctx context.Context, prompt string) (string, error) {
	if !s.text.Enabled() {
		return "", common.ErrServiceUnavailable.WithDetails("Gemini service is not configured.")
	}
	text, err := s.text.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("Gemini request failed", zap.Error(err))
		return "", upstreamFailure(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", common.ErrBadGateway.WithDetails("Gemini returned an empty response.")
	}
	return text, nil
}

func upstreamFailure(err error) error {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return common.ErrBadGateway.WithDetails(upstream.Error())
	}
	return common.ErrBadGateway.WithDetails(err.Error())
}

// parseEstimate reads the model's JSON, tolerating code fences and prose
// around the object, and clamps the result into a consistent range.
func parseEstimate(text string) (*ValueEstimate, error) {
	text = stripFences(text)

	var wire struct {
		MinValue       *looseFloat `json:"min_value"`
		MaxValue       *looseFloat `json:"max_value"`
		SuggestedValue *looseFloat `json:"suggested_value"`
		Reasoning      *string     `json:"reasoning"`
		Confidence     *string     `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
		if start == -1 || end <= start {
			return nil, fmt.Errorf("gemini returned non-JSON output")
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &wire); err != nil {
			return nil, fmt.Errorf("failed to parse gemini JSON: %w", err)
		}
	}

	switch {
	case wire.MinValue == nil:
		return nil, fmt.Errorf("gemini response missing key: min_value")
	case wire.MaxValue == nil:
		return nil, fmt.Errorf("gemini response missing key: max_value")
	case wire.SuggestedValue == nil:
		return nil, fmt.Errorf("gemini response missing key: suggested_value")
	case wire.Reasoning == nil:
		return nil, fmt.Errorf("gemini response missing key: reasoning")
	case wire.Confidence == nil:
		return nil, fmt.Errorf("gemini response missing key: confidence")
	}

	est := &ValueEstimate{
		MinValue:       float64(*wire.MinValue),
		MaxValue:       float64(*wire.MaxValue),
		SuggestedValue: float64(*wire.SuggestedValue),
		Reasoning:      strings.TrimSpace(*wire.Reasoning),
		Confidence:     strings.ToLower(strings.TrimSpace(*wire.Confidence)),
	}
	if est.MinValue > est.MaxValue {
		est.MinValue, est.MaxValue = est.MaxValue, est.MinValue
	}
	if est.SuggestedValue < est.MinValue {
		est.SuggestedValue = est.MinValue
	}
	if est.SuggestedValue > est.MaxValue {
		est.SuggestedValue = est.MaxValue
	}
	switch est.Confidence {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
	default:
		est.Confidence = ConfidenceMedium
	}
	return est, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimSpace(strings.Trim(text, "`"))
	if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
		text = strings.TrimSpace(text[4:])
	}
	return text
}

// looseFloat accepts a JSON number or a numeric string.
type looseFloat float64

func (f *looseFloat) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", string(b))
	}
	*f = looseFloat(v)
	return nil
}

// normalizeImage drops a data URI prefix and checks the payload decodes.
func normalizeImage(imageB64 string) (string, error) {
	payload := strings.TrimSpace(imageB64)
	if head, rest, ok := strings.Cut(payload, ","); ok && strings.HasPrefix(head, "data:image/") {
		payload = rest
	}
	if payload == "" {
		return "", fmt.Errorf("image_b64 is required")
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return "", fmt.Errorf("invalid image payload: %v", err)
	}
	return payload, nil
}

func categoryForLabel(label string) listing.Category {
	normalized := strings.ToLower(strings.TrimSpace(label))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	if normalized == "" {
		return listing.CategoryOther
	}
	for _, entry := range labelCategories {
		if strings.Contains(normalized, entry.fragment) || strings.Contains(entry.fragment, normalized) {
			return entry.category
		}
	}
	return listing.CategoryOther
}
