package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotAnImage rejects a URL before it ever reaches the vision service.
var ErrNotAnImage = errors.New("url is not a fetchable image")

// ReasonDetectionFailed marks the fail-safe result returned when the vision
// service is unreachable. It is distinguishable from a genuine "safe" verdict.
const ReasonDetectionFailed = "detection_failed"

// ImageResult is the normalized verdict of the visual classifier.
type ImageResult struct {
	Unsafe     bool    `json:"unsafe"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// VisionClient calls the external visual-content classifier.
type VisionClient interface {
	Classify(ctx context.Context, imageURL string) (ImageResult, error)
}

// HTTPVisionClient is the production VisionClient.
type HTTPVisionClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPVisionClient constructs the client.
func NewHTTPVisionClient(baseURL, apiKey string) *HTTPVisionClient {
	return &HTTPVisionClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Classify submits the image URL and decodes the verdict.
func (c *HTTPVisionClient) Classify(ctx context.Context, imageURL string) (ImageResult, error) {
	payload, err := json.Marshal(map[string]string{"image_url": imageURL})
	if err != nil {
		return ImageResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/classify", bytes.NewReader(payload))
	if err != nil {
		return ImageResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ImageResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ImageResult{}, fmt.Errorf("vision service status %d", resp.StatusCode)
	}

	var verdict struct {
		Unsafe     bool    `json:"unsafe"`
		Confidence float64 `json:"confidence"`
		Category   string  `json:"category"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return ImageResult{}, err
	}

	return ImageResult{
		Unsafe:     verdict.Unsafe,
		Confidence: verdict.Confidence,
		Category:   verdict.Category,
	}, nil
}

// ImageClassifier validates candidate URLs and delegates to the vision
// service, degrading to a safe verdict when the service fails.
type ImageClassifier struct {
	vision     VisionClient
	httpClient *http.Client
	logger     *zap.Logger
}

// NewImageClassifier constructs an ImageClassifier.
func NewImageClassifier(vision VisionClient, logger *zap.Logger) *ImageClassifier {
	return &ImageClassifier{
		vision:     vision,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Scan validates that the URL is a fetchable image and classifies it.
// Validation failures are returned as errors with no classifier call made.
// Classifier failures are not errors: the result degrades to "not unsafe"
// with a detection_failed reason, so moderation can never block delivery.
func (c *ImageClassifier) Scan(ctx context.Context, imageURL string) (ImageResult, error) {
	if err := c.validate(ctx, imageURL); err != nil {
		return ImageResult{}, err
	}

	result, err := c.vision.Classify(ctx, imageURL)
	if err != nil {
		c.logger.Warn("image classification degraded to safe verdict",
			zap.String("image_url", imageURL), zap.Error(err))
		return ImageResult{Unsafe: false, Confidence: 0, Reason: ReasonDetectionFailed}, nil
	}
	return result, nil
}

func (c *ImageClassifier) validate(ctx context.Context, imageURL string) error {
	parsed, err := url.Parse(imageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: malformed url", ErrNotAnImage)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: not fetchable", ErrNotAnImage)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrNotAnImage, resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "image/") {
		return fmt.Errorf("%w: content type %q", ErrNotAnImage, resp.Header.Get("Content-Type"))
	}
	return nil
}
