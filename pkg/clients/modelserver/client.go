package modelserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// Prediction mirrors the model server's predict response.
type Prediction struct {
	PredictedValue  float64 `json:"predicted_value"`
	ConfidenceScore float64 `json:"confidence_score"`
	ModelName       string  `json:"model_name"`
	ModelVersion    string  `json:"model_version"`
}

// Health mirrors the model server's health response.
type Health struct {
	Status       string `json:"status"`
	ModelLoaded  bool   `json:"model_loaded"`
	ModelName    string `json:"model_name"`
	ModelVersion string `json:"model_version"`
}

type predictRequest struct {
	Features models.ProcessedFeatures `json:"features"`
}

type apiError struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// APIClient is a resty-backed client for the trained model server.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a model server client rooted at baseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	restyClient := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if apiKey != "" {
		restyClient.SetHeader("Authorization", fmt.Sprintf("Bearer %s", apiKey))
	}

	return &APIClient{httpClient: restyClient}
}

// HTTPClient exposes the underlying transport so tests can mock it.
func (c *APIClient) HTTPClient() *http.Client {
	return c.httpClient.GetClient()
}

// Predict scores a feature vector with the model trained for kind.
func (c *APIClient) Predict(ctx context.Context, kind string, features models.ProcessedFeatures) (*Prediction, error) {
	result := new(Prediction)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(predictRequest{Features: features}).
		SetResult(result).
		SetError(apiErr).
		Post(fmt.Sprintf("/predict/%s", kind))
	if err != nil {
		return nil, fmt.Errorf("call model server: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Detail
		if message == "" {
			message = apiErr.Error
		}
		return nil, fmt.Errorf("model server error: code=%d, message=%s", resp.StatusCode(), message)
	}

	return result, nil
}

// Health queries the model server readiness endpoint.
func (c *APIClient) Health(ctx context.Context) (*Health, error) {
	result := new(Health)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		Get("/health")
	if err != nil {
		return nil, fmt.Errorf("model server health: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("model server health: status %d", resp.StatusCode())
	}
	return result, nil
}
