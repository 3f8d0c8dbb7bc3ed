// Package classifier is the capability boundary to the external image
// classification service: one image reference in, one label out. Calls are
// one-shot with no retry; the caller decides what an error means (for the
// gallery it means "no suggested label").
package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Classifier turns an image reference (URL or data URI) into a label.
type Classifier interface {
	Classify(ctx context.Context, imageRef string) (string, error)
}

type classifyRequest struct {
	Image string `json:"image"`
}

type classifyResponse struct {
	Label string `json:"label"`
}

// Client calls the classifier over HTTP.
type Client struct {
	http *resty.Client
}

// New creates a classifier client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
	}
}

// Classify posts the image reference and returns the predicted label.
func (c *Client) Classify(ctx context.Context, imageRef string) (string, error) {
	result := &classifyResponse{}
	response, err := c.http.R().
		SetContext(ctx).
		SetBody(&classifyRequest{Image: imageRef}).
		SetResult(result).
		Post("/classify")
	if err != nil {
		return "", err
	}

	if response.IsError() {
		return "", fmt.Errorf("classifier responded with status %d", response.StatusCode())
	}

	return result.Label, nil
}
