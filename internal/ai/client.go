// Package ai talks to the Gemini REST API for meal analysis and
// nutrition lookups.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// TooManyRequestsError signals that the upstream model is rate limiting us.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

type Client struct {
	baseURL     string
	apiKey      string
	model       string
	searchModel string
	http        *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(viper.GetString("ai.base_url"), "/"),
		apiKey:      viper.GetString("ai.api_key"),
		model:       viper.GetString("ai.model"),
		searchModel: viper.GetString("ai.search_model"),
		http: &http.Client{
			Timeout: time.Duration(viper.GetInt("ai.timeout_seconds")) * time.Second,
		},
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// AnalyzeMeal sends a prompt plus a JPEG image to the vision model and
// returns the plain-text analysis.
func (c *Client) AnalyzeMeal(ctx context.Context, prompt string, jpeg []byte) (string, error) {
	req := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{
					MimeType: "image/jpeg",
					Data:     base64.StdEncoding.EncodeToString(jpeg),
				}},
			},
		}},
		GenerationConfig: &generationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 4000,
		},
	}

	return c.generate(ctx, c.model, req)
}

// GenerateText runs a text-only prompt on the lighter search model.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Contents: []content{{
			Parts: []part{{Text: prompt}},
		}},
		GenerationConfig: &generationConfig{
			Temperature:     0.2,
			MaxOutputTokens: 4096,
		},
	}

	return c.generate(ctx, c.searchModel, req)
}

func (c *Client) generate(ctx context.Context, model string, body generateRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request, %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request, %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach model, %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return "", TooManyRequestsError{RetryAfter: parseRetryAfter(res.Header.Get("Retry-After"))}
	}

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return "", fmt.Errorf("model returned %s: %s", res.Status, string(msg))
	}

	var out generateResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response, %w", err)
	}

	var text strings.Builder
	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			text.WriteString(p.Text)
		}
		break
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("model returned an empty response")
	}

	return text.String(), nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
