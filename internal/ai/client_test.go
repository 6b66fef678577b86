package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	viper.Set("ai.base_url", ts.URL)
	viper.Set("ai.api_key", "test-key")
	viper.Set("ai.model", "gemini-2.5-pro")
	viper.Set("ai.search_model", "gemini-2.5-flash-lite")
	viper.Set("ai.timeout_seconds", 5)

	return NewClient()
}

func candidateJSON(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + mustQuote(text) + `}]}}]}`
}

func mustQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestAnalyzeMeal(t *testing.T) {
	var gotPath string
	var gotBody generateRequest

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(candidateJSON("Total Calories: 430 kcal")))
	})

	text, err := c.AnalyzeMeal(context.Background(), "analyze this", []byte{0xFF, 0xD8, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, "Total Calories: 430 kcal", text)

	assert.Equal(t, "/v1beta/models/gemini-2.5-pro:generateContent", gotPath)
	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 2)
	assert.Equal(t, "analyze this", gotBody.Contents[0].Parts[0].Text)
	assert.Equal(t, "image/jpeg", gotBody.Contents[0].Parts[1].InlineData.MimeType)
	assert.InDelta(t, 0.7, gotBody.GenerationConfig.Temperature, 0.001)
	assert.Equal(t, 4000, gotBody.GenerationConfig.MaxOutputTokens)
}

func TestGenerateTextUsesSearchModel(t *testing.T) {
	var gotPath string
	var gotBody generateRequest

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(candidateJSON(`{"meal_name":"rice"}`)))
	})

	_, err := c.GenerateText(context.Background(), "parse this meal")
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/gemini-2.5-flash-lite:generateContent", gotPath)
	assert.InDelta(t, 0.2, gotBody.GenerationConfig.Temperature, 0.001)
}

func TestGenerateRateLimited(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.GenerateText(context.Background(), "hi")

	var tm TooManyRequestsError
	require.True(t, errors.As(err, &tm))
	assert.Equal(t, 7*time.Second, tm.RetryAfter)
}

func TestGenerateRateLimitedWithoutHeader(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.GenerateText(context.Background(), "hi")

	var tm TooManyRequestsError
	require.True(t, errors.As(err, &tm))
	assert.Equal(t, 5*time.Second, tm.RetryAfter)
}

func TestGenerateUpstreamError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusBadRequest)
	})

	_, err := c.GenerateText(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
}

func TestGenerateEmptyCandidates(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := c.GenerateText(context.Background(), "hi")
	assert.Error(t, err)
}
