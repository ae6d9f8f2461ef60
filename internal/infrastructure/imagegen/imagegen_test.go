package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyboard-ai-api/internal/config"
	workflowport "storyboard-ai-api/internal/workflow/port"
)

func TestOpenAIGenerator_ReturnsURL(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"created":1,"data":[{"url":"https://img.example.com/a.png"}]}`))
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator(OpenAIOptions{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Quality: "standard"})
	url, err := gen.Generate(context.Background(), workflowport.ImageRequest{Prompt: "robot, watercolor"})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/a.png", url)

	assert.Equal(t, "robot, watercolor", gotBody["prompt"])
	assert.Equal(t, "dall-e-3", gotBody["model"])
	assert.Equal(t, "1024x1024", gotBody["size"])
	assert.Equal(t, "url", gotBody["response_format"])
}

func TestOpenAIGenerator_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"created":1,"data":[]}`))
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator(OpenAIOptions{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	_, err := gen.Generate(context.Background(), workflowport.ImageRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestArkGenerator_URLAndBase64(t *testing.T) {
	responses := []string{
		`{"data":[{"url":"https://ark.example.com/1.jpeg"}]}`,
		`{"data":[{"b64_json":"AAAA","format":"jpeg"}]}`,
		`{"data":[]}`,
	}
	call := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer ark-key", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "doubao-seedream-4.0", body["model"])
		_, _ = w.Write([]byte(responses[call]))
		call++
	}))
	defer srv.Close()

	gen := NewArkGenerator(ArkOptions{APIKey: "ark-key", BaseURL: srv.URL})
	ctx := context.Background()

	url, err := gen.Generate(ctx, workflowport.ImageRequest{Prompt: "a"})
	require.NoError(t, err)
	assert.Equal(t, "https://ark.example.com/1.jpeg", url)

	url, err = gen.Generate(ctx, workflowport.ImageRequest{Prompt: "b"})
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", url)

	_, err = gen.Generate(ctx, workflowport.ImageRequest{Prompt: "c"})
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestArkGenerator_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"RateLimit","message":"slow down"}}`))
	}))
	defer srv.Close()

	gen := NewArkGenerator(ArkOptions{APIKey: "k", BaseURL: srv.URL})
	_, err := gen.Generate(context.Background(), workflowport.ImageRequest{Prompt: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestMockGenerator_Deterministic(t *testing.T) {
	gen := NewMockGenerator()
	a, err := gen.Generate(context.Background(), workflowport.ImageRequest{Prompt: "same"})
	require.NoError(t, err)
	b, _ := gen.Generate(context.Background(), workflowport.ImageRequest{Prompt: "same"})
	c, _ := gen.Generate(context.Background(), workflowport.ImageRequest{Prompt: "other"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "https://"))
}

func TestNew_SelectsProvider(t *testing.T) {
	gen, err := New(&config.ImageConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", gen.Name())

	gen, err = New(&config.ImageConfig{Provider: "ark", Model: "doubao-seedream-4.0"})
	require.NoError(t, err)
	assert.Equal(t, "ark", gen.Name())

	_, err = New(&config.ImageConfig{Provider: "midjourney"})
	assert.Error(t, err)
}
