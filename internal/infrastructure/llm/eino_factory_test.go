package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyboard-ai-api/internal/config"
)

func newTestFactory() *EinoFactory {
	return NewEinoFactory(&config.Config{
		LLM: config.LLMConfig{
			DefaultProvider: "openai",
			Providers: map[string]config.ProviderConfig{
				"openai": {Type: "openai", APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1", Model: "gpt-4o-mini", VisionModel: "gpt-4o"},
				"legacy": {Type: "cohere", Model: "command"},
			},
		},
	})
}

func TestEinoFactory_CachesPerModel(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory()

	text1, err := f.Get(ctx, "")
	require.NoError(t, err)
	text2, err := f.Get(ctx, "openai")
	require.NoError(t, err)
	assert.Same(t, text1, text2)

	vision, err := f.GetVision(ctx, "")
	require.NoError(t, err)
	assert.NotSame(t, text1, vision)
	assert.Len(t, f.models, 2)
}

func TestEinoFactory_Errors(t *testing.T) {
	ctx := context.Background()
	f := newTestFactory()

	_, err := f.Get(ctx, "missing")
	assert.Error(t, err)

	_, err = f.Get(ctx, "legacy")
	assert.ErrorContains(t, err, "unsupported provider type")
}

func TestEinoFactory_ProviderName(t *testing.T) {
	f := newTestFactory()
	assert.Equal(t, "openai", f.ProviderName(""))
	assert.Equal(t, "ark", f.ProviderName("ark"))
}
