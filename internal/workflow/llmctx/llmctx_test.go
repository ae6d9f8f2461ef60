package llmctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabels(t *testing.T) {
	ctx := WithWorkflowProvider(context.Background(), " story_refine ", "ark")
	assert.Equal(t, "story_refine", WorkflowFromContext(ctx))
	assert.Equal(t, "ark", ProviderFromContext(ctx))
}

func TestLabels_DefaultUnknown(t *testing.T) {
	ctx := WithWorkflowProvider(context.Background(), "", "  ")
	assert.Equal(t, Unknown, WorkflowFromContext(ctx))
	assert.Equal(t, Unknown, ProviderFromContext(ctx))
}

func TestLabels_InnerOverrides(t *testing.T) {
	ctx := WithWorkflowProvider(context.Background(), "story_generate", "openai")
	ctx = WithWorkflowProvider(ctx, "consistency_prompt", "")
	assert.Equal(t, "consistency_prompt", WorkflowFromContext(ctx))
	assert.Equal(t, "openai", ProviderFromContext(ctx))
}
