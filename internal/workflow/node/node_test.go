package node

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wfmodel "storyboard-ai-api/internal/workflow/model"
)

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose", "Here you go: {\"a\":1} hope it helps", `{"a":1}`},
		{"array", "result: [1,2]", `[1,2]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractJSONObject(tc.in))
		})
	}
}

func TestDecodeJSONObject(t *testing.T) {
	var v map[string]any
	assert.ErrorIs(t, DecodeJSONObject("   ", &v), ErrEmptyResponse)
	assert.Error(t, DecodeJSONObject("no json here", &v))
	require.NoError(t, DecodeJSONObject("```\n{\"k\":\"v\"}\n```", &v))
	assert.Equal(t, "v", v["k"])
}

func TestParseStoryDocument(t *testing.T) {
	doc, err := ParseStoryDocument(`{"scenes":[{"id":1,"narrator":"n","character":"c","characterImagePrompt":"desc","dialogue":"d","backgroundPrompt":"bg"}]}`)
	require.NoError(t, err)
	require.Len(t, doc.Scenes, 1)
	assert.Equal(t, "desc", doc.Scenes[0].CharacterImagePrompt)

	_, err = ParseStoryDocument(`{"story":[]}`)
	assert.ErrorIs(t, err, ErrScenesMissing)

	_, err = ParseStoryDocument(`{"scenes":"oops"}`)
	assert.ErrorIs(t, err, ErrScenesNotArray)

	_, err = ParseStoryDocument(`{"scenes":null}`)
	assert.ErrorIs(t, err, ErrScenesNotArray)

	_, err = ParseStoryDocument("")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestParseStoryDocument_RejectsMalformedScenes(t *testing.T) {
	cases := map[string]string{
		"empty objects":     `{"scenes":[{},{"narrator":""},{"foo":"bar"}]}`,
		"zero id":           `{"scenes":[{"id":0,"narrator":"n","character":"c","characterImagePrompt":"p","dialogue":"d","backgroundPrompt":"bg"}]}`,
		"missing id":        `{"scenes":[{"narrator":"n","character":"c","characterImagePrompt":"p","dialogue":"d","backgroundPrompt":"bg"}]}`,
		"blank dialogue":    `{"scenes":[{"id":1,"narrator":"n","character":"c","characterImagePrompt":"p","dialogue":"  ","backgroundPrompt":"bg"}]}`,
		"missing character": `{"scenes":[{"id":1,"narrator":"n","characterImagePrompt":"p","dialogue":"d","backgroundPrompt":"bg"}]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			doc, err := ParseStoryDocument(content)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, ErrSceneShape)
		})
	}

	_, err := ParseStoryDocument(`{"scenes":[{"id":1.5,"narrator":"n","character":"c","characterImagePrompt":"p","dialogue":"d","backgroundPrompt":"bg"}]}`)
	assert.Error(t, err)
}

func TestRequireBackgrounds(t *testing.T) {
	scenes := []wfmodel.StoryScene{
		{ID: 1, BackgroundPrompt: "harbor"},
		{ID: 2, BackgroundPrompt: ""},
	}
	assert.ErrorIs(t, RequireBackgrounds(scenes, nil), ErrSceneShape)
	assert.NoError(t, RequireBackgrounds(scenes, func(id int) bool { return id == 2 }))
	assert.ErrorIs(t, RequireBackgrounds(scenes, func(id int) bool { return id == 1 }), ErrSceneShape)
}

func TestParseArtStyleDocument(t *testing.T) {
	doc, err := ParseArtStyleDocument(`{"styles":[{"name":"Watercolor","description":"soft","imagePrompt":"watercolor"}]}`)
	require.NoError(t, err)
	assert.Equal(t, "Watercolor", doc.Styles[0].Name)

	_, err = ParseArtStyleDocument(`{"foo":1}`)
	assert.ErrorIs(t, err, ErrStylesMissing)
}

func TestCleanPromptText(t *testing.T) {
	assert.Equal(t, "a red fox", CleanPromptText(`"a red fox"`))
	assert.Equal(t, "a red fox", CleanPromptText("Prompt: a red fox"))
	assert.Equal(t, "a red fox", CleanPromptText("```\na red fox\n```"))
	assert.Equal(t, "", CleanPromptText(`  ""  `))
}

func TestTruncateByRunes(t *testing.T) {
	assert.Equal(t, "故事", TruncateByRunes("故事板", 2))
	assert.Equal(t, "abc", TruncateByRunes("abc", 5))
	assert.Equal(t, "", TruncateByRunes("abc", 0))
}

func TestBuildPrompts(t *testing.T) {
	assert.Equal(t, "a girl in red, watercolor style", BuildStyleImagePrompt("a girl in red", "watercolor style"))
	assert.Equal(t, "watercolor style", BuildStyleImagePrompt("  ", "watercolor style"))

	got := BuildSceneImagePrompt("Mia, watercolor", "The sun rises", "Mia", "Hello")
	assert.Equal(t, `Mia, watercolor. Scene: The sun rises. Character: Mia. The character says: "Hello"`, got)
}

func TestIsResolvableImageURL(t *testing.T) {
	assert.True(t, IsResolvableImageURL("https://cdn.example.com/a.png"))
	assert.True(t, IsResolvableImageURL("data:image/png;base64,AAAA"))
	assert.False(t, IsResolvableImageURL(""))
	assert.False(t, IsResolvableImageURL("a girl in red"))
	assert.False(t, IsResolvableImageURL("ftp://example.com/a.png"))
	assert.False(t, IsResolvableImageURL("https:///a.png"))
}

func TestIsResponseFormatUnsupportedError(t *testing.T) {
	assert.False(t, IsResponseFormatUnsupportedError(nil))
	assert.True(t, IsResponseFormatUnsupportedError(errors.New("400: response_format json_schema is not supported")))
	assert.False(t, IsResponseFormatUnsupportedError(errors.New("rate limited")))
}

func TestFanOut_PreservesOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	out, err := FanOut(context.Background(), items, 2, func(_ context.Context, idx int, item int) (int, error) {
		time.Sleep(time.Duration(len(items)-idx) * time.Millisecond)
		return item * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30, 40, 50}, out)
}

func TestFanOut_FailsWhole(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	out, err := FanOut(context.Background(), []int{1, 2, 3}, 0, func(_ context.Context, _ int, item int) (int, error) {
		calls.Add(1)
		if item == 2 {
			return 0, boom
		}
		return item, nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, out)
}

func TestFanOut_LimitRespected(t *testing.T) {
	var inflight, peak atomic.Int32
	_, err := FanOut(context.Background(), make([]struct{}, 8), 3, func(_ context.Context, _ int, _ struct{}) (struct{}, error) {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inflight.Add(-1)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}
