package storyboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wfmodel "storyboard-ai-api/internal/workflow/model"
	apperrors "storyboard-ai-api/pkg/errors"
)

func storyJSON(t *testing.T, n int) string {
	t.Helper()
	doc := wfmodel.StoryDocument{}
	for i := 1; i <= n; i++ {
		doc.Scenes = append(doc.Scenes, wfmodel.StoryScene{
			ID:                   i,
			Narrator:             fmt.Sprintf("narration %d", i),
			Character:            "Mia",
			CharacterImagePrompt: "a girl in a yellow raincoat",
			Dialogue:             fmt.Sprintf("line %d", i),
			BackgroundPrompt:     fmt.Sprintf("background %d", i),
		})
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(b)
}

func TestStoryGenerator_Generate_ExactCount(t *testing.T) {
	cm := newScriptedChatModel("```json\n" + storyJSON(t, 3) + "\n```")
	g := NewStoryGenerator(newFactory(cm, nil), testOptions())

	scenes, err := g.Generate(context.Background(), "A girl sails to a mysterious island", 3)
	require.NoError(t, err)
	require.Len(t, scenes, 3)
	for i, s := range scenes {
		assert.Equal(t, i+1, s.ID)
		assert.Equal(t, "a girl in a yellow raincoat", s.CharacterDescription)
		assert.Empty(t, s.CharacterImageURL)
		assert.Equal(t, fmt.Sprintf("background %d", i+1), s.BackgroundPrompt)
	}
}

func TestStoryGenerator_Generate_Failures(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"count mismatch", storyJSON(t, 2)},
		{"empty", "   "},
		{"not json", "Once upon a time there was a girl"},
		{"scenes missing", `{"story":[]}`},
		{"scenes not array", `{"scenes":{"id":1}}`},
		{"scene objects without fields", `{"scenes":[{},{"narrator":""},{"foo":"bar"}]}`},
		{"empty background", strings.Replace(storyJSON(t, 3), `"backgroundPrompt":"background 2"`, `"backgroundPrompt":""`, 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewStoryGenerator(newFactory(newScriptedChatModel(tc.reply), nil), testOptions())
			scenes, err := g.Generate(context.Background(), "A girl sails to a mysterious island", 3)
			require.Error(t, err)
			assert.Nil(t, scenes)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeGenerationFailed))
		})
	}
}

func TestStoryGenerator_Refine_AcceptsDriftWithWarning(t *testing.T) {
	cm := newScriptedChatModel(storyJSON(t, 4))
	g := NewStoryGenerator(newFactory(cm, nil), testOptions())

	res, err := g.Refine(context.Background(), sampleScenes(), "add an epilogue")
	require.NoError(t, err)
	assert.Len(t, res.Scenes, 4)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "from 3 to 4")

	// 提示词中携带完整的当前故事与指令
	require.Equal(t, 1, cm.callCount())
	user := cm.inputs[0][len(cm.inputs[0])-1].Content
	assert.Contains(t, user, "misty harbor")
	assert.Contains(t, user, "add an epilogue")
}

func TestStoryGenerator_Refine_SameCountNoWarning(t *testing.T) {
	g := NewStoryGenerator(newFactory(newScriptedChatModel(storyJSON(t, 3)), nil), testOptions())

	res, err := g.Refine(context.Background(), sampleScenes(), "make it rain")
	require.NoError(t, err)
	assert.Len(t, res.Scenes, 3)
	assert.Empty(t, res.Warnings)
}

func TestStoryGenerator_Refine_Failures(t *testing.T) {
	replies := []string{
		"",
		"sorry, I cannot",
		`{"scenes":[]}`,
		`{"scenes":[{},{"narrator":""},{"foo":"bar"}]}`,
		// 未出图的分镜不能丢失背景
		strings.Replace(storyJSON(t, 3), `"backgroundPrompt":"background 1"`, `"backgroundPrompt":""`, 1),
	}
	for _, reply := range replies {
		g := NewStoryGenerator(newFactory(newScriptedChatModel(reply), nil), testOptions())
		_, err := g.Refine(context.Background(), sampleScenes(), "make it rain")
		require.Error(t, err, "reply %q", reply)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeRefinementFailed))
	}
}

func TestStoryGenerator_Refine_KeepsIllustration(t *testing.T) {
	scenes := sampleScenes()[:1]
	scenes[0].CharacterImageURL = "https://img.example.com/1.png"
	scenes[0].BackgroundArchive = scenes[0].BackgroundPrompt
	scenes[0].BackgroundPrompt = ""

	reply := `{"scenes":[{"id":1,"narrator":"Dusk over the harbor","character":"Mia","characterImagePrompt":"https://img.example.com/1.png","dialogue":"Home","backgroundPrompt":""}]}`
	g := NewStoryGenerator(newFactory(newScriptedChatModel(reply), nil), testOptions())

	res, err := g.Refine(context.Background(), scenes, "set it at dusk")
	require.NoError(t, err)
	require.Len(t, res.Scenes, 1)
	got := res.Scenes[0]
	assert.Equal(t, "Dusk over the harbor", got.Narrator)
	assert.Equal(t, "https://img.example.com/1.png", got.CharacterImageURL)
	assert.Equal(t, "a girl in a yellow raincoat", got.CharacterDescription)
	assert.Equal(t, "misty harbor", got.BackgroundArchive)
}

func TestScenePolicy(t *testing.T) {
	w, err := ScenePolicyExact.Check(3, 3)
	assert.NoError(t, err)
	assert.Empty(t, w)

	_, err = ScenePolicyExact.Check(3, 4)
	assert.Error(t, err)

	w, err = ScenePolicyTolerant.Check(3, 4)
	assert.NoError(t, err)
	assert.NotEmpty(t, w)

	_, err = ScenePolicyTolerant.Check(3, 0)
	assert.ErrorIs(t, err, ErrNoScenes)
}
