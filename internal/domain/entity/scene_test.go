package entity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestScene_CharacterImagePrompt(t *testing.T) {
	s := Scene{CharacterDescription: "a rusty robot"}
	assert.Equal(t, "a rusty robot", s.CharacterImagePrompt())

	s.CharacterImageURL = "https://img.example.com/1.png"
	assert.Equal(t, "https://img.example.com/1.png", s.CharacterImagePrompt())
}

func TestScene_BackgroundText(t *testing.T) {
	s := Scene{BackgroundArchive: "dead planet"}
	assert.Equal(t, "dead planet", s.BackgroundText())
	s.BackgroundPrompt = "garden"
	assert.Equal(t, "garden", s.BackgroundText())
}

func TestScenes_ValueScanRoundTrip(t *testing.T) {
	in := Scenes{
		{ID: 1, Narrator: "n1", Character: "Robot", CharacterDescription: "rusty", Dialogue: "hello", BackgroundPrompt: "desert"},
		{ID: 2, Narrator: "n2", Character: "Robot", CharacterImageURL: "https://x/2.png", Dialogue: "bye", BackgroundArchive: "garden"},
	}

	v, err := in.Value()
	require.NoError(t, err)

	var fromString Scenes
	require.NoError(t, fromString.Scan(v))
	assert.Equal(t, in, fromString)

	var fromBytes Scenes
	require.NoError(t, fromBytes.Scan([]byte(v.(string))))
	assert.Equal(t, in, fromBytes)
}

func TestScenes_NilValue(t *testing.T) {
	var s Scenes
	v, err := s.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.Scan(nil))
	assert.Nil(t, s)
	assert.Error(t, s.Scan(42))
}

func TestScenes_CloneIsIndependent(t *testing.T) {
	orig := Scenes{{ID: 1, BackgroundPrompt: "bg"}}
	cp := orig.Clone()
	cp[0].BackgroundPrompt = ""
	assert.Equal(t, "bg", orig[0].BackgroundPrompt)
}

func TestStorySession_SchemaParsesScenesAsColumn(t *testing.T) {
	s, err := schema.Parse(&StorySession{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	field := s.LookUpField("Scenes")
	require.NotNil(t, field)
	assert.Equal(t, schema.DataType("json"), field.DataType)
	assert.Empty(t, s.Relationships.Relations)
}
