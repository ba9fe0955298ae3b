package rural

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrectWordLadder(t *testing.T) {
	c := NewCorrector(NewDictionary())

	tests := []struct {
		name       string
		word       string
		want       string
		confidence float64
		method     string
	}{
		{"exact canonical", "tilápia", "tilápia", 1.0, MethodExact},
		{"exact variant", "tilapia", "tilapia", 1.0, MethodExact},
		{"audio confusion", "vivero", "viveiro", 0.9, MethodAudio},
		{"error pattern k", "kero", "quero", 0.8, MethodPattern},
		{"unknown left alone", "xyzwpt", "xyzwpt", 0.0, MethodUnchanged},
		{"short token skipped", "de", "de", 1.0, MethodUnchanged},
		{"numeric skipped", "500", "500", 1.0, MethodUnchanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.CorrectWord(tt.word)
			assert.Equal(t, tt.want, got.Corrected)
			assert.InDelta(t, tt.confidence, got.Confidence, 0.001)
			assert.Equal(t, tt.method, got.Method)
		})
	}
}

func TestCorrectMessage(t *testing.T) {
	c := NewCorrector(NewDictionary())

	mc := c.CorrectMessage("kero sabe sobre o ph da agua", false)
	assert.Contains(t, mc.Corrected, "quero")
	assert.Greater(t, mc.Confidence, 0.6)
	assert.False(t, mc.NeedsConfirmation)
}

func TestCorrectMessagePreserveOriginal(t *testing.T) {
	c := NewCorrector(NewDictionary())

	// "alevins" corrects to "alevinos" at 0.85, below the substitution bar
	// in preserving mode but above it in aggressive mode.
	preserved := c.CorrectMessage("tem alevins ai", true)
	assert.Contains(t, preserved.Corrected, "alevins")

	aggressive := c.CorrectMessage("tem alevins ai", false)
	assert.Contains(t, aggressive.Corrected, "alevinos")
}

func TestCorrectMessageEmptyInput(t *testing.T) {
	c := NewCorrector(NewDictionary())

	for _, in := range []string{"", "   ", "!!! ???"} {
		mc := c.CorrectMessage(in, true)
		assert.Equal(t, in, mc.Corrected)
		assert.Equal(t, 1.0, mc.Confidence)
		assert.False(t, mc.NeedsConfirmation)
	}
}

func TestImproveTranscription(t *testing.T) {
	c := NewCorrector(NewDictionary())

	mc := c.ImproveTranscription("tem alevins de peace ai", 0.5)
	assert.Contains(t, mc.Corrected, "alevinos")
	assert.Contains(t, mc.Corrected, "peixe")
	require.NotEmpty(t, mc.Corrections)

	high := c.ImproveTranscription("quero comprar tilápia", 0.95)
	assert.Greater(t, high.Confidence, 0.9)
	assert.False(t, high.NeedsConfirmation)
}

func TestClarificationPrompt(t *testing.T) {
	mc := MessageCorrection{
		Corrections: []WordCorrection{{Original: "kero", Corrected: "quero", Confidence: 0.8}},
	}
	prompt := ClarificationPrompt(mc)
	assert.Contains(t, prompt, "quero")
	assert.Contains(t, prompt, "kero")

	empty := ClarificationPrompt(MessageCorrection{})
	assert.Contains(t, empty, "repetir")
}
