package digest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEveryModeHasProfile(t *testing.T) {
	for _, mode := range Modes {
		_, ok := modeProfiles[mode]
		require.True(t, ok, "mode %s has no profile", mode)
	}
	require.Len(t, modeProfiles, len(Modes))
}

func TestAudience(t *testing.T) {
	tests := map[Mode]string{
		ModeBusiness: "Business Professionals",
		ModeStudent:  "Students",
		ModeCode:     "Developers",
		ModeGenZ:     "Gen Z",
		"unknown":    "Business Professionals",
	}
	for mode, want := range tests {
		require.Equal(t, want, Audience(mode))
	}
}

func TestTemplateStyles(t *testing.T) {
	structured := Template(ModeCode, StyleStructured)
	require.Contains(t, structured, tldrMarker)
	require.Contains(t, structured, keyPointsMarker)
	require.Contains(t, structured, "Developers")

	paragraph := Template(ModeCode, StyleParagraph)
	require.NotContains(t, paragraph, tldrMarker)
	require.NotContains(t, paragraph, keyPointsMarker)
	require.Contains(t, paragraph, "3-4")
}

func TestTemplateUnknownModeFallsBackToBusiness(t *testing.T) {
	require.Equal(t, Template(ModeBusiness, StyleStructured), Template("pirate", StyleStructured))
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("The content body.", ModeStudent, StyleStructured, "example.com")

	require.True(t, strings.HasPrefix(prompt, Template(ModeStudent, StyleStructured)))
	require.Contains(t, prompt, promptSeparator+"Source: example.com")
	require.True(t, strings.HasSuffix(prompt, promptSeparator+"Content:\nThe content body."))
	require.Less(t, strings.Index(prompt, "Source:"), strings.Index(prompt, "Content:\n"))
}

func TestBuildPromptWithoutSource(t *testing.T) {
	prompt := BuildPrompt("Body.", ModeGenZ, StyleParagraph, "  ")
	require.NotContains(t, prompt, "Source:")
	require.True(t, strings.HasSuffix(prompt, "Content:\nBody."))
}
