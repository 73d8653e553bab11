package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("check sugar fasting", []string{"FBS", "RBS", "HbA1c"})

	assert.Contains(t, prompt, `Doctor said: "check sugar fasting"`)
	assert.Contains(t, prompt, "Candidate tests: FBS, RBS, HbA1c")
	assert.Contains(t, prompt, "Pick the SINGLE most appropriate test.")
	assert.Contains(t, prompt, "Return max 2 items.")
	assert.Contains(t, prompt, `{ "matches": ["Other"] }`)
}

func TestParseMatches(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "plain json",
			content: `{"matches": ["CBC"]}`,
			want:    []string{"CBC"},
		},
		{
			name:    "two matches",
			content: `{"matches": ["FBS", "PPBS"]}`,
			want:    []string{"FBS", "PPBS"},
		},
		{
			name:    "excess matches are capped at two",
			content: `{"matches": ["CBC", "RBS", "LFT", "RFT"]}`,
			want:    []string{"CBC", "RBS"},
		},
		{
			name:    "json fence is stripped",
			content: "```json\n{\"matches\": [\"CBC\"]}\n```",
			want:    []string{"CBC"},
		},
		{
			name:    "bare fence is stripped",
			content: "```\n{\"matches\": [\"CBC\"]}\n```",
			want:    []string{"CBC"},
		},
		{
			name:    "surrounding whitespace",
			content: "  {\"matches\": [\"CBC\"]}\n",
			want:    []string{"CBC"},
		},
		{
			name:    "explicit other",
			content: `{"matches": ["Other"]}`,
			want:    []string{"Other"},
		},
		{
			name:    "empty matches degrade to other",
			content: `{"matches": []}`,
			want:    []string{"Other"},
		},
		{
			name:    "prose instead of json degrades to other",
			content: "The most appropriate test is CBC.",
			want:    []string{"Other"},
		},
		{
			name:    "truncated json degrades to other",
			content: `{"matches": ["CBC"`,
			want:    []string{"Other"},
		},
		{
			name:    "empty reply degrades to other",
			content: "",
			want:    []string{"Other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMatches(tt.content))
		})
	}
}

func TestIsOther(t *testing.T) {
	assert.True(t, IsOther(nil))
	assert.True(t, IsOther([]string{}))
	assert.True(t, IsOther([]string{"Other"}))
	assert.False(t, IsOther([]string{"CBC"}))
	assert.False(t, IsOther([]string{"Other", "CBC"}))
}
