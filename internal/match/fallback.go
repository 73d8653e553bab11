package match

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// OtherSentinel is the disambiguator's canonical "no confident result"
// answer. It is treated everywhere as equivalent to zero matches.
const OtherSentinel = "Other"

// maxLLMMatches caps how many tests a single fallback reply may contribute.
const maxLLMMatches = 2

// IsOther reports whether a fallback result carries no usable matches.
func IsOther(matches []string) bool {
	return len(matches) == 0 || (len(matches) == 1 && matches[0] == OtherSentinel)
}

// BuildPrompt constructs the disambiguation prompt: the verbatim chunk, the
// candidate name list, and the fixed selection rules. The rule text is part
// of the wire contract with the disambiguator and changes to it change
// matching behavior.
func BuildPrompt(utterance string, candidates []string) string {
	return fmt.Sprintf(`Doctor said: %q

Candidate tests: %s

Rules:
- Pick the SINGLE most appropriate test.
- If the doctor clearly mentioned multiple distinct tests (e.g., fasting sugar + post-meal sugar), return both.
- Prefer the broader panel/profile if both a panel and its components are in candidates (e.g., choose RFT instead of Creatinine).
- Do NOT include tests that were explicitly negated (e.g., "don't do CBC").
- Return max 2 items.

Return JSON only in this format:
{ "matches": ["TEST_NAME1", "TEST_NAME2"] }
If nothing fits, return:
{ "matches": ["Other"] }`, utterance, strings.Join(candidates, ", "))
}

// ParseMatches extracts the matches list from a raw disambiguator reply.
// Any parse failure degrades to the Other sentinel; this path never errors,
// so a single malformed reply costs one chunk, not the request.
func ParseMatches(content string) []string {
	content = cleanMarkdownWrapper(content)

	var reply struct {
		Matches []string `json:"matches"`
	}
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return []string{OtherSentinel}
	}
	if len(reply.Matches) == 0 {
		return []string{OtherSentinel}
	}
	if len(reply.Matches) > maxLLMMatches {
		reply.Matches = reply.Matches[:maxLLMMatches]
	}
	return reply.Matches
}

// resolveFallback runs the disambiguator for a chunk. Unavailability and
// malformed output both collapse to the Other sentinel; no retry, so one
// slow or broken call bounds the chunk's latency cost.
func (m *Matcher) resolveFallback(ctx context.Context, chunkText string, candidates []string) []string {
	if m.disambiguator == nil || len(candidates) == 0 {
		return []string{OtherSentinel}
	}

	raw, err := m.disambiguator.Disambiguate(ctx, BuildPrompt(chunkText, candidates))
	if err != nil {
		m.logger.Warn("disambiguator call failed, treating as no match",
			"chunk", chunkText,
			"error", err)
		return []string{OtherSentinel}
	}

	return ParseMatches(raw)
}

// cleanMarkdownWrapper strips a ```json ... ``` fence some models wrap
// around otherwise valid JSON.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}
