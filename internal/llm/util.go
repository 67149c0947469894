// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import "strings"

// CleanJSONBlock recovers the JSON payload from a raw model response.
// Models wrap output in ```json fences or chat preambles even when told
// to return bare JSON, so fences are stripped first and the remainder is
// scanned for the first balanced object or array.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		return strings.TrimSpace(stripFence(text))
	}

	if text == "" {
		return text
	}

	// Bare payload, possibly with trailing chatter.
	if text[0] == '{' || text[0] == '[' {
		if payload := extractJSONObject(text); payload != "" {
			return payload
		}
		if payload := extractJSONArray(text); payload != "" {
			return payload
		}
		return text
	}

	// Preamble prose. Scan forward for the first position that opens a
	// balanced object or array.
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if payload := extractJSONObject(text[i:]); payload != "" {
				return payload
			}
		case '[':
			if payload := extractJSONArray(text[i:]); payload != "" {
				return payload
			}
		}
	}
	return text
}

// stripFence removes a leading ``` fence, an optional language tag on
// the fence line, and the closing fence.
func stripFence(text string) string {
	text = strings.TrimPrefix(text, "```")
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		lang := text[:idx]
		if len(lang) < 20 && !strings.ContainsAny(lang, " {") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return text
}

// extractJSONObject returns the balanced JSON object starting at the
// first byte of text, or "" when text does not begin with one.
func extractJSONObject(text string) string {
	return balancedPrefix(text, '{', '}')
}

// extractJSONArray is the array counterpart of extractJSONObject.
func extractJSONArray(text string) string {
	return balancedPrefix(text, '[', ']')
}

// balancedPrefix slices text up to the closer matching the opener at
// position zero. Openers and closers inside JSON strings do not count,
// and escaped quotes do not end a string.
func balancedPrefix(text string, open, close byte) string {
	if len(text) == 0 || text[0] != open {
		return ""
	}

	depth := 0
	inString := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}
