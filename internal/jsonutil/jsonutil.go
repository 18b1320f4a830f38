// Package jsonutil decodes model responses that are supposed to be JSON
// but often arrive wrapped in markdown fences or surrounded by prose.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeWithFallback tries a strict decode first, then progressively
// relaxed extractions: fenced code blocks, then the outermost object or
// array embedded in the text.
func DecodeWithFallback(raw string, out any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("jsonutil: empty input")
	}
	if err := json.Unmarshal([]byte(raw), out); err == nil {
		return nil
	}
	if fenced := stripCodeFence(raw); fenced != "" {
		if err := json.Unmarshal([]byte(fenced), out); err == nil {
			return nil
		}
	}
	if embedded := extractEmbedded(raw); embedded != "" {
		if err := json.Unmarshal([]byte(embedded), out); err == nil {
			return nil
		}
	}
	return fmt.Errorf("jsonutil: no decodable JSON in input")
}

func stripCodeFence(raw string) string {
	start := strings.Index(raw, "```")
	if start < 0 {
		return ""
	}
	rest := raw[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// Drop the language tag line ("json", "yaml", ...).
		firstLine := strings.TrimSpace(rest[:nl])
		if len(firstLine) <= 8 && !strings.ContainsAny(firstLine, "{}[]") {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:end])
}

func extractEmbedded(raw string) string {
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(raw, pair[0])
		end := strings.LastIndexByte(raw, pair[1])
		if start >= 0 && end > start {
			return strings.TrimSpace(raw[start : end+1])
		}
	}
	return ""
}
