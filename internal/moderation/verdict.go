package moderation

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
)

const (
	defaultConfidence = 50
	fallbackReason    = "moderation result could not be parsed"
)

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// Verdict is the model's decision in the shape both moderation routes share.
type Verdict struct {
	Approved        bool     `json:"approved"`
	Reason          string   `json:"reason"`
	Confidence      int      `json:"confidence"`
	DetectedContent []string `json:"detectedContent"`
	Transcript      string   `json:"transcript,omitempty"`
}

type rawVerdict struct {
	Approved        *bool    `json:"approved"`
	Reason          string   `json:"reason"`
	Confidence      *float64 `json:"confidence"`
	DetectedContent []string `json:"detectedContent"`
	Transcript      string   `json:"transcript"`
}

// Fallback is the conservative verdict used when the model's answer cannot be
// read: the content goes to manual review.
func Fallback() Verdict {
	return Verdict{
		Approved:        false,
		Reason:          fallbackReason,
		Confidence:      defaultConfidence,
		DetectedContent: []string{},
	}
}

// ParseVerdict reads the model's reply. It strips code fences, then tries the
// whole text and finally the outermost {...} span. ok is false when neither
// yields an object with a boolean "approved".
func ParseVerdict(text string) (Verdict, bool) {
	text = stripFences(text)
	if v, ok := decodeVerdict(text); ok {
		return v, true
	}
	if match := jsonObject.FindString(text); match != "" {
		if v, ok := decodeVerdict(match); ok {
			return v, true
		}
	}
	return Fallback(), false
}

func decodeVerdict(text string) (Verdict, bool) {
	var raw rawVerdict
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Verdict{}, false
	}
	if raw.Approved == nil {
		return Verdict{}, false
	}
	v := Verdict{
		Approved:        *raw.Approved,
		Reason:          raw.Reason,
		Confidence:      defaultConfidence,
		DetectedContent: raw.DetectedContent,
		Transcript:      raw.Transcript,
	}
	if raw.Confidence != nil {
		v.Confidence = clampConfidence(*raw.Confidence)
	}
	if v.DetectedContent == nil {
		v.DetectedContent = []string{}
	}
	return v, true
}

func clampConfidence(value float64) int {
	rounded := int(math.Round(value))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
