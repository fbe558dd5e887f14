package ai

import (
	"encoding/json"
	"strings"
)

// decodeAnalysis parses the model's JSON permissively. Every field has an
// explicit default so a sparse or partially malformed response still yields
// a usable Analysis; a response that is not JSON at all yields the defaults.
// The transcript is the fallback intended meaning.
func decodeAnalysis(content, transcript string) *Analysis {
	a := &Analysis{
		IntendedMeaning:  transcript,
		Confidence:       0,
		WordPredictions:  []string{},
		AssistanceLevel:  AssistanceLow,
		EmotionalContext: "neutral",
		Recommendations:  []string{},
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(stripFences(content)), &raw); err != nil {
		return a
	}

	if raw.IntendedMeaning != nil && *raw.IntendedMeaning != "" {
		a.IntendedMeaning = *raw.IntendedMeaning
	}
	if raw.Confidence != nil {
		a.Confidence = clamp01(*raw.Confidence)
	}
	if raw.WordPredictions != nil {
		a.WordPredictions = raw.WordPredictions
	}
	if raw.AssistanceLevel != nil {
		switch *raw.AssistanceLevel {
		case AssistanceLow, AssistanceMedium, AssistanceHigh:
			a.AssistanceLevel = *raw.AssistanceLevel
		}
	}
	if raw.VisualCue != nil {
		a.VisualCue = *raw.VisualCue
	}
	if raw.AudioHint != nil {
		a.AudioHint = *raw.AudioHint
	}
	if raw.EmotionalContext != nil && *raw.EmotionalContext != "" {
		a.EmotionalContext = *raw.EmotionalContext
	}
	if raw.Recommendations != nil {
		a.Recommendations = raw.Recommendations
	}
	return a
}

type rawAnalysis struct {
	IntendedMeaning  *string    `json:"intended_meaning"`
	Confidence       *float64   `json:"confidence"`
	WordPredictions  []string   `json:"word_predictions"`
	AssistanceLevel  *string    `json:"assistance_level"`
	VisualCue        *VisualCue `json:"visual_cue"`
	AudioHint        *AudioHint `json:"audio_hint"`
	EmotionalContext *string    `json:"emotional_context"`
	Recommendations  []string   `json:"recommendations"`
}

// stripFences removes a ```json ... ``` wrapper some models emit despite the
// json_object response format.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
