package prompts

import "fmt"

// AnalysisSystem is the fixed instruction for the meaning-prediction model.
// The response schema here must stay in sync with ai.decodeAnalysis.
const AnalysisSystem = `You are a communication assistant for people with speech disorders.
The user speaks in fragments; infer the complete intended meaning from the transcript,
the conversation so far, and the video frame if one is provided.

Respond with a single JSON object, no prose, using exactly this shape:
{
  "intended_meaning": "the full sentence the user most likely meant",
  "confidence": 0.0,
  "word_predictions": ["next", "likely", "words"],
  "assistance_level": "low|medium|high",
  "visual_cue": {"suggested": false, "concept": ""},
  "audio_hint": {"suggested": false, "text": ""},
  "emotional_context": "neutral|frustrated|calm|excited",
  "recommendations": ["short actionable suggestions"]
}

Set assistance_level high only when the transcript is badly fragmented.
Suggest a visual cue only for concrete, drawable concepts.`

// UserProfile renders the condition/severity/settings profile as a system message.
func UserProfile(condition, severity string, settings map[string]string) string {
	msg := fmt.Sprintf("User profile: condition=%s severity=%s.", condition, severity)
	for k, v := range settings {
		msg += fmt.Sprintf(" %s=%s.", k, v)
	}
	return msg
}

// VisualAid builds the image prompt for a single-concept communication aid.
// mood is the turn's emotional context; neutral adds nothing.
func VisualAid(concept, mood string) string {
	p := fmt.Sprintf("A simple, clear illustration of %q for a communication aid. Flat colors, no text, single subject on a plain background.", concept)
	if mood != "" && mood != "neutral" {
		p += fmt.Sprintf(" The viewer is feeling %s; match the palette to that mood.", mood)
	}
	return p
}

// ThemeArt builds the image prompt for a session's thematic artwork summary.
func ThemeArt(theme string) string {
	return fmt.Sprintf("An uplifting abstract artwork representing the theme %q, celebrating a completed speech therapy session. Warm colors, gentle shapes, no text.", theme)
}
