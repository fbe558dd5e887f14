package ai

// Word is one transcribed word with its observed timing.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the output of one transcription call. Confidence is derived
// locally from word timings, not reported by the transcription service.
type Transcript struct {
	Text            string  `json:"text"`
	Words           []Word  `json:"words"`
	Language        string  `json:"language"`
	DurationSeconds float64 `json:"duration_seconds"`
	Confidence      float64 `json:"confidence"`
}

// VisualCue flags whether the analysis suggests showing an image for a concept.
type VisualCue struct {
	Suggested bool   `json:"suggested"`
	Concept   string `json:"concept"`
}

// AudioHint flags whether the analysis suggests speaking a hint aloud.
type AudioHint struct {
	Suggested bool   `json:"suggested"`
	Text      string `json:"text"`
}

// Assistance levels, coarsest urgency classification first.
const (
	AssistanceLow    = "low"
	AssistanceMedium = "medium"
	AssistanceHigh   = "high"
)

// Analysis is the predicted intended meaning for one turn.
type Analysis struct {
	IntendedMeaning  string    `json:"intended_meaning"`
	Confidence       float64   `json:"confidence"`
	WordPredictions  []string  `json:"word_predictions"`
	AssistanceLevel  string    `json:"assistance_level"`
	VisualCue        VisualCue `json:"visual_cue"`
	AudioHint        AudioHint `json:"audio_hint"`
	EmotionalContext string    `json:"emotional_context"`
	Recommendations  []string  `json:"recommendations"`
}

// PriorTurn is one past exchange used to ground the analysis.
type PriorTurn struct {
	Transcript string
	Meaning    string
}

// AnalysisRequest carries everything the analysis model sees for one turn.
type AnalysisRequest struct {
	Transcript string
	Condition  string
	Severity   string
	Settings   map[string]string
	History    []PriorTurn
	VideoFrame []byte // optional JPEG frame
}

// Image is a generated visual aid.
type Image struct {
	URL     string `json:"url"`
	Concept string `json:"concept"`
	Prompt  string `json:"prompt"`
}

// ThemeArt is a generated end-of-session artwork summary.
type ThemeArt struct {
	ImageURL string   `json:"image_url"`
	Theme    string   `json:"theme"`
	Emotions []string `json:"emotions"`
	Colors   []string `json:"colors"`
	Prompt   string   `json:"prompt"`
}
