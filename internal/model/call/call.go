package call

// Input is the transport-agnostic analyze request. Emotion fields are
// optional; when absent the pipeline obtains them from the emotion
// classification service before proceeding.
type Input struct {
	SessionID    string   `json:"sessionId"`
	Text         string   `json:"text"`
	EmotionLabel string   `json:"emotionLabel,omitempty"`
	EmotionScore *float64 `json:"emotionScore,omitempty"`
}

// Guide is the sole externally visible artifact of one pipeline run.
type Guide struct {
	Intent           string  `json:"intent"`
	EmotionLabel     string  `json:"emotionLabel"`
	EmotionScore     float64 `json:"emotionScore"`
	CustomerResponse string  `json:"customerResponseText"`
	CounselorNote    string  `json:"counselorNote"`
}

// Result wraps Guide for the HTTP layer.
type Result struct {
	Result Guide `json:"result"`
}
