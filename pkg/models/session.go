package models

// SessionSnapshot is the presentation boundary: everything a renderer needs
// to draw the current session, and nothing else. At most one of Result and
// Error is non-nil at any time.
type SessionSnapshot struct {
	CameraState  string          `json:"camera_state"`
	IsProcessing bool            `json:"is_processing"`
	Result       *AnalysisResult `json:"result,omitempty"`
	Error        *ErrorReport    `json:"error,omitempty"`
}
