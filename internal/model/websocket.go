package model

// WebSocket message types
const (
	WSMessageTypeAnalysis = "analysis"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSAnalysisMessage wraps a completed analysis for feed subscribers
type WSAnalysisMessage struct {
	Type string `json:"type"`
	AnalysisEvent
}
