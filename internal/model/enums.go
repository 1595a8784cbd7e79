package model

// Prediction labels
type Prediction string

const (
	PredictionDeepfake Prediction = "Deepfake"
	PredictionGenuine  Prediction = "Genuine"
)

// PredictionFor returns the label that mirrors an AI verdict.
func PredictionFor(isAI bool) Prediction {
	if isAI {
		return PredictionDeepfake
	}
	return PredictionGenuine
}

// Analysis outcomes, used as metric labels and in logs
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)
