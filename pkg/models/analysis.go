package models

// Analysis lifecycle states. The analysis worker owns the transition out of
// processing; this backend only creates the record and reads it back.
const (
	AnalysisStatusProcessing = "processing"
	AnalysisStatusCompleted  = "completed"
	AnalysisStatusFailed     = "failed"
)

// AnalysisResult is a row in the analyses table, keyed by AnalysisID with
// GSIs on PhotoID and PropertyID.
type AnalysisResult struct {
	AnalysisID   string `dynamodbav:"AnalysisID" json:"analysisId"`
	PhotoID      string `dynamodbav:"PhotoID" json:"photoId"`
	PropertyID   string `dynamodbav:"PropertyID" json:"propertyId"`
	Status       string `dynamodbav:"Status" json:"status"`
	CreatedAt    string `dynamodbav:"CreatedAt" json:"createdAt"`
	CompletedAt  string `dynamodbav:"CompletedAt,omitempty" json:"completedAt,omitempty"`
	ErrorMessage string `dynamodbav:"ErrorMessage,omitempty" json:"errorMessage,omitempty"`
}
