package models

// Property is a row in the properties table. PhotoCount is derived from the
// photo rows and corrected by recomputation; it is never authoritative on its
// own.
type Property struct {
	PropertyID string `dynamodbav:"PropertyID" json:"propertyId"`
	Name       string `dynamodbav:"Name" json:"name"`
	CreatedAt  string `dynamodbav:"CreatedAt" json:"createdAt"`
	PhotoCount int    `dynamodbav:"PhotoCount" json:"photoCount"`
}
