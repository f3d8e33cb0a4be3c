package models

// Photo lifecycle states. The empty string marks legacy rows written before
// status tracking existed; those are treated as valid uploads.
const (
	PhotoStatusPending  = "pending"
	PhotoStatusUploaded = "uploaded"
	PhotoStatusFailed   = "failed"
)

// Photo is a metadata row for one object in the photos table. PhotoID is the
// partition key; PropertyID is indexed by the PropertyID-index GSI.
type Photo struct {
	PhotoID     string `dynamodbav:"PhotoID" json:"photoId"`
	PropertyID  string `dynamodbav:"PropertyID" json:"propertyId"`
	Filename    string `dynamodbav:"Filename" json:"filename"`
	S3Key       string `dynamodbav:"S3Key" json:"s3Key"`
	S3Bucket    string `dynamodbav:"S3Bucket" json:"s3Bucket"`
	UploadedAt  string `dynamodbav:"UploadedAt,omitempty" json:"uploadedAt,omitempty"`
	FileSize    *int64 `dynamodbav:"FileSize,omitempty" json:"fileSize,omitempty"`
	Status      string `dynamodbav:"Status,omitempty" json:"status,omitempty"`
	ContentType string `dynamodbav:"ContentType,omitempty" json:"contentType,omitempty"`
}

// CountsAsUploaded reports whether the row contributes to the owning
// property's photo count: confirmed uploads and legacy rows with no status.
func (p Photo) CountsAsUploaded() bool {
	return p.Status == PhotoStatusUploaded || p.Status == ""
}
