package photos

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/blaskocode/RapidUpload/pkg/dynamo"
	"github.com/blaskocode/RapidUpload/pkg/models"
)

// PropertyIndex is the GSI that keys photo rows by their owning property.
const PropertyIndex = "PropertyID-index"

// Repository persists photo rows. The properties table name is carried for
// the transactional confirm path, which touches both tables atomically.
type Repository struct {
	db              *dynamo.Client
	table           string
	propertiesTable string
}

func NewRepository(db *dynamo.Client, table, propertiesTable string) *Repository {
	return &Repository{db: db, table: table, propertiesTable: propertiesTable}
}

func photoKey(photoID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PhotoID": &types.AttributeValueMemberS{Value: photoID},
	}
}

// Get returns the photo row, or nil when no row exists.
func (r *Repository) Get(ctx context.Context, photoID string) (*models.Photo, error) {
	var photo models.Photo
	found, err := r.db.Get(ctx, r.table, photoKey(photoID), &photo)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &photo, nil
}

func (r *Repository) Put(ctx context.Context, photo models.Photo) error {
	return r.db.Put(ctx, r.table, photo)
}

// BatchPut writes pending rows for a batch of issued slots.
func (r *Repository) BatchPut(ctx context.Context, batch []models.Photo) error {
	items := make([]map[string]types.AttributeValue, 0, len(batch))
	for i := range batch {
		av, err := attributevalue.MarshalMap(batch[i])
		if err != nil {
			return fmt.Errorf("marshal photo %s: %w", batch[i].PhotoID, err)
		}
		items = append(items, av)
	}
	return r.db.BatchPut(ctx, r.table, items)
}

// BatchGet loads the rows for the given photo ids. Missing ids are absent
// from the result, not errors.
func (r *Repository) BatchGet(ctx context.Context, photoIDs []string) ([]models.Photo, error) {
	keys := make([]map[string]types.AttributeValue, 0, len(photoIDs))
	for _, id := range photoIDs {
		keys = append(keys, photoKey(id))
	}
	items, err := r.db.BatchGet(ctx, r.table, keys)
	if err != nil {
		return nil, err
	}
	out := make([]models.Photo, 0, len(items))
	for _, item := range items {
		var photo models.Photo
		if err := attributevalue.UnmarshalMap(item, &photo); err != nil {
			return nil, fmt.Errorf("unmarshal photo row: %w", err)
		}
		out = append(out, photo)
	}
	return out, nil
}

func (r *Repository) Delete(ctx context.Context, photoID string) error {
	return r.db.Delete(ctx, r.table, photoKey(photoID))
}

func (r *Repository) BatchDelete(ctx context.Context, photoIDs []string) error {
	keys := make([]map[string]types.AttributeValue, 0, len(photoIDs))
	for _, id := range photoIDs {
		keys = append(keys, photoKey(id))
	}
	return r.db.BatchDelete(ctx, r.table, keys)
}

// MarkUploaded flips a pending row to uploaded, recording the client's key,
// upload time, and observed size. The write is guarded on the row still
// being pending; a lost guard surfaces as dynamo.ErrConditionFailed.
func (r *Repository) MarkUploaded(ctx context.Context, photoID, s3Key, uploadedAt string, fileSize *int64) error {
	update := "SET #status = :uploaded, S3Key = :s3Key, UploadedAt = :at"
	values := map[string]types.AttributeValue{
		":uploaded": &types.AttributeValueMemberS{Value: models.PhotoStatusUploaded},
		":pending":  &types.AttributeValueMemberS{Value: models.PhotoStatusPending},
		":s3Key":    &types.AttributeValueMemberS{Value: s3Key},
		":at":       &types.AttributeValueMemberS{Value: uploadedAt},
	}
	if fileSize != nil {
		update += ", FileSize = :size"
		values[":size"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", *fileSize)}
	}
	return r.db.Update(ctx, dynamo.UpdateInput{
		Table:     r.table,
		Key:       photoKey(photoID),
		Update:    update,
		Condition: "#status = :pending",
		Names:     map[string]string{"#status": "Status"},
		Values:    values,
	})
}

// MarkUploadedWithCount performs the status flip and the owning property's
// counter increment in one transaction. Either the row is still pending and
// the property exists, or nothing changes.
func (r *Repository) MarkUploadedWithCount(ctx context.Context, photoID, propertyID, s3Key, uploadedAt string, fileSize *int64) error {
	update := "SET #status = :uploaded, S3Key = :s3Key, UploadedAt = :at"
	values := map[string]types.AttributeValue{
		":uploaded": &types.AttributeValueMemberS{Value: models.PhotoStatusUploaded},
		":pending":  &types.AttributeValueMemberS{Value: models.PhotoStatusPending},
		":s3Key":    &types.AttributeValueMemberS{Value: s3Key},
		":at":       &types.AttributeValueMemberS{Value: uploadedAt},
	}
	if fileSize != nil {
		update += ", FileSize = :size"
		values[":size"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", *fileSize)}
	}
	return r.db.TransactUpdates(ctx, []dynamo.UpdateInput{
		{
			Table:     r.table,
			Key:       photoKey(photoID),
			Update:    update,
			Condition: "#status = :pending",
			Names:     map[string]string{"#status": "Status"},
			Values:    values,
		},
		{
			Table: r.propertiesTable,
			Key: map[string]types.AttributeValue{
				"PropertyID": &types.AttributeValueMemberS{Value: propertyID},
			},
			Update:    "ADD PhotoCount :one",
			Condition: "attribute_exists(PropertyID)",
			Values: map[string]types.AttributeValue{
				":one": &types.AttributeValueMemberN{Value: "1"},
			},
		},
	})
}

// ListByProperty returns one page of photo rows for a property via the
// property GSI. lastPhotoID resumes the page and is empty when exhausted.
func (r *Repository) ListByProperty(ctx context.Context, propertyID string, limit int32, startPhotoID string) ([]models.Photo, string, error) {
	in := dynamo.QueryInput{
		Table:         r.table,
		Index:         PropertyIndex,
		KeyExpression: "PropertyID = :pid",
		Values: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: propertyID},
		},
		Limit: limit,
	}
	if startPhotoID != "" {
		// The GSI's exclusive start key needs both the table key and the
		// index partition key.
		in.StartKey = map[string]types.AttributeValue{
			"PhotoID":    &types.AttributeValueMemberS{Value: startPhotoID},
			"PropertyID": &types.AttributeValueMemberS{Value: propertyID},
		}
	}
	items, lastKey, err := r.db.QueryPage(ctx, in)
	if err != nil {
		return nil, "", err
	}
	out := make([]models.Photo, 0, len(items))
	for _, item := range items {
		var photo models.Photo
		if err := attributevalue.UnmarshalMap(item, &photo); err != nil {
			return nil, "", fmt.Errorf("unmarshal photo row: %w", err)
		}
		out = append(out, photo)
	}
	last := ""
	if v, ok := lastKey["PhotoID"].(*types.AttributeValueMemberS); ok {
		last = v.Value
	}
	return out, last, nil
}

// ListAllByProperty drains the property GSI completely, page by page.
func (r *Repository) ListAllByProperty(ctx context.Context, propertyID string) ([]models.Photo, error) {
	var all []models.Photo
	start := ""
	for {
		page, last, err := r.ListByProperty(ctx, propertyID, 100, start)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if last == "" {
			return all, nil
		}
		start = last
	}
}

// ScanAll returns every photo row in the table.
func (r *Repository) ScanAll(ctx context.Context) ([]models.Photo, error) {
	var all []models.Photo
	var start map[string]types.AttributeValue
	for {
		items, last, err := r.db.ScanPage(ctx, r.table, 0, start)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			var photo models.Photo
			if err := attributevalue.UnmarshalMap(item, &photo); err != nil {
				return nil, fmt.Errorf("unmarshal photo row: %w", err)
			}
			all = append(all, photo)
		}
		if len(last) == 0 {
			return all, nil
		}
		start = last
	}
}
