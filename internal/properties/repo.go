package properties

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/blaskocode/RapidUpload/pkg/dynamo"
	"github.com/blaskocode/RapidUpload/pkg/models"
)

type Repository struct {
	db    *dynamo.Client
	table string
}

func NewRepository(db *dynamo.Client, table string) *Repository {
	return &Repository{db: db, table: table}
}

func propertyKey(propertyID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PropertyID": &types.AttributeValueMemberS{Value: propertyID},
	}
}

// Get returns the property row, or nil when no row exists.
func (r *Repository) Get(ctx context.Context, propertyID string) (*models.Property, error) {
	var property models.Property
	found, err := r.db.Get(ctx, r.table, propertyKey(propertyID), &property)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &property, nil
}

func (r *Repository) Exists(ctx context.Context, propertyID string) (bool, error) {
	property, err := r.Get(ctx, propertyID)
	if err != nil {
		return false, err
	}
	return property != nil, nil
}

func (r *Repository) Put(ctx context.Context, property models.Property) error {
	return r.db.Put(ctx, r.table, property)
}

func (r *Repository) Delete(ctx context.Context, propertyID string) error {
	return r.db.Delete(ctx, r.table, propertyKey(propertyID))
}

// BatchDelete removes property rows by id.
func (r *Repository) BatchDelete(ctx context.Context, propertyIDs []string) error {
	keys := make([]map[string]types.AttributeValue, 0, len(propertyIDs))
	for _, id := range propertyIDs {
		keys = append(keys, propertyKey(id))
	}
	return r.db.BatchDelete(ctx, r.table, keys)
}

// ScanAll returns every property row.
func (r *Repository) ScanAll(ctx context.Context) ([]models.Property, error) {
	var all []models.Property
	var start map[string]types.AttributeValue
	for {
		items, last, err := r.db.ScanPage(ctx, r.table, 0, start)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			var property models.Property
			if err := attributevalue.UnmarshalMap(item, &property); err != nil {
				return nil, fmt.Errorf("unmarshal property row: %w", err)
			}
			all = append(all, property)
		}
		if len(last) == 0 {
			return all, nil
		}
		start = last
	}
}

// SetPhotoCount writes an absolute counter value, as recomputation does.
func (r *Repository) SetPhotoCount(ctx context.Context, propertyID string, count int) error {
	return r.db.Update(ctx, dynamo.UpdateInput{
		Table:     r.table,
		Key:       propertyKey(propertyID),
		Update:    "SET PhotoCount = :count",
		Condition: "attribute_exists(PropertyID)",
		Values: map[string]types.AttributeValue{
			":count": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", count)},
		},
	})
}

// AdjustPhotoCount applies a relative delta with a floor of zero. The
// counter is read, clamped, and written back; a stale read can under- or
// over-shoot, which recomputation later repairs.
func (r *Repository) AdjustPhotoCount(ctx context.Context, propertyID string, delta int) error {
	property, err := r.Get(ctx, propertyID)
	if err != nil {
		return err
	}
	if property == nil {
		return nil
	}
	next := property.PhotoCount + delta
	if next < 0 {
		next = 0
	}
	return r.SetPhotoCount(ctx, propertyID, next)
}
