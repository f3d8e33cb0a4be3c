package analysis

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/blaskocode/RapidUpload/pkg/dynamo"
	"github.com/blaskocode/RapidUpload/pkg/models"
)

// GSI names on the analyses table.
const (
	PhotoIndex    = "PhotoID-index"
	PropertyIndex = "PropertyID-index"
)

type Repository struct {
	db    *dynamo.Client
	table string
}

func NewRepository(db *dynamo.Client, table string) *Repository {
	return &Repository{db: db, table: table}
}

func analysisKey(analysisID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"AnalysisID": &types.AttributeValueMemberS{Value: analysisID},
	}
}

// Get returns the analysis row, or nil when no row exists.
func (r *Repository) Get(ctx context.Context, analysisID string) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	found, err := r.db.Get(ctx, r.table, analysisKey(analysisID), &result)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &result, nil
}

func (r *Repository) Put(ctx context.Context, result models.AnalysisResult) error {
	return r.db.Put(ctx, r.table, result)
}

func (r *Repository) Delete(ctx context.Context, analysisID string) error {
	return r.db.Delete(ctx, r.table, analysisKey(analysisID))
}

// GetByPhoto returns the photo's analysis record, or nil when none exists.
// A photo has at most one live record.
func (r *Repository) GetByPhoto(ctx context.Context, photoID string) (*models.AnalysisResult, error) {
	items, _, err := r.db.QueryPage(ctx, dynamo.QueryInput{
		Table:         r.table,
		Index:         PhotoIndex,
		KeyExpression: "PhotoID = :pid",
		Values: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: photoID},
		},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	var result models.AnalysisResult
	if err := attributevalue.UnmarshalMap(items[0], &result); err != nil {
		return nil, fmt.Errorf("unmarshal analysis row: %w", err)
	}
	return &result, nil
}

// ListByProperty returns one page of a property's analysis records.
func (r *Repository) ListByProperty(ctx context.Context, propertyID string, limit int32, startAnalysisID string) ([]models.AnalysisResult, string, error) {
	in := dynamo.QueryInput{
		Table:         r.table,
		Index:         PropertyIndex,
		KeyExpression: "PropertyID = :pid",
		Values: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: propertyID},
		},
		Limit: limit,
	}
	if startAnalysisID != "" {
		in.StartKey = map[string]types.AttributeValue{
			"AnalysisID": &types.AttributeValueMemberS{Value: startAnalysisID},
			"PropertyID": &types.AttributeValueMemberS{Value: propertyID},
		}
	}
	items, lastKey, err := r.db.QueryPage(ctx, in)
	if err != nil {
		return nil, "", err
	}
	out := make([]models.AnalysisResult, 0, len(items))
	for _, item := range items {
		var result models.AnalysisResult
		if err := attributevalue.UnmarshalMap(item, &result); err != nil {
			return nil, "", fmt.Errorf("unmarshal analysis row: %w", err)
		}
		out = append(out, result)
	}
	last := ""
	if v, ok := lastKey["AnalysisID"].(*types.AttributeValueMemberS); ok {
		last = v.Value
	}
	return out, last, nil
}

// DeleteByPhoto removes the photo's analysis record if one exists.
func (r *Repository) DeleteByPhoto(ctx context.Context, photoID string) error {
	result, err := r.GetByPhoto(ctx, photoID)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return r.Delete(ctx, result.AnalysisID)
}

// DeleteByPhotos removes analysis records for each of the given photos.
func (r *Repository) DeleteByPhotos(ctx context.Context, photoIDs []string) error {
	var keys []map[string]types.AttributeValue
	for _, photoID := range photoIDs {
		result, err := r.GetByPhoto(ctx, photoID)
		if err != nil {
			return err
		}
		if result != nil {
			keys = append(keys, analysisKey(result.AnalysisID))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return r.db.BatchDelete(ctx, r.table, keys)
}

// DeleteByProperty removes every analysis record under a property.
func (r *Repository) DeleteByProperty(ctx context.Context, propertyID string) error {
	start := ""
	for {
		page, last, err := r.ListByProperty(ctx, propertyID, 100, start)
		if err != nil {
			return err
		}
		if len(page) > 0 {
			keys := make([]map[string]types.AttributeValue, 0, len(page))
			for i := range page {
				keys = append(keys, analysisKey(page[i].AnalysisID))
			}
			if err := r.db.BatchDelete(ctx, r.table, keys); err != nil {
				return err
			}
		}
		if last == "" {
			return nil
		}
		start = last
	}
}

// BatchDelete removes analysis rows by id.
func (r *Repository) BatchDelete(ctx context.Context, analysisIDs []string) error {
	keys := make([]map[string]types.AttributeValue, 0, len(analysisIDs))
	for _, id := range analysisIDs {
		keys = append(keys, analysisKey(id))
	}
	return r.db.BatchDelete(ctx, r.table, keys)
}

// ScanAll returns every analysis row.
func (r *Repository) ScanAll(ctx context.Context) ([]models.AnalysisResult, error) {
	var all []models.AnalysisResult
	var start map[string]types.AttributeValue
	for {
		items, last, err := r.db.ScanPage(ctx, r.table, 0, start)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			var result models.AnalysisResult
			if err := attributevalue.UnmarshalMap(item, &result); err != nil {
				return nil, fmt.Errorf("unmarshal analysis row: %w", err)
			}
			all = append(all, result)
		}
		if len(last) == 0 {
			return all, nil
		}
		start = last
	}
}
