// Package s3 provides the object storage client used for photo uploads:
// presigned PUT URLs, object metadata lookups, and bulk deletes.
package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// deleteObjectsMax is the S3 API limit per DeleteObjects request.
const deleteObjectsMax = 1000

// ObjectInfo is the metadata of a stored object.
type ObjectInfo struct {
	Key           string
	ContentLength int64
	ContentType   string
	LastModified  time.Time
}

// Client wraps an S3 client scoped to a single bucket.
type Client struct {
	api     *awss3.Client
	presign *awss3.PresignClient
	bucket  string
	region  string
}

func New(api *awss3.Client, bucket, region string) *Client {
	return &Client{
		api:     api,
		presign: awss3.NewPresignClient(api),
		bucket:  bucket,
		region:  region,
	}
}

func (c *Client) Bucket() string { return c.bucket }

// PublicURL returns the canonical HTTPS URL for a stored object.
func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
}

// PresignPut issues a presigned PUT URL for the key, bound to the given
// content type and length and valid for ttl. Binding the length keeps a
// client from uploading more than the size it declared.
func (c *Client) PresignPut(ctx context.Context, key, contentType string, size int64, ttl time.Duration) (string, error) {
	req, err := c.presign.PresignPutObject(ctx, &awss3.PutObjectInput{
		Bucket:        &c.bucket,
		Key:           &key,
		ContentType:   &contentType,
		ContentLength: aws.Int64(size),
	}, awss3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign put for %s: %w", key, err)
	}
	return req.URL, nil
}

// PresignGet issues a presigned GET URL for the key, valid for ttl.
func (c *Client) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	}, awss3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign get for %s: %w", key, err)
	}
	return req.URL, nil
}

// Head returns the object's metadata, or nil when no object exists at the
// key.
func (c *Client) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	res, err := c.api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, fmt.Errorf("head object %s: %w", key, err)
	}
	info := &ObjectInfo{Key: key}
	if res.ContentLength != nil {
		info.ContentLength = *res.ContentLength
	}
	if res.ContentType != nil {
		info.ContentType = *res.ContentType
	}
	if res.LastModified != nil {
		info.LastModified = *res.LastModified
	}
	return info, nil
}

// Delete removes a single object. Deleting a missing key succeeds.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// DeleteAll removes the given keys in chunks of the API limit.
func (c *Client) DeleteAll(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += deleteObjectsMax {
		end := min(start+deleteObjectsMax, len(keys))
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}
		_, err := c.api.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: &c.bucket,
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("delete %d objects: %w", end-start, err)
		}
	}
	return nil
}

// ListAllKeys returns every object key in the bucket, optionally under a
// prefix, following continuation tokens to the end.
func (c *Client) ListAllKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	in := &awss3.ListObjectsV2Input{Bucket: &c.bucket}
	if prefix != "" {
		in.Prefix = &prefix
	}
	paginator := awss3.NewListObjectsV2Paginator(c.api, in)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}
