package minio

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// BucketExists checks whether a bucket exists
func (c *Client) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	if bucketName == "" {
		return false, WrapError("BucketExists", ErrInvalidBucketName, bucketName, "")
	}

	exists, err := c.client.BucketExists(ctx, bucketName)
	if err != nil {
		return false, WrapError("BucketExists", err, bucketName, "")
	}

	return exists, nil
}

// MakeBucket creates a new bucket
func (c *Client) MakeBucket(ctx context.Context, bucketName string) error {
	if bucketName == "" {
		return WrapError("MakeBucket", ErrInvalidBucketName, bucketName, "")
	}

	opts := minio.MakeBucketOptions{Region: c.config.Region}
	if err := c.client.MakeBucket(ctx, bucketName, opts); err != nil {
		return WrapError("MakeBucket", err, bucketName, "")
	}

	if c.logger != nil {
		c.logger.Info("bucket created", zap.String("bucket", bucketName))
	}

	return nil
}

// EnsureBucket creates the bucket if it does not already exist
func (c *Client) EnsureBucket(ctx context.Context, bucketName string) error {
	exists, err := c.BucketExists(ctx, bucketName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return c.MakeBucket(ctx, bucketName)
}

// SetBucketPublicRead applies an anonymous-download policy to the bucket
// so objects are reachable via plain URLs.
func (c *Client) SetBucketPublicRead(ctx context.Context, bucketName string) error {
	if bucketName == "" {
		return WrapError("SetBucketPublicRead", ErrInvalidBucketName, bucketName, "")
	}

	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Effect": "Allow",
				"Principal": {"AWS": ["*"]},
				"Action": ["s3:GetObject"],
				"Resource": ["arn:aws:s3:::%s/*"]
			}
		]
	}`, bucketName)

	if err := c.client.SetBucketPolicy(ctx, bucketName, policy); err != nil {
		return WrapError("SetBucketPublicRead", err, bucketName, "")
	}

	if c.logger != nil {
		c.logger.Info("bucket policy set to public read", zap.String("bucket", bucketName))
	}

	return nil
}
