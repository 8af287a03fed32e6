package filesystem

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Bucket reads punch exports dropped into S3.
type Bucket struct {
	client *s3.Client
	name   string
}

func NewBucket(ctx context.Context, name string) (*Bucket, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &Bucket{client: s3.NewFromConfig(cfg), name: name}, nil
}

func (b *Bucket) Name() string {
	return b.name
}

// ReadFile copies the object into outStream.
func (b *Bucket) ReadFile(ctx context.Context, key string, outStream io.Writer) error {
	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to get object %s from bucket %s: %w", key, b.name, err)
	}
	defer resp.Body.Close()

	_, err = io.Copy(outStream, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to copy object %s from bucket %s: %w", key, b.name, err)
	}

	return nil
}

// ListFiles returns the keys under prefix.
func (b *Bucket) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	input := &s3.ListObjectsV2Input{Bucket: aws.String(b.name)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	paginator := s3.NewListObjectsV2Paginator(b.client, input)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in bucket %s: %w", b.name, err)
		}

		for _, obj := range page.Contents {
			if obj.Key != nil && (obj.Size == nil || *obj.Size > 0) {
				keys = append(keys, *obj.Key)
			}
		}
	}

	return keys, nil
}

// MoveFile copies the object to dest and deletes the original.
func (b *Bucket) MoveFile(ctx context.Context, key, dest string) error {
	_, err := b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(b.name),
		CopySource: aws.String(b.name + "/" + key),
		Key:        aws.String(dest),
	})
	if err != nil {
		return fmt.Errorf("failed to copy object %s to %s: %w", key, dest, err)
	}
	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
