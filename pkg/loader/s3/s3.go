// Package s3 implements loader.Source over an S3 bucket prefix, so O*NET
// dumps and roadmap exports can be ingested straight from object storage.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/JadenBair-FS/aris/pkg/loader"
)

// NewClientParams configures the S3 client. Endpoint is optional and
// enables path-style addressing for S3-compatible stores.
type NewClientParams struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewClient builds an S3 client from static credentials.
func NewClient(ctx context.Context, params NewClientParams) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(params.Region),
		config.WithBaseEndpoint(params.Endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// Source reads files below one bucket prefix.
type Source struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewSource creates a Source over bucket/prefix.
func NewSource(client *s3.Client, bucket, prefix string) *Source {
	return &Source{
		client: client,
		bucket: bucket,
		prefix: strings.TrimSuffix(prefix, "/"),
	}
}

func (s *Source) List(ctx context.Context, ext string) ([]loader.File, error) {
	prefix := s.prefix
	if prefix != "" {
		prefix += "/"
	}

	var out []loader.File
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var noBucket *types.NoSuchBucket
			if errors.As(err, &noBucket) {
				return nil, fmt.Errorf("%w: s3://%s/%s", loader.ErrNotFound, s.bucket, s.prefix)
			}
			return nil, fmt.Errorf("list s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := path.Base(key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			if ext != "" && !strings.HasSuffix(name, ext) {
				continue
			}
			out = append(out, loader.File{Name: name})
		}
	}
	if len(out) == 0 {
		// An empty prefix is indistinguishable from a missing one; treat
		// both as a missing source root.
		return nil, fmt.Errorf("%w: s3://%s/%s", loader.ErrNotFound, s.bucket, s.prefix)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Source) Read(ctx context.Context, name string) ([]byte, error) {
	key := name
	if s.prefix != "" {
		key = s.prefix + "/" + name
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: s3://%s/%s", loader.ErrNotFound, s.bucket, key)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.bucket, key, err)
	}
	return content, nil
}
