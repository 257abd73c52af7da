// Package storage uploads finished videos to S3.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const contentTypeMP4 = "video/mp4"

// Uploader stores a rendered video and returns its object location.
type Uploader interface {
	Upload(ctx context.Context, id, file string) (Object, error)
}

// Object 描述已上传的对象。
type Object struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	URL    string `json:"url,omitempty"` // 预签名下载地址
}

type S3 struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	prefix        string
	urlLifetime   time.Duration
}

var _ Uploader = (*S3)(nil)

// NewS3 loads the default AWS configuration for region; an empty prefix stores under renders/.
func NewS3(ctx context.Context, bucket, prefix, region string) (*S3, error) {
	if bucket == "" {
		return nil, fmt.Errorf("未配置 S3 bucket")
	}
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        bucket,
		prefix:        normalizePrefix(prefix),
		urlLifetime:   24 * time.Hour,
	}, nil
}

// Key returns the object key for a render id, eg: renders/<id>.mp4.
func (s *S3) Key(id string) string { return ObjectKey(s.prefix, id) }

// Upload implements Uploader.
func (s *S3) Upload(ctx context.Context, id, file string) (Object, error) {
	f, err := os.Open(file)
	if err != nil {
		return Object{}, fmt.Errorf("打开视频 %s 失败: %w", file, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Object{}, fmt.Errorf("读取视频信息失败: %w", err)
	}

	key := s.Key(id)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentType:   aws.String(contentTypeMP4),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return Object{}, fmt.Errorf("failed to upload object to S3: %w", err)
	}

	obj := Object{Bucket: s.bucket, Key: key}
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.urlLifetime
	})
	if err == nil {
		obj.URL = req.URL
	}
	return obj, nil
}

// ObjectKey joins prefix and id into the key of a rendered mp4.
func ObjectKey(prefix, id string) string {
	return path.Join(normalizePrefix(prefix), id+".mp4")
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return "renders"
	}
	return prefix
}
