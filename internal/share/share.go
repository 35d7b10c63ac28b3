// Package share hands generated documents off to a destination outside the
// device.
package share

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"defectlog/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// Sharer publishes the file at path and returns a link to it.
type Sharer interface {
	Share(ctx context.Context, path string) (string, error)
}

// Unavailable is the Sharer used when no share destination is configured.
type Unavailable struct{}

func (Unavailable) Share(context.Context, string) (string, error) {
	return "", types.ErrShareUnavailable
}

type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Sharer uploads documents to a bucket and returns a presigned download
// link valid for ttl.
type S3Sharer struct {
	logger    *logrus.Logger
	client    ObjectPutter
	presigner Presigner
	bucket    string
	prefix    string
	ttl       time.Duration
}

func NewS3Sharer(logger *logrus.Logger, client *s3.Client, bucket, prefix string, ttl time.Duration) *S3Sharer {
	return newS3Sharer(logger, client, s3.NewPresignClient(client), bucket, prefix, ttl)
}

func newS3Sharer(logger *logrus.Logger, client ObjectPutter, presigner Presigner, bucket, prefix string, ttl time.Duration) *S3Sharer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &S3Sharer{
		logger:    logger,
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		ttl:       ttl,
	}
}

func (s *S3Sharer) Share(ctx context.Context, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", types.ErrShare, filepath.Base(filePath), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: stat %s: %v", types.ErrShare, filepath.Base(filePath), err)
	}

	key := s.objectKey(filePath)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(filePath)),
	})
	if err != nil {
		return "", fmt.Errorf("%w: upload %s: %v", types.ErrShare, key, err)
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("%w: presign %s: %v", types.ErrShare, key, err)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket":  s.bucket,
		"key":     key,
		"bytes":   info.Size(),
		"expires": s.ttl.String(),
	}).Info("document shared")

	return req.URL, nil
}

func (s *S3Sharer) objectKey(filePath string) string {
	name := filepath.Base(filePath)
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func contentType(filePath string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filePath))); t != "" {
		return t
	}
	return "application/octet-stream"
}
