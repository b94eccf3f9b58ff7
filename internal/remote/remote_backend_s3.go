package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/openmined/dropsearch/internal/filekey"
)

// S3Backend indexes the objects of one bucket (optionally under a prefix).
// The object key is the file id and the path, the ETag is the fingerprint, and
// presigned GET URLs serve as shared links.
type S3Backend struct {
	s3Client    *s3.Client
	s3Presigner *s3.PresignClient
	config      *S3Config
}

func NewS3Backend(s3Client *s3.Client, cfg *S3Config) *S3Backend {
	return &S3Backend{
		s3Client:    s3Client,
		s3Presigner: s3.NewPresignClient(s3Client),
		config:      cfg,
	}
}

func NewS3BackendWithConfig(cfg *S3Config) (*S3Backend, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   50,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		Timeout: 5 * time.Minute,
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	awsClient := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.UseAccelerate {
			o.UseAccelerate = true
		}
	})

	return NewS3Backend(awsClient, cfg), nil
}

// ===================================================================================================

func (s *S3Backend) List(ctx context.Context) ([]*RemoteFile, error) {
	var files []*RemoteFile

	input := &s3.ListObjectsV2Input{
		Bucket: &s.config.BucketName,
	}
	if s.config.Prefix != "" {
		input.Prefix = aws.String(s.config.Prefix)
	}

	paginator := s3.NewListObjectsV2Paginator(s.s3Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}

		for _, obj := range page.Contents {
			objKey := aws.ToString(obj.Key)
			etag := trimETag(aws.ToString(obj.ETag))

			// folder placeholders carry no content
			if strings.HasSuffix(objKey, "/") || etag == "" {
				continue
			}

			key, err := filekey.New(objKey, etag)
			if err != nil {
				slog.Warn("s3 skip object", "key", objKey, "error", err)
				continue
			}

			files = append(files, &RemoteFile{
				Key:  key,
				Path: objKey,
				Size: aws.ToInt64(obj.Size),
			})
		}
	}

	return files, nil
}

// ===================================================================================================

func (s *S3Backend) Download(ctx context.Context, key string) (*Download, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.config.BucketName,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get object %q: %w", key, err)
	}

	return &Download{
		Body: resp.Body,
		Path: key,
		Size: aws.ToInt64(resp.ContentLength),
	}, nil
}

// ===================================================================================================

func (s *S3Backend) SharedLinks(ctx context.Context, key string) ([]*SharedLink, error) {
	expiry := s.config.LinkExpiry
	if expiry == 0 {
		expiry = DefaultLinkExpiry
	}

	req, err := s.s3Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.config.BucketName,
		Key:    &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return nil, fmt.Errorf("s3 presign %q: %w", key, err)
	}

	return []*SharedLink{{
		URL:  req.URL,
		Name: path.Base(key),
		Path: key,
	}}, nil
}

func trimETag(etag string) string {
	return strings.ReplaceAll(etag, "\"", "")
}

var _ Backend = (*S3Backend)(nil)
