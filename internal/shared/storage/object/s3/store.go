package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"partner-onboarding/internal/shared/storage/object"
)

const defaultRegion = "us-east-1"

type api interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Options configures the S3 blob store.
type Options struct {
	Region        string
	Bucket        string
	Prefix        string
	KMSKeyID      string
	PublicBaseURL string
}

// Store implements BlobStore using Amazon S3.
type Store struct {
	client   api
	bucket   string
	region   string
	prefix   string
	kmsKeyID string
	baseURL  string
}

// New creates a new S3-backed blob store.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = defaultRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newWithClient(s3.NewFromConfig(cfg), region, opts), nil
}

func newWithClient(client api, region string, opts Options) *Store {
	return &Store{
		client:   client,
		bucket:   strings.TrimSpace(opts.Bucket),
		region:   region,
		prefix:   normalizePrefix(opts.Prefix),
		kmsKeyID: strings.TrimSpace(opts.KMSKeyID),
		baseURL:  strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/"),
	}
}

// Store uploads the body to S3 under the user's namespace.
func (s *Store) Store(ctx context.Context, in object.StoreInput) (object.Blob, error) {
	if err := object.ValidateInput(in); err != nil {
		return object.Blob{}, err
	}
	if err := ctx.Err(); err != nil {
		return object.Blob{}, err
	}

	ref := object.NewRef(in.UserID, in.Folder, in.ContentType)
	key := applyPrefix(s.prefix, ref)
	counter := &countingReader{r: io.LimitReader(in.Body, in.SizeBytes)}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          counter,
		ContentType:   aws.String(object.NormalizeContentType(in.ContentType)),
		ContentLength: aws.Int64(in.SizeBytes),
	}
	if s.kmsKeyID != "" {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(s.kmsKeyID)
	} else {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return object.Blob{}, fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, key, err)
	}

	return object.Blob{
		Ref:       ref,
		URL:       s.objectURL(key),
		SizeBytes: counter.n,
	}, nil
}

// Delete removes the object. S3 treats deletes of missing keys as success.
func (s *Store) Delete(ctx context.Context, ref string) error {
	clean, err := object.CleanRef(ref)
	if err != nil {
		return err
	}
	key := applyPrefix(s.prefix, clean)
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		var notFound *s3types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("s3 delete object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return nil
}

// Open downloads a stored object for reading.
func (s *Store) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	clean, err := object.CleanRef(ref)
	if err != nil {
		return nil, err
	}
	key := applyPrefix(s.prefix, clean)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return out.Body, nil
}

func (s *Store) objectURL(key string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

var _ object.BlobStore = (*Store)(nil)
