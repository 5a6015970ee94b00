package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"wp-migrate/internal/migrate"
)

// S3Options configures an S3Archive.
type S3Options struct {
	Bucket string
	Prefix string // key prefix inside the bucket, e.g. "wpm/"
	Region string

	// Endpoint points the client at an S3-compatible store. Setting it
	// switches to path-style addressing.
	Endpoint string

	// AccessKeyID and SecretAccessKey override the default AWS credential
	// chain when both are set.
	AccessKeyID     string
	SecretAccessKey string
}

// S3Archive stores artifacts as objects "<prefix><runID>/<name>" in one
// bucket.
type S3Archive struct {
	name     string
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Archive creates an S3 archive. Credentials come from opts when given,
// otherwise from the environment, shared config files or instance role.
func NewS3Archive(ctx context.Context, name string, opts S3Options) (*S3Archive, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 archive requires s3_bucket to be set")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	endpoint := strings.TrimRight(opts.Endpoint, "/")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Archive(name, opts.Bucket, opts.Prefix, client), nil
}

func newS3Archive(name, bucket, prefix string, client *s3.Client) *S3Archive {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Archive{
		name:     name,
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

func (a *S3Archive) objectKey(runID, name string) (string, error) {
	k, err := key(runID, name)
	if err != nil {
		return "", err
	}
	return a.prefix + k, nil
}

// Put uploads an artifact. Large artifacts are sent as multipart uploads.
func (a *S3Archive) Put(ctx context.Context, runID, name string, r io.Reader, size int64) error {
	k, err := a.objectKey(runID, name)
	if err != nil {
		return err
	}

	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(k),
		Body:   &sizedReader{r: r, want: size},
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s/%s: %w", a.bucket, k, err)
	}
	return nil
}

// Get downloads an artifact into w.
func (a *S3Archive) Get(ctx context.Context, runID, name string, w io.Writer) error {
	k, err := a.objectKey(runID, name)
	if err != nil {
		return err
	}

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("%w: %s", ErrNotFound, k)
		}
		return fmt.Errorf("s3 download %s/%s: %w", a.bucket, k, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("s3 read body %s/%s: %w", a.bucket, k, err)
	}
	return nil
}

// ValidateSetup checks that the bucket exists and the credentials can reach it.
func (a *S3Archive) ValidateSetup(ctx context.Context) error {
	if _, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", a.bucket, err)
	}
	return nil
}

// sizedReader fails at EOF when fewer or more than want bytes were read,
// which aborts the upload instead of storing a short artifact.
type sizedReader struct {
	r    io.Reader
	want int64
	n    int64
}

func (s *sizedReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	s.n += int64(n)
	if err == io.EOF && s.n != s.want {
		return n, fmt.Errorf("size mismatch: expected %d bytes, got %d", s.want, s.n)
	}
	return n, err
}

var _ migrate.Archive = (*S3Archive)(nil)
