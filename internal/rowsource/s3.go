package rowsource

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/adpulse/metrics-engine/internal/tabular"
)

// S3Getter is the slice of the S3 client the source needs.
type S3Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds an S3 client for the ingest bucket.
func NewS3Client(ctx context.Context, region, profile string) (*s3.Client, error) {
	var cfg aws.Config
	var err error

	if profile != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithSharedConfigProfile(profile),
		)
	} else {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// S3Source reads an export dropped into the ingest bucket, the handoff
// point for scheduled platform exports.
type S3Source struct {
	Client  S3Getter
	Bucket  string
	Key     string
	MaxRows int
}

func (s *S3Source) Tag() string { return fmt.Sprintf("s3:%s/%s", s.Bucket, s.Key) }

func (s *S3Source) Fetch(ctx context.Context) (*tabular.ParseResult, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting object from S3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object body: %w", err)
	}
	return parsePayload(s.Key, data, s.MaxRows)
}
