// Package export writes a user's chat history to object storage and hands
// back a time-limited download link.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Krish-Depani/ghost-ai-server/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type Exporter interface {
	Export(ctx context.Context, userID string, messages []models.Message) (string, error)
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	LinkTTL   time.Duration
}

type S3Exporter struct {
	objects objectAPI
	presign presignAPI
	bucket  string
	ttl     time.Duration
	now     func() time.Time
}

// NewS3Exporter targets AWS, or any S3-compatible store such as MinIO when
// Endpoint is set.
func NewS3Exporter(ctx context.Context, cfg S3Config) (*S3Exporter, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Exporter{
		objects: client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		ttl:     cfg.LinkTTL,
		now:     time.Now,
	}, nil
}

func objectKey(userID string, at time.Time) string {
	return fmt.Sprintf("exports/%s/%s/%s.txt", userID, at.Format("2006-01-02"), uuid.New())
}

func (e *S3Exporter) Export(ctx context.Context, userID string, messages []models.Message) (string, error) {
	now := e.now().UTC()
	key := objectKey(userID, now)
	body := Transcript(userID, messages, now)

	_, err := e.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(e.bucket),
		Key:                aws.String(key),
		Body:               strings.NewReader(body),
		ContentType:        aws.String("text/plain; charset=utf-8"),
		ContentDisposition: aws.String(`attachment; filename="ghost-ai-chat.txt"`),
	})
	if err != nil {
		return "", fmt.Errorf("upload export: %w", err)
	}

	req, err := e.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(e.ttl))
	if err != nil {
		return "", fmt.Errorf("presign export: %w", err)
	}

	return req.URL, nil
}

// Transcript renders messages oldest first, one line per message.
func Transcript(userID string, messages []models.Message, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "GHost AI chat export for %s\n", userID)
	fmt.Fprintf(&b, "Generated %s\n", at.UTC().Format(time.RFC3339))

	if len(messages) == 0 {
		b.WriteString("\nNo messages yet.\n")
		return b.String()
	}

	convo := ""
	for _, m := range messages {
		if m.Convo != convo {
			convo = m.Convo
			fmt.Fprintf(&b, "\n== %s ==\n", convo)
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.CreatedAt.UTC().Format("2006-01-02 15:04:05"), m.Sender, m.Text)
	}
	return b.String()
}
