package remotefile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ratazzi/hola/resource"
)

// fetchS3 downloads the object named by an s3://bucket/key SourceURL.
func fetchS3(ctx context.Context, p *resource.RemoteFileProps) ([]byte, error) {
	bucket, key, err := splitS3URL(p.SourceURL)
	if err != nil {
		return nil, err
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if p.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(p.AWSRegion))
	}
	if p.AWSAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.AWSAccessKey, p.AWSSecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("remote_file: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if p.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(p.AWSEndpoint)
			o.UsePathStyle = true
		}
	})

	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("remote_file: s3 GetObject %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func splitS3URL(uri string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(uri, "s3://")
	idx := strings.IndexByte(rest, '/')
	if idx < 0 {
		return "", "", fmt.Errorf("remote_file: malformed s3 URL %q", uri)
	}
	return rest[:idx], rest[idx+1:], nil
}
