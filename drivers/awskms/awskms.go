// Package awskms implements the aws_kms resource kind: encrypts or
// decrypts ParsedSource against a KMS key and writes the result to Path,
// base64 or binary encoded per the source-URI grammar's default encodings.
package awskms

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/ratazzi/hola/drivers"
	"github.com/ratazzi/hola/internal/atomicfile"
	"github.com/ratazzi/hola/internal/modeparse"
	"github.com/ratazzi/hola/internal/ownership"
	"github.com/ratazzi/hola/internal/pathutil"
	"github.com/ratazzi/hola/resource"
)

const defaultMode = os.FileMode(0o600)

// Driver converges resource.AWSKMSProps records.
type Driver struct {
	DefaultRegion string
}

// New returns an aws_kms Driver falling back to defaultRegion when a
// record leaves Region empty.
func New(defaultRegion string) *Driver { return &Driver{DefaultRegion: defaultRegion} }

func (d *Driver) Apply(ctx context.Context, _ *drivers.Env, rec *resource.Record, action string) (resource.ApplyResult, error) {
	p := rec.AWSKMS
	path, err := pathutil.Expand(string(p.Path))
	if err != nil {
		return resource.ApplyResult{}, err
	}

	client, err := d.client(ctx, p)
	if err != nil {
		return resource.ApplyResult{}, err
	}

	var result []byte
	switch action {
	case "encrypt":
		result, err = d.encrypt(ctx, client, p)
	default: // "decrypt"
		result, err = d.decrypt(ctx, client, p)
	}
	if err != nil {
		return resource.ApplyResult{}, err
	}

	if existing, readErr := os.ReadFile(path); readErr == nil && bytesEqual(existing, result) {
		return resource.NoUpdate(action, "output unchanged"), nil
	}

	mode, hasMode, err := modeparse.Parse(p.Mode)
	if err != nil {
		return resource.ApplyResult{}, err
	}
	useMode := modeparse.Or(mode, hasMode, defaultMode)
	if err := atomicfile.Write(path, result, useMode, 0); err != nil {
		return resource.ApplyResult{}, err
	}
	if p.Owner != "" || p.Group != "" {
		if err := ownership.Chown(path, p.Owner, p.Group); err != nil {
			return resource.ApplyResult{}, err
		}
	}
	return resource.Updated(action), nil
}

func (d *Driver) client(ctx context.Context, p *resource.AWSKMSProps) (*kms.Client, error) {
	region := p.Region
	if region == "" {
		region = d.DefaultRegion
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if p.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.AccessKeyID, p.SecretAccessKey, p.SessionToken)))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws_kms: loading AWS config: %w", err)
	}
	return kms.NewFromConfig(cfg), nil
}

func (d *Driver) encrypt(ctx context.Context, client *kms.Client, p *resource.AWSKMSProps) ([]byte, error) {
	out, err := client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:               aws.String(p.KeyID),
		Plaintext:           p.ParsedSource,
		EncryptionAlgorithm: algorithm(p.Algorithm),
	})
	if err != nil {
		return nil, fmt.Errorf("aws_kms: encrypt: %w", err)
	}
	// target encoding for encrypt defaults to base64
	return []byte(base64.StdEncoding.EncodeToString(out.CiphertextBlob)), nil
}

func (d *Driver) decrypt(ctx context.Context, client *kms.Client, p *resource.AWSKMSProps) ([]byte, error) {
	out, err := client.Decrypt(ctx, &kms.DecryptInput{
		KeyId:               aws.String(p.KeyID),
		CiphertextBlob:      p.ParsedSource,
		EncryptionAlgorithm: algorithm(p.Algorithm),
	})
	if err != nil {
		return nil, fmt.Errorf("aws_kms: decrypt: %w", err)
	}
	return out.Plaintext, nil
}

func algorithm(a string) kmstypes.EncryptionAlgorithmSpec {
	if a == "" {
		return kmstypes.EncryptionAlgorithmSpecSymmetricDefault
	}
	return kmstypes.EncryptionAlgorithmSpec(a)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
