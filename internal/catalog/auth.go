package catalog

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// AWSCredentials holds AWS authentication settings.
type AWSCredentials struct {
	// AccessKeyID is the AWS access key ID.
	AccessKeyID string `yaml:"access_key_id"`

	// SecretAccessKey is the AWS secret access key.
	SecretAccessKey string `yaml:"secret_access_key"`

	// Region is the AWS region (e.g., "us-east-1").
	Region string `yaml:"region"`

	// Profile is a named profile from the shared AWS config files.
	Profile string `yaml:"profile"`
}

// HasStaticCredentials returns true if static credentials are configured.
// Both AccessKeyID and SecretAccessKey must be non-empty.
func (c AWSCredentials) HasStaticCredentials() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// BuildAWSConfig creates an AWS config from the credentials. Static keys
// take precedence over a named profile; with neither set, the AWS default
// credential chain applies (environment variables, IAM roles, etc.).
func BuildAWSConfig(ctx context.Context, creds AWSCredentials) (*aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	if creds.Region != "" {
		opts = append(opts, config.WithRegion(creds.Region))
	}

	switch {
	case creds.HasStaticCredentials():
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				creds.AccessKeyID,
				creds.SecretAccessKey,
				"", // session token (not used for static credentials)
			),
		))
	case creds.Profile != "":
		opts = append(opts, config.WithSharedConfigProfile(creds.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &cfg, nil
}
