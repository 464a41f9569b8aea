package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func getAwsConfig(ctx context.Context, profile string) (aws.Config, error) {
	if profile == "" || profile == "default" {
		return config.LoadDefaultConfig(ctx)
	}
	return config.LoadDefaultConfig(ctx, config.WithSharedConfigProfile(profile))
}

// NewS3Client creates an S3 client from the shared AWS config for profile.
func NewS3Client(ctx context.Context, profile string) (*s3.Client, error) {
	cfg, err := getAwsConfig(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}
	return s3.NewFromConfig(cfg), nil
}
