package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/runlayer/sidemount/pkg/types"
)

// NewObjectStoreClient builds an S3 client for the bucket backing the
// volume. Static credentials from the config take precedence; otherwise the
// default AWS credential chain is used.
func NewObjectStoreClient(ctx context.Context, storeConfig types.ObjectStoreConfig) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	if storeConfig.Region != "" {
		opts = append(opts, config.WithRegion(storeConfig.Region))
	}

	if storeConfig.AccessKey != "" && storeConfig.SecretKey != "" {
		provider := credentials.NewStaticCredentialsProvider(storeConfig.AccessKey, storeConfig.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(provider))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if storeConfig.EndpointURL != "" {
			o.BaseEndpoint = aws.String(storeConfig.EndpointURL)
			o.UsePathStyle = true
		}
	}), nil
}

// VerifyBucket checks that the configured bucket exists and is reachable
// with the supplied credentials.
func VerifyBucket(ctx context.Context, client *s3.Client, bucketName string) error {
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucketName),
	})
	return err
}
