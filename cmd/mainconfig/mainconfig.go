// Package mainconfig builds the AWS SDK configuration shared by the api and
// worker binaries.
package mainconfig

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/simao-ai/rural-platform/internal/config"
)

// localServiceIDs are the services LocalStack can emulate for this platform:
// the inbound message queue, the handoff archive table and transactional
// email. Bedrock always talks to the real endpoint.
var localServiceIDs = map[string]bool{
	sqs.ServiceID:      true,
	dynamodb.ServiceID: true,
	sesv2.ServiceID:    true,
}

// LoadAWSConfig resolves region, credentials and the optional local endpoint
// override in one place so every binary wires AWS the same way.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}

	if endpoint := cfg.AWSEndpointOverride; endpoint != "" {
		awsCfg.EndpointResolverWithOptions = localResolver(endpoint, cfg.AWSRegion)
	}

	return awsCfg, nil
}

func localResolver(endpoint, region string) aws.EndpointResolverWithOptionsFunc {
	return func(service, _ string, _ ...interface{}) (aws.Endpoint, error) {
		if !localServiceIDs[service] {
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		}
		return aws.Endpoint{
			URL:           endpoint,
			PartitionID:   "aws",
			SigningRegion: region,
		}, nil
	}
}
