package search

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/signer/awsv2"
)

type ClusterAuth struct {
	IAM bool
}

// NewClient creates a client for an OpenSearch cluster. Requests are signed
// for AWS managed clusters if IAM auth is used.
func NewClient(
	ctx context.Context, endpoint string, auth ClusterAuth,
) (*opensearch.Client, error) {
	osConfig := opensearch.Config{
		Addresses: []string{endpoint},
	}

	if auth.IAM {
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load default AWS config: %w", err)
		}

		// Create an AWS request Signer and load AWS configuration using
		// default config folder or env vars.
		signer, err := awsv2.NewSignerWithService(awsCfg, "es")
		if err != nil {
			return nil, fmt.Errorf("create request signer: %w", err)
		}

		osConfig.Signer = signer
	}

	searchClient, err := opensearch.NewClient(osConfig)
	if err != nil {
		return nil, fmt.Errorf(
			"create opensearch client: %w", err)
	}

	return searchClient, nil
}

// Ping checks that the index can be reached.
func Ping(ctx context.Context, client *opensearch.Client, index string) error {
	exists := client.Indices.Exists

	res, err := exists([]string{index}, exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}

	_ = res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf(
			"error response from server: %v", res.Status())
	}

	return nil
}
