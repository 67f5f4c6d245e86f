package db

import (
	"context"
	"fmt"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	"github.com/jackc/pgx/v5"
)

// RegionDetect resolves the AWS region from instance metadata
const RegionDetect = "detect"

func resolveRegion(ctx context.Context, region string) (string, error) {
	if region != RegionDetect {
		return region, nil
	}

	client := imds.New(imds.Options{
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
	})
	out, err := client.GetRegion(ctx, &imds.GetRegionInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get region from IMDS: %w", err)
	}
	return out.Region, nil
}

func buildToken(ctx context.Context, region string, connCfg *pgx.ConnConfig) (string, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return "", fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := fmt.Sprintf("%s:%d", connCfg.Host, connCfg.Port)
	token, err := auth.BuildAuthToken(ctx, endpoint, region, connCfg.User, awsCfg.Credentials)
	if err != nil {
		return "", fmt.Errorf("failed to build RDS authentication token: %w", err)
	}
	return token, nil
}

// NewRDSIAMToken mints one RDS IAM token for the user and endpoint of connCfg.
func NewRDSIAMToken(ctx context.Context, region string, connCfg *pgx.ConnConfig) (string, error) {
	region, err := resolveRegion(ctx, region)
	if err != nil {
		return "", err
	}
	return buildToken(ctx, region, connCfg)
}

// NewRDSIAMAuth returns a pgxpool BeforeConnect hook that sets a fresh RDS IAM
// token as the password of every new connection. The region is resolved once.
func NewRDSIAMAuth(ctx context.Context, region string, base *pgx.ConnConfig) (func(context.Context, *pgx.ConnConfig) error, error) {
	region, err := resolveRegion(ctx, region)
	if err != nil {
		return nil, err
	}
	if base.User == "" {
		return nil, fmt.Errorf("a database user is required for RDS IAM authentication")
	}

	return func(ctx context.Context, connCfg *pgx.ConnConfig) error {
		token, err := buildToken(ctx, region, connCfg)
		if err != nil {
			return err
		}
		connCfg.Password = token
		return nil
	}, nil
}
