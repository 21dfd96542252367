package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// Secrets providers
const (
	SecretsProviderEnv = "env"
	SecretsProviderSSM = "ssm"
)

// SecretsConfig selects where credentials come from in production
type SecretsConfig struct {
	Provider string `mapstructure:"provider"`
	Region   string `mapstructure:"region"`
	Prefix   string `mapstructure:"prefix"`
}

// ParameterGetter is the part of the SSM client used to resolve secrets
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// NewSSMClient builds an SSM client from the default AWS credential chain
func NewSSMClient(ctx context.Context, region string) (*ssm.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return ssm.NewFromConfig(awsCfg), nil
}

// ResolveSecrets overwrites credentials with values from Parameter Store.
// Parameters that are missing or empty leave the current value in place.
func (c *Config) ResolveSecrets(ctx context.Context, client ParameterGetter) error {
	if c.Secrets.Provider != SecretsProviderSSM {
		return nil
	}

	targets := map[string]*string{
		"FMP_API_KEY":       &c.FMP.APIKey,
		"SMTP_PASSWORD":     &c.Email.Password,
		"DATABASE_PASSWORD": &c.Database.Password,
		"MONGO_URI":         &c.Mongo.URI,
		"REDIS_PASSWORD":    &c.Redis.Password,
	}

	for name, target := range targets {
		value, err := getParameterStoreValue(ctx, client, c.Secrets.Prefix+name, true)
		if err != nil {
			return err
		}
		if value != "" {
			*target = value
		}
	}
	return nil
}

func getParameterStoreValue(ctx context.Context, client ParameterGetter, name string, decrypt bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &decrypt,
	})
	var notFound *types.ParameterNotFound
	if errors.As(err, &notFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read parameter %s: %w", name, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", nil
	}
	return *result.Parameter.Value, nil
}
