package devops

import (
	"context"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

type parameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ParameterStore reads deployment settings from SSM. Values are fetched once
// per name and cached for the life of the process.
type ParameterStore struct {
	client parameterGetter

	mu    sync.Mutex
	cache map[string]string
}

func NewParameterStore(ctx context.Context) (*ParameterStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newParameterStore(ssm.NewFromConfig(cfg)), nil
}

func newParameterStore(client parameterGetter) *ParameterStore {
	return &ParameterStore{client: client, cache: map[string]string{}}
}

// Parameter returns the decrypted value of a parameter.
func (p *ParameterStore) Parameter(ctx context.Context, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := p.cache[name]; ok {
		return v, nil
	}

	out, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}

	p.cache[name] = *out.Parameter.Value
	return *out.Parameter.Value, nil
}

// YAMLParameter decodes a YAML document stored in a parameter into a map.
func (p *ParameterStore) YAMLParameter(ctx context.Context, name string) (map[string]any, error) {
	raw, err := p.Parameter(ctx, name)
	if err != nil {
		return nil, err
	}
	return DecodeYAML(raw)
}

func DecodeYAML(raw string) (map[string]any, error) {
	parsed := map[string]any{}
	if err := yaml.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	return parsed, nil
}
