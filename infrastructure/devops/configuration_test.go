package devops

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	values map[string]string
	calls  int
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.calls++
	v, ok := f.values[*in.Name]
	if !ok {
		return nil, errors.New("ParameterNotFound")
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name, Value: aws.String(v)}}, nil
}

func TestYAMLParameter(t *testing.T) {
	client := &fakeSSM{values: map[string]string{
		"/punchsync/site-1": "store:\n  driver: mysql\n  dsn: user:pw@tcp(db:3306)/punch\nauth:\n  secret: s3cret\n",
	}}
	p := newParameterStore(client)

	got, err := p.YAMLParameter(context.Background(), "/punchsync/site-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"driver": "mysql", "dsn": "user:pw@tcp(db:3306)/punch"}, got["store"])

	_, err = p.Parameter(context.Background(), "/punchsync/site-1")
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)

	_, err = p.Parameter(context.Background(), "/punchsync/missing")
	assert.ErrorContains(t, err, "/punchsync/missing")
}

func TestDecodeYAMLInvalid(t *testing.T) {
	_, err := DecodeYAML("store: [unterminated")
	assert.Error(t, err)
}
