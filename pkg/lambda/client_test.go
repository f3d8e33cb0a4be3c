package lambda

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLambdaAPI struct {
	inputs  []*awslambda.InvokeInput
	payload []byte
	fnErr   *string
	err     error
}

func (s *stubLambdaAPI) Invoke(ctx context.Context, in *awslambda.InvokeInput, _ ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.inputs = append(s.inputs, in)
	return &awslambda.InvokeOutput{Payload: s.payload, FunctionError: s.fnErr}, nil
}

func TestInvokeAsync(t *testing.T) {
	t.Parallel()

	api := &stubLambdaAPI{}
	invoker := NewInvoker(api, "photo-analyzer")

	payload := map[string]string{"photoId": "p1", "s3Key": "properties/prop-1/p1-a.jpg"}
	require.NoError(t, invoker.InvokeAsync(context.Background(), payload))
	require.Len(t, api.inputs, 1)

	in := api.inputs[0]
	assert.Equal(t, "photo-analyzer", *in.FunctionName)
	assert.Equal(t, types.InvocationTypeEvent, in.InvocationType)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(in.Payload, &decoded))
	assert.Equal(t, payload, decoded)
}

func TestInvokeAsyncErrors(t *testing.T) {
	t.Parallel()

	api := &stubLambdaAPI{err: errors.New("function missing")}
	invoker := NewInvoker(api, "photo-analyzer")
	assert.Error(t, invoker.InvokeAsync(context.Background(), map[string]string{"a": "b"}))

	unconfigured := NewInvoker(api, "")
	assert.Error(t, unconfigured.InvokeAsync(context.Background(), map[string]string{"a": "b"}))
}

func TestInvokeSync(t *testing.T) {
	t.Parallel()

	api := &stubLambdaAPI{payload: []byte(`{"statusCode":200}`)}
	invoker := NewInvoker(api, "report-generator")

	out, err := invoker.InvokeSync(context.Background(), map[string]string{"propertyId": "prop-1"})
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"statusCode":200}`), out)

	require.Len(t, api.inputs, 1)
	in := api.inputs[0]
	assert.Equal(t, "report-generator", *in.FunctionName)
	// Request/response is the default invocation type; Event must not be set.
	assert.Empty(t, in.InvocationType)
}

func TestInvokeSyncFunctionError(t *testing.T) {
	t.Parallel()

	fnErr := "Unhandled"
	api := &stubLambdaAPI{payload: []byte(`{"errorMessage":"boom"}`), fnErr: &fnErr}
	invoker := NewInvoker(api, "report-generator")

	_, err := invoker.InvokeSync(context.Background(), map[string]string{"propertyId": "prop-1"})
	assert.Error(t, err)
}
