// Package lambda invokes the photo analysis and report functions, either
// fire-and-forget or synchronously for callers that need the result.
package lambda

import (
	"context"
	"encoding/json"
	"fmt"

	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// API is the subset of the Lambda client the invoker uses.
type API interface {
	Invoke(ctx context.Context, in *awslambda.InvokeInput, opts ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error)
}

// Invoker fires event-style invocations of a single function.
type Invoker struct {
	api      API
	function string
}

func NewInvoker(api API, function string) *Invoker {
	return &Invoker{api: api, function: function}
}

// InvokeAsync serializes the payload and invokes the function without
// waiting for it to run. A nil function name disables invocation upstream;
// here an empty name is an error.
func (i *Invoker) InvokeAsync(ctx context.Context, payload any) error {
	if i.function == "" {
		return fmt.Errorf("invoke: no function configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	_, err = i.api.Invoke(ctx, &awslambda.InvokeInput{
		FunctionName:   &i.function,
		InvocationType: types.InvocationTypeEvent,
		Payload:        body,
	})
	if err != nil {
		return fmt.Errorf("invoke %s: %w", i.function, err)
	}
	return nil
}

// InvokeSync serializes the payload, runs the function to completion, and
// returns its raw response payload. A function-side failure is an error even
// when the invocation itself succeeded.
func (i *Invoker) InvokeSync(ctx context.Context, payload any) ([]byte, error) {
	if i.function == "" {
		return nil, fmt.Errorf("invoke: no function configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	out, err := i.api.Invoke(ctx, &awslambda.InvokeInput{
		FunctionName: &i.function,
		Payload:      body,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", i.function, err)
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("invoke %s: function error %s", i.function, *out.FunctionError)
	}
	return out.Payload, nil
}
