package dynamo

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrConditionFailed is returned when a guarded write's precondition no
// longer holds. Callers treat it as a lost compare-and-set race, not as a
// transient failure.
var ErrConditionFailed = errors.New("dynamo: conditional check failed")

// IsThroughputExceeded reports whether the error is a transient capacity
// rejection that is safe to retry.
func IsThroughputExceeded(err error) bool {
	var pte *types.ProvisionedThroughputExceededException
	return errors.As(err, &pte)
}

func isConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}
