package pipeline

import (
	"errors"
	"fmt"

	"github.com/named-data/ndnc/std/ndn"
)

// errShutdown is the failure cause attached to every sentinel Delivery
// produced because the pipeline was torn down with requests still
// in flight or not yet expressed.
var errShutdown = errors.New("pipeline: shut down before reply arrived")

// errTimeoutExhausted is the failure cause attached to a sentinel
// Delivery produced after MaxRetry attempts all timed out.
var errTimeoutExhausted = errors.New("pipeline: interest timed out after max retries")

// nackError wraps a permanent (non-retryable) Nack reason.
type nackError struct {
	reason ndn.NackReason
}

func (e *nackError) Error() string {
	return fmt.Sprintf("pipeline: interest nacked (%s)", e.reason)
}

func errNack(reason ndn.NackReason) error {
	return &nackError{reason: reason}
}
