// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

// Package saga implements the order/payment saga: the step state machine, the
// orchestrator that drives it, the correlation table that bridges asynchronous
// payment results back to waiting callers, and the timeout supervisor that
// guarantees every saga reaches a terminal step.
package saga

import "errors"

// Step represents the current position of a saga in its lifecycle.
type Step int

const (
	// StepStarted indicates the saga record exists but no work has been done.
	StepStarted Step = iota

	// StepOrderCreated indicates the order row has been persisted.
	StepOrderCreated

	// StepPaymentRequested indicates the payment request has been published
	// and the saga is waiting for the asynchronous payment result.
	StepPaymentRequested

	// StepCompleted indicates both the order and the payment succeeded.
	StepCompleted

	// StepCompensated indicates the saga was unwound and the order cancelled.
	StepCompensated

	// StepCompensationFailed indicates the compensation itself failed and
	// operator intervention is required.
	StepCompensationFailed
)

// String returns the persisted string form of the step.
func (s Step) String() string {
	switch s {
	case StepStarted:
		return "STARTED"
	case StepOrderCreated:
		return "ORDER_CREATED"
	case StepPaymentRequested:
		return "PAYMENT_REQUESTED"
	case StepCompleted:
		return "COMPLETED"
	case StepCompensated:
		return "COMPENSATED"
	case StepCompensationFailed:
		return "COMPENSATION_FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal returns true if no further transition can occur from the step.
func (s Step) IsTerminal() bool {
	return s == StepCompleted || s == StepCompensated || s == StepCompensationFailed
}

// ParseStep converts the persisted string form back into a Step.
func ParseStep(v string) (Step, error) {
	switch v {
	case "STARTED":
		return StepStarted, nil
	case "ORDER_CREATED":
		return StepOrderCreated, nil
	case "PAYMENT_REQUESTED":
		return StepPaymentRequested, nil
	case "COMPLETED":
		return StepCompleted, nil
	case "COMPENSATED":
		return StepCompensated, nil
	case "COMPENSATION_FAILED":
		return StepCompensationFailed, nil
	default:
		return StepStarted, ErrUnknownStep
	}
}

// Event is an occurrence that drives a saga from one step to the next.
type Event int

const (
	// EventOrderCreated fires once the order row is persisted.
	EventOrderCreated Event = iota

	// EventPaymentPublished fires once the payment request is on the bus.
	EventPaymentPublished

	// EventPaymentSucceeded fires on a successful payment result.
	EventPaymentSucceeded

	// EventPaymentFailed fires on a declined or errored payment result.
	EventPaymentFailed

	// EventCompensate fires when any in-progress saga must be unwound
	// (step failure, caller timeout, or supervisor sweep).
	EventCompensate

	// EventCompensationFailed fires when the compensation action itself
	// returned an error.
	EventCompensationFailed
)

// String returns a readable name for the event.
func (e Event) String() string {
	switch e {
	case EventOrderCreated:
		return "order_created"
	case EventPaymentPublished:
		return "payment_published"
	case EventPaymentSucceeded:
		return "payment_succeeded"
	case EventPaymentFailed:
		return "payment_failed"
	case EventCompensate:
		return "compensate"
	case EventCompensationFailed:
		return "compensation_failed"
	default:
		return "unknown"
	}
}

var (
	// ErrUnknownStep indicates a persisted step string that the state
	// machine does not recognize.
	ErrUnknownStep = errors.New("unknown saga step")

	// ErrInvalidTransition indicates the event is not legal for the
	// current step.
	ErrInvalidTransition = errors.New("invalid saga transition")
)

// transitions is the closed transition table for the saga. Adding a step or
// an event is a single localized change here.
var transitions = map[Step]map[Event]Step{
	StepStarted: {
		EventOrderCreated:       StepOrderCreated,
		EventCompensate:         StepCompensated,
		EventCompensationFailed: StepCompensationFailed,
	},
	StepOrderCreated: {
		EventPaymentPublished:   StepPaymentRequested,
		EventCompensate:         StepCompensated,
		EventCompensationFailed: StepCompensationFailed,
	},
	StepPaymentRequested: {
		EventPaymentSucceeded:   StepCompleted,
		EventPaymentFailed:      StepCompensated,
		EventCompensate:         StepCompensated,
		EventCompensationFailed: StepCompensationFailed,
	},
}

// Next computes the step that results from applying event to current.
// Terminal steps accept no events.
func Next(current Step, event Event) (Step, error) {
	row, ok := transitions[current]
	if !ok {
		return current, ErrInvalidTransition
	}
	next, ok := row[event]
	if !ok {
		return current, ErrInvalidTransition
	}
	return next, nil
}
