// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrDestroyed is returned by Draw once the context is destroyed.
	ErrDestroyed = errors.New("render context destroyed")

	// ErrFrameAborted is returned by Draw after a frame failed in a way
	// that leaves the in-flight fence unsignaled.
	ErrFrameAborted = errors.New("previous frame aborted, context must be rebuilt")
)

// CapabilityError lists every required layer or extension
// that is not supported.
type CapabilityError struct {
	Kind    string
	Missing []string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("unsupported %s: %s", e.Kind, strings.Join(e.Missing, ", "))
}

// Rejection records why a physical device was not eligible.
type Rejection struct {
	Device string
	Reason string
}

// NoSuitableDeviceError is returned when no physical device is eligible.
type NoSuitableDeviceError struct {
	Rejections []Rejection
}

func (e *NoSuitableDeviceError) Error() string {
	if len(e.Rejections) == 0 {
		return "no suitable device: no physical devices found"
	}
	reasons := make([]string, len(e.Rejections))
	for i, r := range e.Rejections {
		reasons[i] = r.Device + ": " + r.Reason
	}
	return "no suitable device: " + strings.Join(reasons, "; ")
}

// SwapchainError is a swapchain creation, acquisition or presentation failure.
type SwapchainError struct {
	Op  string
	Err error
}

func (e *SwapchainError) Error() string {
	return "swapchain " + e.Op + ": " + e.Err.Error()
}

func (e *SwapchainError) Unwrap() error { return e.Err }

// PipelineError is a shader decoding or pipeline creation failure.
type PipelineError struct {
	Op  string
	Err error
}

func (e *PipelineError) Error() string {
	return "pipeline " + e.Op + ": " + e.Err.Error()
}

func (e *PipelineError) Unwrap() error { return e.Err }

// SynchronizationError is a failure to create, wait on or reset a
// synchronization primitive, or to record or submit the frame.
type SynchronizationError struct {
	Op  string
	Err error
}

func (e *SynchronizationError) Error() string {
	return "synchronization " + e.Op + ": " + e.Err.Error()
}

func (e *SynchronizationError) Unwrap() error { return e.Err }
