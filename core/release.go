// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import "github.com/devblok/prism/gfx"

// releaseStep orders teardown. Steps are released in declaration order,
// entries within a step in the order they were pushed.
type releaseStep int

const (
	stepSemaphores releaseStep = iota
	stepFence
	stepPipeline
	stepPipelineLayout
	stepShaderModules
	stepCommandPool
	stepImageViews
	stepSwapchain
	stepDevice
	stepDebugMessenger
	stepSurface
	stepInstance

	numReleaseSteps
)

// releaseStack collects the destructors of created objects, so that
// a partially constructed context can be torn down the same way as a
// complete one.
type releaseStack struct {
	steps    [numReleaseSteps][]func()
	released bool
}

var _ gfx.Releasable = (*releaseStack)(nil)

func (r *releaseStack) push(step releaseStep, fn func()) {
	r.steps[step] = append(r.steps[step], fn)
}

func (r *releaseStack) has(step releaseStep) bool {
	return len(r.steps[step]) > 0
}

// Release runs every pushed destructor once.
func (r *releaseStack) Release() {
	if r.released {
		return
	}
	r.released = true
	for step := range r.steps {
		for _, fn := range r.steps[step] {
			fn()
		}
		r.steps[step] = nil
	}
}
