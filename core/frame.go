// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/prism/gfx"
	"github.com/pkg/errors"
)

// State is the phase of the frame cycle.
type State int

// Frame cycle states. A Draw call moves through all of them
// and always returns to StateIdle.
const (
	StateIdle State = iota
	StateAcquiring
	StateRecording
	StateSubmitted
	StatePresenting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAcquiring:
		return "Acquiring"
	case StateRecording:
		return "Recording"
	case StateSubmitted:
		return "Submitted"
	case StatePresenting:
		return "Presenting"
	}
	return "Unknown"
}

// SyncSet holds the only frame in flight's synchronization primitives.
type SyncSet struct {
	// Acquire is signaled when the acquired image may be rendered to
	Acquire gfx.Semaphore
	// Present is signaled when rendering finished and the image may be presented
	Present gfx.Semaphore
	// InFlight is signaled when the submitted work completed
	InFlight gfx.Fence
}

// CommandResources is the command pool and its single buffer, which is
// reset together with the pool every frame.
type CommandResources struct {
	Pool   gfx.CommandPool
	Buffer gfx.CommandBuffer
}

func newCommandResources(d gfx.Driver, dev gfx.Device, family uint32, rs *releaseStack) (CommandResources, error) {
	var cr CommandResources

	pool, err := d.CreateCommandPool(dev, family)
	if err != nil {
		return cr, &SynchronizationError{Op: "create command pool", Err: err}
	}
	cr.Pool = pool
	rs.push(stepCommandPool, func() { d.DestroyCommandPool(dev, pool) })

	if cr.Buffer, err = d.AllocateCommandBuffer(dev, pool); err != nil {
		return cr, &SynchronizationError{Op: "allocate command buffer", Err: err}
	}
	return cr, nil
}

// newSyncSet creates both semaphores and the fence. The fence starts
// signaled so the first frame does not wait.
func newSyncSet(d gfx.Driver, dev gfx.Device, rs *releaseStack) (SyncSet, error) {
	var ss SyncSet

	for _, sem := range []*gfx.Semaphore{&ss.Acquire, &ss.Present} {
		s, err := d.CreateSemaphore(dev)
		if err != nil {
			return ss, &SynchronizationError{Op: "create semaphore", Err: err}
		}
		*sem = s
		rs.push(stepSemaphores, func() { d.DestroySemaphore(dev, s) })
	}

	fence, err := d.CreateFence(dev, true)
	if err != nil {
		return ss, &SynchronizationError{Op: "create fence", Err: err}
	}
	ss.InFlight = fence
	rs.push(stepFence, func() { d.DestroyFence(dev, fence) })

	return ss, nil
}

// Draw renders and presents one frame. Errors are returned as they
// are, the context makes no attempt at recovery.
func (c *Context) Draw() error {
	if c.destroyed {
		return ErrDestroyed
	}
	if c.aborted {
		return ErrFrameAborted
	}

	err := c.frame()
	c.state = StateIdle
	if err != nil {
		c.log.WithError(err).WithField("frame", c.frames).Debug("frame failed")
		return err
	}
	c.frames++
	return nil
}

func (c *Context) frame() error {
	d, dev := c.driver, c.device
	timeout := c.cfg.timeout()

	c.state = StateAcquiring
	if err := d.WaitForFence(dev, c.sync.InFlight, timeout); err != nil {
		return &SynchronizationError{Op: "wait for fence", Err: err}
	}

	// Until the submission is accepted nothing will signal the fence again.
	submitted := false
	defer func() {
		if !submitted {
			c.aborted = true
		}
	}()

	if err := d.ResetFence(dev, c.sync.InFlight); err != nil {
		return &SynchronizationError{Op: "reset fence", Err: err}
	}
	if err := d.ResetCommandPool(dev, c.commands.Pool); err != nil {
		return &SynchronizationError{Op: "reset command pool", Err: err}
	}

	index, err := d.AcquireNextImage(dev, c.swapchain.Handle, timeout, c.sync.Acquire)
	if err != nil {
		return &SwapchainError{Op: "acquire", Err: err}
	}
	if int(index) >= len(c.swapchain.Images) {
		return &SwapchainError{Op: "acquire", Err: errors.Errorf("image index %d out of range", index)}
	}

	c.state = StateRecording
	if err := c.record(index); err != nil {
		return &SynchronizationError{Op: "record", Err: err}
	}

	if err := d.QueueSubmit(c.queue, gfx.SubmitInfo{
		CommandBuffer: c.commands.Buffer,
		Wait:          c.sync.Acquire,
		WaitStage:     gfx.StageColorAttachmentOutput,
		Signal:        c.sync.Present,
		Fence:         c.sync.InFlight,
	}); err != nil {
		return &SynchronizationError{Op: "submit", Err: err}
	}
	submitted = true
	c.state = StateSubmitted

	c.state = StatePresenting
	if err := d.QueuePresent(c.queue, gfx.PresentInfo{
		Wait:       c.sync.Present,
		Swapchain:  c.swapchain.Handle,
		ImageIndex: index,
	}); err != nil {
		return &SwapchainError{Op: "present", Err: err}
	}
	return nil
}

// record fills the command buffer for the swapchain image at index.
func (c *Context) record(index uint32) error {
	d, cb := c.driver, c.commands.Buffer
	image := c.swapchain.Images[index]

	if err := d.BeginCommandBuffer(cb); err != nil {
		return errors.Wrap(err, "begin command buffer")
	}

	d.CmdImageBarrier(cb, gfx.ImageBarrier{
		Image:     image,
		OldLayout: gfx.ImageLayoutUndefined,
		NewLayout: gfx.ImageLayoutColorAttachmentOptimal,
		SrcStage:  gfx.StageTopOfPipe,
		DstStage:  gfx.StageColorAttachmentOutput,
		SrcAccess: gfx.AccessNone,
		DstAccess: gfx.AccessColorAttachmentWrite,
	})

	d.CmdBeginRendering(cb, gfx.RenderingInfo{
		View:       c.swapchain.Views[index],
		Extent:     c.swapchain.Extent,
		ClearColor: c.cfg.clearColor(),
	})
	d.CmdBindPipeline(cb, c.pipeline.Pipeline)
	d.CmdDraw(cb, 3, 1, 0, 0)
	d.CmdEndRendering(cb)

	d.CmdImageBarrier(cb, gfx.ImageBarrier{
		Image:     image,
		OldLayout: gfx.ImageLayoutColorAttachmentOptimal,
		NewLayout: gfx.ImageLayoutPresentSrc,
		SrcStage:  gfx.StageColorAttachmentOutput,
		DstStage:  gfx.StageBottomOfPipe,
		SrcAccess: gfx.AccessColorAttachmentWrite,
		DstAccess: gfx.AccessNone,
	})

	if err := d.EndCommandBuffer(cb); err != nil {
		return errors.Wrap(err, "end command buffer")
	}
	return nil
}
