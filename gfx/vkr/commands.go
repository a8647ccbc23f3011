// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/devblok/prism/gfx"
	vk "github.com/goki/vulkan"
)

// CreateCommandPool implements gfx.Driver. Buffers of the pool are only
// ever reset all at once through ResetCommandPool.
func (d *Driver) CreateCommandPool(dev gfx.Device, family uint32) (gfx.CommandPool, error) {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
	}

	var pool vk.CommandPool
	if err := resultError("vk.CreateCommandPool()", vk.CreateCommandPool(d.devices.get(uint64(dev)), &cpci, nil, &pool)); err != nil {
		return 0, err
	}
	return gfx.CommandPool(d.pools.add(pool)), nil
}

// ResetCommandPool implements gfx.Driver.
func (d *Driver) ResetCommandPool(dev gfx.Device, p gfx.CommandPool) error {
	return resultError("vk.ResetCommandPool()", vk.ResetCommandPool(d.devices.get(uint64(dev)), d.pools.get(uint64(p)), 0))
}

// AllocateCommandBuffer implements gfx.Driver.
func (d *Driver) AllocateCommandBuffer(dev gfx.Device, p gfx.CommandPool) (gfx.CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pools.get(uint64(p)),
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}

	buffers := make([]vk.CommandBuffer, 1)
	if err := resultError("vk.AllocateCommandBuffers()", vk.AllocateCommandBuffers(d.devices.get(uint64(dev)), &cbai, buffers)); err != nil {
		return 0, err
	}
	cb := gfx.CommandBuffer(d.buffers.add(buffers[0]))
	d.poolBuffers[p] = append(d.poolBuffers[p], cb)
	d.bufferDevice[cb] = dev
	return cb, nil
}

// DestroyCommandPool implements gfx.Driver. Buffers allocated from the
// pool are freed with it.
func (d *Driver) DestroyCommandPool(dev gfx.Device, p gfx.CommandPool) {
	for _, cb := range d.poolBuffers[p] {
		d.buffers.remove(uint64(cb))
		delete(d.bufferDevice, cb)
	}
	delete(d.poolBuffers, p)

	if pool, ok := d.pools.remove(uint64(p)); ok {
		vk.DestroyCommandPool(d.devices.get(uint64(dev)), pool, nil)
	}
}

// CreateSemaphore implements gfx.Driver.
func (d *Driver) CreateSemaphore(dev gfx.Device) (gfx.Semaphore, error) {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	var semaphore vk.Semaphore
	if err := resultError("vk.CreateSemaphore()", vk.CreateSemaphore(d.devices.get(uint64(dev)), &sci, nil, &semaphore)); err != nil {
		return 0, err
	}
	return gfx.Semaphore(d.semaphores.add(semaphore)), nil
}

// DestroySemaphore implements gfx.Driver.
func (d *Driver) DestroySemaphore(dev gfx.Device, s gfx.Semaphore) {
	if semaphore, ok := d.semaphores.remove(uint64(s)); ok {
		vk.DestroySemaphore(d.devices.get(uint64(dev)), semaphore, nil)
	}
}

// CreateFence implements gfx.Driver.
func (d *Driver) CreateFence(dev gfx.Device, signaled bool) (gfx.Fence, error) {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fci.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	if err := resultError("vk.CreateFence()", vk.CreateFence(d.devices.get(uint64(dev)), &fci, nil, &fence)); err != nil {
		return 0, err
	}
	return gfx.Fence(d.fences.add(fence)), nil
}

// WaitForFence implements gfx.Driver.
func (d *Driver) WaitForFence(dev gfx.Device, f gfx.Fence, timeout uint64) error {
	fences := []vk.Fence{d.fences.get(uint64(f))}
	return resultError("vk.WaitForFences()", vk.WaitForFences(d.devices.get(uint64(dev)), 1, fences, vk.True, timeout))
}

// ResetFence implements gfx.Driver.
func (d *Driver) ResetFence(dev gfx.Device, f gfx.Fence) error {
	fences := []vk.Fence{d.fences.get(uint64(f))}
	return resultError("vk.ResetFences()", vk.ResetFences(d.devices.get(uint64(dev)), 1, fences))
}

// DestroyFence implements gfx.Driver.
func (d *Driver) DestroyFence(dev gfx.Device, f gfx.Fence) {
	if fence, ok := d.fences.remove(uint64(f)); ok {
		vk.DestroyFence(d.devices.get(uint64(dev)), fence, nil)
	}
}

// AcquireNextImage implements gfx.Driver. A suboptimal swapchain still
// delivers an image and is not reported.
func (d *Driver) AcquireNextImage(dev gfx.Device, sc gfx.Swapchain, timeout uint64, signal gfx.Semaphore) (uint32, error) {
	var index uint32
	res := vk.AcquireNextImage(d.devices.get(uint64(dev)), d.swapchains.get(uint64(sc)), timeout,
		d.semaphores.get(uint64(signal)), vk.NullFence, &index)
	if err := resultError("vk.AcquireNextImage()", res); err != nil {
		return 0, err
	}
	return index, nil
}

// BeginCommandBuffer implements gfx.Driver. Recordings are submitted once.
func (d *Driver) BeginCommandBuffer(cb gfx.CommandBuffer) error {
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	return resultError("vk.BeginCommandBuffer()", vk.BeginCommandBuffer(d.buffers.get(uint64(cb)), &cbbi))
}

// CmdImageBarrier implements gfx.Driver.
func (d *Driver) CmdImageBarrier(cb gfx.CommandBuffer, b gfx.ImageBarrier) {
	barriers := []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(b.SrcAccess),
		DstAccessMask:       vk.AccessFlags(b.DstAccess),
		OldLayout:           vk.ImageLayout(b.OldLayout),
		NewLayout:           vk.ImageLayout(b.NewLayout),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               d.images.get(uint64(b.Image)),
		SubresourceRange:    colorSubresource,
	}}
	vk.CmdPipelineBarrier(d.buffers.get(uint64(cb)),
		vk.PipelineStageFlags(b.SrcStage), vk.PipelineStageFlags(b.DstStage), 0,
		0, nil, 0, nil, uint32(len(barriers)), barriers)
}

// CmdBeginRendering implements gfx.Driver.
func (d *Driver) CmdBeginRendering(cb gfx.CommandBuffer, info gfx.RenderingInfo) {
	extent := vk.Extent2D{Width: info.Extent.Width, Height: info.Extent.Height}
	attachments := []vk.RenderingAttachmentInfo{{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   d.views.get(uint64(info.View)),
		ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
		LoadOp:      vk.AttachmentLoadOpClear,
		StoreOp:     vk.AttachmentStoreOpStore,
		ClearValue:  vk.NewClearValue(info.ClearColor[:]),
	}}
	ri := vk.RenderingInfo{
		SType:                vk.StructureTypeRenderingInfo,
		RenderArea:           vk.Rect2D{Extent: extent},
		LayerCount:           1,
		ColorAttachmentCount: uint32(len(attachments)),
		PColorAttachments:    attachments,
	}
	ref, _ := ri.PassRef()
	defer ri.Free()

	buffer := d.buffers.get(uint64(cb))
	cmdBeginRendering(d.renderingOf(cb).begin, dispatchable(&buffer), unsafe.Pointer(ref))
}

// CmdBindPipeline implements gfx.Driver.
func (d *Driver) CmdBindPipeline(cb gfx.CommandBuffer, p gfx.Pipeline) {
	vk.CmdBindPipeline(d.buffers.get(uint64(cb)), vk.PipelineBindPointGraphics, d.pipelines.get(uint64(p)))
}

// CmdDraw implements gfx.Driver.
func (d *Driver) CmdDraw(cb gfx.CommandBuffer, vertices, instances, firstVertex, firstInstance uint32) {
	vk.CmdDraw(d.buffers.get(uint64(cb)), vertices, instances, firstVertex, firstInstance)
}

// CmdEndRendering implements gfx.Driver.
func (d *Driver) CmdEndRendering(cb gfx.CommandBuffer) {
	buffer := d.buffers.get(uint64(cb))
	cmdEndRendering(d.renderingOf(cb).end, dispatchable(&buffer))
}

func (d *Driver) renderingOf(cb gfx.CommandBuffer) renderingCommands {
	return d.rendering[d.bufferDevice[cb]]
}

// EndCommandBuffer implements gfx.Driver.
func (d *Driver) EndCommandBuffer(cb gfx.CommandBuffer) error {
	return resultError("vk.EndCommandBuffer()", vk.EndCommandBuffer(d.buffers.get(uint64(cb))))
}

// QueueSubmit implements gfx.Driver.
func (d *Driver) QueueSubmit(q gfx.Queue, info gfx.SubmitInfo) error {
	submit := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{d.semaphores.get(uint64(info.Wait))},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(info.WaitStage)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{d.buffers.get(uint64(info.CommandBuffer))},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{d.semaphores.get(uint64(info.Signal))},
	}}
	res := vk.QueueSubmit(d.queues.get(uint64(q)), uint32(len(submit)), submit, d.fences.get(uint64(info.Fence)))
	return resultError("vk.QueueSubmit()", res)
}

// QueuePresent implements gfx.Driver.
func (d *Driver) QueuePresent(q gfx.Queue, info gfx.PresentInfo) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{d.semaphores.get(uint64(info.Wait))},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{d.swapchains.get(uint64(info.Swapchain))},
		PImageIndices:      []uint32{info.ImageIndex},
	}
	return resultError("vk.QueuePresent()", vk.QueuePresent(d.queues.get(uint64(q)), &presentInfo))
}
