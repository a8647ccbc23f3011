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

// CreateDevice implements gfx.Driver. The device has a single queue
// and dynamic rendering enabled.
func (d *Driver) CreateDevice(pd gfx.PhysicalDevice, info gfx.DeviceCreateInfo) (gfx.Device, error) {
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: info.QueueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	dynamicRendering := vk.PhysicalDeviceDynamicRenderingFeatures{
		SType:            vk.StructureTypePhysicalDeviceDynamicRenderingFeatures,
		DynamicRendering: vk.True,
	}
	dynamicRendering.PassRef()
	defer dynamicRendering.Free()

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   unsafe.Pointer(dynamicRendering.Ref()),
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(info.Extensions)),
		PpEnabledExtensionNames: safeStrings(info.Extensions),
		EnabledLayerCount:       uint32(len(info.Layers)),
		PpEnabledLayerNames:     safeStrings(info.Layers),
	}

	var device vk.Device
	if err := resultError("vk.CreateDevice()", vk.CreateDevice(d.physical.get(uint64(pd)), &dci, nil, &device)); err != nil {
		return 0, err
	}

	instance := d.instances.get(uint64(d.physicalInstance[pd]))
	rc, err := d.loadRendering(dispatchable(&instance), dispatchable(&device))
	if err != nil {
		vk.DestroyDevice(device, nil)
		return 0, err
	}

	h := gfx.Device(d.devices.add(device))
	d.rendering[h] = rc
	return h, nil
}

// DeviceQueue implements gfx.Driver.
func (d *Driver) DeviceQueue(dev gfx.Device, family uint32) gfx.Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(d.devices.get(uint64(dev)), family, 0, &queue)
	return gfx.Queue(d.queues.add(queue))
}

// DeviceWaitIdle implements gfx.Driver.
func (d *Driver) DeviceWaitIdle(dev gfx.Device) error {
	return resultError("vk.DeviceWaitIdle()", vk.DeviceWaitIdle(d.devices.get(uint64(dev))))
}

// DestroyDevice implements gfx.Driver.
func (d *Driver) DestroyDevice(dev gfx.Device) {
	delete(d.rendering, dev)
	if device, ok := d.devices.remove(uint64(dev)); ok {
		vk.DestroyDevice(device, nil)
	}
}

// CreateSwapchain implements gfx.Driver.
func (d *Driver) CreateSwapchain(dev gfx.Device, info gfx.SwapchainCreateInfo) (gfx.Swapchain, error) {
	sci := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         d.surfaces.get(uint64(info.Surface)),
		MinImageCount:   info.MinImageCount,
		ImageFormat:     vk.Format(info.Format.Format),
		ImageColorSpace: vk.ColorSpace(info.Format.ColorSpace),
		ImageExtent: vk.Extent2D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
		},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     vk.SurfaceTransformFlagBits(info.Transform),
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentMode(info.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	var swapchain vk.Swapchain
	if err := resultError("vk.CreateSwapchain()", vk.CreateSwapchain(d.devices.get(uint64(dev)), &sci, nil, &swapchain)); err != nil {
		return 0, err
	}
	return gfx.Swapchain(d.swapchains.add(swapchain)), nil
}

// SwapchainImages implements gfx.Driver. Images are owned by the
// swapchain and released with it.
func (d *Driver) SwapchainImages(dev gfx.Device, sc gfx.Swapchain) ([]gfx.Image, error) {
	if images, ok := d.swapchainImages[sc]; ok {
		return images, nil
	}

	device, swapchain := d.devices.get(uint64(dev)), d.swapchains.get(uint64(sc))

	var count uint32
	if err := resultError("vk.GetSwapchainImages()", vk.GetSwapchainImages(device, swapchain, &count, nil)); err != nil {
		return nil, err
	}
	images := make([]vk.Image, count)
	if err := resultError("vk.GetSwapchainImages()", vk.GetSwapchainImages(device, swapchain, &count, images)); err != nil {
		return nil, err
	}

	handles := make([]gfx.Image, count)
	for idx, image := range images[:count] {
		handles[idx] = gfx.Image(d.images.add(image))
	}
	d.swapchainImages[sc] = handles
	return handles, nil
}

// DestroySwapchain implements gfx.Driver.
func (d *Driver) DestroySwapchain(dev gfx.Device, sc gfx.Swapchain) {
	for _, image := range d.swapchainImages[sc] {
		d.images.remove(uint64(image))
	}
	delete(d.swapchainImages, sc)

	if swapchain, ok := d.swapchains.remove(uint64(sc)); ok {
		vk.DestroySwapchain(d.devices.get(uint64(dev)), swapchain, nil)
	}
}

// CreateImageView implements gfx.Driver.
func (d *Driver) CreateImageView(dev gfx.Device, image gfx.Image, format gfx.Format) (gfx.ImageView, error) {
	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    d.images.get(uint64(image)),
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: colorSubresource,
	}

	var view vk.ImageView
	if err := resultError("vk.CreateImageView()", vk.CreateImageView(d.devices.get(uint64(dev)), &ivci, nil, &view)); err != nil {
		return 0, err
	}
	return gfx.ImageView(d.views.add(view)), nil
}

// DestroyImageView implements gfx.Driver.
func (d *Driver) DestroyImageView(dev gfx.Device, v gfx.ImageView) {
	if view, ok := d.views.remove(uint64(v)); ok {
		vk.DestroyImageView(d.devices.get(uint64(dev)), view, nil)
	}
}

// colorSubresource is the single mip level and layer of a color image.
var colorSubresource = vk.ImageSubresourceRange{
	AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
	BaseMipLevel:   0,
	LevelCount:     1,
	BaseArrayLayer: 0,
	LayerCount:     1,
}
