// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/devblok/prism/gfx"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// InstanceExtensions implements gfx.Driver.
func (d *Driver) InstanceExtensions() ([]string, error) {
	var count uint32
	if err := resultError("vk.EnumerateInstanceExtensionProperties()", vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := resultError("vk.EnumerateInstanceExtensionProperties()", vk.EnumerateInstanceExtensionProperties("", &count, props)); err != nil {
		return nil, err
	}
	return extensionNames(props[:count]), nil
}

// InstanceLayers implements gfx.Driver.
func (d *Driver) InstanceLayers() ([]string, error) {
	var count uint32
	if err := resultError("vk.EnumerateInstanceLayerProperties()", vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.LayerProperties, count)
	if err := resultError("vk.EnumerateInstanceLayerProperties()", vk.EnumerateInstanceLayerProperties(&count, props)); err != nil {
		return nil, err
	}
	return layerNames(props[:count]), nil
}

func extensionNames(props []vk.ExtensionProperties) []string {
	names := make([]string, len(props))
	for i := range props {
		props[i].Deref()
		names[i] = vk.ToString(props[i].ExtensionName[:])
	}
	return names
}

func layerNames(props []vk.LayerProperties) []string {
	names := make([]string, len(props))
	for i := range props {
		props[i].Deref()
		names[i] = vk.ToString(props[i].LayerName[:])
	}
	return names
}

// CreateInstance implements gfx.Driver.
func (d *Driver) CreateInstance(info gfx.InstanceCreateInfo) (gfx.Instance, error) {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         APIVersion,
		ApplicationVersion: info.Application.Version,
		EngineVersion:      info.Application.Version,
		PApplicationName:   safeString(info.Application.Name),
		PEngineName:        safeString(info.Application.EngineName),
	}

	ici := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(info.Extensions)),
		PpEnabledExtensionNames: safeStrings(info.Extensions),
		EnabledLayerCount:       uint32(len(info.Layers)),
		PpEnabledLayerNames:     safeStrings(info.Layers),
	}

	var instance vk.Instance
	if err := resultError("vk.CreateInstance()", vk.CreateInstance(&ici, nil, &instance)); err != nil {
		return 0, err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return 0, errors.Wrap(err, "vk.InitInstance()")
	}
	return gfx.Instance(d.instances.add(instance)), nil
}

// DestroyInstance implements gfx.Driver.
func (d *Driver) DestroyInstance(i gfx.Instance) {
	if instance, ok := d.instances.remove(uint64(i)); ok {
		vk.DestroyInstance(instance, nil)
	}
}

// CreateDebugMessenger implements gfx.Driver. Validation messages are
// forwarded to the driver's logger.
func (d *Driver) CreateDebugMessenger(i gfx.Instance) (gfx.DebugMessenger, error) {
	dci := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(
			vk.DebugReportErrorBit |
				vk.DebugReportWarningBit |
				vk.DebugReportPerformanceWarningBit),
		PfnCallback: d.debugReport,
	}

	var callback vk.DebugReportCallback
	if err := resultError("vk.CreateDebugReportCallback()", vk.CreateDebugReportCallback(d.instances.get(uint64(i)), &dci, nil, &callback)); err != nil {
		return 0, err
	}
	return gfx.DebugMessenger(d.messengers.add(callback)), nil
}

func (d *Driver) debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint64, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	entry := d.log.WithFields(logrus.Fields{
		"layer": pLayerPrefix,
		"code":  messageCode,
	})
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		entry.Error(pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		entry.Warn(pMessage)
	default:
		entry.Debug(pMessage)
	}
	return vk.Bool32(vk.False)
}

// DestroyDebugMessenger implements gfx.Driver.
func (d *Driver) DestroyDebugMessenger(i gfx.Instance, m gfx.DebugMessenger) {
	if callback, ok := d.messengers.remove(uint64(m)); ok {
		vk.DestroyDebugReportCallback(d.instances.get(uint64(i)), callback, nil)
	}
}

// CreateSurface implements gfx.Driver.
func (d *Driver) CreateSurface(i gfx.Instance, w gfx.Window) (gfx.Surface, error) {
	ptr, err := w.VulkanCreateSurface(d.instances.get(uint64(i)))
	if err != nil {
		return 0, errors.Wrap(err, "window.VulkanCreateSurface()")
	}
	return gfx.Surface(d.surfaces.add(vk.SurfaceFromPointer(uintptr(ptr)))), nil
}

// DestroySurface implements gfx.Driver.
func (d *Driver) DestroySurface(i gfx.Instance, s gfx.Surface) {
	if surface, ok := d.surfaces.remove(uint64(s)); ok {
		vk.DestroySurface(d.instances.get(uint64(i)), surface, nil)
	}
}

// PhysicalDevices implements gfx.Driver. Physical devices are owned by
// the instance, the same device always gets the same handle.
func (d *Driver) PhysicalDevices(i gfx.Instance) ([]gfx.PhysicalDevice, error) {
	instance := d.instances.get(uint64(i))

	var count uint32
	if err := resultError("vk.EnumeratePhysicalDevices()", vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return nil, err
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := resultError("vk.EnumeratePhysicalDevices()", vk.EnumeratePhysicalDevices(instance, &count, devices)); err != nil {
		return nil, err
	}

	handles := make([]gfx.PhysicalDevice, 0, count)
	for _, pd := range devices[:count] {
		h := gfx.PhysicalDevice(d.physicalHandle(pd))
		d.physicalInstance[h] = i
		handles = append(handles, h)
	}
	return handles, nil
}

func (d *Driver) physicalHandle(pd vk.PhysicalDevice) uint64 {
	for h, known := range d.physical.items {
		if known == pd {
			return h
		}
	}
	return d.physical.add(pd)
}

// DeviceProperties implements gfx.Driver. MemorySize is the total of
// the device local heaps.
func (d *Driver) DeviceProperties(pd gfx.PhysicalDevice) gfx.DeviceProperties {
	device := d.physical.get(uint64(pd))

	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &props)
	props.Deref()

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(device, &memory)
	memory.Deref()

	var size uint64
	for idx := uint32(0); idx < memory.MemoryHeapCount; idx++ {
		heap := memory.MemoryHeaps[idx]
		heap.Deref()
		if heap.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			size += uint64(heap.Size)
		}
	}

	return gfx.DeviceProperties{
		Name:          vk.ToString(props.DeviceName[:]),
		Type:          gfx.DeviceType(props.DeviceType),
		VendorID:      props.VendorID,
		DeviceID:      props.DeviceID,
		DriverVersion: props.DriverVersion,
		APIVersion:    props.ApiVersion,
		MemorySize:    size,
	}
}

// QueueFamilies implements gfx.Driver.
func (d *Driver) QueueFamilies(pd gfx.PhysicalDevice) []gfx.QueueFamily {
	device := d.physical.get(uint64(pd))

	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &count, props)

	families := make([]gfx.QueueFamily, count)
	for idx := range families {
		props[idx].Deref()
		families[idx] = gfx.QueueFamily{
			Flags: gfx.QueueFlags(props[idx].QueueFlags),
			Count: props[idx].QueueCount,
		}
	}
	return families
}

// SurfaceSupport implements gfx.Driver.
func (d *Driver) SurfaceSupport(pd gfx.PhysicalDevice, family uint32, s gfx.Surface) (bool, error) {
	var supported vk.Bool32
	res := vk.GetPhysicalDeviceSurfaceSupport(d.physical.get(uint64(pd)), family, d.surfaces.get(uint64(s)), &supported)
	if err := resultError("vk.GetPhysicalDeviceSurfaceSupport()", res); err != nil {
		return false, err
	}
	return supported.B(), nil
}

// DeviceExtensions implements gfx.Driver.
func (d *Driver) DeviceExtensions(pd gfx.PhysicalDevice) ([]string, error) {
	device := d.physical.get(uint64(pd))

	var count uint32
	if err := resultError("vk.EnumerateDeviceExtensionProperties()", vk.EnumerateDeviceExtensionProperties(device, "", &count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := resultError("vk.EnumerateDeviceExtensionProperties()", vk.EnumerateDeviceExtensionProperties(device, "", &count, props)); err != nil {
		return nil, err
	}
	return extensionNames(props[:count]), nil
}

// DeviceLayers implements gfx.Driver.
func (d *Driver) DeviceLayers(pd gfx.PhysicalDevice) ([]string, error) {
	device := d.physical.get(uint64(pd))

	var count uint32
	if err := resultError("vk.EnumerateDeviceLayerProperties()", vk.EnumerateDeviceLayerProperties(device, &count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.LayerProperties, count)
	if err := resultError("vk.EnumerateDeviceLayerProperties()", vk.EnumerateDeviceLayerProperties(device, &count, props)); err != nil {
		return nil, err
	}
	return layerNames(props[:count]), nil
}

// SurfaceFormats implements gfx.Driver.
func (d *Driver) SurfaceFormats(pd gfx.PhysicalDevice, s gfx.Surface) ([]gfx.SurfaceFormat, error) {
	device, surface := d.physical.get(uint64(pd)), d.surfaces.get(uint64(s))

	var count uint32
	if err := resultError("vk.GetPhysicalDeviceSurfaceFormats()", vk.GetPhysicalDeviceSurfaceFormats(device, surface, &count, nil)); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := resultError("vk.GetPhysicalDeviceSurfaceFormats()", vk.GetPhysicalDeviceSurfaceFormats(device, surface, &count, formats)); err != nil {
		return nil, err
	}

	out := make([]gfx.SurfaceFormat, count)
	for idx := range out {
		formats[idx].Deref()
		out[idx] = gfx.SurfaceFormat{
			Format:     gfx.Format(formats[idx].Format),
			ColorSpace: gfx.ColorSpace(formats[idx].ColorSpace),
		}
	}
	return out, nil
}

// PresentModes implements gfx.Driver.
func (d *Driver) PresentModes(pd gfx.PhysicalDevice, s gfx.Surface) ([]gfx.PresentMode, error) {
	device, surface := d.physical.get(uint64(pd)), d.surfaces.get(uint64(s))

	var count uint32
	if err := resultError("vk.GetPhysicalDeviceSurfacePresentModes()", vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &count, nil)); err != nil {
		return nil, err
	}
	modes := make([]vk.PresentMode, count)
	if err := resultError("vk.GetPhysicalDeviceSurfacePresentModes()", vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &count, modes)); err != nil {
		return nil, err
	}

	out := make([]gfx.PresentMode, count)
	for idx, mode := range modes[:count] {
		out[idx] = gfx.PresentMode(mode)
	}
	return out, nil
}

// SurfaceCapabilities implements gfx.Driver.
func (d *Driver) SurfaceCapabilities(pd gfx.PhysicalDevice, s gfx.Surface) (gfx.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(d.physical.get(uint64(pd)), d.surfaces.get(uint64(s)), &caps)
	if err := resultError("vk.GetPhysicalDeviceSurfaceCapabilities()", res); err != nil {
		return gfx.SurfaceCapabilities{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()

	return gfx.SurfaceCapabilities{
		MinImageCount: caps.MinImageCount,
		MaxImageCount: caps.MaxImageCount,
		CurrentExtent: gfx.Extent2D{
			Width:  caps.CurrentExtent.Width,
			Height: caps.CurrentExtent.Height,
		},
		CurrentTransform: uint32(caps.CurrentTransform),
	}, nil
}
