// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/prism/gfx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Selection is the outcome of device negotiation. It is fixed
// for the lifetime of a context.
type Selection struct {
	PhysicalDevice gfx.PhysicalDevice
	Properties     gfx.DeviceProperties
	QueueFamily    uint32
	SurfaceFormat  gfx.SurfaceFormat
	PresentMode    gfx.PresentMode
	Capabilities   gfx.SurfaceCapabilities

	// Extensions and Layers to enable on the logical device
	Extensions []string
	Layers     []string
}

// DeviceRequirements is what a physical device must provide.
type DeviceRequirements struct {
	Extensions  []string
	Layers      []string
	PresentMode gfx.PresentMode
}

// evaluateDevice checks a single physical device against the requirements.
// The returned error is the reason the device is not eligible.
func evaluateDevice(d gfx.Driver, pd gfx.PhysicalDevice, surface gfx.Surface, req DeviceRequirements) (Selection, error) {
	sel := Selection{
		PhysicalDevice: pd,
		Properties:     d.DeviceProperties(pd),
		PresentMode:    req.PresentMode,
		Extensions:     req.Extensions,
		Layers:         req.Layers,
	}

	/* Queue family */
	family, found := uint32(0), false
	for idx, qf := range d.QueueFamilies(pd) {
		if !qf.Flags.Has(RequiredQueueFlags) {
			continue
		}
		supported, err := d.SurfaceSupport(pd, uint32(idx), surface)
		if err != nil {
			return sel, errors.Wrap(err, "surface support")
		}
		if supported {
			family, found = uint32(idx), true
			break
		}
	}
	if !found {
		return sel, errors.New("no queue family with graphics, transfer, compute and present support")
	}
	sel.QueueFamily = family

	/* Layers and extensions */
	if len(req.Layers) > 0 {
		layers, err := d.DeviceLayers(pd)
		if err != nil {
			return sel, errors.Wrap(err, "device layers")
		}
		if err := CheckSupport("device layers", req.Layers, layers); err != nil {
			return sel, err
		}
	}

	extensions, err := d.DeviceExtensions(pd)
	if err != nil {
		return sel, errors.Wrap(err, "device extensions")
	}
	if err := CheckSupport("device extensions", req.Extensions, extensions); err != nil {
		return sel, err
	}

	/* Present mode */
	modes, err := d.PresentModes(pd, surface)
	if err != nil {
		return sel, errors.Wrap(err, "present modes")
	}
	if !hasPresentMode(modes, req.PresentMode) {
		return sel, errors.Errorf("present mode %s not supported", req.PresentMode)
	}

	/* Surface format */
	formats, err := d.SurfaceFormats(pd, surface)
	if err != nil {
		return sel, errors.Wrap(err, "surface formats")
	}
	format, ok := ChooseSurfaceFormat(formats)
	if !ok {
		return sel, errors.New("surface reports no formats")
	}
	sel.SurfaceFormat = format

	caps, err := d.SurfaceCapabilities(pd, surface)
	if err != nil {
		return sel, errors.Wrap(err, "surface capabilities")
	}
	sel.Capabilities = caps

	return sel, nil
}

// SelectDevice evaluates every physical device in enumeration order and
// picks the best scoring eligible one. Ties go to the earlier device.
func SelectDevice(d gfx.Driver, instance gfx.Instance, surface gfx.Surface, req DeviceRequirements, log logrus.FieldLogger) (Selection, error) {
	devices, err := d.PhysicalDevices(instance)
	if err != nil {
		return Selection{}, errors.Wrap(err, "enumerate physical devices")
	}

	var (
		best       Selection
		bestScore  = -1
		rejections []Rejection
	)
	for _, pd := range devices {
		sel, err := evaluateDevice(d, pd, surface, req)
		if err != nil {
			log.WithFields(logrus.Fields{
				"device": sel.Properties.Name,
				"reason": err.Error(),
			}).Debug("device rejected")
			rejections = append(rejections, Rejection{Device: sel.Properties.Name, Reason: err.Error()})
			continue
		}
		if score := DeviceScore(sel.Properties.Type); score > bestScore {
			best, bestScore = sel, score
		}
	}

	if bestScore < 0 {
		return Selection{}, &NoSuitableDeviceError{Rejections: rejections}
	}

	log.WithFields(logrus.Fields{
		"device":      best.Properties.Name,
		"type":        best.Properties.Type,
		"queueFamily": best.QueueFamily,
		"format":      best.SurfaceFormat,
		"presentMode": best.PresentMode,
	}).Info("device selected")
	return best, nil
}

// PhysicalDeviceInfo describes a physical device for reporting.
type PhysicalDeviceInfo struct {
	Name          string
	Type          string
	ID            uint32
	VendorID      uint32
	DriverVersion uint32
	Memory        uint64
	QueueFamilies []gfx.QueueFamily
	Extensions    []string
	Layers        []string

	// Invalid is set when part of the information could not be read
	Invalid bool
}

// Survey reports every physical device the instance can see.
func Survey(d gfx.Driver, instance gfx.Instance) ([]PhysicalDeviceInfo, error) {
	devices, err := d.PhysicalDevices(instance)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate physical devices")
	}

	pdi := make([]PhysicalDeviceInfo, len(devices))
	for i, pd := range devices {
		props := d.DeviceProperties(pd)
		pdi[i] = PhysicalDeviceInfo{
			Name:          props.Name,
			Type:          props.Type.String(),
			ID:            props.DeviceID,
			VendorID:      props.VendorID,
			DriverVersion: props.DriverVersion,
			Memory:        props.MemorySize,
			QueueFamilies: d.QueueFamilies(pd),
		}
		if pdi[i].Extensions, err = d.DeviceExtensions(pd); err != nil {
			pdi[i].Invalid = true
		}
		if pdi[i].Layers, err = d.DeviceLayers(pd); err != nil {
			pdi[i].Invalid = true
		}
	}
	return pdi, nil
}
