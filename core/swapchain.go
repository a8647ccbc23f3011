// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/prism/gfx"
	"github.com/pkg/errors"
)

// Swapchain bounds on the number of images requested.
const (
	MinSwapchainImages = 2
	MaxSwapchainImages = 3
)

// ImageCount clamps the surface minimum into the supported image range.
func ImageCount(min uint32) uint32 {
	switch {
	case min < MinSwapchainImages:
		return MinSwapchainImages
	case min > MaxSwapchainImages:
		return MaxSwapchainImages
	default:
		return min
	}
}

// Swapchain holds the presentable images and one view per image.
// Images belong to the swapchain, views belong to the context.
type Swapchain struct {
	Handle gfx.Swapchain
	Images []gfx.Image
	Views  []gfx.ImageView
	Format gfx.SurfaceFormat
	Extent gfx.Extent2D
}

// newSwapchain creates the swapchain and its image views. Every created
// object is pushed onto the release stack as soon as it exists.
func newSwapchain(d gfx.Driver, dev gfx.Device, surface gfx.Surface, sel Selection, extent gfx.Extent2D, rs *releaseStack) (*Swapchain, error) {
	if extent.Empty() {
		return nil, &SwapchainError{Op: "create", Err: errors.Errorf("invalid extent %dx%d", extent.Width, extent.Height)}
	}

	sci := gfx.SwapchainCreateInfo{
		Surface:       surface,
		MinImageCount: ImageCount(sel.Capabilities.MinImageCount),
		Format:        sel.SurfaceFormat,
		Extent:        extent,
		PresentMode:   sel.PresentMode,
		Transform:     sel.Capabilities.CurrentTransform,
	}

	handle, err := d.CreateSwapchain(dev, sci)
	if err != nil {
		return nil, &SwapchainError{Op: "create", Err: err}
	}
	sc := &Swapchain{
		Handle: handle,
		Format: sel.SurfaceFormat,
		Extent: extent,
	}
	rs.push(stepSwapchain, func() { d.DestroySwapchain(dev, handle) })

	if sc.Images, err = d.SwapchainImages(dev, handle); err != nil {
		return nil, &SwapchainError{Op: "images", Err: err}
	}

	for idx, image := range sc.Images {
		view, err := d.CreateImageView(dev, image, sel.SurfaceFormat.Format)
		if err != nil {
			return nil, &SwapchainError{Op: "image view", Err: errors.Wrapf(err, "image %d", idx)}
		}
		sc.Views = append(sc.Views, view)
		rs.push(stepImageViews, func() { d.DestroyImageView(dev, view) })
	}

	return sc, nil
}
