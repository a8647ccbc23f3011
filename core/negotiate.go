// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import "github.com/devblok/prism/gfx"

// CheckSupport succeeds when every required name is supported.
// Otherwise the CapabilityError lists all missing names, in the order
// they were required.
func CheckSupport(kind string, required, supported []string) error {
	available := make(map[string]struct{}, len(supported))
	for _, name := range supported {
		available[name] = struct{}{}
	}

	var missing []string
	seen := make(map[string]struct{}, len(required))
	for _, name := range required {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return &CapabilityError{Kind: kind, Missing: missing}
	}
	return nil
}

// DeviceScore ranks device types, higher is preferred.
func DeviceScore(t gfx.DeviceType) int {
	switch t {
	case gfx.DeviceTypeDiscreteGPU:
		return 2
	case gfx.DeviceTypeIntegratedGPU:
		return 1
	default:
		return 0
	}
}

// RequiredQueueFlags are the capabilities the single queue must have.
const RequiredQueueFlags = gfx.QueueGraphics | gfx.QueueTransfer | gfx.QueueCompute

// ChooseSurfaceFormat picks an sRGB format in the sRGB nonlinear color
// space, or the first reported format when there is none.
func ChooseSurfaceFormat(formats []gfx.SurfaceFormat) (gfx.SurfaceFormat, bool) {
	if len(formats) == 0 {
		return gfx.SurfaceFormat{}, false
	}
	for _, f := range formats {
		if f.ColorSpace != gfx.ColorSpaceSRGBNonlinear {
			continue
		}
		if f.Format == gfx.FormatR8G8B8Srgb || f.Format == gfx.FormatB8G8R8A8Srgb {
			return f, true
		}
	}
	return formats[0], true
}

func hasPresentMode(modes []gfx.PresentMode, want gfx.PresentMode) bool {
	for _, m := range modes {
		if m == want {
			return true
		}
	}
	return false
}

func appendUnique(list []string, names ...string) []string {
	for _, n := range names {
		found := false
		for _, l := range list {
			if l == n {
				found = true
				break
			}
		}
		if !found {
			list = append(list, n)
		}
	}
	return list
}
