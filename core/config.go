// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"strconv"
	"time"

	"github.com/devblok/prism/gfx"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gobuffalo/envy"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Environment keys read by ConfigurationFromEnv.
const (
	EnvDebug         = "PRISM_DEBUG"
	EnvWidth         = "PRISM_WIDTH"
	EnvHeight        = "PRISM_HEIGHT"
	EnvFPS           = "PRISM_FPS"
	EnvFenceTimeout  = "PRISM_FENCE_TIMEOUT"
	EnvShaderArchive = "PRISM_SHADER_ARCHIVE"
	EnvLogLevel      = "PRISM_LOG_LEVEL"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Instance InstanceConfiguration
	Renderer RendererConfiguration

	// LogLevel is applied by the host to the logger it hands in.
	LogLevel logrus.Level
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the window event polling interval in milliseconds
	EventPollDelay int
}

// InstanceConfiguration is used to configure the instance
type InstanceConfiguration struct {
	// DebugMode enables the validation layer and the debug callback
	DebugMode bool

	ApplicationName string

	// Extensions and Layers are required in addition
	// to what the window and DebugMode ask for
	Extensions []string
	Layers     []string
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	DeviceExtensions []string

	ScreenWidth  uint32
	ScreenHeight uint32

	// PresentMode must be supported by the device, there is no fallback.
	// Nil requires FIFO_RELAXED.
	PresentMode *gfx.PresentMode

	// ClearColor is the frame background, the zero value is opaque white.
	ClearColor mgl32.Vec4

	// FenceTimeout bounds frame waits, zero waits forever
	FenceTimeout time.Duration

	// ShaderArchive is an optional kar archive to load shaders from,
	// the embedded shaders are used when empty
	ShaderArchive string
}

// DefaultConfiguration returns the configuration used when nothing is set.
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 60,
			EventPollDelay:  5,
		},
		Instance: InstanceConfiguration{
			ApplicationName: "Prism",
		},
		Renderer: RendererConfiguration{
			ScreenWidth:  640,
			ScreenHeight: 480,
			PresentMode:  PresentMode(gfx.PresentModeFifoRelaxed),
			ClearColor:   mgl32.Vec4{1, 1, 1, 1},
		},
		LogLevel: logrus.InfoLevel,
	}
}

// PresentMode returns mode for use in RendererConfiguration.
func PresentMode(mode gfx.PresentMode) *gfx.PresentMode {
	return &mode
}

// withDefaults fills the fields a context cannot run without.
func (c Configuration) withDefaults() Configuration {
	def := DefaultConfiguration()
	if c.Instance.ApplicationName == "" {
		c.Instance.ApplicationName = def.Instance.ApplicationName
	}
	if c.Renderer.PresentMode == nil {
		c.Renderer.PresentMode = def.Renderer.PresentMode
	}
	if c.Renderer.ClearColor == (mgl32.Vec4{}) {
		c.Renderer.ClearColor = def.Renderer.ClearColor
	}
	return c
}

// ConfigurationFromEnv overlays environment variables, and a .env file
// if one is present, onto the default configuration.
func ConfigurationFromEnv() (Configuration, error) {
	cfg := DefaultConfiguration()

	if v := envy.Get(EnvDebug, ""); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.Wrap(err, EnvDebug)
		}
		cfg.Instance.DebugMode = debug
	}

	for _, dim := range []struct {
		key string
		dst *uint32
	}{
		{EnvWidth, &cfg.Renderer.ScreenWidth},
		{EnvHeight, &cfg.Renderer.ScreenHeight},
	} {
		v := envy.Get(dim.key, "")
		if v == "" {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return cfg, errors.Wrap(err, dim.key)
		}
		if n == 0 {
			return cfg, errors.Errorf("%s: must be positive", dim.key)
		}
		*dim.dst = uint32(n)
	}

	if v := envy.Get(EnvFPS, ""); v != "" {
		fps, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.Wrap(err, EnvFPS)
		}
		if fps < 0 {
			return cfg, errors.Errorf("%s: must not be negative", EnvFPS)
		}
		cfg.Time.FramesPerSecond = fps
	}

	if v := envy.Get(EnvFenceTimeout, ""); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return cfg, errors.Wrap(err, EnvFenceTimeout)
		}
		cfg.Renderer.FenceTimeout = timeout
	}

	cfg.Renderer.ShaderArchive = envy.Get(EnvShaderArchive, "")

	if v := envy.Get(EnvLogLevel, ""); v != "" {
		level, err := logrus.ParseLevel(v)
		if err != nil {
			return cfg, errors.Wrap(err, EnvLogLevel)
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}

// timeout converts the fence timeout into driver units.
func (r RendererConfiguration) timeout() uint64 {
	if r.FenceTimeout <= 0 {
		return gfx.WaitForever
	}
	return uint64(r.FenceTimeout.Nanoseconds())
}

func (r RendererConfiguration) clearColor() [4]float32 {
	return [4]float32{r.ClearColor.X(), r.ClearColor.Y(), r.ClearColor.Z(), r.ClearColor.W()}
}
