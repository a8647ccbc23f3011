// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command prism opens a window and draws a triangle into it every tick.
package main

import (
	"os"
	"runtime"

	"github.com/devblok/prism/core"
	"github.com/devblok/prism/gfx"
	"github.com/devblok/prism/gfx/vkr"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	log := logrus.New()
	log.Out = os.Stderr

	cfg, err := core.ConfigurationFromEnv()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.SetLevel(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("prism exited")
	}
}

func run(cfg core.Configuration, log *logrus.Logger) error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return errors.Wrap(err, "sdl.Init()")
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return errors.Wrap(err, "sdl.VulkanLoadLibrary()")
	}
	defer sdl.VulkanUnloadLibrary()

	window, err := newWindow(cfg.Renderer)
	if err != nil {
		return errors.Wrap(err, "sdl.CreateWindow()")
	}
	defer window.Destroy()

	driver, err := vkr.New(sdl.VulkanGetVkGetInstanceProcAddr(), log)
	if err != nil {
		return err
	}

	create := func() (*core.Context, error) {
		return core.Create(driver, window,
			cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight,
			cfg, core.WithLogger(log))
	}

	ctx, err := create()
	if err != nil {
		return err
	}
	defer func() {
		if ctx != nil {
			ctx.Destroy()
		}
	}()

	time := core.NewTime(cfg.Time)
	defer time.Stop()

	for {
		select {
		case <-time.EventTicker().C:
			if pollEvents() {
				log.Info("event loop exited")
				return nil
			}
		case <-time.FpsTicker().C:
			err := ctx.Draw()
			if err == nil {
				continue
			}
			if !errors.Is(err, gfx.ErrOutOfDate) {
				return err
			}

			// The surface changed under the swapchain, start over.
			log.WithError(err).Info("rebuilding render context")
			ctx.Destroy()
			if ctx, err = create(); err != nil {
				return err
			}
		}
	}
}
