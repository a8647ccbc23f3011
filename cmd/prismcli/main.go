// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command prismcli prints every physical device Vulkan can see as JSON.
package main

import (
	"encoding/json"
	"os"

	"github.com/devblok/prism/core"
	"github.com/devblok/prism/gfx"
	"github.com/devblok/prism/gfx/vkr"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.Out = os.Stderr

	cfg, err := core.ConfigurationFromEnv()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.SetLevel(cfg.LogLevel)

	driver, err := vkr.New(nil, log)
	if err != nil {
		log.WithError(err).Fatal("vulkan unavailable")
	}

	instance, err := driver.CreateInstance(gfx.InstanceCreateInfo{
		Application: gfx.ApplicationInfo{
			Name:       cfg.Instance.ApplicationName,
			EngineName: "Prism",
			Version:    1,
		},
	})
	if err != nil {
		log.WithError(err).Fatal("create instance")
	}
	defer driver.DestroyInstance(instance)

	info, err := core.Survey(driver, instance)
	if err != nil {
		log.WithError(err).Error("survey failed")
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		log.WithError(err).Error("encode")
	}
}
