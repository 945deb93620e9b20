// Copyright 2026 The TagTagTag Ears Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the daemon's YAML configuration.
package config

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v3"
)

// Config describes a rabbit: two independently wired ears.
type Config struct {
	Left  EarConfig `yaml:"left"`
	Right EarConfig `yaml:"right"`
}

// EarConfig wires one ear: the encoder input, the two H-bridge direction
// outputs and the Unix socket the daemon serves the ear on.
type EarConfig struct {
	Encoder       string `yaml:"encoder"`
	MotorForward  string `yaml:"motor_forward"`
	MotorBackward string `yaml:"motor_backward"`
	Socket        string `yaml:"socket"`
}

// Default is the wiring of a stock tagtagtag board.
var Default = Config{
	Left: EarConfig{
		Encoder:       "GPIO24",
		MotorForward:  "GPIO12",
		MotorBackward: "GPIO13",
		Socket:        "/var/run/ear0",
	},
	Right: EarConfig{
		Encoder:       "GPIO23",
		MotorForward:  "GPIO5",
		MotorBackward: "GPIO6",
		Socket:        "/var/run/ear1",
	},
}

// Load reads a YAML configuration file. Omitted fields keep the stock
// wiring from Default.
func Load(path string) (*Config, error) {
	c := Default
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %v", err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("config: %s: %v", path, err)
	}
	if err := Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that both ears are fully wired and do not share pins
// or sockets.
func Validate(c *Config) error {
	seen := map[string]string{}
	for _, e := range []struct {
		name string
		ear  *EarConfig
	}{
		{"left", &c.Left},
		{"right", &c.Right},
	} {
		for _, f := range []struct {
			field string
			value string
		}{
			{"encoder", e.ear.Encoder},
			{"motor_forward", e.ear.MotorForward},
			{"motor_backward", e.ear.MotorBackward},
			{"socket", e.ear.Socket},
		} {
			if f.value == "" {
				return fmt.Errorf("config: %s: %s is required", e.name, f.field)
			}
			// Pins must not collide with pins, sockets with sockets.
			key := "pin:" + f.value
			if f.field == "socket" {
				key = "socket:" + f.value
			}
			if prev, ok := seen[key]; ok {
				return fmt.Errorf("config: %s %s %q already used by %s", e.name, f.field, f.value, prev)
			}
			seen[key] = e.name + " " + f.field
		}
	}
	return nil
}
