//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Throwaway MongoDB container used by test:mongo.
const (
	mongoImage     = "mongo:7"
	mongoContainer = "dbbridge-test-mongo"
	mongoHostPort  = "27018"
)

// containerRuntime returns "podman" or "docker" if a working runtime
// is available, or "" if neither is usable. It checks both that the
// binary exists on PATH and that it can connect to its daemon/machine.
func containerRuntime() string {
	for _, name := range []string{"podman", "docker"} {
		if _, err := exec.LookPath(name); err != nil {
			continue
		}
		if exec.Command(name, "info").Run() != nil {
			fmt.Fprintf(os.Stderr, "WARNING: %s found on PATH but not usable (is the daemon/machine running?)\n", name)
			continue
		}
		return name
	}
	return ""
}

// startMongo runs a fresh MongoDB container and waits until it answers a
// ping. It returns the connection URI.
func startMongo(rt string) (string, error) {
	stopMongo(rt)

	fmt.Fprintln(os.Stderr, "Starting MongoDB container...")
	cmd := exec.Command(rt, "run", "-d", "--rm",
		"--name", mongoContainer,
		"-p", mongoHostPort+":27017",
		mongoImage)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("starting mongo container: %w", err)
	}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		out, err := exec.Command(rt, "exec", mongoContainer,
			"mongosh", "--quiet", "--eval", "db.runCommand({ping: 1}).ok").Output()
		if err == nil && strings.TrimSpace(string(out)) == "1" {
			return "mongodb://127.0.0.1:" + mongoHostPort, nil
		}
		time.Sleep(time.Second)
	}
	stopMongo(rt)
	return "", fmt.Errorf("mongo container not ready after 60s")
}

// stopMongo removes the test container. Errors are ignored because the
// container may not exist.
func stopMongo(rt string) {
	_ = exec.Command(rt, "rm", "-f", mongoContainer).Run()
}
