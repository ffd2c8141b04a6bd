//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for dbbridge using Mage.
//
// Usage:
//
//	mage build        Compile dbbridge to bin/
//	mage test:all     Run all tests (mongo tests skip without a server)
//	mage test:unit    Run tests that need no external engine
//	mage test:mongo   Start a throwaway MongoDB container and run its tests
//	mage lint         Run go vet and golangci-lint
//	mage install      Install dbbridge to GOPATH/bin
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "dbbridge"
	binaryDir  = "bin"
	cmdDir     = "./cmd/dbbridge"
	versionVar = "github.com/mesh-intelligence/dbbridge/internal/cli.Version"
)

// Build compiles the dbbridge binary to bin/. VERSION, when set, is stamped
// into the binary.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if v := os.Getenv("VERSION"); v != "" {
		args = append(args, "-ldflags", "-X "+versionVar+"="+v)
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
