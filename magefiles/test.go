//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// envMongoURI enables the document engine integration tests.
const envMongoURI = "DBBRIDGE_TEST_MONGO_URI"

// Test groups test targets (all, unit, mongo, cover).
type Test mg.Namespace

// All runs every test. Document engine tests skip unless
// DBBRIDGE_TEST_MONGO_URI is set.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Unit runs the tests that need no external engine.
func (Test) Unit() error {
	pkgs, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return err
	}
	var unitPkgs []string
	for pkg := range strings.SplitSeq(pkgs, "\n") {
		if pkg != "" && !strings.HasSuffix(pkg, "/internal/mongo") {
			unitPkgs = append(unitPkgs, pkg)
		}
	}
	if len(unitPkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	args := append([]string{"test", "-v"}, unitPkgs...)
	return sh.RunV(binGo, args...)
}

// Mongo runs the document engine tests against DBBRIDGE_TEST_MONGO_URI, or
// against a throwaway container when the variable is unset.
func (Test) Mongo() error {
	uri := os.Getenv(envMongoURI)
	if uri == "" {
		rt := containerRuntime()
		if rt == "" {
			return fmt.Errorf("%s unset and no container runtime found (tried podman, docker)", envMongoURI)
		}
		var err error
		if uri, err = startMongo(rt); err != nil {
			return err
		}
		defer stopMongo(rt)
	}
	return sh.RunWithV(map[string]string{envMongoURI: uri},
		binGo, "test", "-v", "-count=1", "./internal/mongo/...", "./internal/bridge/...")
}

// Cover runs all tests with a coverage profile written to bin/cover.out.
func (Test) Cover() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "test", "-coverprofile="+binaryDir+"/cover.out", "./...")
}
