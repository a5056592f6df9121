//go:build mage

package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binary   = "twinpane"
	mainPkg  = "./cmd/twinpane"
	coverOut = "coverage.out"
	demoLog  = "twinpane-debug.log"
)

// Default target to run when none is specified
var Default = Build

// Build builds the binary into bin/
func Build() error {
	fmt.Println("Building...")
	return sh.Run("go", "build", "-o", filepath.Join("bin", binary), mainPkg)
}

// Test runs all tests with the race detector
func Test() error {
	fmt.Println("Running tests...")
	return sh.Run("go", "test", "-race", "-coverprofile="+coverOut, "./...")
}

// TestForFail runs the unit tests purely to find out whether any fail
func TestForFail() error {
	fmt.Println("Running unit tests for overall pass/fail...")
	return run(context.Background(), "go", "test", "-timeout=30s", "./...", "-failfast", "-shuffle=on", "-race")
}

// Workflow runs only the operation workflow suite
func Workflow() error {
	fmt.Println("Running operation workflow suite...")
	return run(context.Background(), "go", "test", "-run", "TestOperationWorkflow", "-v", "./internal/engine/")
}

// Lint lints the codebase
func Lint() error {
	fmt.Println("Linting...")
	return run(context.Background(), "golangci-lint", "run", "./...")
}

// CheckNils checks for nils
func CheckNils() error {
	fmt.Println("Running check for nils...")
	return run(context.Background(), "nilaway", "./...")
}

// Check runs all checks (lint, test, nils)
func Check() error {
	mg.SerialDeps(Lint, Test, CheckNils)
	return nil
}

// Demo builds the binary and opens it on the built-in demo profiles with debug logging
func Demo() error {
	mg.Deps(Build)

	return run(context.Background(), filepath.Join("bin", binary),
		"--left", "D", "--right", "B",
		"--log-file", demoLog, "--log-level", "debug", "--log-format", "console")
}

// Metrics runs the demo with the Prometheus endpoint on :9090
func Metrics() error {
	mg.Deps(Build)

	return run(context.Background(), filepath.Join("bin", binary),
		"--left", "D", "--right", "B", "--metrics-addr", ":9090")
}

// Clean removes build artifacts
func Clean() error {
	fmt.Println("Cleaning...")
	for _, path := range []string{"bin", coverOut, "coverage.html", demoLog} {
		if err := os.RemoveAll(path); err != nil {
			return err
		}
	}
	return nil
}

// Install installs the binary
func Install() error {
	fmt.Println("Installing...")
	return sh.Run("go", "install", mainPkg)
}

// Fmt formats the code
func Fmt() error {
	fmt.Println("Formatting code...")
	if err := sh.Run("gofmt", "-s", "-w", "."); err != nil {
		return err
	}
	return sh.Run("goimports", "-w", ".")
}

// Coverage generates an HTML coverage report
func Coverage() error {
	mg.Deps(Test)
	fmt.Println("Generating coverage report...")
	return sh.Run("go", "tool", "cover", "-html="+coverOut, "-o", "coverage.html")
}

// run executes a command with the terminal attached
func run(c context.Context, command string, arg ...string) error {
	cmd := exec.CommandContext(c, command, arg...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
