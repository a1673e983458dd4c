//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"
	"github.com/magefile/mage/mg"
)

const (
	binaryPath = "bin/anima-labs"
	shaderDir  = "assets/shaders"
)

type Build mg.Namespace

// Binary compiles the engine into bin/.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", binaryPath, "."), withCgo(), withStream())
	return err
}

// Shaders compiles every WGSL file through naga and reports all failures.
func (Build) Shaders() error {
	paths, err := filepath.Glob(filepath.Join(shaderDir, "*.wgsl"))
	if err != nil {
		return err
	}
	var failed []string
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		spirv, err := naga.Compile(string(src))
		if err != nil {
			fmt.Printf("%s:\n%s\n", path, err)
			failed = append(failed, filepath.Base(path))
			continue
		}
		if mg.Verbose() {
			fmt.Printf("%s: %d bytes of SPIR-V\n", path, len(spirv))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("shader validation failed: %s", strings.Join(failed, ", "))
	}
	fmt.Printf("%d shaders validated\n", len(paths))
	return nil
}

// Test runs the unit tests of every package.
func Test() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withCgo(), withStream())
	return err
}

// Clean removes build outputs.
func Clean() error {
	return os.RemoveAll(filepath.Dir(binaryPath))
}
