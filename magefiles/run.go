//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Engine opens the window and runs the lab scene.
func (Run) Engine() error {
	mg.Deps(Build.Shaders, Assets.Textures)
	fmt.Println("Run engine...")
	_, err := executeCmd("go", withArgs("run", ".", "-config", "assets/config/anima.toml"), withCgo(), withStream())
	return err
}

// Headless renders a fixed number of frames without a window.
func (Run) Headless() error {
	mg.Deps(Build.Shaders, Assets.Textures)
	_, err := executeCmd("go", withArgs("run", ".", "-headless", "-frames", "120"), withCgo(), withStream())
	return err
}
