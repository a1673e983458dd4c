/*
Anima Labs renders the lab scene: textured cubes orbiting under a skybox
with sorted transparent cubes in front.
*/
package main

import (
	"flag"
	"os"

	"github.com/spaghettifunk/anima-labs/engine"
	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer"
	_ "github.com/spaghettifunk/anima-labs/engine/renderer/headless"
	_ "github.com/spaghettifunk/anima-labs/engine/renderer/vulkan"
	"github.com/spaghettifunk/anima-labs/testbed"
)

func main() {
	configPath := flag.String("config", "assets/config/anima.toml", "application config file")
	headless := flag.Bool("headless", false, "render without a window or GPU")
	frames := flag.Uint64("frames", 0, "stop after this many frames, 0 runs until quit")
	flag.Parse()

	config, err := engine.LoadApplicationConfig(*configPath)
	if err != nil {
		core.LogError(err.Error())
		os.Exit(1)
	}
	if *headless {
		config.Renderer.Backend = renderer.BackendHeadless
	}
	config.MaxFrames = *frames

	if err := engine.RunApplication(testbed.NewTestGame(config).Game); err != nil {
		core.LogError(err.Error())
		os.Exit(1)
	}
}
