//go:build mage

package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"

	"github.com/spaghettifunk/anima-labs/engine/assets/loaders"
)

const textureDir = "assets/textures"

type Assets mg.Namespace

// Textures writes the placeholder kitty texture and skybox faces when they
// are missing.
func (Assets) Textures() error {
	if err := os.MkdirAll(filepath.Join(textureDir, "skybox"), 0o755); err != nil {
		return err
	}
	kitty := filepath.Join(textureDir, "kitty.dds")
	if _, err := os.Stat(kitty); os.IsNotExist(err) {
		tex, err := loaders.ImageTexture("kitty", checker(256, 32), true)
		if err != nil {
			return err
		}
		raw, err := loaders.EncodeDDS(tex)
		if err != nil {
			return err
		}
		if err := os.WriteFile(kitty, raw, 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d mips)\n", kitty, tex.Desc.MipLevels)
	}
	for i, face := range loaders.CubeFaces {
		path := filepath.Join(textureDir, "skybox", face+".png")
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := writePNG(path, sky(128, i)); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
	}
	return nil
}

func checker(size, cell int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.RGBA{R: 240, G: 200, B: 160, A: 255}
			if (x/cell+y/cell)%2 == 1 {
				c = color.RGBA{R: 90, G: 60, B: 40, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// sky is a vertical gradient. The top and bottom faces are flat.
func sky(size, face int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		t := float64(y) / float64(size-1)
		switch face {
		case 2:
			t = 0
		case 3:
			t = 1
		}
		c := color.RGBA{
			R: uint8(60 + 140*t),
			G: uint8(120 + 100*t),
			B: uint8(220 + 30*t),
			A: 255,
		}
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
