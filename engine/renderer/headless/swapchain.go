package headless

import (
	"fmt"

	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

type Swapchain struct {
	*metadata.Handle
	device *Device
	desc   metadata.SwapchainDesc
	// outstanding counts live back buffer references and views of them.
	outstanding int
	resizes     int
}

func (s *Swapchain) Desc() metadata.SwapchainDesc { return s.desc }

// Resizes is the number of successful ResizeBuffers calls.
func (s *Swapchain) Resizes() int { return s.resizes }

func (s *Swapchain) GetBuffer(index uint32) (*metadata.Texture, error) {
	if err := s.device.backend.failure("GetBuffer"); err != nil {
		return nil, err
	}
	if index >= s.desc.BufferCount {
		return nil, fmt.Errorf("back buffer %d of %d", index, s.desc.BufferCount)
	}
	s.outstanding++
	return &metadata.Texture{
		Handle: s.device.backend.tracker.Track(metadata.ResourceKindTexture, fmt.Sprintf("back buffer %d", index), func() { s.outstanding-- }),
		Desc: metadata.TextureDesc{
			Label:     fmt.Sprintf("back buffer %d", index),
			Width:     s.desc.Width,
			Height:    s.desc.Height,
			MipLevels: 1,
			ArraySize: 1,
			Format:    s.desc.Format,
			Bind:      metadata.BindRenderTarget,
		},
		Internal: &texture{swapchain: s},
	}, nil
}

func (s *Swapchain) ResizeBuffers(count, width, height uint32, format metadata.Format) error {
	if err := s.device.backend.failure("ResizeBuffers"); err != nil {
		return err
	}
	if s.outstanding > 0 {
		return fmt.Errorf("%d references to the back buffers are still alive", s.outstanding)
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("swapchain extent %dx%d", width, height)
	}
	if count > 0 {
		s.desc.BufferCount = count
	}
	if format != metadata.FormatUnknown {
		s.desc.Format = format
	}
	s.desc.Width, s.desc.Height = width, height
	s.resizes++
	return nil
}

func (s *Swapchain) Present(syncInterval uint32, flags metadata.PresentFlags) error {
	ctx := s.device.context
	ctx.record("Present", syncInterval, flags)
	if err := ctx.fail("Present"); err != nil {
		return err
	}
	ctx.presents++
	return nil
}
