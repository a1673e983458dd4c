package assets

import (
	"runtime"
	"strings"

	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// Preload decodes the named textures on a worker pool and keeps them until
// Texture asks for them. Each decoded texture is handed out once so a later
// reload reads the file again. The first decode error is returned after all
// jobs finished.
func (am *AssetManager) Preload(names []string) error {
	if len(names) == 0 {
		return nil
	}
	workers := min(runtime.NumCPU(), len(names))
	js, err := NewJobSystem(workers, len(names))
	if err != nil {
		return err
	}

	errs := make(chan error, len(names))
	seen := make(map[string]bool)
	for _, name := range names {
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		js.Submit(Job{
			Name: name,
			OnStart: func() (interface{}, error) {
				return am.Texture(name)
			},
			OnComplete: func(result interface{}) {
				am.mutex.Lock()
				am.preloaded[key] = result.(*metadata.TextureData)
				am.mutex.Unlock()
			},
			OnFailure: func(err error) {
				errs <- err
			},
		})
	}
	js.Shutdown()
	close(errs)
	return <-errs
}

// takePreloaded removes and returns a texture decoded by Preload.
func (am *AssetManager) takePreloaded(name string) (*metadata.TextureData, bool) {
	key := strings.ToLower(name)
	am.mutex.Lock()
	defer am.mutex.Unlock()
	tex, ok := am.preloaded[key]
	if ok {
		delete(am.preloaded, key)
	}
	return tex, ok
}
