package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/anima-labs/engine/assets/loaders"
	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// Change is a watched asset that was created or rewritten on disk.
type Change struct {
	Name string
	Path string
	Type metadata.ResourceType
}

// AssetManager indexes the asset directory by lower case base name and
// resolves the names the renderer asks for. With watching enabled it reports
// edited shaders and textures on Changes.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader
	meshes  map[string]*metadata.MeshData
	// textures built in memory, such as font atlases.
	textures map[string]*metadata.TextureData
	// preloaded textures waiting for their first lookup.
	preloaded map[string]*metadata.TextureData

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	changes  chan Change
}

func NewAssetManager(root string, watch bool) (*AssetManager, error) {
	fi, err := os.Stat(root)
	if err != nil || !fi.IsDir() {
		return nil, core.WrapError(core.ErrAssetLoad, "asset directory %s does not exist", root)
	}
	am := &AssetManager{
		root:     root,
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		meshes:   make(map[string]*metadata.MeshData),
		textures: make(map[string]*metadata.TextureData),
		changes:  make(chan Change, 64),
		done:     make(chan struct{}),

		preloaded: make(map[string]*metadata.TextureData),
	}

	// Register loaders
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeTexture, &loaders.TextureLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.TextureLoader{})
	am.registerLoader(metadata.ResourceTypeBitmapFont, &loaders.BitmapFontLoader{})
	am.registerLoader(metadata.ResourceTypeLayout, &loaders.LayoutLoader{})

	if watch {
		if am.fsnotify, err = fsnotify.NewWatcher(); err != nil {
			return nil, err
		}
		am.wg.Add(1)
		go am.start()
	}
	if err := am.watchRecursive(root, false); err != nil {
		am.Shutdown()
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "index %s", root)
	}
	core.LogInfo("indexed %d assets under %s (watching: %t)", len(am.assets), root, watch)
	return am, nil
}

// Changes delivers hot reload candidates. It is closed by Shutdown.
func (am *AssetManager) Changes() <-chan Change {
	return am.changes
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

func (am *AssetManager) lookup(name string, types ...metadata.ResourceType) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	for _, t := range types {
		if info, ok := am.assets[assetKey(t, name)]; ok {
			return info, true
		}
	}
	return AssetInfo{}, false
}

// LoadAsset loads the named asset with the loader of the first resource type
// that has an entry for it.
func (am *AssetManager) LoadAsset(name string, params interface{}, types ...metadata.ResourceType) (*metadata.Resource, error) {
	asset, exists := am.lookup(name, types...)
	if !exists {
		return nil, core.WrapError(core.ErrAssetLoad, "asset not found: %s", name)
	}
	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, core.WrapError(core.ErrAssetLoad, "no loader registered for asset type: %s", asset.Type)
	}
	if params == nil {
		params = map[string]string{"name": name}
	}
	res, err := loader.Load(asset.Path, asset.Type, params)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	asset.LastLoaded = time.Now()
	am.assets[assetKey(asset.Type, name)] = asset // Update the loaded time
	am.mutex.Unlock()
	return res, nil
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	loader, ok := am.loaders[asset.Type]
	if !ok {
		return nil
	}
	return loader.Unload(asset)
}

// Texture resolves a DDS file, a plain image or a cubemap directory.
func (am *AssetManager) Texture(name string) (*metadata.TextureData, error) {
	am.mutex.RLock()
	tex, ok := am.textures[strings.ToLower(name)]
	am.mutex.RUnlock()
	if ok {
		return tex, nil
	}
	if tex, ok := am.takePreloaded(name); ok {
		return tex, nil
	}
	res, err := am.LoadAsset(name, nil, metadata.ResourceTypeTexture, metadata.ResourceTypeImage)
	if err != nil {
		return nil, err
	}
	return res.Data.(*metadata.TextureData), nil
}

// Shader prefers a precompiled .spv over compiling the .wgsl source.
func (am *AssetManager) Shader(name string) (*metadata.ShaderSource, error) {
	res, err := am.LoadAsset(name, nil, metadata.ResourceTypeBinary, metadata.ResourceTypeShader)
	if err != nil {
		return nil, err
	}
	if code, ok := res.Data.([]uint32); ok {
		return &metadata.ShaderSource{
			Name:     name,
			Path:     res.FullPath,
			VSEntry:  loaders.VertexEntryPoint,
			PSEntry:  loaders.FragmentEntryPoint,
			Compiled: code,
		}, nil
	}
	return res.Data.(*metadata.ShaderSource), nil
}

// Mesh returns a mesh registered with RegisterMesh. Built in geometry never
// reaches the asset manager.
func (am *AssetManager) Mesh(name string) (*metadata.MeshData, error) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	m, ok := am.meshes[name]
	if !ok {
		return nil, core.WrapError(core.ErrAssetLoad, "mesh not found: %s", name)
	}
	return m, nil
}

func (am *AssetManager) RegisterMesh(mesh *metadata.MeshData) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.meshes[mesh.Name] = mesh
}

// Font loads a bitmap font by name.
func (am *AssetManager) Font(name string) (*loaders.BitmapFont, error) {
	res, err := am.LoadAsset(name, nil, metadata.ResourceTypeBitmapFont)
	if err != nil {
		return nil, err
	}
	return res.Data.(*loaders.BitmapFont), nil
}

// RegisterText builds the text mesh for font and registers it, together with
// the font atlas under textureName, so passes can reference both.
func (am *AssetManager) RegisterText(meshName, textureName, font, text string) error {
	f, err := am.Font(font)
	if err != nil {
		return err
	}
	mesh, err := f.TextMesh(meshName, text)
	if err != nil {
		return err
	}
	atlas := *f.Atlas
	atlas.Name, atlas.Desc.Label = textureName, textureName

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.meshes[meshName] = mesh
	am.textures[strings.ToLower(textureName)] = &atlas
	return nil
}

// Layout loads a YAML pass layout from an explicit path.
func (am *AssetManager) Layout(path string) (*loaders.SceneLayout, error) {
	res, err := am.loaders[metadata.ResourceTypeLayout].Load(path, metadata.ResourceTypeLayout, nil)
	if err != nil {
		return nil, err
	}
	return res.Data.(*loaders.SceneLayout), nil
}

// Shutdown stops the watcher. Safe to call more than once.
func (am *AssetManager) Shutdown() {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return
	}
	am.isClosed = true
	am.mutex.Unlock()

	if am.fsnotify != nil {
		close(am.done)
		am.wg.Wait()
	}
	close(am.changes)
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					am.watchRecursive(e.Name, false)
				}
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if change, ok := am.handleFileEvent(e.Name); ok {
					am.notify(change)
				}
			}
			//Can't stat a deleted directory, so just pretend that it's always a directory and
			//try to remove from the watch list...  we really have no clue if it's a directory or not...
			if e.Op&fsnotify.Remove != 0 {
				am.removeAsset(e.Name)
				am.fsnotify.Remove(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// notify drops the change when nobody keeps up with the channel; the next
// write of the same file reports it again.
func (am *AssetManager) notify(c Change) {
	select {
	case am.changes <- c:
	default:
		core.LogWarn("asset change dropped: %s", c.Path)
	}
}

// watchRecursive indexes every asset under path and, when watching, adds all
// its directories to the watch list.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if walkPath != path && isCubeDir(walkPath) {
				am.handleFileEvent(walkPath)
			}
			if am.fsnotify == nil {
				return nil
			}
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file. A file inside a cubemap
// directory is reported as a change of the cube.
func (am *AssetManager) handleFileEvent(path string) (Change, bool) {
	if dir := filepath.Dir(path); isCubeDir(dir) {
		path = dir
	}
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return Change{}, false
	}
	name := assetName(path)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[assetKey(assetType, name)] = AssetInfo{
		Path: path,
		Type: assetType,
	}
	return Change{Name: name, Path: path, Type: assetType}, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, assetKey(assetType, assetName(path)))
}

func assetName(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Images and DDS files share one namespace so a lookup finds either.
func assetKey(t metadata.ResourceType, name string) string {
	if t == metadata.ResourceTypeImage {
		t = metadata.ResourceTypeTexture
	}
	return t.String() + "/" + strings.ToLower(name)
}

func isCubeDir(path string) bool {
	for _, face := range loaders.CubeFaces {
		matches, _ := filepath.Glob(filepath.Join(path, face+".*"))
		if len(matches) == 0 {
			return false
		}
	}
	return true
}

func determineAssetType(path string) metadata.ResourceType {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		if isCubeDir(path) {
			return metadata.ResourceTypeTexture
		}
		return metadata.ResourceTypeNone
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dds":
		return metadata.ResourceTypeTexture
	case ".wgsl":
		return metadata.ResourceTypeShader
	case ".spv":
		return metadata.ResourceTypeBinary
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		return metadata.ResourceTypeImage
	case ".fnt":
		return metadata.ResourceTypeBitmapFont
	case ".yaml", ".yml":
		return metadata.ResourceTypeLayout
	default:
		return metadata.ResourceTypeNone
	}
}
