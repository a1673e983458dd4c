package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-labs/engine/core"
)

// Every pipeline shares one set layout: two constant buffer slots read through
// dynamic offsets into the uniform ring, then one texture and one sampler.
const (
	bindingScene   = 0
	bindingView    = 1
	bindingTexture = 2
	bindingSampler = 3

	constantSlots = 2
	// uniformRange is the window every constant buffer slot exposes.
	uniformRange = 256
	// ringFrameSize is the uniform memory one frame can use.
	ringFrameSize     = 512 << 10
	maxDescriptorSets = 512
)

type descriptorKey struct {
	view    core.Identifier
	sampler core.Identifier
}

// descriptorCache holds one set per texture and sampler pair ever drawn with.
type descriptorCache struct {
	layout         vk.DescriptorSetLayout
	pipelineLayout vk.PipelineLayout
	pool           vk.DescriptorPool
	sets           map[descriptorKey]vk.DescriptorSet
}

func newDescriptorCache(device vk.Device) (*descriptorCache, error) {
	c := &descriptorCache{sets: make(map[descriptorKey]vk.DescriptorSet)}
	allStages := vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit)
	bindings := []vk.DescriptorSetLayoutBinding{
		{Binding: bindingScene, DescriptorType: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: 1, StageFlags: allStages},
		{Binding: bindingView, DescriptorType: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: 1, StageFlags: allStages},
		{Binding: bindingTexture, DescriptorType: vk.DescriptorTypeSampledImage, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit)},
		{Binding: bindingSampler, DescriptorType: vk.DescriptorTypeSampler, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit)},
	}
	var layout vk.DescriptorSetLayout
	if err := check(core.ErrDeviceCreation, vk.CreateDescriptorSetLayout(device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}, nil, &layout), "vkCreateDescriptorSetLayout"); err != nil {
		return nil, err
	}
	c.layout = layout

	var pipelineLayout vk.PipelineLayout
	if err := check(core.ErrDeviceCreation, vk.CreatePipelineLayout(device, &vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{layout},
	}, nil, &pipelineLayout), "vkCreatePipelineLayout"); err != nil {
		c.destroy(device)
		return nil, err
	}
	c.pipelineLayout = pipelineLayout

	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: constantSlots * maxDescriptorSets},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: maxDescriptorSets},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: maxDescriptorSets},
	}
	var pool vk.DescriptorPool
	if err := check(core.ErrDeviceCreation, vk.CreateDescriptorPool(device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxDescriptorSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}, nil, &pool), "vkCreateDescriptorPool"); err != nil {
		c.destroy(device)
		return nil, err
	}
	c.pool = pool
	return c, nil
}

// get returns the set for key, writing a new one on first use.
func (c *descriptorCache) get(device vk.Device, key descriptorKey, ring vk.Buffer, image vk.ImageView, sampler vk.Sampler) (vk.DescriptorSet, error) {
	if set, ok := c.sets[key]; ok {
		return set, nil
	}
	sets := make([]vk.DescriptorSet, 1)
	if err := check(core.ErrRender, vk.AllocateDescriptorSets(device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     c.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{c.layout},
	}, &sets[0]), "vkAllocateDescriptorSets"); err != nil {
		return nil, err
	}
	set := sets[0]

	uniform := func(binding uint32) vk.WriteDescriptorSet {
		return vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      binding,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			PBufferInfo:     []vk.DescriptorBufferInfo{{Buffer: ring, Offset: 0, Range: uniformRange}},
		}
	}
	writes := []vk.WriteDescriptorSet{
		uniform(bindingScene),
		uniform(bindingView),
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      bindingTexture,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			PImageInfo:      []vk.DescriptorImageInfo{{ImageView: image, ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal}},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      bindingSampler,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeSampler,
			PImageInfo:      []vk.DescriptorImageInfo{{Sampler: sampler}},
		},
	}
	vk.UpdateDescriptorSets(device, uint32(len(writes)), writes, 0, nil)
	c.sets[key] = set
	return set, nil
}

// forget drops every set that references id and returns them for freeing.
func (c *descriptorCache) forget(id core.Identifier) []vk.DescriptorSet {
	var out []vk.DescriptorSet
	for key, set := range c.sets {
		if key.view == id || key.sampler == id {
			out = append(out, set)
			delete(c.sets, key)
		}
	}
	return out
}

func (c *descriptorCache) free(device vk.Device, sets []vk.DescriptorSet) {
	if len(sets) == 0 || c.pool == nil {
		return
	}
	vk.FreeDescriptorSets(device, c.pool, uint32(len(sets)), sets)
}

func (c *descriptorCache) destroy(device vk.Device) {
	if c.pool != nil {
		vk.DestroyDescriptorPool(device, c.pool, nil)
		c.pool = nil
	}
	c.sets = make(map[descriptorKey]vk.DescriptorSet)
	if c.pipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(device, c.pipelineLayout, nil)
		c.pipelineLayout = vk.NullPipelineLayout
	}
	if c.layout != nil {
		vk.DestroyDescriptorSetLayout(device, c.layout, nil)
		c.layout = nil
	}
}

// uniformRing is a persistently mapped buffer split in one region per frame
// in flight. Every draw copies its constant buffers into the region of the
// frame being recorded and binds them through dynamic offsets.
type uniformRing struct {
	buffer    vk.Buffer
	memory    vk.DeviceMemory
	mapped    []byte
	alignment uint64
	base      uint64
	cursor    uint64
}

func newUniformRing(d *Device, alignment uint64) (*uniformRing, error) {
	size := uint64(ringFrameSize * maxFramesInFlight)
	buffer, memory, err := d.createBuffer(size,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	r := &uniformRing{buffer: buffer, memory: memory, alignment: alignment}
	var ptr unsafe.Pointer
	if err := check(core.ErrDeviceCreation, vk.MapMemory(d.logical, memory, 0, vk.DeviceSize(size), 0, &ptr), "vkMapMemory"); err != nil {
		r.destroy(d.logical)
		return nil, err
	}
	r.mapped = unsafe.Slice((*byte)(ptr), size)
	return r, nil
}

// reset starts the region of frame. Its previous content is no longer read
// once the fence of frame was waited on.
func (r *uniformRing) reset(frame int) {
	r.base = uint64(frame) * ringFrameSize
	r.cursor = 0
}

// push copies data into the ring and returns its dynamic offset. Bytes past
// data up to uniformRange read as zero.
func (r *uniformRing) push(data []byte) (uint32, error) {
	step := alignUp(uniformRange, r.alignment)
	if r.cursor+step > ringFrameSize {
		return 0, core.WrapError(core.ErrRender, "uniform ring exhausted: more than %d constant buffer writes in a frame", ringFrameSize/step)
	}
	offset := r.base + r.cursor
	dst := r.mapped[offset : offset+uniformRange]
	n := copy(dst, data)
	clear(dst[n:])
	r.cursor += step
	return uint32(offset), nil
}

func (r *uniformRing) destroy(device vk.Device) {
	if r.mapped != nil {
		vk.UnmapMemory(device, r.memory)
		r.mapped = nil
	}
	if r.buffer != vk.NullBuffer {
		vk.DestroyBuffer(device, r.buffer, nil)
		r.buffer = vk.NullBuffer
	}
	if r.memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, r.memory, nil)
		r.memory = vk.NullDeviceMemory
	}
}
