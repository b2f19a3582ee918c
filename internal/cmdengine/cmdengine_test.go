package cmdengine

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk/internal/resource"
)

func TestCeilAlign(t *testing.T) {
	cases := []struct{ offset, alignment, want uint64 }{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{100, 0, 100},
	}
	for _, c := range cases {
		if got := ceilAlign(c.offset, c.alignment); got != c.want {
			t.Fatalf("ceilAlign(%d, %d) = %d, want %d", c.offset, c.alignment, got, c.want)
		}
	}
}

func TestDrawOutsideRenderPassIsRejected(t *testing.T) {
	cb := &CommandBuffer{}
	if err := cb.Draw(3, 1, 0, 0); err == nil {
		t.Fatalf("Draw must fail when no render pass is open")
	}
}

func TestDispatchOutsideComputePassIsRejected(t *testing.T) {
	cb := &CommandBuffer{}
	if err := cb.Dispatch(1, 1, 1); err == nil {
		t.Fatalf("Dispatch must fail when no compute pass is open")
	}
}

func TestBeginRenderPassRejectsNestedPass(t *testing.T) {
	cb := &CommandBuffer{pass: passCompute}
	if err := cb.BeginRenderPass(nil, nil, vk.Extent2D{}, nil, DepthStencilTargetInfo{}, nil); err == nil {
		t.Fatalf("BeginRenderPass must reject starting while another pass is open")
	}
}

func TestSubmitRejectsDefragOwnedCommandBuffer(t *testing.T) {
	s := NewSubmitter(nil)
	cb := &CommandBuffer{IsDefrag: true}
	if err := s.Submit(cb, nil, nil, nil); err == nil {
		t.Fatalf("Submit must reject a command buffer marked IsDefrag")
	}
}

func TestReadSetForRejectsUnsupportedStage(t *testing.T) {
	cb := &CommandBuffer{}
	if _, err := cb.readSetFor(vk.ShaderStageFlagBits(0)); err == nil {
		t.Fatalf("readSetFor must reject a stage with no descriptor set of its own")
	}
}

func TestBindStorageBufferStagesIntoTheRequestedStagesSet(t *testing.T) {
	cb := &CommandBuffer{}
	buf := &resource.Buffer{}
	if err := cb.BindStorageBuffer(vk.ShaderStageVertexBit, buf, 16, 256); err != nil {
		t.Fatalf("BindStorageBuffer: %v", err)
	}
	if len(cb.binding.vertexRead.storageBuffers) != 1 {
		t.Fatalf("expected one staged storage buffer on the vertex read set, got %d", len(cb.binding.vertexRead.storageBuffers))
	}
	if len(cb.binding.fragRead.storageBuffers) != 0 {
		t.Fatalf("a vertex-stage binding must not leak into the fragment read set")
	}
	got := cb.binding.vertexRead.storageBuffers[0]
	if got.Offset != 16 || got.Range != 256 {
		t.Fatalf("staged binding = %+v, want Offset=16 Range=256", got)
	}
	if buf.Refcount() != 1 {
		t.Fatalf("BindStorageBuffer must AddRef the bound buffer, got refcount %d", buf.Refcount())
	}
}

func TestBindUniformBufferRequiresPriorPush(t *testing.T) {
	cb := &CommandBuffer{}
	if err := cb.BindUniformBuffer(vk.ShaderStageFragmentBit); err == nil {
		t.Fatalf("BindUniformBuffer must fail when no uniform data has been pushed yet")
	}
}

func TestResetClearsIsDefrag(t *testing.T) {
	cb := &CommandBuffer{IsDefrag: true, pass: passRender}
	cb.Reset()
	if cb.IsDefrag {
		t.Fatalf("Reset must clear IsDefrag so a recycled command buffer is eligible for ordinary Submit again")
	}
	if cb.pass != passNone {
		t.Fatalf("Reset must clear pass state")
	}
}
