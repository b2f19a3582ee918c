package gpuvk

import (
	"testing"

	"github.com/kestrelgpu/gpuvk/internal/resource"
)

// idleBuffer returns a *resource.Buffer at the baseline "owned but unbound"
// refcount (1), the same state CreateBuffer leaves a fresh instance in,
// without needing a live device to get there.
func idleBuffer() *resource.Buffer {
	b := &resource.Buffer{}
	b.AddRef()
	return b
}

func TestAcquireBufferForWriteReusesActiveWithoutCycle(t *testing.T) {
	d := &GPUDevice{}
	active := idleBuffer()
	other := idleBuffer()
	b := &Buffer{instances: []*resource.Buffer{active, other}, active: 0}

	got, err := d.acquireBufferForWrite(b, false)
	if err != nil {
		t.Fatalf("acquireBufferForWrite: %v", err)
	}
	if got != active {
		t.Fatalf("cycle=false must always return the active instance, regardless of its refcount")
	}
}

func TestAcquireBufferForWriteReusesActiveWhenIdle(t *testing.T) {
	d := &GPUDevice{}
	active := idleBuffer()
	b := &Buffer{instances: []*resource.Buffer{active}, active: 0}

	got, err := d.acquireBufferForWrite(b, true)
	if err != nil {
		t.Fatalf("acquireBufferForWrite: %v", err)
	}
	if got != active {
		t.Fatalf("cycle=true must reuse the active instance in place when it isn't bound by any in-flight work")
	}
}

func TestAcquireBufferForWriteSwitchesToIdleInstanceOnCycle(t *testing.T) {
	d := &GPUDevice{}
	active := idleBuffer()
	active.AddRef() // simulate still referenced by an in-flight command buffer
	idle := idleBuffer()
	b := &Buffer{instances: []*resource.Buffer{active, idle}, active: 0}

	got, err := d.acquireBufferForWrite(b, true)
	if err != nil {
		t.Fatalf("acquireBufferForWrite: %v", err)
	}
	if got != idle {
		t.Fatalf("cycle=true must switch to an already-allocated idle instance before allocating a new one")
	}
	if b.active != 1 {
		t.Fatalf("active index must move to the instance cycling selected, got %d", b.active)
	}
}

// TestAcquireTextureForWriteRefusesCycleOnNonCycleableContainer covers the
// swapchain-texture case (§3/§4.9): a container marked non-cycleable must
// never grow past its single driver-owned instance, even when every caller
// asks for a cycling write.
func TestAcquireTextureForWriteRefusesCycleOnNonCycleableContainer(t *testing.T) {
	d := &GPUDevice{}
	active := &resource.Texture{}
	active.AddRef()
	active.AddRef() // still referenced, would otherwise trigger a cycle
	tex := &Texture{instances: []*resource.Texture{active}, active: 0, cycleable: false}

	got, err := d.acquireTextureForWrite(tex, true)
	if err != nil {
		t.Fatalf("acquireTextureForWrite: %v", err)
	}
	if got != active {
		t.Fatalf("a non-cycleable container must always return its single instance, even under pressure")
	}
	if len(tex.instances) != 1 {
		t.Fatalf("a non-cycleable container must never grow past one instance, got %d", len(tex.instances))
	}
}
