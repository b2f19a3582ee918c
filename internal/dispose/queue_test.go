package dispose

import "testing"

type fakeDestroyer struct{ destroyed *bool }

func (d fakeDestroyer) Destroy() { *d.destroyed = true }

func TestDrainOnlyDestroysRetiredGenerations(t *testing.T) {
	q := New()
	var early, late bool
	q.DeferBuffer(1, fakeDestroyer{&early})
	q.DeferBuffer(5, fakeDestroyer{&late})

	q.Drain(2)
	if !early {
		t.Fatalf("entry queued under generation 1 must be destroyed once generation 2 retires")
	}
	if late {
		t.Fatalf("entry queued under generation 5 must not be destroyed before its generation retires")
	}
	if q.Pending() != 1 {
		t.Fatalf("expected exactly one entry still pending, got %d", q.Pending())
	}

	q.Drain(10)
	if !late {
		t.Fatalf("entry must be destroyed once its generation retires")
	}
	if q.Pending() != 0 {
		t.Fatalf("expected queue to be empty after draining every generation")
	}
}

func TestDrainOrdersFramebuffersAndPipelinesBeforeBuffers(t *testing.T) {
	q := New()
	var order []string
	record := func(name string) fakeRecorder {
		return fakeRecorder{name: name, order: &order}
	}
	q.DeferBuffer(1, record("buffer"))
	q.DeferFramebuffer(1, record("framebuffer"))
	q.DeferPipeline(1, record("pipeline"))

	q.Drain(1)

	if len(order) != 3 || order[0] != "framebuffer" || order[1] != "pipeline" || order[2] != "buffer" {
		t.Fatalf("expected framebuffer, pipeline, buffer order, got %v", order)
	}
}

type fakeRecorder struct {
	name  string
	order *[]string
}

func (r fakeRecorder) Destroy() { *r.order = append(*r.order, r.name) }
