package bundler

import (
	"testing"

	"github.com/hgpack/hgpack/pkg/bundler/types"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	if r.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", r.Count())
	}
	if _, ok := r.Get(types.BackendTypeZipapp); !ok {
		t.Error("zipapp backend not registered")
	}
}

func TestRegistry_RegisterUnregister(t *testing.T) {
	r := NewRegistry()
	custom := types.BackendType("custom")

	r.Register(custom, &fakeBackend{})
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}

	list := r.List()
	if len(list) != 2 || list[0] != custom || list[1] != types.BackendTypeZipapp {
		t.Errorf("List() = %v, want [custom zipapp]", list)
	}

	if err := r.Unregister(custom); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if err := r.Unregister(custom); err == nil {
		t.Error("Unregister() of missing backend should fail")
	}
	if _, ok := r.Get(custom); ok {
		t.Error("Get() found unregistered backend")
	}
}
