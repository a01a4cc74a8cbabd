package tool

import (
	"context"
	"errors"
	"testing"
)

type stubTool struct {
	name      string
	available bool
	result    Result
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub tool " + s.name }
func (s *stubTool) Available() bool     { return s.available }
func (s *stubTool) Execute(_ context.Context, _ string) Result {
	return s.result
}

func TestRegistryRegisterDuplicate(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&stubTool{name: "alpha", available: true}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := r.Register(&stubTool{name: "alpha", available: true})
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("duplicate register = %v, want ErrDuplicateName", err)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Get("ghost"); !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("Get unknown = %v, want ErrUnknownTool", err)
	}
}

func TestRegistryAvailableOrder(t *testing.T) {
	r := NewRegistry()
	for _, s := range []*stubTool{
		{name: "first", available: true},
		{name: "second", available: false},
		{name: "third", available: true},
	} {
		if err := r.Register(s); err != nil {
			t.Fatalf("register %s: %v", s.name, err)
		}
	}

	avail := r.Available()
	if len(avail) != 2 {
		t.Fatalf("got %d available tools, want 2", len(avail))
	}
	if avail[0].Name() != "first" || avail[1].Name() != "third" {
		t.Fatalf("unexpected order: %s, %s", avail[0].Name(), avail[1].Name())
	}

	if r.IsAvailable("second") {
		t.Fatal("second should be unavailable")
	}
	if !r.IsAvailable("third") {
		t.Fatal("third should be available")
	}

	names := r.Names()
	if len(names) != 3 || names[0] != "first" || names[1] != "second" || names[2] != "third" {
		t.Fatalf("unexpected names: %v", names)
	}
}
