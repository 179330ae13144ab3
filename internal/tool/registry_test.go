package tool

import "testing"

func TestRegistryGetMissing(t *testing.T) {
	r := NewRegistry(t.TempDir())
	if _, ok := r.Get("NoSuchTool"); ok {
		t.Error("expected lookup of unregistered tool to fail")
	}
}

func TestRegistryNamesMatchesRegistered(t *testing.T) {
	r := NewRegistry(t.TempDir())
	r.Register(NewReadTool(r.workDir))
	r.Register(NewWriteTool(r.workDir))

	names := r.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d: %v", len(names), names)
	}
}

func TestRegistrySetTaskExecutorNoopWithoutTaskTool(t *testing.T) {
	store := newMemoryTodoStore()
	r := DefaultRegistry(t.TempDir(), store)

	// Should not panic even though Task was never registered.
	r.SetTaskExecutor(&fakeExecutor{})
}

func TestRegistrySetTaskExecutorWiresRegisteredTaskTool(t *testing.T) {
	store := newMemoryTodoStore()
	r := DefaultRegistry(t.TempDir(), store)
	agents := &fakeAgents{subagents: map[string]bool{"explorer": true}}
	r.RegisterTaskTool(agents)

	executor := &fakeExecutor{}
	r.SetTaskExecutor(executor)

	tool, ok := r.Get("Task")
	if !ok {
		t.Fatal("expected Task to be registered")
	}
	taskTool := tool.(*TaskTool)
	if taskTool.executor != executor {
		t.Error("expected executor to be wired onto the registered task tool")
	}
}
