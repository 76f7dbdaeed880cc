package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_Ephemeral(t *testing.T) {
	tempBase := t.TempDir()
	mgr := NewManager(tempBase, false)

	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	wsPath := mgr.GetPath()
	if wsPath == "" {
		t.Fatal("GetPath() returned empty string")
	}
	if !strings.HasPrefix(filepath.Base(wsPath), "docpublish-") {
		t.Errorf("Expected timestamped directory, got: %s", wsPath)
	}
	if filepath.Dir(wsPath) != tempBase {
		t.Errorf("Expected workspace under %s, got: %s", tempBase, wsPath)
	}
	if _, err := os.Stat(wsPath); os.IsNotExist(err) {
		t.Errorf("Workspace directory does not exist: %s", wsPath)
	}

	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}
	if _, err := os.Stat(wsPath); !os.IsNotExist(err) {
		t.Errorf("Workspace directory still exists after cleanup: %s", wsPath)
	}
	if mgr.GetPath() != "" {
		t.Error("GetPath() should be empty after cleanup")
	}
}

func TestManager_DistinctDirectoriesPerRun(t *testing.T) {
	tempBase := t.TempDir()
	a, b := NewManager(tempBase, false), NewManager(tempBase, false)
	if err := a.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := b.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if a.GetPath() == b.GetPath() {
		t.Fatalf("runs within the same second must not share a workspace: %s", a.GetPath())
	}
}

func TestManager_Keep(t *testing.T) {
	mgr := NewManager(t.TempDir(), true)
	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	wsPath := mgr.GetPath()

	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}
	if _, err := os.Stat(wsPath); err != nil {
		t.Errorf("Kept workspace should still exist: %v", err)
	}
}

func TestManager_CreateSubdir(t *testing.T) {
	mgr := NewManager(t.TempDir(), false)

	if _, err := mgr.CreateSubdir("docs"); err == nil {
		t.Fatal("CreateSubdir() should fail before Create()")
	}
	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	sub, err := mgr.CreateSubdir("docs")
	if err != nil {
		t.Fatalf("CreateSubdir() failed: %v", err)
	}
	if info, err := os.Stat(sub); err != nil || !info.IsDir() {
		t.Errorf("Subdirectory not created: %s", sub)
	}
}

func TestManager_CleanupWithoutCreate(t *testing.T) {
	if err := NewManager("", false).Cleanup(); err != nil {
		t.Fatalf("Cleanup() without Create() should be a no-op: %v", err)
	}
}
