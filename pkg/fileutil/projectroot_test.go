package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "analysis", "scripts")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("Failed to create nested dirs: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "phantomtherm.yaml"), []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to write marker: %v", err)
	}

	t.Run("FromNestedDir", func(t *testing.T) {
		got, err := FindProjectRoot(nested, "phantomtherm.yaml")
		if err != nil {
			t.Fatalf("FindProjectRoot failed: %v", err)
		}
		// TempDir may contain symlinked components on some platforms, so
		// compare resolved paths.
		wantResolved, _ := filepath.EvalSymlinks(root)
		gotResolved, _ := filepath.EvalSymlinks(got)
		if gotResolved != wantResolved {
			t.Errorf("FindProjectRoot = %q, want %q", got, root)
		}
	})

	t.Run("FromRootItself", func(t *testing.T) {
		if _, err := FindProjectRoot(root, "phantomtherm.yaml"); err != nil {
			t.Fatalf("FindProjectRoot failed at root: %v", err)
		}
	})

	t.Run("MarkerMissing", func(t *testing.T) {
		if _, err := FindProjectRoot(nested, "no-such-marker.yaml"); err == nil {
			t.Fatal("Expected error when marker does not exist")
		}
	})
}
