package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	osfs := OSFileSystem{}

	if !osfs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}

	if osfs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_WriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	osfs := OSFileSystem{}

	if err := osfs.WriteFile(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := osfs.WriteFile(path, []byte("second"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := osfs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the output (no temp files)", len(entries))
	}
}

func TestOSFileSystem_WriteFileMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.txt")
	if err := (OSFileSystem{}).WriteFile(path, []byte("x"), 0o644); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
}

func TestOSFileSystem_MkdirAllAndRemove(t *testing.T) {
	osfs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := osfs.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if !osfs.Exists(dir) {
		t.Fatal("directory should exist")
	}
	if err := osfs.Remove(dir); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if osfs.Exists(dir) {
		t.Error("directory should be gone")
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("hello, world")
	if err := mfs.WriteFile("/test.txt", testData, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := mfs.ReadFile("/test.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}

	data[0] = 'J'
	again, _ := mfs.ReadFile("/test.txt")
	if string(again) != string(testData) {
		t.Error("ReadFile must return a copy")
	}
}

func TestMemoryFileSystem_WriteNeedsParent(t *testing.T) {
	mfs := NewMemoryFileSystem()
	err := mfs.WriteFile("/out/points.txt", []byte("x"), 0o644)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("WriteFile error = %v, want ErrNotExist", err)
	}

	if err := mfs.MkdirAll("/out", 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := mfs.WriteFile("/out/points.txt", []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed after MkdirAll: %v", err)
	}
	if got := mfs.Files(); len(got) != 1 || got[0] != "/out/points.txt" {
		t.Errorf("Files() = %v", got)
	}
}

func TestMemoryFileSystem_FailWrite(t *testing.T) {
	mfs := NewMemoryFileSystem()
	boom := errors.New("disk full")
	mfs.FailWrite = func(name string) error {
		if filepath.Base(name) == "bad.txt" {
			return boom
		}
		return nil
	}

	if err := mfs.WriteFile("good.txt", []byte("ok"), 0o644); err != nil {
		t.Fatalf("WriteFile(good) failed: %v", err)
	}
	if err := mfs.WriteFile("bad.txt", []byte("abcdef"), 0o644); !errors.Is(err, boom) {
		t.Fatalf("WriteFile(bad) error = %v, want %v", err, boom)
	}
	if mfs.Exists("bad.txt") {
		t.Error("failed write without PartialOnFail must not create the file")
	}

	mfs.PartialOnFail = true
	_ = mfs.WriteFile("bad.txt", []byte("abcdef"), 0o644)
	data, err := mfs.ReadFile("bad.txt")
	if err != nil || string(data) != "abc" {
		t.Errorf("partial content = %q, %v; want %q", data, err, "abc")
	}
}

func TestMemoryFileSystem_FilesSorted(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.MkdirAll("/data/sub", 0o755)
	for _, name := range []string{"/data/sub/b.txt", "/data/a.txt", "/z.txt"} {
		if err := mfs.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile(%s) failed: %v", name, err)
		}
	}
	want := []string{"/data/a.txt", "/data/sub/b.txt", "/z.txt"}
	got := mfs.Files()
	if len(got) != len(want) {
		t.Fatalf("Files() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Files()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if err := mfs.WriteFile("/data/sub", []byte("x"), 0o644); err == nil {
		t.Error("WriteFile over a directory should fail")
	}
}

func TestMemoryFileSystem_Remove(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.MkdirAll("/dir", 0o755)
	_ = mfs.WriteFile("/dir/file.txt", []byte("x"), 0o644)

	if err := mfs.Remove("/dir"); err == nil {
		t.Error("Remove of non-empty directory should fail")
	}
	_ = mfs.MkdirAll("/parent/child", 0o755)
	if err := mfs.Remove("/parent"); err == nil {
		t.Error("Remove of a directory holding a subdirectory should fail")
	}
	if err := mfs.Remove("/dir/file.txt"); err != nil {
		t.Fatalf("Remove(file) failed: %v", err)
	}
	if err := mfs.Remove("/dir"); err != nil {
		t.Fatalf("Remove(empty dir) failed: %v", err)
	}
	if mfs.Exists("/dir") {
		t.Error("directory should be gone")
	}
	if err := mfs.Remove("/dir"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Remove(missing) error = %v, want ErrNotExist", err)
	}
}

func TestMemoryFileSystem_PathCleaning(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.MkdirAll("/a/b", 0o755)
	if err := mfs.WriteFile("/a/./b/../b/c.txt", []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if !mfs.Exists("/a/b/c.txt") {
		t.Error("cleaned path should exist")
	}
}

func TestMemoryFileSystem_MkdirOverFile(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.WriteFile("/f", []byte("x"), 0o644)
	if err := mfs.MkdirAll("/f/sub", 0o755); err == nil {
		t.Error("MkdirAll through a file should fail")
	}
}
