package filesystem

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/arumata/genback/internal/usecase"
)

func TestCreateDirExclusive(t *testing.T) {
	ctx := context.Background()
	adapter := New(slog.Default())
	root := t.TempDir()
	path := filepath.Join(root, "exclusive")

	if err := adapter.CreateDirExclusive(ctx, path, 0o755); err != nil {
		t.Fatalf("expected first create to succeed: %v", err)
	}
	if err := adapter.CreateDirExclusive(ctx, path, 0o755); err == nil {
		t.Fatal("expected second create to fail")
	} else if !errors.Is(err, os.ErrExist) {
		t.Fatalf("expected os.ErrExist, got %v", err)
	}
}

func TestCreateDirExclusive_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not reliable on windows")
	}
	umask := syscall.Umask(0)
	defer syscall.Umask(umask)

	ctx := context.Background()
	adapter := New(slog.Default())
	root := t.TempDir()
	path := filepath.Join(root, "perm")

	if err := adapter.CreateDirExclusive(ctx, path, 0o700); err != nil {
		t.Fatalf("expected create to succeed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected stat to succeed: %v", err)
	}
	if info.Mode().Perm() != 0o700 {
		t.Fatalf("expected mode 0700, got %o", info.Mode().Perm())
	}
}

func TestCreateDirExclusive_InvalidPerm(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not reliable on windows")
	}
	umask := syscall.Umask(0)
	defer syscall.Umask(umask)

	ctx := context.Background()
	adapter := New(slog.Default())
	root := t.TempDir()
	path := filepath.Join(root, "invalid-perm")

	if err := adapter.CreateDirExclusive(ctx, path, -1); err != nil {
		t.Fatalf("expected create to succeed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected stat to succeed: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Fatalf("expected mode 0755, got %o", info.Mode().Perm())
	}
}

func TestCopyFile_PreservesContentModeAndMtime(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not reliable on windows")
	}
	ctx := context.Background()
	adapter := New(slog.Default())
	root := t.TempDir()
	src := filepath.Join(root, "src.txt")
	dst := filepath.Join(root, "dst.txt")
	if err := os.WriteFile(src, []byte("hello snapshot"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(src, 0o640); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2023, 11, 5, 9, 30, 0, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	n, err := adapter.CopyFile(ctx, src, dst)
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if n != int64(len("hello snapshot")) {
		t.Fatalf("unexpected byte count %d", n)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "hello snapshot" {
		t.Fatalf("unexpected content %q (%v)", data, err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("expected mode 0640, got %o", info.Mode().Perm())
	}
	if !info.ModTime().Equal(mtime) {
		t.Fatalf("expected mtime %s, got %s", mtime, info.ModTime())
	}
	if _, err := os.Stat(dst + tempSuffix); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}
}

func TestCopyFile_CanceledLeavesNothing(t *testing.T) {
	adapter := New(slog.Default())
	root := t.TempDir()
	src := filepath.Join(root, "src.bin")
	dst := filepath.Join(root, "dst.bin")
	if err := os.WriteFile(src, make([]byte, 64<<10), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := adapter.CopyFile(ctx, src, dst); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	for _, p := range []string{dst, dst + tempSuffix} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("%s must not exist: %v", p, err)
		}
	}
}

func TestCopyFile_RejectsDirectory(t *testing.T) {
	adapter := New(slog.Default())
	root := t.TempDir()
	if _, err := adapter.CopyFile(context.Background(), root, filepath.Join(root, "x")); err == nil {
		t.Fatal("expected error copying a directory")
	}
}

func TestLink_SharesContent(t *testing.T) {
	ctx := context.Background()
	adapter := New(slog.Default())
	root := t.TempDir()
	oldname := filepath.Join(root, "prior.txt")
	newname := filepath.Join(root, "current.txt")
	if err := os.WriteFile(oldname, []byte("same"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := adapter.Link(ctx, oldname, newname); err != nil {
		t.Fatalf("link failed: %v", err)
	}
	a, _ := os.Stat(oldname)
	b, _ := os.Stat(newname)
	if !os.SameFile(a, b) {
		t.Fatal("expected hard link to the same file")
	}
	if err := adapter.Link(ctx, oldname, newname); !adapter.IsExist(err) {
		t.Fatalf("expected exist error, got %v", err)
	}
}

func TestWalk_StopsOnCanceledContext(t *testing.T) {
	adapter := New(slog.Default())
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	visited := 0
	err := adapter.Walk(ctx, root, func(path string, info usecase.FileInfo, err error) error {
		visited++
		return nil
	})
	if !errors.Is(err, context.Canceled) || visited != 0 {
		t.Fatalf("expected immediate cancel, got err=%v visited=%d", err, visited)
	}
}

func TestEvalSymlinksAndLstat(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	ctx := context.Background()
	adapter := New(slog.Default())
	root := t.TempDir()
	target := filepath.Join(root, "real")
	link := filepath.Join(root, "alias")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := adapter.Symlink(ctx, target, link); err != nil {
		t.Fatal(err)
	}
	info, err := adapter.Lstat(ctx, link)
	if err != nil || !info.IsSymlink() || info.IsRegular() {
		t.Fatalf("expected symlink info, got %v (%v)", info, err)
	}
	resolved, err := adapter.EvalSymlinks(ctx, link)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.EvalSymlinks(target)
	if resolved != want {
		t.Fatalf("resolved %s, want %s", resolved, want)
	}
}

func TestIsNotExist_NotDir(t *testing.T) {
	adapter := New(slog.Default())
	root := t.TempDir()
	file := filepath.Join(root, "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := adapter.Stat(context.Background(), filepath.Join(file, "child"))
	if !adapter.IsNotExist(err) {
		t.Fatalf("expected not-exist classification, got %v", err)
	}
}
