package fetch

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeRunner struct {
	available map[string]bool
	failOn    string
	ran       []string
}

func (f *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := name + " " + strings.Join(args, " ")
	f.ran = append(f.ran, cmd)
	if f.failOn != "" && strings.HasPrefix(cmd, f.failOn) {
		return fmt.Errorf("command failed: %s", cmd)
	}
	return nil
}

func (f *fakeRunner) Output(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	return nil, nil
}

func (f *fakeRunner) Look(name string) bool { return f.available[name] }

type fakeSnapshots struct {
	data  []byte
	calls int
}

func (f *fakeSnapshots) DownloadSnapshot(ctx context.Context, name string) ([]byte, error) {
	f.calls++
	return f.data, nil
}

func gitRunner() *fakeRunner {
	return &fakeRunner{available: map[string]bool{"git": true}}
}

// snapshotTarball builds an in-memory tar.gz with the upstream layout:
// everything nested under a top-level directory named after the package.
func snapshotTarball(t *testing.T, pkgName string, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	if err := tw.WriteHeader(&tar.Header{Name: pkgName + "/", Typeflag: tar.TypeDir, Mode: 0o755}); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		hdr := &tar.Header{Name: pkgName + "/" + name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestAcquireClonesWhenAbsent(t *testing.T) {
	root := t.TempDir()
	run := gitRunner()

	dir, err := New(root, true, run, nil, nil).Acquire(context.Background(), "yay")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if dir != filepath.Join(root, "yay") {
		t.Errorf("dir = %s", dir)
	}
	want := "git clone https://aur.archlinux.org/yay.git " + dir
	if len(run.ran) != 1 || run.ran[0] != want {
		t.Errorf("commands = %v, want [%s]", run.ran, want)
	}
}

func TestAcquireRefreshesCheckout(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "yay", ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	run := gitRunner()

	if _, err := New(root, true, run, nil, nil).Acquire(context.Background(), "yay"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if len(run.ran) != 2 || run.ran[0] != "git fetch origin" || run.ran[1] != "git reset --hard FETCH_HEAD" {
		t.Errorf("commands = %v", run.ran)
	}
}

func TestAcquireFetchFailureKeepsCheckout(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "yay", ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	run := gitRunner()
	run.failOn = "git fetch"

	if _, err := New(root, true, run, nil, nil).Acquire(context.Background(), "yay"); err != nil {
		t.Fatalf("a failed fetch must degrade to the existing tree: %v", err)
	}
	for _, cmd := range run.ran {
		if strings.HasPrefix(cmd, "git reset") {
			t.Errorf("reset must not run after a failed fetch: %v", run.ran)
		}
	}
}

func TestAcquireKeepsBuiltArtifacts(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "yay")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	artifact := filepath.Join(dir, "yay-12.3.5-1-x86_64.pkg.tar.zst")
	if err := os.WriteFile(artifact, []byte("built"), 0o644); err != nil {
		t.Fatal(err)
	}
	run := gitRunner()

	got, err := New(root, true, run, nil, nil).Acquire(context.Background(), "yay")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if got != dir {
		t.Errorf("dir = %s, want %s", got, dir)
	}
	if len(run.ran) != 0 {
		t.Errorf("no git commands expected for a directory holding built packages, got %v", run.ran)
	}
	if _, err := os.Stat(artifact); err != nil {
		t.Errorf("built artifact was deleted: %v", err)
	}
}

func TestAcquireGitFailureFallsBackToSnapshot(t *testing.T) {
	root := t.TempDir()
	run := gitRunner()
	run.failOn = "git clone"
	snaps := &fakeSnapshots{data: snapshotTarball(t, "yay", map[string]string{
		"PKGBUILD": "pkgname=yay\n",
	})}

	dir, err := New(root, true, run, snaps, nil).Acquire(context.Background(), "yay")
	if err != nil {
		t.Fatalf("a failed clone must degrade to the snapshot tarball: %v", err)
	}
	if snaps.calls != 1 {
		t.Errorf("snapshot downloads = %d, want 1", snaps.calls)
	}
	if _, err := os.Stat(filepath.Join(dir, "PKGBUILD")); err != nil {
		t.Errorf("snapshot tree missing after fallback: %v", err)
	}
}

func TestAcquirePermissionFailureIsFatal(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := t.TempDir()
	dir := filepath.Join(root, "yay")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	// A stale non-checkout tree whose contents cannot be removed.
	if err := os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	snaps := &fakeSnapshots{data: snapshotTarball(t, "yay", map[string]string{"PKGBUILD": "pkgname=yay\n"})}
	_, err := New(root, true, gitRunner(), snaps, nil).Acquire(context.Background(), "yay")
	if err == nil {
		t.Fatal("an unremovable target directory must be fatal")
	}
	if !strings.Contains(err.Error(), "sudo rm -rf") {
		t.Errorf("expected the manual removal remediation, got %v", err)
	}
	if snaps.calls != 0 {
		t.Error("a permission failure must never trigger the snapshot fallback")
	}
}

func TestAcquireSnapshotKeepsBuiltArtifacts(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "paru")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	artifact := filepath.Join(dir, "paru-2.0.4-1-x86_64.pkg.tar.zst")
	if err := os.WriteFile(artifact, []byte("built"), 0o644); err != nil {
		t.Fatal(err)
	}
	snaps := &fakeSnapshots{}

	got, err := New(root, false, &fakeRunner{}, snaps, nil).Acquire(context.Background(), "paru")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if got != dir {
		t.Errorf("dir = %s, want %s", got, dir)
	}
	if snaps.calls != 0 {
		t.Errorf("no download expected for a directory holding built packages, got %d", snaps.calls)
	}
	if _, err := os.Stat(artifact); err != nil {
		t.Errorf("built artifact was deleted: %v", err)
	}
}

func TestAcquireSnapshotExtractsTree(t *testing.T) {
	root := t.TempDir()
	snaps := &fakeSnapshots{data: snapshotTarball(t, "paru", map[string]string{
		"PKGBUILD": "pkgname=paru\n",
		".SRCINFO": "pkgbase = paru\n",
	})}
	// Git disabled: the snapshot path must be taken even with git present.
	run := gitRunner()

	dir, err := New(root, false, run, snaps, nil).Acquire(context.Background(), "paru")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if snaps.calls != 1 {
		t.Errorf("snapshot downloads = %d, want 1", snaps.calls)
	}
	data, err := os.ReadFile(filepath.Join(dir, "PKGBUILD"))
	if err != nil || string(data) != "pkgname=paru\n" {
		t.Errorf("PKGBUILD content = %q, err = %v", data, err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".staging-") {
			t.Errorf("staging directory left behind: %s", e.Name())
		}
	}
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	content := "evil"
	if err := tw.WriteHeader(&tar.Header{Name: "../evil.txt", Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(content))}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	gz.Close()

	if err := extractTarGz(buf.Bytes(), t.TempDir()); err == nil {
		t.Fatal("expected an error for an entry escaping the destination")
	}
}
