package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wahtml/wahtml/internal/blobstore"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkEmbedsSmallFilesInline(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "small content")

	items, err := Walk(root, Options{ExternalThreshold: 1024})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].Entry == nil || items[0].External != nil {
		t.Error("small file should be embedded inline, not external")
	}
	if string(items[0].Entry.Data) != "small content" {
		t.Errorf("entry data = %q", items[0].Entry.Data)
	}
}

func TestWalkExternalizesLargeFiles(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, 4096)
	for i := range big {
		big[i] = byte(i)
	}
	writeFile(t, root, "big.bin", string(big))

	blobs, err := blobstore.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer blobs.Close()

	items, err := Walk(root, Options{ExternalThreshold: 100, Blobs: blobs})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].External == nil {
		t.Fatal("large file should have been stored externally")
	}
	if items[0].External.RealSize != uint64(len(big)) {
		t.Errorf("RealSize = %d, want %d", items[0].External.RealSize, len(big))
	}

	got, err := blobs.Get(items[0].External.Reference)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(big) {
		t.Error("blob stored does not match original content")
	}
}

func TestWalkRespectsIncludeExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.txt", "1")
	writeFile(t, root, "skip.log", "2")
	writeFile(t, root, "nested/keep2.txt", "3")

	items, err := Walk(root, Options{
		Include:           []string{"**/*.txt"},
		Exclude:           []string{"skip.log"},
		ExternalThreshold: 1024,
	})
	if err != nil {
		t.Fatal(err)
	}
	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	if len(paths) != 2 {
		t.Fatalf("got paths %v, want 2 matches", paths)
	}
}

func TestWalkRejectsNonASCIIName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "caf\xc3\xa9.txt", "data")

	if _, err := Walk(root, Options{ExternalThreshold: 1024}); err == nil {
		t.Error("expected an error for a non-ASCII file name")
	}
}
