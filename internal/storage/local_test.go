package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return l
}

func stageWith(t *testing.T, l *Local, files map[string]string) string {
	t.Helper()
	stage, err := l.Stage()
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	for rel, content := range files {
		path := filepath.Join(stage, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return stage
}

func TestLocal_PublishAndList(t *testing.T) {
	l := newLocal(t)
	stage := stageWith(t, l, map[string]string{
		"index.html":   "<html>",
		"img/logo.png": "png",
	})
	if err := l.Publish(stage, "myapp-1"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, err := l.List("myapp-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"img/logo.png", "index.html"}
	if len(got) != len(want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List = %v, want %v", got, want)
		}
	}
}

func TestLocal_PublishReplacesWholeTree(t *testing.T) {
	l := newLocal(t)

	s1 := stageWith(t, l, map[string]string{"index.html": "v1", "old.css": "x"})
	if err := l.Publish(s1, "app"); err != nil {
		t.Fatalf("publish v1: %v", err)
	}
	s2 := stageWith(t, l, map[string]string{"index.html": "v2"})
	if err := l.Publish(s2, "app"); err != nil {
		t.Fatalf("publish v2: %v", err)
	}

	files, err := l.List("app")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 1 || files[0] != "index.html" {
		t.Fatalf("deploy must replace, not merge; got %v", files)
	}

	rc, _, err := l.Open("app", "index.html")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "v2" {
		t.Fatalf("content = %q, want v2", b)
	}
}

func TestLocal_OpenConfinedToPrefix(t *testing.T) {
	l := newLocal(t)
	stage := stageWith(t, l, map[string]string{"index.html": "a"})
	if err := l.Publish(stage, "app-a"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	other := stageWith(t, l, map[string]string{"secret.txt": "b"})
	if err := l.Publish(other, "app-b"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, rel := range []string{
		"../app-b/secret.txt",
		"..%2Fapp-b/secret.txt",
		"foo/../../app-b/secret.txt",
	} {
		if _, _, err := l.Open("app-a", rel); err != ErrTraversal {
			// %2F no decodificado no contiene "..", pero tampoco debe resolver
			if err == nil {
				t.Fatalf("Open(%q) escaped the prefix", rel)
			}
		}
	}
}

func TestLocal_BadPrefixRejected(t *testing.T) {
	l := newLocal(t)
	for _, prefix := range []string{"", "..", "../x", "/abs"} {
		if _, err := l.List(prefix); err != ErrBadPrefix {
			t.Fatalf("List(%q) err = %v, want ErrBadPrefix", prefix, err)
		}
	}
}

func TestLocal_ListMissingPrefixIsEmpty(t *testing.T) {
	l := newLocal(t)
	files, err := l.List("nope")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("List = %v, want empty", files)
	}
}

func TestLocal_FailedPublishKeepsOldTree(t *testing.T) {
	l := newLocal(t)
	s1 := stageWith(t, l, map[string]string{"index.html": "old"})
	if err := l.Publish(s1, "app"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// Stage inexistente: el publish falla y el árbol viejo sobrevive.
	if err := l.Publish(filepath.Join(l.Root(), ".stage-gone"), "app"); err == nil {
		t.Fatal("publish of missing stage should fail")
	}
	rc, _, err := l.Open("app", "index.html")
	if err != nil {
		t.Fatalf("old tree lost after failed publish: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "old" {
		t.Fatalf("content = %q, want old", b)
	}
}
