package alias

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTarget(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(name), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCreateAlias(t *testing.T) {
	staging := t.TempDir()
	aliases := t.TempDir()
	target := writeTarget(t, staging, "clip-deadbeef.png")

	r := NewRotator(aliases, "clip-paste", 5)
	link, err := r.Create(target, "png")
	if err != nil {
		t.Fatal(err)
	}

	name := filepath.Base(link)
	if !strings.HasPrefix(name, "clip-paste-") || !strings.HasSuffix(name, ".png") {
		t.Errorf("alias name = %q", name)
	}
	got, err := os.Readlink(link)
	if err != nil {
		t.Fatal(err)
	}
	if got != target {
		t.Errorf("alias target = %q, want %q", got, target)
	}

	latest, err := os.Readlink(r.Latest("png"))
	if err != nil {
		t.Fatal(err)
	}
	if latest != target {
		t.Errorf("latest target = %q, want %q", latest, target)
	}
}

func TestCreateSameSecondCollision(t *testing.T) {
	staging := t.TempDir()
	aliases := t.TempDir()
	r := NewRotator(aliases, "clip-paste", 5)
	fixed := time.Date(2026, 8, 29, 12, 0, 0, 0, time.Local)
	r.now = func() time.Time { return fixed }

	t1 := writeTarget(t, staging, "clip-11111111.txt")
	t2 := writeTarget(t, staging, "clip-22222222.txt")

	first, err := r.Create(t1, "txt")
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Create(t2, "txt")
	if err != nil {
		t.Fatalf("same-second alias must still be created: %v", err)
	}
	if first == second {
		t.Fatal("colliding aliases must get distinct names")
	}
	if got, _ := os.Readlink(r.Latest("txt")); got != t2 {
		t.Errorf("latest = %q, want most recent target %q", got, t2)
	}
}

func TestRotateKeepsNewestK(t *testing.T) {
	staging := t.TempDir()
	aliases := t.TempDir()
	const keep = 5
	r := NewRotator(aliases, "clip-paste", keep)

	clock := time.Date(2026, 8, 29, 12, 0, 0, 0, time.Local)
	r.now = func() time.Time { return clock }

	var created []string
	for i := 0; i < 8; i++ {
		target := writeTarget(t, staging, "clip-"+strings.Repeat(string(rune('a'+i)), 8)+".png")
		link, err := r.Create(target, "png")
		if err != nil {
			t.Fatal(err)
		}
		created = append(created, link)
		clock = clock.Add(time.Second)
		// Symlink mtimes on the same filesystem tick can tie; the name
		// tiebreak covers that, but keep mtimes ordered anyway.
		time.Sleep(2 * time.Millisecond)
	}

	if err := r.Rotate("png"); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(aliases)
	if err != nil {
		t.Fatal(err)
	}
	var numbered []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "clip-paste-") {
			numbered = append(numbered, e.Name())
		}
	}
	if len(numbered) != keep {
		t.Fatalf("numbered aliases = %d, want %d: %v", len(numbered), keep, numbered)
	}
	for _, link := range created[len(created)-keep:] {
		if _, err := os.Lstat(link); err != nil {
			t.Errorf("recent alias %q must survive rotation", filepath.Base(link))
		}
	}
	for _, link := range created[:len(created)-keep] {
		if _, err := os.Lstat(link); !os.IsNotExist(err) {
			t.Errorf("old alias %q must be rotated out", filepath.Base(link))
		}
	}
	if _, err := os.Lstat(r.Latest("png")); err != nil {
		t.Error("rotation must never touch the latest alias")
	}
}

func TestRotateIgnoresRegularFilesAndOtherKinds(t *testing.T) {
	staging := t.TempDir()
	aliases := t.TempDir()
	r := NewRotator(aliases, "clip-paste", 1)

	// A regular file that matches the numbered pattern must not be deleted.
	decoy := filepath.Join(aliases, "clip-paste-20200101-000000.png")
	if err := os.WriteFile(decoy, []byte("not a symlink"), 0o600); err != nil {
		t.Fatal(err)
	}
	// A txt alias must not count against png rotation.
	txtTarget := writeTarget(t, staging, "clip-00000000.txt")
	txtLink, err := r.Create(txtTarget, "txt")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		target := writeTarget(t, staging, "clip-"+strings.Repeat(string(rune('a'+i)), 8)+".png")
		if _, err := r.Create(target, "png"); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if err := r.Rotate("png"); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(decoy); err != nil {
		t.Error("regular file matching the pattern must be left alone")
	}
	if _, err := os.Lstat(txtLink); err != nil {
		t.Error("rotation for png must not delete txt aliases")
	}
}
