package segment

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDictionary_MissingFileYieldsPresetOnly(t *testing.T) {
	dir := t.TempDir()
	dict, err := NewDictionary(filepath.Join(dir, "dictionary.txt"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dict.Words()) != len(WakamePreset()) {
		t.Errorf("expected only the preset words, got %v", dict.Words())
	}
}

func TestNewDictionary_LoadsExistingWordsAlongsidePreset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dictionary.txt")
	content := "มะม่วงสุก\nข้าวเหนียว\n# comment\n\nส้มตำ\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dictionary: %v", err)
	}

	dict, err := NewDictionary(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	words := dict.Words()
	want := len(WakamePreset()) + 3
	if len(words) != want {
		t.Fatalf("expected %d words, got %d: %v", want, len(words), words)
	}
}

func TestNewDictionary_PresetWordInFileDoesNotDuplicate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dictionary.txt")
	if err := os.WriteFile(path, []byte("ซูชิ\n"), 0o644); err != nil {
		t.Fatalf("failed to write dictionary: %v", err)
	}

	dict, err := NewDictionary(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dict.Words()) != len(WakamePreset()) {
		t.Errorf("expected the preset's own wakame-loanword entry to absorb the file's duplicate, got %d words", len(dict.Words()))
	}
}

func TestDictionary_Add_DeduplicatesAndPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dictionary.txt")
	dict, err := NewDictionary(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := dict.Add([]string{"มะม่วงสุก", "มะม่วงสุก", "ข้าวเหนียว"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	want := len(WakamePreset()) + 2
	words := dict.Words()
	if len(words) != want {
		t.Fatalf("expected %d unique words, got %d: %v", want, len(words), words)
	}

	reloaded, err := NewDictionary(path)
	if err != nil {
		t.Fatalf("unexpected error reloading: %v", err)
	}
	if len(reloaded.Words()) != want {
		t.Errorf("expected persisted dictionary to have %d words, got %d", want, len(reloaded.Words()))
	}
}

func TestDictionary_Add_SkipsExistingWords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dictionary.txt")
	dict, err := NewDictionary(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := dict.Add([]string{"มะม่วงสุก"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := dict.Add([]string{"มะม่วงสุก", "ข้าวเหนียว"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	want := len(WakamePreset()) + 2
	words := dict.Words()
	if len(words) != want {
		t.Fatalf("expected %d words after second add, got %d: %v", want, len(words), words)
	}
}
