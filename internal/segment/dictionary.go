package segment

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	sidecarerrors "github.com/thai-tokenizer/sidecar/internal/errors"
)

// dictionarySnapshot is an immutable copy of the custom dictionary
// visible to a single Segment call. Hot reload publishes a new snapshot
// with a single pointer swap; readers never block writers and vice
// versa.
type dictionarySnapshot struct {
	words []string
}

// Dictionary is a single-writer, many-reader holder for the custom
// dictionary used by the "custom" engine variant (spec.md §4.1, §9).
// It optionally watches its backing file for changes and reloads
// automatically. Grounded on internal/watcher/hybrid.go's fsnotify event
// loop, simplified to a single file rather than a recursive tree, and
// internal/embed/lock.go's gofrs/flock usage for safe concurrent writes
// from multiple sidecar processes sharing one dictionary file.
type Dictionary struct {
	path    string
	preset  []string
	current atomic.Pointer[dictionarySnapshot]
	watcher *fsnotify.Watcher
	lock    *flock.Flock
}

// WakamePreset returns the fixed set of Thai-transliterated loanwords
// that every dictionary carries regardless of the configured file's
// contents. These are the terms the newmm/attacut/deepcut training
// corpora consistently miss or mis-split (menu and product loanwords
// borrowed from Japanese and English), so the sidecar seeds them itself
// rather than relying on every deployment's dictionary file to list
// them.
func WakamePreset() []string {
	return []string{
		"วากาเมะ",
		"สาหร่ายวากาเมะ",
		"สาหร่ายคอมบุ",
		"สาหร่ายโนริ",
		"มิโซะ",
		"ซูชิ",
		"ซาชิมิ",
		"เทมปุระ",
		"เอดามาเมะ",
		"ทาโกะยากิ",
		"ฮอทดอก",
		"แฮมเบอร์เกอร์",
		"เฟรนช์ฟรายส์",
	}
}

// NewDictionary creates a Dictionary bound to the given file path and
// performs an initial load. The file need not exist yet; the preset
// words are available immediately and every subsequent reload keeps
// merging them back in.
func NewDictionary(path string) (*Dictionary, error) {
	d := &Dictionary{
		path:   path,
		preset: WakamePreset(),
		lock:   flock.New(path + ".lock"),
	}
	d.current.Store(&dictionarySnapshot{words: d.preset})

	if err := d.reload(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return d, nil
}

// Words returns the current dictionary snapshot's word list. Safe for
// concurrent use; the returned slice must not be mutated by the caller.
func (d *Dictionary) Words() []string {
	snap := d.current.Load()
	if snap == nil {
		return nil
	}
	return snap.words
}

// reload reads the dictionary file and atomically swaps the snapshot.
func (d *Dictionary) reload() error {
	f, err := os.Open(d.path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var words []string
	seen := make(map[string]struct{})
	for _, w := range d.preset {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return sidecarerrors.New(sidecarerrors.ErrCodeDictionaryIO, "scan dictionary file", err)
	}

	d.current.Store(&dictionarySnapshot{words: words})
	return nil
}

// Add appends new words to the dictionary file under an exclusive
// cross-process lock, then reloads the in-memory snapshot. Duplicate
// words (already present) are skipped.
func (d *Dictionary) Add(words []string) error {
	if err := d.lock.Lock(); err != nil {
		return sidecarerrors.New(sidecarerrors.ErrCodeDictionaryIO, "acquire dictionary lock", err)
	}
	defer func() { _ = d.lock.Unlock() }()

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return sidecarerrors.New(sidecarerrors.ErrCodeDictionaryIO, "create dictionary directory", err)
	}

	existing := make(map[string]struct{})
	for _, w := range d.Words() {
		existing[w] = struct{}{}
	}

	f, err := os.OpenFile(d.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return sidecarerrors.New(sidecarerrors.ErrCodeDictionaryIO, "open dictionary file", err)
	}
	defer func() { _ = f.Close() }()

	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, dup := existing[w]; dup {
			continue
		}
		existing[w] = struct{}{}
		if _, err := f.WriteString(w + "\n"); err != nil {
			return sidecarerrors.New(sidecarerrors.ErrCodeDictionaryIO, "write dictionary file", err)
		}
	}

	return d.reload()
}

// Watch starts watching the dictionary file for external changes and
// reloads the snapshot whenever it is written. Watch blocks until ctx
// is cancelled or Close is called; call it from its own goroutine.
func (d *Dictionary) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return sidecarerrors.New(sidecarerrors.ErrCodeDictionaryIO, "create dictionary watcher", err)
	}
	d.watcher = w

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sidecarerrors.New(sidecarerrors.ErrCodeDictionaryIO, "create dictionary directory", err)
	}
	if err := w.Add(dir); err != nil {
		return sidecarerrors.New(sidecarerrors.ErrCodeDictionaryIO, "watch dictionary directory", err)
	}

	for {
		select {
		case <-ctx.Done():
			return w.Close()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(d.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := d.reload(); err != nil {
					slog.Warn("dictionary_reload_failed", slog.String("path", d.path), slog.String("error", err.Error()))
				} else {
					slog.Info("dictionary_reloaded", slog.String("path", d.path), slog.Int("words", len(d.Words())))
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("dictionary_watch_error", slog.String("error", err.Error()))
		}
	}
}

// Close stops the file watcher, if running.
func (d *Dictionary) Close() error {
	if d.watcher == nil {
		return nil
	}
	return d.watcher.Close()
}
