package devserver

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"cameio-cli/src/logger"
)

// DefaultWatchPatterns watch www except the bundled libraries.
var DefaultWatchPatterns = []string{"www/**/*", "!www/lib/**/*"}

// Watcher reports settled file changes under a project directory.
type Watcher struct {
	dir     string
	match   *Matcher
	settle  time.Duration
	log     logger.Logger
	watcher *fsnotify.Watcher
	pending map[string]time.Time
}

// NewWatcher watches every directory under dir/www.
func NewWatcher(dir string, patterns []string, settle time.Duration, log logger.Logger) (*Watcher, error) {
	if settle <= 0 {
		settle = 250 * time.Millisecond
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		dir:     dir,
		match:   NewMatcher(patterns),
		settle:  settle,
		log:     log,
		watcher: fw,
		pending: make(map[string]time.Time),
	}
	if err := w.addTree(filepath.Join(dir, "www")); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run calls onChange with the settled changed files until ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func(changed []string)) error {
	defer w.watcher.Close()

	tick := time.NewTicker(w.settle / 2)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch error: %v", err)
		case now := <-tick.C:
			if changed := w.settled(now); len(changed) > 0 {
				onChange(changed)
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.Error("watch %s: %v", event.Name, err)
			}
		}
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	rel, err := filepath.Rel(w.dir, event.Name)
	if err != nil || !w.match.Match(filepath.ToSlash(rel)) {
		return
	}
	w.log.Debug("watch %s %s", event.Op, rel)
	w.pending[filepath.ToSlash(rel)] = time.Now()
}

func (w *Watcher) settled(now time.Time) []string {
	var out []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.settle {
			out = append(out, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(out)
	return out
}

// Matcher applies include and "!" exclude glob patterns. "**" matches
// across directories, "*" and "?" within one.
type Matcher struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// NewMatcher compiles patterns.
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			m.exclude = append(m.exclude, globRegexp(p[1:]))
		} else {
			m.include = append(m.include, globRegexp(p))
		}
	}
	return m
}

// Match reports whether the slash-separated path is watched.
func (m *Matcher) Match(path string) bool {
	for _, re := range m.exclude {
		if re.MatchString(path) {
			return false
		}
	}
	for _, re := range m.include {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func globRegexp(glob string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(glob); i++ {
		switch c := glob[i]; c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				i++
				if i+1 < len(glob) && glob[i+1] == '/' {
					// "**/" also matches no directory at all
					i++
					b.WriteString("(?:.*/)?")
				} else {
					b.WriteString(".*")
				}
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
