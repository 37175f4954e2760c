// Package devserver serves a project's www directory for development with
// live reload and browser console forwarding.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"cameio-cli/src/logger"
	"cameio-cli/src/ui"
)

const (
	DefaultPort = 8100
	DefaultHost = "0.0.0.0"

	LiveReloadPath = "/__cameio/livereload"
	ConsolePath    = "/__cameio/console"
)

// Options configure a Server.
type Options struct {
	// Dir is the project root; www under it is served.
	Dir         string
	Host        string
	Port        int
	LiveReload  bool
	ConsoleLogs bool
	ServerLogs  bool
	// WatchPatterns select the files that trigger a reload, relative to
	// Dir. A leading "!" excludes.
	WatchPatterns []string
	// Settle is how long a changed file must stay quiet before reloading.
	Settle time.Duration
}

// Server is the development http server.
type Server struct {
	opts    Options
	root    string
	printer *ui.Printer
	log     logger.Logger
	hub     *hub

	mu   sync.Mutex
	addr net.Addr
}

// New creates a server. Port 0 picks a free port.
func New(opts Options, printer *ui.Printer, log logger.Logger) *Server {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if len(opts.WatchPatterns) == 0 {
		opts.WatchPatterns = DefaultWatchPatterns
	}
	if opts.Settle == 0 {
		opts.Settle = 250 * time.Millisecond
	}
	return &Server{
		opts:    opts,
		root:    filepath.Join(opts.Dir, "www"),
		printer: printer,
		log:     log,
		hub:     newHub(),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	if s.opts.ServerLogs {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  printerLog{s.printer},
			NoColor: true,
		}))
	}

	r.Get(LiveReloadPath, s.handleLiveReload)
	r.Post(ConsolePath, s.handleConsole)
	r.Get("/*", s.handleStatic)
	return r
}

// Run listens and watches until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	var watcher *Watcher
	if s.opts.LiveReload {
		w, err := NewWatcher(s.opts.Dir, s.opts.WatchPatterns, s.opts.Settle, s.log)
		if err != nil {
			return err
		}
		watcher = w
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.opts.Host, fmt.Sprint(s.opts.Port)))
	if err != nil {
		if watcher != nil {
			watcher.Close()
		}
		return fmt.Errorf("Unable to start the dev server on port %d: %w", s.opts.Port, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	httpSrv := &http.Server{
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.hub.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx, s.Reload)
		})
	}

	s.printer.Success("Running dev server: %s", s.URL())
	if s.opts.LiveReload {
		s.printer.Small("Watching: %s", strings.Join(s.opts.WatchPatterns, ", "))
	}
	return g.Wait()
}

// URL is the local address of a running server.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	port := s.opts.Port
	if tcp, ok := s.addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	return fmt.Sprintf("http://localhost:%d", port)
}

// Reload tells every connected browser to reload.
func (s *Server) Reload(changed []string) {
	for _, f := range changed {
		s.printer.Small("Changed: %s", f)
	}
	s.hub.broadcast("reload")
}

func (s *Server) handleLiveReload(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// ConsoleMessage is a browser console call forwarded by the injected script.
type ConsoleMessage struct {
	Level string   `json:"level"`
	Args  []string `json:"args"`
}

func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	var msg ConsoleMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "bad console message", http.StatusBadRequest)
		return
	}
	if s.opts.ConsoleLogs {
		line := fmt.Sprintf("console.%s: %s", msg.Level, strings.Join(msg.Args, " "))
		switch msg.Level {
		case "error":
			s.printer.Error("%s", line)
		case "warn":
			s.printer.Warn("%s", line)
		default:
			s.printer.Plain("%s", line)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + chi.URLParam(r, "*"))
	full := filepath.Join(s.root, filepath.FromSlash(name))

	info, err := os.Stat(full)
	if err == nil && info.IsDir() {
		full = filepath.Join(full, "index.html")
		info, err = os.Stat(full)
	}
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if strings.EqualFold(filepath.Ext(full), ".html") && (s.opts.LiveReload || s.opts.ConsoleLogs) {
		data, err := os.ReadFile(full)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		page := Inject(string(data), s.opts.LiveReload, s.opts.ConsoleLogs)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		http.ServeContent(w, r, info.Name(), info.ModTime(), strings.NewReader(page))
		return
	}
	http.ServeFile(w, r, full)
}

// printerLog adapts the printer to chi's request logger.
type printerLog struct {
	p *ui.Printer
}

func (l printerLog) Print(v ...interface{}) {
	l.p.Small("%s", strings.TrimSpace(fmt.Sprint(v...)))
}

// hub fans reload events out to the connected browsers.
type hub struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
	closed  bool
}

func newHub() *hub {
	return &hub{clients: make(map[chan string]struct{})}
}

func (h *hub) subscribe() chan string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan string, 1)
	if h.closed {
		close(ch)
		return ch
	}
	h.clients[ch] = struct{}{}
	return ch
}

func (h *hub) unsubscribe(ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *hub) broadcast(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
