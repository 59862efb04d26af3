package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"todo-cli/internal/docs"
	"todo-cli/internal/model"
	"todo-cli/internal/store"

	"github.com/CAFxX/httpcompression"
	"github.com/charmbracelet/log"
	"github.com/starfederation/datastar-go/datastar"
)

//go:embed templates/*.html static/*.css
var assetsFS embed.FS

type ServerConfig struct {
	Store    store.Store
	Dir      string
	ReadOnly bool
}

type Server struct {
	cfg  ServerConfig
	tmpl *template.Template

	logger   *log.Logger
	compress func(http.Handler) http.Handler
	bc       *changeBroadcaster

	// writeMu serializes store mutations: each one is a full
	// read-modify-write, so concurrent handlers would lose updates.
	writeMu sync.Mutex
}

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Dir = strings.TrimSpace(cfg.Dir)
	if cfg.Store.KV == nil {
		return nil, errors.New("web: store is not configured")
	}

	tmpl, err := template.New("base").ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:  cfg,
		tmpl: tmpl,
		logger: log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "web",
		}),
		compress: compress,
	}
	srv.bc = newChangeBroadcaster(cfg.Store)
	go srv.bc.watchLoop()
	return srv, nil
}

// Close stops the store watcher. Streams end when their requests do.
func (s *Server) Close() {
	s.bc.Stop()
}

func (s *Server) store() store.Store { return s.cfg.Store }
func (s *Server) dir() string        { return s.cfg.Dir }
func (s *Server) readOnly() bool     { return s.cfg.ReadOnly }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stream", s.handleStream)
	mux.Handle("GET /static/app.css", s.compress(http.HandlerFunc(s.handleAppCSS)))
	mux.Handle("GET /help", s.compress(http.HandlerFunc(s.handleHelp)))
	mux.Handle("GET /", s.compress(http.HandlerFunc(s.handleHome)))
	mux.HandleFunc("POST /tasks", s.handleTaskCreate)
	mux.HandleFunc("POST /tasks/{id}/toggle", s.handleTaskToggle)
	mux.HandleFunc("POST /tasks/{id}/delete", s.handleTaskDelete)
	mux.HandleFunc("POST /tasks/clear", s.handleTasksClear)
	return s.logRequests(mux)
}

func redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	ref := strings.TrimSpace(r.Header.Get("Referer"))
	if ref != "" {
		http.Redirect(w, r, ref, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, fallback, http.StatusSeeOther)
}

type baseVM struct {
	Now       string
	Dir       string
	ReadOnly  bool
	StreamURL string
}

type pageVM struct {
	baseVM
	Tasks []model.Task
	Open  int
	Done  int
}

type helpVM struct {
	baseVM
	Body template.HTML
}

func (s *Server) baseVMFor(streamURL string) baseVM {
	return baseVM{
		Now:       time.Now().Format(time.RFC3339),
		Dir:       s.dir(),
		ReadOnly:  s.readOnly(),
		StreamURL: streamURL,
	}
}

func (s *Server) pageVMFor(tasks []model.Task) pageVM {
	open, done := 0, 0
	for _, t := range tasks {
		if t.Completed {
			done++
		} else {
			open++
		}
	}
	return pageVM{
		baseVM: s.baseVMFor("/stream"),
		Tasks:  tasks,
		Open:   open,
		Done:   done,
	}
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store().LoadAll()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeHTMLTemplate(w, "index.html", s.pageVMFor(tasks))
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	parts := []string{}
	for _, topic := range docs.Topics() {
		if md, ok := docs.Get(topic); ok {
			parts = append(parts, md)
		}
	}
	vm := helpVM{
		baseVM: s.baseVMFor(""),
		Body:   renderMarkdownHTML(strings.Join(parts, "\n\n---\n\n")),
	}
	s.writeHTMLTemplate(w, "help.html", vm)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleAppCSS(w http.ResponseWriter, r *http.Request) {
	b, err := assetsFS.ReadFile("static/app.css")
	if err != nil || len(b) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// handleStream keeps the task list region of every open tab in sync
// with the store: an initial patch on connect (the tab may hold stale
// DOM after a reconnect), then one patch per observed change.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("stream open", "remote", r.RemoteAddr)
	defer s.logger.Info("stream closed", "remote", r.RemoteAddr)

	sse := datastar.NewSSE(w, r)

	render := func() (string, error) {
		tasks, err := s.store().LoadAll()
		if err != nil {
			return "", err
		}
		return s.renderTemplate("task_list", s.pageVMFor(tasks))
	}

	patch := func() {
		html, err := render()
		if err != nil {
			_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
			return
		}
		_ = sse.PatchElements(html,
			datastar.WithSelector("#todo-list"),
			datastar.WithMode(datastar.ElementPatchModeOuter))
	}
	patch()

	ch, cancel := s.bc.subscribe()
	defer cancel()

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case <-ch:
			patch()
		}
	}
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	if s.readOnly() {
		http.Error(w, "read-only", http.StatusForbidden)
		return
	}
	_ = r.ParseForm()
	text := strings.TrimSpace(r.Form.Get("task"))
	if text == "" {
		// Empty submits are ignored, not rejected.
		redirectBack(w, r, "/")
		return
	}
	s.writeMu.Lock()
	_, err := s.store().Append(text)
	s.writeMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.bc.notify()
	redirectBack(w, r, "/")
}

func (s *Server) handleTaskToggle(w http.ResponseWriter, r *http.Request) {
	if s.readOnly() {
		http.Error(w, "read-only", http.StatusForbidden)
		return
	}
	id, err := strconv.Atoi(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}
	// An id that is no longer present is not an error: the other tab
	// just acted first. The write still happens and the redirect shows
	// the current list.
	s.writeMu.Lock()
	_, _, err = s.store().Toggle(id)
	s.writeMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.bc.notify()
	redirectBack(w, r, "/")
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	if s.readOnly() {
		http.Error(w, "read-only", http.StatusForbidden)
		return
	}
	id, err := strconv.Atoi(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}
	s.writeMu.Lock()
	_, err = s.store().Remove(id)
	s.writeMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.bc.notify()
	redirectBack(w, r, "/")
}

func (s *Server) handleTasksClear(w http.ResponseWriter, r *http.Request) {
	if s.readOnly() {
		http.Error(w, "read-only", http.StatusForbidden)
		return
	}
	s.writeMu.Lock()
	_, err := s.store().ClearCompleted()
	s.writeMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.bc.notify()
	redirectBack(w, r, "/")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps the SSE stream working through the logging wrapper.
func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"dur", time.Since(start).Round(time.Millisecond))
	})
}

// changeBroadcaster fans a "the list changed" signal out to the open
// streams. Mutation handlers notify it directly; a poll loop watches
// the store fingerprint so writes from other processes (the CLI, a
// second server) are noticed too.
type changeBroadcaster struct {
	st store.Store

	mu   sync.Mutex
	subs map[chan struct{}]struct{}

	watchEvery time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newChangeBroadcaster(st store.Store) *changeBroadcaster {
	return &changeBroadcaster{
		st:         st,
		subs:       map[chan struct{}]struct{}{},
		watchEvery: time.Second,
		stopCh:     make(chan struct{}),
	}
}

func (b *changeBroadcaster) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
}

func (b *changeBroadcaster) subscribe() (ch chan struct{}, cancel func()) {
	ch = make(chan struct{}, 8)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}
}

func (b *changeBroadcaster) notify() {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	b.mu.Unlock()
}

func (b *changeBroadcaster) watchLoop() {
	lastFP := ""
	t := time.NewTicker(b.watchEvery)
	defer t.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-t.C:
		}

		fp, err := b.st.Fingerprint()
		if err != nil {
			continue
		}
		if lastFP == "" {
			lastFP = fp
			continue
		}
		if fp == lastFP {
			continue
		}
		lastFP = fp
		b.notify()
	}
}
