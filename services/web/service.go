// Package web serves the user-facing form pages and forwards submissions to
// the main event queue. Pages are static HTML picked by the "page" query
// parameter; the status page polls /messages for the notice ledger.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"avnotify/config"
	"avnotify/queue"
	"avnotify/types"
	"avnotify/x/strx"
)

// Ledger is the slice of the notice state the status page needs.
type Ledger interface {
	Messages() []types.Message
}

type Service struct {
	listen string
	pages  map[string]string
	events *queue.Queue[types.Event]
	ledger Ledger
	log    zerolog.Logger
	router chi.Router
}

func New(cfg config.WebConfig, events *queue.Queue[types.Event], ledger Ledger, log zerolog.Logger) *Service {
	s := &Service{
		listen: cfg.Listen,
		pages: map[string]string{
			"pickup":    filepath.Join(cfg.HTMLDir, "pickup.html"),
			"status":    filepath.Join(cfg.HTMLDir, "status.html"),
			"emergency": filepath.Join(cfg.HTMLDir, "emergency.html"),
		},
		events: events,
		ledger: ledger,
		log:    log.With().Str("service", "web").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Get("/", s.index)
	r.Post("/submit", s.submit)
	r.Get("/messages", s.messages)
	s.router = r

	return s
}

// Router exposes the handler for tests.
func (s *Service) Router() http.Handler { return s.router }

func (s *Service) index(w http.ResponseWriter, r *http.Request) {
	page := strx.Coalesce(r.URL.Query().Get("page"), "pickup")
	file, ok := s.pages[page]
	if !ok {
		file = s.pages["pickup"]
	}
	if _, err := os.Stat(file); err != nil {
		http.Error(w, "404 - File not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, file)
}

func (s *Service) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	content := r.PostFormValue("content")
	emergency := r.PostFormValue("emergency_type")
	parking := r.PostFormValue("parking")

	var ev types.Event
	switch {
	case content != "":
		ev = types.Event{Type: types.EventPickup, Value: content}
	case strings.EqualFold(emergency, "staff"):
		ev = types.Event{Type: types.EventEmergency}
	case parking != "":
		ev = types.Event{Type: types.EventParking, Value: parking}
	default:
		http.Redirect(w, r, "/?page=status", http.StatusSeeOther)
		return
	}

	if err := s.events.Put(r.Context(), ev); err != nil {
		s.log.Error().Err(err).Str("type", string(ev.Type)).Msg("event not queued")
		http.Error(w, "busy", http.StatusServiceUnavailable)
		return
	}
	http.Redirect(w, r, "/?page=status", http.StatusSeeOther)
}

func (s *Service) messages(w http.ResponseWriter, r *http.Request) {
	msgs := s.ledger.Messages()
	if len(msgs) > types.MaxMessages {
		msgs = msgs[len(msgs)-types.MaxMessages:]
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string][]types.Message{"messages": msgs}); err != nil {
		s.log.Error().Err(err).Msg("encode messages")
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled. Without a
// usable network address the server is skipped, matching the appliance's
// behaviour when it boots offline.
func (s *Service) Run(ctx context.Context) error {
	ip, ok := localAddr()
	if !ok {
		s.log.Warn().Msg("no network connectivity, web server not started")
		<-ctx.Done()
		return nil
	}
	s.log.Info().Str("addr", s.listen).Str("ip", ip).Msg("web server running")

	srv := &http.Server{Addr: s.listen, Handler: s.router}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

// localAddr reports the first non-loopback unicast IPv4 address, if any.
func localAddr() (string, bool) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", false
	}
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok || ipn.IP.IsLoopback() {
			continue
		}
		if v4 := ipn.IP.To4(); v4 != nil {
			return v4.String(), true
		}
	}
	return "", false
}
