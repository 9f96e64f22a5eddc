// Package api exposes the controller's operation contracts over HTTP
// and streams preview frames to connected websocket viewers. It sits
// outside the render core and talks to it only through the controller's
// public operations.
package api

import (
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lumenloop/lumend/internal/pattern"
	"github.com/lumenloop/lumend/internal/playlist"
	"github.com/lumenloop/lumend/internal/render"
)

// frameThrottle caps the rate preview frames are pushed to viewers.
const frameThrottle = 50 * time.Millisecond

type State struct {
	ctrl *render.Controller
	pl   *playlist.Manager
	log  zerolog.Logger

	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
	lastEmit time.Time
}

func NewState(ctrl *render.Controller, pl *playlist.Manager, log zerolog.Logger) *State {
	return &State{
		ctrl:    ctrl,
		pl:      pl,
		log:     log,
		clients: map[*websocket.Conn]bool{},
	}
}

// Routes returns the HTTP surface: health, status snapshot, preview
// image, control actions, and the preview frame websocket.
func (s *State) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/preview.png", s.handlePreview)
	mux.HandleFunc("/control", s.handleControl)
	mux.HandleFunc("/ws", s.handleFramesWS)
	return withCORS(mux)
}

func (s *State) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *State) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ctrl.Status())
}

func (s *State) handlePreview(w http.ResponseWriter, r *http.Request) {
	img := s.ctrl.LatestImage()
	if img == nil {
		http.Error(w, "no frame drawn yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		s.log.Warn().Err(err).Msg("preview encode failed")
	}
}

type playlistMsg struct {
	Items []string `json:"items"`
	Loop  bool     `json:"loop"`
}

type controlMsg struct {
	Action     string         `json:"action"`
	Path       string         `json:"path,omitempty"`
	Pattern    string         `json:"pattern,omitempty"`
	Params     pattern.Params `json:"params,omitempty"`
	Render     *render.Params `json:"render,omitempty"`
	Brightness *float64       `json:"brightness,omitempty"`
	Playlist   *playlistMsg   `json:"playlist,omitempty"`
}

func (s *State) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var msg controlMsg
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch msg.Action {
	case "start":
		if err := s.ctrl.Start(msg.Path); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
	case "stop":
		s.ctrl.Stop()
	case "pattern":
		s.ctrl.StartPattern(msg.Pattern, msg.Params)
	case "params":
		if msg.Render != nil {
			s.ctrl.SetRenderParams(*msg.Render)
		}
	case "brightness":
		if msg.Brightness != nil {
			s.ctrl.SetBrightness(*msg.Brightness)
		}
	case "playlist":
		if s.pl == nil {
			http.Error(w, "no playlist configured", http.StatusBadRequest)
			return
		}
		if msg.Playlist != nil {
			if err := s.pl.SetItems(msg.Playlist.Items, msg.Playlist.Loop); err != nil {
				s.log.Warn().Err(err).Msg("playlist save failed")
			}
		}
		if cur := s.pl.Current(); cur != "" {
			if err := s.ctrl.Start(cur); err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
		}
	case "playlist/next":
		if s.pl == nil {
			http.Error(w, "no playlist configured", http.StatusBadRequest)
			return
		}
		if next := s.pl.Next(); next != "" {
			if err := s.ctrl.Start(next); err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
		}
	default:
		http.Error(w, "unknown action: "+msg.Action, http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *State) handleFramesWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	s.log.Debug().Str("addr", conn.RemoteAddr().String()).Msg("viewer connected")

	// Reader only to detect close; viewers never send payloads.
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// BroadcastFrame pushes a drawn frame to all connected viewers,
// throttled so a fast render loop cannot flood slow clients. Wire this
// as the preview device's frame callback.
func (s *State) BroadcastFrame(w, h int, rgb []byte) {
	s.mu.Lock()
	now := time.Now()
	if now.Sub(s.lastEmit) < frameThrottle || len(s.clients) == 0 {
		s.mu.Unlock()
		return
	}
	s.lastEmit = now
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	b, _ := json.Marshal(map[string]any{
		"w":   w,
		"h":   h,
		"rgb": base64.StdEncoding.EncodeToString(rgb),
	})
	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
			_ = c.Close()
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}
