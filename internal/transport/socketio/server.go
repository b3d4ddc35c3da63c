// Package socketio provides the Socket.IO push channel for photo frames.
// Frames keep a socket open instead of polling: they receive the current set
// on connect and a broadcast whenever a new rotation window starts.
package socketio

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/lumina-frame/lumina-photoframe-backend/internal/domain/rotation"
)

// PhotoSource is the rotation cache as seen by the push transport.
type PhotoSource interface {
	CurrentPhotos(ctx context.Context, now time.Time) ([]rotation.Photo, error)
	HistorySnapshot() []rotation.HistoryEntry
	WindowStartedAt() time.Time
}

// photosPayload mirrors the REST current-photos body.
type photosPayload struct {
	Photos          []rotation.Photo `json:"photos"`
	WindowStartedAt time.Time        `json:"window_started_at"`
}

type historyPayload struct {
	Entries []rotation.HistoryEntry `json:"entries"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// Server handles Socket.IO connections and events from photo frames.
type Server struct {
	io     *socket.Server
	photos PhotoSource
	frames *FrameRegistry

	mu         sync.Mutex
	lastWindow time.Time
}

// NewServer creates a new Socket.IO server allowing up to maxFrames
// concurrently connected frames.
func NewServer(photos PhotoSource, maxFrames int) (*Server, error) {
	// Configure Socket.io server options
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	server := socket.NewServer(nil, opts)

	s := &Server{
		io:     server,
		photos: photos,
		frames: NewFrameRegistry(maxFrames),
	}

	s.setupHandlers()

	return s, nil
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		remoteIP := remoteIPOf(client)

		log.Info().Str("id", clientID).Str("ip", remoteIP).Msg("Frame connected")

		if evictedID, evicted := s.frames.Add(clientID, remoteIP, client); evictedID != "" {
			log.Info().
				Str("id", evictedID).
				Msg("Evicting oldest frame, connection limit reached")
			if evicted != nil {
				evicted.Disconnect(true)
			}
		}

		// Send current set after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.pushPhotos(client)
		}()

		// Handle disconnect
		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Frame disconnected")
			s.frames.Remove(clientID)
		})

		client.On("getPhotos", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getPhotos")
			s.pushPhotos(client)
		})

		client.On("getHistory", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getHistory")
			s.pushHistory(client)
		})
	})
}

// pushPhotos sends the current rotation set to a single frame.
func (s *Server) pushPhotos(client *socket.Socket) {
	photos, err := s.photos.CurrentPhotos(context.Background(), time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to get current photos for push")
		client.Emit("pushError", errorPayload{Error: "photo supply unavailable"})
		return
	}

	client.Emit("pushPhotos", photosPayload{
		Photos:          photos,
		WindowStartedAt: s.photos.WindowStartedAt(),
	})
}

// pushHistory sends the served-photo history, newest first, to a single frame.
func (s *Server) pushHistory(client *socket.Socket) {
	entries := s.photos.HistorySnapshot()
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	client.Emit("pushHistory", historyPayload{Entries: entries})
}

// StartRotationWatcher polls the rotation cache at the given interval and
// broadcasts the new set to all frames whenever a new window has started.
// The poll itself drives the refresh once a window expires, so frames learn
// of a rotation within one interval even when nobody issues requests.
func (s *Server) StartRotationWatcher(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("Rotation watcher started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Rotation watcher stopped")
				return
			case <-ticker.C:
				photos, err := s.photos.CurrentPhotos(ctx, time.Now())
				if err != nil {
					log.Warn().Err(err).Msg("Rotation watcher refresh failed")
					continue
				}

				started := s.photos.WindowStartedAt()
				s.mu.Lock()
				isNew := started.After(s.lastWindow)
				if isNew {
					s.lastWindow = started
				}
				s.mu.Unlock()
				if !isNew {
					continue
				}

				s.io.Emit("photos:rotation", photosPayload{
					Photos:          photos,
					WindowStartedAt: started,
				})
				log.Debug().
					Int("frames", s.frames.Count()).
					Time("window_started_at", started).
					Msg("Broadcast rotation")
			}
		}
	}()
}

// remoteIPOf extracts the client's remote IP from the connection handshake,
// stripping any port the transport recorded alongside it.
func remoteIPOf(client *socket.Socket) string {
	addr := ""
	if hs := client.Handshake(); hs != nil {
		addr = hs.Address
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// ServeHTTP implements http.Handler for the /socket.io/ endpoint.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close shuts down the Socket.io server.
func (s *Server) Close() error {
	s.io.Close(nil)
	return nil
}
