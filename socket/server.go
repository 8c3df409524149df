package socket

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	socketio "github.com/googollee/go-socket.io"

	"milkroad_server/metrics"
	"milkroad_server/middleware"
	"milkroad_server/services"
	"milkroad_server/utils"
)

const namespace = "/"

// Broadcaster is the part of *socketio.Server the hub emits through
type Broadcaster interface {
	BroadcastToRoom(namespace, room, event string, args ...interface{}) bool
}

func trackingRoom(trackingID string) string { return "tracking:" + trackingID }
func callerRoom(callerID string) string     { return "caller:" + callerID }

// RefreshEvent is the payload of the "refresh" event
type RefreshEvent struct {
	Reason string `json:"reason,omitempty"`
}

// TrackingChangedEvent is the payload of the "trackingChanged" event
type TrackingChangedEvent struct {
	TrackingID string `json:"trackingId"`
	Linked     bool   `json:"linked"`
}

// WatchRequest is the payload of "watchTimeline"
type WatchRequest struct {
	TZ string `json:"tz"`
}

type session struct {
	conn       socketio.Conn
	callerID   string
	trackingID string
	watch      *watch
}

// Hub tracks connected views and routes refresh signals to them
type Hub struct {
	Tracking        *services.TrackingService
	Timeline        *services.TimelineService
	DefaultLocation *time.Location
	Broadcaster     Broadcaster
	// OnSignal runs for every delivered signal, e.g. to drop cached reads
	OnSignal func(services.Signal)

	mu       sync.Mutex
	sessions map[string]*session
}

func NewHub(tracking *services.TrackingService, timeline *services.TimelineService, defaultLocation *time.Location) *Hub {
	return &Hub{
		Tracking:        tracking,
		Timeline:        timeline,
		DefaultLocation: defaultLocation,
		sessions:        map[string]*session{},
	}
}

// NewSocketServer initializes and returns a new Socket.IO server bound to hub
func NewSocketServer(hub *Hub) *socketio.Server {
	server := socketio.NewServer(nil)
	hub.Broadcaster = server

	server.OnConnect(namespace, func(s socketio.Conn) error {
		callerID := s.RemoteHeader().Get(middleware.VerifiedCallerHeader)
		if callerID == "" {
			log.Println("❌ Socket rejected: no verified caller")
			return errors.New("unauthenticated")
		}
		if err := hub.connect(s, callerID); err != nil {
			log.Printf("❌ Socket %s could not resolve tracking id for %s: %v", s.ID(), callerID, err)
			return err
		}
		log.Printf("✅ Socket connected: %s (%s)", s.ID(), callerID)
		return nil
	})

	server.OnEvent(namespace, "resync", func(s socketio.Conn) {
		if err := hub.resync(s.ID()); err != nil {
			log.Printf("❌ Resync failed for socket %s: %v", s.ID(), err)
		}
	})

	server.OnEvent(namespace, "watchTimeline", func(s socketio.Conn, req WatchRequest) {
		hub.watchTimeline(s.ID(), req)
	})

	server.OnEvent(namespace, "unwatchTimeline", func(s socketio.Conn) {
		hub.stopWatch(s.ID())
	})

	server.OnError(namespace, func(s socketio.Conn, err error) {
		log.Printf("⚠️ Socket error: %v", err)
	})

	server.OnDisconnect(namespace, func(s socketio.Conn, reason string) {
		hub.disconnect(s.ID())
		log.Printf("❌ Socket disconnected: %s (%s)", s.ID(), reason)
	})

	return server
}

func (h *Hub) connect(s socketio.Conn, callerID string) error {
	trackingID, err := h.Tracking.ResolveTrackingID(context.Background(), callerID)
	if err != nil {
		return err
	}

	s.Join(callerRoom(callerID))
	s.Join(trackingRoom(trackingID))

	h.mu.Lock()
	h.sessions[s.ID()] = &session{conn: s, callerID: callerID, trackingID: trackingID}
	h.mu.Unlock()

	metrics.SocketConnections.Inc()
	return nil
}

func (h *Hub) disconnect(id string) {
	h.mu.Lock()
	sess, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()

	if !ok {
		return
	}
	if sess.watch != nil {
		sess.watch.stop()
	}
	metrics.SocketConnections.Dec()
}

// resync re-resolves a connection's tracking id and moves it to the new room
func (h *Hub) resync(id string) error {
	h.mu.Lock()
	sess, ok := h.sessions[id]
	h.mu.Unlock()
	if !ok {
		return nil
	}

	trackingID, err := h.Tracking.ResolveTrackingID(context.Background(), sess.callerID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	previous := sess.trackingID
	sess.trackingID = trackingID
	w := sess.watch
	h.mu.Unlock()

	if previous != trackingID {
		sess.conn.Leave(trackingRoom(previous))
		sess.conn.Join(trackingRoom(trackingID))
		log.Printf("🔄 Socket %s now tracking %s", id, trackingID)
	}
	if w != nil {
		w.refetch()
	}
	return nil
}

func (h *Hub) watchTimeline(id string, req WatchRequest) {
	h.mu.Lock()
	sess, ok := h.sessions[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	if sess.watch != nil {
		sess.watch.stop()
	}
	loc := utils.LoadLocation(req.TZ, h.DefaultLocation)
	callerID := sess.callerID
	conn := sess.conn

	w := newWatch(loc, func(ctx context.Context) (services.DayRecords, error) {
		return h.Timeline.Snapshot(ctx, callerID, loc)
	}, func(t interface{}) {
		conn.Emit("timeline", t)
	})
	w.clock = h.Timeline.Clock
	sess.watch = w
	h.mu.Unlock()

	go w.run(time.Second)
	log.Printf("👀 Socket %s watching timeline (%s)", id, loc)
}

func (h *Hub) stopWatch(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sess, ok := h.sessions[id]; ok && sess.watch != nil {
		sess.watch.stop()
		sess.watch = nil
	}
}

// Notify delivers a signal raised on this instance
func (h *Hub) Notify(_ context.Context, sig services.Signal) {
	h.Deliver(sig)
}

// Deliver routes sig to the views it concerns
func (h *Hub) Deliver(sig services.Signal) {
	if h.OnSignal != nil {
		h.OnSignal(sig)
	}

	switch sig.Kind {
	case services.SignalRefresh:
		if h.Broadcaster != nil {
			h.Broadcaster.BroadcastToRoom(namespace, trackingRoom(sig.ID), "refresh", RefreshEvent{Reason: sig.Reason})
		}
		for _, w := range h.watchesFor(func(s *session) bool { return s.trackingID == sig.ID }) {
			w.refetch()
		}

	case services.SignalTrackingChanged:
		for _, id := range h.sessionsOf(sig.ID) {
			if err := h.resync(id); err != nil {
				log.Printf("❌ Resync failed for socket %s: %v", id, err)
			}
		}
		if h.Broadcaster == nil {
			return
		}
		identity, err := h.Tracking.Identity(context.Background(), sig.ID)
		if err != nil {
			log.Printf("❌ Could not resolve identity for %s: %v", sig.ID, err)
			return
		}
		h.Broadcaster.BroadcastToRoom(namespace, callerRoom(sig.ID), "trackingChanged", TrackingChangedEvent{
			TrackingID: identity.TrackingID,
			Linked:     identity.Linked,
		})

	default:
		log.Printf("⚠️ Ignoring signal of unknown kind %q", sig.Kind)
	}
}

func (h *Hub) sessionsOf(callerID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var ids []string
	for id, s := range h.sessions {
		if s.callerID == callerID {
			ids = append(ids, id)
		}
	}
	return ids
}

func (h *Hub) watchesFor(match func(*session) bool) []*watch {
	h.mu.Lock()
	defer h.mu.Unlock()

	var watches []*watch
	for _, s := range h.sessions {
		if s.watch != nil && match(s) {
			watches = append(watches, s.watch)
		}
	}
	return watches
}

// Close stops every timeline watch
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.sessions {
		if s.watch != nil {
			s.watch.stop()
		}
	}
}
