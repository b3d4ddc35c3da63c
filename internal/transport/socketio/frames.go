package socketio

import (
	"sync"

	"github.com/zishang520/socket.io/servers/socket/v3"
)

// FrameRegistry tracks connected frames and bounds how many non-localhost
// frames may be connected at once. Local connections (127.0.0.1, ::1) are
// always allowed and never counted against the limit, so a dashboard on the
// same host cannot evict a real frame. When a new external frame exceeds the
// limit, the oldest external frame is dropped from the registry and handed
// back for the caller to disconnect.
type FrameRegistry struct {
	mu          sync.Mutex
	maxExternal int
	// external connection order, oldest first
	externalOrder []string
	// all tracked connections: clientID -> remoteIP
	remoteIPs map[string]string
	sockets   map[string]*socket.Socket
}

// NewFrameRegistry creates a registry allowing up to maxExternal concurrent
// non-localhost frames. A non-positive limit disables eviction.
func NewFrameRegistry(maxExternal int) *FrameRegistry {
	return &FrameRegistry{
		maxExternal: maxExternal,
		remoteIPs:   make(map[string]string),
		sockets:     make(map[string]*socket.Socket),
	}
}

// Add registers a connected frame. Local frames are always admitted without
// counting. When an external frame exceeds the limit, the oldest external
// frame is evicted and its ID and socket returned; the caller is responsible
// for disconnecting it.
func (f *FrameRegistry) Add(clientID, remoteIP string, client *socket.Socket) (evictedID string, evicted *socket.Socket) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.remoteIPs[clientID]; exists {
		return "", nil
	}

	f.remoteIPs[clientID] = remoteIP
	f.sockets[clientID] = client

	if isLocalIP(remoteIP) {
		// Local connections are always allowed, not tracked in external list
		return "", nil
	}

	f.externalOrder = append(f.externalOrder, clientID)

	if f.maxExternal > 0 && len(f.externalOrder) > f.maxExternal {
		evictedID = f.externalOrder[0]
		f.externalOrder = f.externalOrder[1:]
		evicted = f.sockets[evictedID]
		delete(f.sockets, evictedID)
		delete(f.remoteIPs, evictedID)
	}

	return evictedID, evicted
}

// Remove unregisters a frame when it disconnects.
func (f *FrameRegistry) Remove(clientID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ip, exists := f.remoteIPs[clientID]
	if !exists {
		return
	}

	delete(f.remoteIPs, clientID)
	delete(f.sockets, clientID)

	if isLocalIP(ip) {
		return
	}

	for i, id := range f.externalOrder {
		if id == clientID {
			f.externalOrder = append(f.externalOrder[:i], f.externalOrder[i+1:]...)
			break
		}
	}
}

// Count returns the number of connected frames, local included.
func (f *FrameRegistry) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.remoteIPs)
}

// ExternalCount returns the number of connected non-localhost frames.
func (f *FrameRegistry) ExternalCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.externalOrder)
}

// isLocalIP returns true if the IP address is localhost.
func isLocalIP(ip string) bool {
	return ip == "127.0.0.1" || ip == "::1" || ip == "::ffff:127.0.0.1"
}
