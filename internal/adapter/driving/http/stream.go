package httphandler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ericfisherdev/linkdeck/internal/application"
	"github.com/ericfisherdev/linkdeck/internal/domain/model"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// SnapshotFrame is one websocket message: the full current view after a
// mutation. Clients replace their list wholesale, so a dropped intermediate
// frame is harmless.
type SnapshotFrame struct {
	State     string             `json:"state"`
	Bookmarks []BookmarkResponse `json:"bookmarks"`
}

// clientMessage is what clients may send upstream.
type clientMessage struct {
	Action string `json:"action"`
}

// StreamBookmarks upgrades to a websocket and serves a live, self-healing view
// of the caller's bookmarks. Each connection owns its own synchronizer:
// attach, push every snapshot change, detach on disconnect. Signing out from
// any tab tears the stream down.
func (h *Handler) StreamBookmarks(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	sessionID, _ := sessionIDFrom(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Error("websocket upgrade failed", "owner", identity.ID, "error", err)
		return
	}
	defer conn.Close()

	sync := application.NewSynchronizer(h.store, h.feed, h.logger)
	defer sync.Detach()

	// Coalescing buffer: only the newest snapshot matters, so a slow client
	// never backs up the synchronizer's notify path.
	updates := make(chan []model.Bookmark, 1)
	push := func(snapshot []model.Bookmark) {
		for {
			select {
			case updates <- snapshot:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	}

	unsubscribe := sync.Subscribe(push)
	defer unsubscribe()

	closed := make(chan struct{})
	unbind := h.sessions.OnIdentityChange(sessionID, func(_ model.Identity, present bool) {
		if !present {
			// Signed out elsewhere: a close frame tells the client not to
			// reconnect.
			deadline := time.Now().Add(writeTimeout)
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "signed out")
			_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
			conn.Close()
		}
	})
	defer unbind()

	if err := sync.Attach(r.Context(), identity); err != nil {
		h.logger.Error("stream attach failed", "owner", identity.ID, "error", err)
		deadline := time.Now().Add(writeTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "attach failed")
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		return
	}
	push(sync.Current())

	go h.writeLoop(conn, sync, updates, closed)

	h.readLoop(r, conn, sync)
	close(closed)
}

// writeLoop is the single writer for the connection: snapshot frames from the
// coalescing buffer plus periodic pings.
func (h *Handler) writeLoop(conn *websocket.Conn, sync *application.Synchronizer, updates <-chan []model.Bookmark, closed <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case snapshot := <-updates:
			frame := SnapshotFrame{
				State:     sync.State().String(),
				Bookmarks: toBookmarkResponses(snapshot),
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(frame); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				conn.Close()
				return
			}
		case <-closed:
			return
		}
	}
}

// readLoop consumes client messages until the connection drops. A refresh
// action re-fetches the collection; anything else is ignored.
func (h *Handler) readLoop(r *http.Request, conn *websocket.Conn, sync *application.Synchronizer) {
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		if msg.Action == "refresh" {
			if err := sync.Refresh(r.Context()); err != nil {
				h.logger.Debug("client-requested refresh failed", "error", err)
			}
		}
	}
}
