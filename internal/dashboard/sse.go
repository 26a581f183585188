package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cropsathi/sathi/internal/advisory"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 15 * time.Second

// hub fans view-model changes out to connected SSE clients.
type hub struct {
	mu   sync.Mutex
	subs map[chan advisory.View]struct{}
}

func newHub(views ViewSource) *hub {
	h := &hub{subs: make(map[chan advisory.View]struct{})}
	views.Subscribe(h.broadcast)
	return h
}

// broadcast delivers v to every connected client. A client that cannot
// keep up drops the update; the next one supersedes it anyway.
func (h *hub) broadcast(v advisory.View) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

func (h *hub) subscribe() chan advisory.View {
	ch := make(chan advisory.View, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan advisory.View) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// handleSSE streams view-model changes to the browser. On connect it
// replays the current view so a late-joining client is not blank until
// the next submission.
func handleSSE(views ViewSource, h *hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		if v, ok := views.CurrentView(); ok {
			writeSSE(c.Writer, "view", v)
			c.Writer.Flush()
		}

		ch := h.subscribe()
		defer h.unsubscribe(ch)

		ctx := c.Request.Context()
		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case v := <-ch:
				writeSSE(c.Writer, "view", v)
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
