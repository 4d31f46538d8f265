package ui

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"

	"sheetsync/app"
	"sheetsync/domain/core"
)

// stateEvent is the compact state change pushed to event stream clients
type stateEvent struct {
	State      app.State       `json:"state"`
	SnapshotID core.SnapshotID `json:"snapshot_id,omitempty"`
	LoadedAt   *core.Timestamp `json:"loaded_at,omitempty"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
}

func newStateEvent(st app.Status) stateEvent {
	ev := stateEvent{State: st.State}
	if snap := st.Snapshot; snap != nil {
		loadedAt := snap.LoadedAt
		ev.SnapshotID = snap.ID
		ev.LoadedAt = &loadedAt
		ev.Succeeded = snap.Succeeded()
		ev.Failed = len(snap.Failures())
	}
	return ev
}

// handleEvents streams controller state changes as server-sent events so
// screens can re-render when a load settles.
func (a *App) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"), "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, cancel := a.controller.Subscribe()
	defer cancel()

	a.sendEvent(w, "state", newStateEvent(a.controller.Current()))
	flusher.Flush()

	ticker := time.NewTicker(a.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case st, open := <-updates:
			if !open {
				return
			}
			a.sendEvent(w, "state", newStateEvent(st))
		case <-ticker.C:
			a.sendEvent(w, "ping", map[string]string{"status": "alive", "timestamp": time.Now().Format(time.RFC3339)})
		case <-r.Context().Done():
			return
		}
		flusher.Flush()
	}
}

func (a *App) sendEvent(w http.ResponseWriter, name string, v interface{}) {
	if err := sse.Encode(w, sse.Event{Event: name, Data: v}); err != nil {
		a.logger.Error("encode %s event: %v", name, err)
	}
}
