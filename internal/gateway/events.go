package gateway

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/quillcast/narrator/internal/narrator"
	"github.com/quillcast/narrator/pkg/types"
)

// eventFrame is the JSON envelope pushed over the event stream. Audio for
// a started segment follows its "segment" frame as a separate binary
// message, so clients can play it without base64 overhead.
type eventFrame struct {
	// Type is "state", "segment", or "notice".
	Type string `json:"type"`

	// State is the snapshot after the transition. Always set.
	State narrator.Snapshot `json:"state"`

	// SegmentIndex and Segment are set for "segment" frames.
	SegmentIndex int            `json:"segment_index,omitempty"`
	Segment      *types.Segment `json:"segment,omitempty"`

	// Notice is set for "notice" frames.
	Notice string `json:"notice,omitempty"`
}

// events upgrades the request to a WebSocket and streams sequencer events
// until the client disconnects or the session is torn down.
func (g *Gateway) events(w http.ResponseWriter, r *http.Request) {
	sess, err := g.sessions.Get(r.PathValue("id"))
	if err != nil {
		g.writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		g.log.Debug("websocket accept failed", "session", sess.ID, "err", err)
		return
	}
	defer conn.CloseNow()

	events, cancel := sess.Subscribe()
	defer cancel()

	// The client never sends data frames; CloseRead keeps control frames
	// flowing and cancels the context when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	// Initial frame so a reconnecting client resyncs immediately.
	if err := wsjson.Write(ctx, conn, eventFrame{
		Type:  "state",
		State: sess.Sequencer.Snapshot(),
	}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-events:
			if !ok {
				// Session torn down.
				conn.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			if err := g.writeEvent(ctx, conn, ev); err != nil {
				g.log.Debug("websocket write failed", "session", sess.ID, "err", err)
				return
			}
			sess.Touch()
		}
	}
}

func (g *Gateway) writeEvent(ctx context.Context, conn *websocket.Conn, ev narrator.Event) error {
	switch ev.Kind {
	case narrator.EventSegmentStarted:
		frame := eventFrame{
			Type:         "segment",
			State:        ev.Snapshot,
			SegmentIndex: ev.SegmentIndex,
			Segment:      ev.Segment,
		}
		if err := wsjson.Write(ctx, conn, frame); err != nil {
			return err
		}
		if len(ev.Audio) > 0 {
			return conn.Write(ctx, websocket.MessageBinary, ev.Audio)
		}
		return nil
	case narrator.EventNotice:
		return wsjson.Write(ctx, conn, eventFrame{
			Type:   "notice",
			State:  ev.Snapshot,
			Notice: ev.Notice,
		})
	default:
		return wsjson.Write(ctx, conn, eventFrame{
			Type:  "state",
			State: ev.Snapshot,
		})
	}
}
