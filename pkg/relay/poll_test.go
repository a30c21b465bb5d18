package relay

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/sketchwire/sketchwire/pkg/canvas"
	"github.com/sketchwire/sketchwire/pkg/protocol"
)

func pollConnect(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/poll", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("connect status = %d", resp.StatusCode)
	}
	var body struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.SID == "" {
		t.Fatal("empty session id")
	}
	return body.SID
}

func pollEmit(t *testing.T, ts *httptest.Server, sid string, ev protocol.EventType, data any) {
	t.Helper()
	msg, err := protocol.Encode(ev, data)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(ts.URL+"/poll/"+sid+"/emit", "application/json", bytes.NewReader(msg))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("emit status = %d", resp.StatusCode)
	}
}

func pollEvents(t *testing.T, ts *httptest.Server, sid string) []*protocol.Envelope {
	t.Helper()
	resp, err := http.Get(ts.URL + "/poll/" + sid + "/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events status = %d", resp.StatusCode)
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatal(err)
	}
	out := make([]*protocol.Envelope, 0, len(raw))
	for _, frame := range raw {
		env, err := protocol.Decode(frame)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, env)
	}
	return out
}

func TestPollJoinFlow(t *testing.T) {
	srv, ts := newTestServer(t)

	sid := pollConnect(t, ts)
	pollEmit(t, ts, sid, protocol.EventJoin, protocol.Join{Name: "Ada"})
	waitFor(t, func() bool { return srv.registry.Count() == 1 })

	events := pollEvents(t, ts, sid)
	if len(events) == 0 || events[0].Event != protocol.EventInitState {
		t.Fatalf("first event = %+v, want init-state", events)
	}

	var st protocol.InitState
	if err := events[0].DecodeInto(&st); err != nil {
		t.Fatal(err)
	}
	if st.Color != DefaultPalette[0] {
		t.Errorf("Color = %q, want %q", st.Color, DefaultPalette[0])
	}
}

func TestPollReceivesWebSocketTraffic(t *testing.T) {
	srv, ts := newTestServer(t)

	sid := pollConnect(t, ts)
	pollEmit(t, ts, sid, protocol.EventJoin, protocol.Join{Name: "Poller"})
	waitFor(t, func() bool { return srv.registry.Count() == 1 })
	pollEvents(t, ts, sid) // drain the join burst

	adaConn, _ := wsJoin(t, ts, "Ada")
	draw, _ := protocol.Encode(protocol.EventDraw, protocol.Draw{Path: []canvas.Point{{X: 1, Y: 1}}})
	if err := adaConn.WriteMessage(websocket.TextMessage, draw); err != nil {
		t.Fatal(err)
	}

	// Poll until the stroke shows up; presence events may arrive first.
	waitFor(t, func() bool {
		for _, env := range pollEvents(t, ts, sid) {
			if env.Event == protocol.EventDrawingUpdate {
				return true
			}
		}
		return false
	})
}

func TestPollEmitFromPollingSession(t *testing.T) {
	srv, ts := newTestServer(t)

	sid := pollConnect(t, ts)
	pollEmit(t, ts, sid, protocol.EventJoin, protocol.Join{Name: "Poller"})
	waitFor(t, func() bool { return srv.registry.Count() == 1 })
	pollEvents(t, ts, sid)

	pollEmit(t, ts, sid, protocol.EventTextAdd, protocol.TextAdd{Text: "from poll", X: 1, Y: 2})
	waitFor(t, func() bool { return srv.store.Len() == 1 })

	// Text echoes back to the polling originator too.
	waitFor(t, func() bool {
		for _, env := range pollEvents(t, ts, sid) {
			if env.Event == protocol.EventTextUpdate {
				return true
			}
		}
		return false
	})
}

func TestPollDisconnect(t *testing.T) {
	srv, ts := newTestServer(t)

	sid := pollConnect(t, ts)
	pollEmit(t, ts, sid, protocol.EventJoin, protocol.Join{Name: "Ada"})
	waitFor(t, func() bool { return srv.registry.Count() == 1 })

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/poll/"+sid, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("disconnect status = %d", resp.StatusCode)
	}

	waitFor(t, func() bool { return srv.registry.Count() == 0 })

	// The session id is gone.
	resp, err = http.Get(ts.URL + "/poll/" + sid + "/events")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("events after disconnect = %d, want 404", resp.StatusCode)
	}
}

func TestPollUnknownSession(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/poll/nonexistent/events")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
