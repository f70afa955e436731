package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/combat"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/enemy"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/engine"
	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/realtime"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/stats"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/storage/memory"
)

type harness struct {
	srv   *Server
	http  *httptest.Server
	docs  *memory.Store
	bus   *realtime.Bus
	stats *stats.Store
}

func newHarness(t *testing.T, faces []int, opts ...Option) *harness {
	t.Helper()
	h := &harness{docs: memory.New(), bus: realtime.NewBus(), stats: stats.New()}
	if len(faces) == 0 {
		faces = []int{10}
	}
	opts = append([]Option{
		WithStats(h.stats),
		WithRollerFactory(func() (*engine.Roller, error) { return engine.Fixed(faces...), nil }),
	}, opts...)
	srv, err := New(h.docs, h.bus, opts...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	h.srv = srv
	h.http = httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		h.http.Close()
	})
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, h.http.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, nil)
	var body map[string]string
	if code := h.do(t, http.MethodGet, "/api/healthz", nil, &body); code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("expected ok, got %d %v", code, body)
	}
}

func TestCombatLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t, nil)

	var view CombatView
	if code := h.do(t, http.MethodPost, "/api/rooms/abcd/combat/enter", nil, &view); code != http.StatusOK {
		t.Fatalf("enter: status %d", code)
	}
	if !view.State.IsActive {
		t.Fatal("expected active combat")
	}

	if code := h.do(t, http.MethodPut, "/api/rooms/ABCD/combat/stations/pilot", map[string]string{"character": "kira"}, &view); code != http.StatusOK {
		t.Fatalf("assign: status %d", code)
	}
	if who := view.State.StationAssignments[models.StationID("pilot")]; who == nil || *who != "kira" {
		t.Fatalf("expected kira at pilot, got %v", who)
	}

	h.do(t, http.MethodPost, "/api/rooms/ABCD/combat/hyperdrive/charge", nil, &view)
	h.do(t, http.MethodPost, "/api/rooms/ABCD/combat/hyperdrive/charge", nil, &view)
	if view.State.HyperdriveCharge != 2 {
		t.Fatalf("expected charge 2, got %d", view.State.HyperdriveCharge)
	}
	h.do(t, http.MethodPost, "/api/rooms/ABCD/combat/hyperdrive/reset", nil, &view)
	if view.State.HyperdriveCharge != 0 {
		t.Fatalf("expected reset charge, got %d", view.State.HyperdriveCharge)
	}

	doc, err := h.docs.Get(context.Background(), "ABCD")
	if err != nil {
		t.Fatalf("get doc: %v", err)
	}
	if doc.SpaceCombat == nil || !doc.SpaceCombat.IsActive {
		t.Fatalf("expected combat persisted, got %+v", doc.SpaceCombat)
	}
}

func TestSpawnDamageAndStats(t *testing.T) {
	h := newHarness(t, nil)

	var spawned []models.Enemy
	if code := h.do(t, http.MethodPost, "/api/rooms/R1/enemies", map[string]any{"type": enemy.HunterFighter}, &spawned); code != http.StatusCreated {
		t.Fatalf("spawn: status %d", code)
	}
	if len(spawned) != 1 {
		t.Fatalf("expected one fighter, got %d", len(spawned))
	}

	var rep combat.DamageReport
	if code := h.do(t, http.MethodPost, "/api/rooms/R1/enemies/"+spawned[0].ID+"/damage", map[string]int{"raw": 1}, &rep); code != http.StatusOK {
		t.Fatalf("damage: status %d", code)
	}
	if rep.Enemy.Status != models.StatusDestroyed {
		t.Fatalf("expected destroyed fighter, got %s", rep.Enemy.Status)
	}

	var tally stats.RoomStats
	h.do(t, http.MethodGet, "/api/rooms/r1/stats", nil, &tally)
	if tally.EnemiesDestroyed != 1 || tally.Hits != 1 {
		t.Fatalf("unexpected stats %+v", tally)
	}
	if tally.BiggestHitToday == nil || tally.BiggestHitToday.Damage != 1 {
		t.Fatalf("expected biggest hit of 1, got %+v", tally.BiggestHitToday)
	}
}

func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		method string
		path   string
		body   any
		status int
		code   apperrors.Code
	}{
		{"unknown enemy", nil, http.MethodPost, "/api/rooms/R/enemies/nope/damage", map[string]int{"raw": 3}, http.StatusNotFound, apperrors.CodeNotFound},
		{"negative damage", nil, http.MethodPost, "/api/rooms/R/enemies/nope/damage", map[string]int{"raw": -1}, http.StatusBadRequest, apperrors.CodeInvalidRollSpec},
		{"unknown station", nil, http.MethodPut, "/api/rooms/R/combat/stations/galley", map[string]string{"character": "x"}, http.StatusBadRequest, apperrors.CodeInvalidArgument},
		{"unknown ship type", nil, http.MethodPost, "/api/rooms/R/enemies", map[string]any{"type": "tugboat"}, http.StatusBadRequest, apperrors.CodeInvalidArgument},
		{"squad overflow", []Option{WithOverflow(enemy.OverflowError)}, http.MethodPost, "/api/rooms/R/enemies", map[string]any{"type": enemy.HunterFighter, "count": 11}, http.StatusBadRequest, apperrors.CodeInvalidArgument},
		{"bad difficulty", nil, http.MethodPost, "/api/roll/test", map[string]int{"difficulty": 0}, http.StatusBadRequest, apperrors.CodeInvalidRollSpec},
		{"bad pattern", nil, http.MethodPost, "/api/roll", map[string]string{"pattern": "banana"}, http.StatusBadRequest, apperrors.CodeInvalidRollSpec},
		{"oversized pattern", nil, http.MethodPost, "/api/roll", map[string]string{"pattern": "2000000000d6"}, http.StatusBadRequest, apperrors.CodeInvalidRollSpec},
		{"unknown hyperdrive op", nil, http.MethodPost, "/api/rooms/R/combat/hyperdrive/warp", nil, http.StatusNotFound, apperrors.CodeNotFound},
		{"empty patch", nil, http.MethodPatch, "/api/rooms/R", map[string]any{}, http.StatusBadRequest, apperrors.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, tt.opts...)
			var p apperrors.Payload
			status := h.do(t, tt.method, tt.path, tt.body, &p)
			if status != tt.status || p.Code != tt.code {
				t.Fatalf("expected %d %s, got %d %s (%s)", tt.status, tt.code, status, p.Code, p.Message)
			}
		})
	}
}

func TestRollEndpoints(t *testing.T) {
	h := newHarness(t, []int{20})

	var res engine.TestResult
	if code := h.do(t, http.MethodPost, "/api/roll/test", map[string]int{"difficulty": 12}, &res); code != http.StatusOK {
		t.Fatalf("roll test: status %d", code)
	}
	if res.Roll != 20 || !res.Crit || !res.Success {
		t.Fatalf("expected crit success, got %+v", res)
	}

	var roll RollResponse
	if code := h.do(t, http.MethodPost, "/api/roll", map[string]string{"pattern": "2d6+1"}, &roll); code != http.StatusOK {
		t.Fatalf("roll: status %d", code)
	}
	// face 20 wraps to 2 on a d6
	if roll.Total != 5 || len(roll.Rolls) != 2 {
		t.Fatalf("expected 2+2+1, got %+v", roll)
	}
}

func TestPatchRoomReachesCombatStore(t *testing.T) {
	h := newHarness(t, nil)

	var view CombatView
	h.do(t, http.MethodGet, "/api/rooms/ZED/combat", nil, &view)
	if view.State.IsActive {
		t.Fatal("expected inactive combat")
	}

	st := models.NewCombatState()
	st.IsActive = true
	st.TorpedoesLoaded = 4
	var doc models.RoomDocument
	if code := h.do(t, http.MethodPatch, "/api/rooms/zed", models.DocumentPatch{SpaceCombat: &st}, &doc); code != http.StatusOK {
		t.Fatalf("patch: status %d", code)
	}
	if doc.Code != "ZED" || doc.SpaceCombat == nil || doc.SpaceCombat.TorpedoesLoaded != 4 {
		t.Fatalf("unexpected document %+v", doc)
	}

	h.do(t, http.MethodGet, "/api/rooms/ZED/combat", nil, &view)
	if !view.State.IsActive || view.State.TorpedoesLoaded != 4 {
		t.Fatalf("expected the room store to follow the document, got %+v", view.State)
	}

	var rooms struct {
		Rooms []string `json:"rooms"`
	}
	h.do(t, http.MethodGet, "/api/rooms", nil, &rooms)
	if len(rooms.Rooms) != 1 || rooms.Rooms[0] != "ZED" {
		t.Fatalf("expected [ZED], got %v", rooms.Rooms)
	}
}

func TestListStationActions(t *testing.T) {
	h := newHarness(t, nil)
	var actions []struct {
		ID string `json:"id"`
	}
	if code := h.do(t, http.MethodGet, "/api/stations/pilot/actions", nil, &actions); code != http.StatusOK {
		t.Fatalf("list: status %d", code)
	}
	if len(actions) == 0 {
		t.Fatal("expected pilot actions")
	}
	var p apperrors.Payload
	if code := h.do(t, http.MethodGet, "/api/stations/galley/actions", nil, &p); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestWebsocketSeesCombatBroadcasts(t *testing.T) {
	h := newHarness(t, nil)
	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws/rooms/abcd"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := readFrame(t, conn, models.FrameHello)
	if hello.Channel != realtime.ChannelName("ABCD") {
		t.Fatalf("unexpected channel %s", hello.Channel)
	}
	readFrame(t, conn, models.FrameDocument)
	if err := conn.WriteJSON(models.WsMsg{Type: models.FrameSubscribe}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for h.bus.Subscribers(realtime.ChannelName("ABCD"), realtime.Event) < 1 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if code := h.do(t, http.MethodPost, "/api/rooms/ABCD/combat/hyperdrive/charge", nil, nil); code != http.StatusOK {
		t.Fatalf("charge: status %d", code)
	}
	frame := readFrame(t, conn, models.FrameBroadcast)
	var msg models.Message
	if err := json.Unmarshal(frame.Data, &msg); err != nil {
		t.Fatalf("decode broadcast: %v", err)
	}
	if msg.SenderID == "" || msg.Timestamp == 0 {
		t.Fatalf("expected stamped message, got %+v", msg)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn, want string) models.WsMsg {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg models.WsMsg
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s frame: %v", want, err)
		}
		if msg.Type == want {
			return msg
		}
	}
}
