package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/danroth-nyt/star-dashborg-sub001/internal/combat"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/enemy"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/engine"
	apperrors "github.com/danroth-nyt/star-dashborg-sub001/internal/errors"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/game"
	"github.com/danroth-nyt/star-dashborg-sub001/internal/models"
)

// CombatView is the body of the combat state endpoints.
type CombatView struct {
	State         models.CombatState `json:"state"`
	Ship          *models.Ship       `json:"ship,omitempty"`
	ActiveEnemies int                `json:"activeEnemies"`
}

func viewOf(store *combat.Store) CombatView {
	return CombatView{State: store.Snapshot(), Ship: store.Ship(), ActiveEnemies: store.ActiveEnemyCount()}
}

// withStore resolves the {code} store or writes the error.
func (s *Server) withStore(w http.ResponseWriter, r *http.Request) (*combat.Store, bool) {
	store, err := s.room(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return store, true
}

// mutation runs op against the room store and answers with the new state.
func (s *Server) mutation(op func(r *http.Request, store *combat.Store) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := s.withStore(w, r)
		if !ok {
			return
		}
		if err := op(r, store); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(store))
	}
}

// ===== Room document =====

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.docs.(RoomLister)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"rooms": s.openRooms()})
		return
	}
	rooms, err := lister.Rooms(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rooms == nil {
		rooms = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(r.Context(), roomCode(mux.Vars(r)["code"]))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handlePatchRoom(w http.ResponseWriter, r *http.Request) {
	code := roomCode(mux.Vars(r)["code"])
	var patch models.DocumentPatch
	if err := decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	if patch.SpaceCombat == nil && patch.Ship == nil {
		s.writeError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "patch carries neither spaceCombat nor ship"))
		return
	}
	if err := s.docs.Update(r.Context(), code, patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.docs.Get(r.Context(), code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleRoomStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Room(roomCode(mux.Vars(r)["code"])))
}

// ===== Combat =====

func (s *Server) handleCombatState(w http.ResponseWriter, r *http.Request) {
	store, ok := s.withStore(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(store))
}

func (s *Server) handleEnter(w http.ResponseWriter, r *http.Request) {
	s.mutation(func(r *http.Request, store *combat.Store) error { return store.EnterCombat(r.Context()) })(w, r)
}

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	s.mutation(func(r *http.Request, store *combat.Store) error { return store.ExitCombat(r.Context()) })(w, r)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	s.mutation(func(r *http.Request, store *combat.Store) error {
		var body struct {
			Character string `json:"character"`
		}
		if err := decode(r, &body); err != nil {
			return err
		}
		station := models.StationID(mux.Vars(r)["station"])
		return store.AssignStation(r.Context(), station, models.CharacterID(body.Character))
	})(w, r)
}

func (s *Server) handleUnassign(w http.ResponseWriter, r *http.Request) {
	s.mutation(func(r *http.Request, store *combat.Store) error {
		return store.UnassignStation(r.Context(), models.StationID(mux.Vars(r)["station"]))
	})(w, r)
}

func (s *Server) handleArmor(w http.ResponseWriter, r *http.Request) {
	s.mutation(func(r *http.Request, store *combat.Store) error {
		var body struct {
			Delta int `json:"delta"`
		}
		if err := decode(r, &body); err != nil {
			return err
		}
		return store.ModifyArmor(r.Context(), body.Delta)
	})(w, r)
}

func (s *Server) handleLoadTorpedoes(w http.ResponseWriter, r *http.Request) {
	s.mutation(func(r *http.Request, store *combat.Store) error {
		body := struct {
			Count int `json:"count"`
		}{Count: 1}
		if err := decode(r, &body); err != nil {
			return err
		}
		return store.LoadTorpedoes(r.Context(), body.Count)
	})(w, r)
}

func (s *Server) handleFireTorpedo(w http.ResponseWriter, r *http.Request) {
	store, ok := s.withStore(w, r)
	if !ok {
		return
	}
	var body struct {
		Type     models.TorpedoType `json:"type"`
		TargetID string             `json:"targetId"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Type == "" {
		if err := store.FireTorpedo(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(store))
		return
	}
	rep, err := store.FireTorpedoType(r.Context(), body.Type, body.TargetID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleHyperdrive(w http.ResponseWriter, r *http.Request) {
	s.mutation(func(r *http.Request, store *combat.Store) error {
		switch op := mux.Vars(r)["op"]; op {
		case "charge":
			return store.ChargeHyperdrive(r.Context())
		case "decrement":
			return store.DecrementHyperdrive(r.Context())
		case "reset":
			return store.ResetHyperdrive(r.Context())
		default:
			return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("unknown hyperdrive operation %q", op))
		}
	})(w, r)
}

func (s *Server) handleAddLog(w http.ResponseWriter, r *http.Request) {
	store, ok := s.withStore(w, r)
	if !ok {
		return
	}
	var body struct {
		Message string         `json:"message"`
		Type    models.LogType `json:"type"`
		Data    map[string]any `json:"data"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Message == "" {
		s.writeError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "message is required"))
		return
	}
	entry, err := store.AddCombatLog(r.Context(), body.Message, body.Type, body.Data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// ActionBody is the request of the station action endpoint.
type ActionBody struct {
	Station models.StationID   `json:"station"`
	Action  string             `json:"action"`
	Request game.ActionRequest `json:"request"`
}

func (s *Server) handleStationAction(w http.ResponseWriter, r *http.Request) {
	store, ok := s.withStore(w, r)
	if !ok {
		return
	}
	var body ActionBody
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := store.PerformStationAction(r.Context(), body.Station, body.Action, body.Request)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	station := models.StationID(mux.Vars(r)["station"])
	if !station.Valid() {
		s.writeError(w, r, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("unknown station %q", station)))
		return
	}
	writeJSON(w, http.StatusOK, game.StationActions(station))
}

// ===== Enemies =====

func (s *Server) handleSpawn(w http.ResponseWriter, r *http.Request) {
	store, ok := s.withStore(w, r)
	if !ok {
		return
	}
	body := struct {
		Type  enemy.TemplateKey `json:"type"`
		Count int               `json:"count"`
		Build enemy.BuildKey    `json:"build"`
	}{Count: 1}
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	spawned, err := store.SpawnEnemies(r.Context(), body.Type, body.Count, body.Build)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, spawned)
}

func (s *Server) handleSpawnRandom(w http.ResponseWriter, r *http.Request) {
	store, ok := s.withStore(w, r)
	if !ok {
		return
	}
	spawned, err := store.SpawnRandom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, spawned)
}

func (s *Server) handleUpdateEnemy(w http.ResponseWriter, r *http.Request) {
	s.mutation(func(r *http.Request, store *combat.Store) error {
		var patch models.EnemyPatch
		if err := decode(r, &patch); err != nil {
			return err
		}
		return store.UpdateEnemy(r.Context(), mux.Vars(r)["id"], patch)
	})(w, r)
}

func (s *Server) handleRemoveEnemy(w http.ResponseWriter, r *http.Request) {
	s.mutation(func(r *http.Request, store *combat.Store) error {
		return store.RemoveEnemy(r.Context(), mux.Vars(r)["id"])
	})(w, r)
}

func (s *Server) handleClearEnemies(w http.ResponseWriter, r *http.Request) {
	s.mutation(func(r *http.Request, store *combat.Store) error {
		return store.ClearAllEnemies(r.Context())
	})(w, r)
}

func (s *Server) handleDamage(w http.ResponseWriter, r *http.Request) {
	store, ok := s.withStore(w, r)
	if !ok {
		return
	}
	var body struct {
		Raw int `json:"raw"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	rep, err := store.ApplyDamageToEnemy(r.Context(), mux.Vars(r)["id"], body.Raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleAdjustHP(w http.ResponseWriter, r *http.Request) {
	store, ok := s.withStore(w, r)
	if !ok {
		return
	}
	var body struct {
		Delta int `json:"delta"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	adj, err := store.AdjustEnemyHp(r.Context(), mux.Vars(r)["id"], body.Delta)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adj)
}

func (s *Server) handleEnemyAttack(w http.ResponseWriter, r *http.Request) {
	store, ok := s.withStore(w, r)
	if !ok {
		return
	}
	rep, err := store.RollEnemyAttack(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleMorale(w http.ResponseWriter, r *http.Request) {
	store, ok := s.withStore(w, r)
	if !ok {
		return
	}
	rep, err := store.RollEnemyMorale(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ===== Dice =====

// RollResponse is the body of the pattern roll endpoint.
type RollResponse struct {
	Pattern string `json:"pattern"`
	Rolls   []int  `json:"rolls"`
	Total   int    `json:"total"`
}

func (s *Server) handleRoll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pattern string `json:"pattern"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.roller.RollPattern(body.Pattern)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RollResponse{Pattern: res.Pattern.String(), Rolls: res.Rolls, Total: res.Total})
}

func (s *Server) handleRollTest(w http.ResponseWriter, r *http.Request) {
	var req engine.TestRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.roller.RollTest(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
