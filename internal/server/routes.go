package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// ===== Room document =====
	api.HandleFunc("/rooms", s.handleListRooms).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}", s.handleGetRoom).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}", s.handlePatchRoom).Methods(http.MethodPatch)
	api.HandleFunc("/rooms/{code}/stats", s.handleRoomStats).Methods(http.MethodGet)

	// ===== Combat =====
	const c = "/rooms/{code}/combat"
	api.HandleFunc(c, s.handleCombatState).Methods(http.MethodGet)
	api.HandleFunc(c+"/enter", s.handleEnter).Methods(http.MethodPost)
	api.HandleFunc(c+"/exit", s.handleExit).Methods(http.MethodPost)
	api.HandleFunc(c+"/stations/{station}", s.handleAssign).Methods(http.MethodPut)
	api.HandleFunc(c+"/stations/{station}", s.handleUnassign).Methods(http.MethodDelete)
	api.HandleFunc(c+"/armor", s.handleArmor).Methods(http.MethodPost)
	api.HandleFunc(c+"/torpedoes/load", s.handleLoadTorpedoes).Methods(http.MethodPost)
	api.HandleFunc(c+"/torpedoes/fire", s.handleFireTorpedo).Methods(http.MethodPost)
	api.HandleFunc(c+"/hyperdrive/{op}", s.handleHyperdrive).Methods(http.MethodPost)
	api.HandleFunc(c+"/log", s.handleAddLog).Methods(http.MethodPost)
	api.HandleFunc(c+"/actions", s.handleStationAction).Methods(http.MethodPost)
	api.HandleFunc("/stations/{station}/actions", s.handleListActions).Methods(http.MethodGet)

	// ===== Enemies =====
	const e = "/rooms/{code}/enemies"
	api.HandleFunc(e, s.handleSpawn).Methods(http.MethodPost)
	api.HandleFunc(e, s.handleClearEnemies).Methods(http.MethodDelete)
	api.HandleFunc(e+"/random", s.handleSpawnRandom).Methods(http.MethodPost)
	api.HandleFunc(e+"/{id}", s.handleUpdateEnemy).Methods(http.MethodPatch)
	api.HandleFunc(e+"/{id}", s.handleRemoveEnemy).Methods(http.MethodDelete)
	api.HandleFunc(e+"/{id}/damage", s.handleDamage).Methods(http.MethodPost)
	api.HandleFunc(e+"/{id}/hp", s.handleAdjustHP).Methods(http.MethodPost)
	api.HandleFunc(e+"/{id}/attack", s.handleEnemyAttack).Methods(http.MethodPost)
	api.HandleFunc(e+"/{id}/morale", s.handleMorale).Methods(http.MethodPost)

	// ===== Dice =====
	api.HandleFunc("/roll", s.handleRoll).Methods(http.MethodPost)
	api.HandleFunc("/roll/test", s.handleRollTest).Methods(http.MethodPost)

	r.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": s.version, "time": s.buildTime})
	}).Methods(http.MethodGet)
	r.HandleFunc("/ws/rooms/{code}", func(w http.ResponseWriter, req *http.Request) {
		s.hub.ServeRoom(w, req, roomCode(mux.Vars(req)["code"]))
	}).Methods(http.MethodGet)
	return r
}
