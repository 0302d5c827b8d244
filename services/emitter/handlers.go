package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"ticketera/version"
)

func (a *App) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", a.handleHealth).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/connect", a.handleConnect).Methods("POST")
	api.HandleFunc("/events", a.handleEvents).Methods("GET")
	api.HandleFunc("/process", a.handleProcess).Methods("POST")
	api.HandleFunc("/jobs/{id}", a.handleJob).Methods("GET")
	api.HandleFunc("/status", a.handleStatus).Methods("GET")
	api.HandleFunc("/history", a.handleHistory).Methods("GET")
	api.HandleFunc("/log", a.handleLog).Methods("GET")
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

type connectRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	SheetURL string `json:"sheet_url,omitempty"`
}

func (a *App) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	events, err := a.connect(req.Email, req.Password, req.SheetURL)
	if err == errBusy {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (a *App) handleEvents(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	events := a.events
	connected := a.session != nil
	a.mu.Unlock()

	if !connected {
		writeError(w, http.StatusConflict, errNotConnected)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

type processRequest struct {
	EventID   string `json:"event_id"`
	Variant   string `json:"variant"`
	Worksheet string `json:"worksheet,omitempty"`
}

func (a *App) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	job, err := a.startBatch(req.EventID, req.Variant, req.Worksheet)
	switch err {
	case nil:
	case errBusy:
		writeError(w, http.StatusConflict, err)
		return
	case errNotConnected:
		writeError(w, http.StatusConflict, err)
		return
	default:
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (a *App) handleJob(w http.ResponseWriter, r *http.Request) {
	job, ok := a.jobSnapshot(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	status := map[string]interface{}{
		"version":   version.Version,
		"connected": a.session != nil,
		"busy":      a.busy,
		"events":    len(a.events),
		"jobs":      len(a.jobs),
	}
	a.mu.Unlock()
	writeJSON(w, http.StatusOK, status)
}

func (a *App) handleHistory(w http.ResponseWriter, r *http.Request) {
	if a.hist == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"runs": []interface{}{}})
		return
	}
	runs, err := a.hist.Recent(r.Context(), 20)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (a *App) handleLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"lines": a.logger.Lines()})
}
