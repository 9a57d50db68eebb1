// internal/server/handlers.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/taskhub/taskhub/internal/coordinator"
	"github.com/taskhub/taskhub/internal/service"
	"github.com/taskhub/taskhub/internal/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// identity resolves the request identity or writes the error response
func (s *Server) identity(w http.ResponseWriter, r *http.Request) (coordinator.Identity, bool) {
	id, err := coordinator.IdentityFromHeaders(r.Header, s.coord.Defaults())
	if err != nil {
		s.respondServiceError(w, err)
		return coordinator.Identity{}, false
	}
	return id, true
}

// handleWebSocket upgrades to WebSocket for lifecycle event observers
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, wsBufferSize),
	}
	s.hub.Register(client)

	go client.readPump()
	go client.writePump()
}

// --- hunters ---

func (s *Server) handleRegisterHunter(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req struct {
		Skills map[string]int `json:"skills"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	hunter, err := s.coord.RegisterHunter(r.Context(), id, req.Skills)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, hunter)
}

func (s *Server) handleListHunters(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	hunters, err := s.coord.ListHunters(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, hunters)
}

func (s *Server) handleGetHunter(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	hunter, err := s.coord.GetHunter(r.Context(), id, mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, hunter)
}

func (s *Server) handleSetReputation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req struct {
		Reputation int `json:"reputation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	hunter, err := s.coord.SetReputation(r.Context(), id, mux.Vars(r)["id"], req.Reputation)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, hunter)
}

func (s *Server) handleStudyKnowledge(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req struct {
		KnowledgeID string `json:"knowledge_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	hunter, err := s.coord.StudyKnowledge(r.Context(), id, req.KnowledgeID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, hunter)
}

// --- tasks ---

func (s *Server) handlePublishTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req coordinator.PublishParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := s.coord.PublishTask(r.Context(), id, req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := types.TaskFilter{
		Status:        types.TaskStatus(q.Get("status")),
		RequiredSkill: q.Get("skill"),
		HunterID:      q.Get("hunter_id"),
	}

	tasks, err := s.coord.ListTasks(r.Context(), id, filter)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	task, err := s.coord.GetTask(r.Context(), id, mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, task)
}

func (s *Server) handleClaimTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	task, err := s.coord.ClaimTask(r.Context(), id, mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, task)
}

func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	task, err := s.coord.StartTask(r.Context(), id, mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, task)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req struct {
		Status types.TaskStatus `json:"status"`
		Result string           `json:"result"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Status == "" {
		req.Status = types.StatusCompleted
	}

	task, err := s.coord.CompleteTask(r.Context(), id, mux.Vars(r)["id"], req.Result, req.Status)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, task)
}

func (s *Server) handleArchiveTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	task, err := s.coord.ArchiveTask(r.Context(), id, mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	force := r.URL.Query().Get("force") == "true"
	if err := s.coord.DeleteTask(r.Context(), id, mux.Vars(r)["id"], force); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, map[string]bool{"success": true})
}

// --- reports ---

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req struct {
		TaskID  string           `json:"task_id"`
		Status  types.TaskStatus `json:"status"`
		Result  string           `json:"result"`
		Details string           `json:"details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, evalTask, err := s.coord.SubmitReport(r.Context(), id, req.TaskID, req.Status, req.Result, req.Details)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, map[string]interface{}{
		"report":          report,
		"evaluation_task": evalTask,
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	filter := types.ReportFilter{
		TaskID:   q.Get("task_id"),
		HunterID: q.Get("hunter_id"),
		Status:   types.TaskStatus(q.Get("status")),
		Limit:    limit,
	}

	reports, err := s.coord.ListReports(r.Context(), id, filter)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, reports)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	report, err := s.coord.GetReport(r.Context(), id, mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, report)
}

func (s *Server) handleEvaluateReport(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req struct {
		Score        int            `json:"score"`
		Feedback     string         `json:"feedback"`
		SkillUpdates map[string]int `json:"skill_updates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := s.coord.EvaluateReport(r.Context(), id, mux.Vars(r)["id"], req.Score, req.Feedback, req.SkillUpdates)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, report)
}

// --- discussion ---

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	msg, err := s.coord.PostMessage(r.Context(), id, req.Content)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, msg)
}

func (s *Server) handleUnreadMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	msgs, err := s.coord.UnreadMessages(r.Context(), id, limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, msgs)
}

func (s *Server) handleLatestMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	msgs, err := s.coord.LatestMessages(r.Context(), id, limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, msgs)
}

// --- knowledge ---

func (s *Server) handleCreateKnowledge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		ParentID string `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := s.coord.CreateKnowledge(r.Context(), req.Title, req.Content, req.ParentID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, doc)
}

func (s *Server) handleGetKnowledge(w http.ResponseWriter, r *http.Request) {
	item, err := s.coord.GetKnowledge(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, item)
}

func (s *Server) handleListKnowledge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	docs, err := s.coord.ListKnowledge(r.Context(), limit, offset)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, docs)
}

func (s *Server) handleSearchKnowledge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	docs, err := s.coord.SearchKnowledge(r.Context(), q.Get("q"), limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, docs)
}

func (s *Server) handleUpdateKnowledge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := s.coord.UpdateKnowledge(r.Context(), mux.Vars(r)["id"], req.Title, req.Content)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, doc)
}

func (s *Server) handleDeleteKnowledge(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.DeleteKnowledge(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, map[string]bool{"success": true})
}

// --- admin ---

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	stats, err := s.coord.NamespaceStats(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, stats)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, map[string]interface{}{
		"status":    "ok",
		"observers": s.hub.ClientCount(),
	})
}

// --- responses ---

func (s *Server) respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// respondServiceError maps a service error kind to an HTTP status
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	s.respondError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrState), errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrOwner), errors.Is(err, service.ErrSelfClaim), errors.Is(err, service.ErrSelfEval):
		return http.StatusForbidden
	case errors.Is(err, service.ErrSkill):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrIdentity):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
