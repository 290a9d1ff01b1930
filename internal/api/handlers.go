package api

import (
	"encoding/json"
	"net/http"

	"github.com/netxfw/netguard/internal/core"
	"github.com/netxfw/netguard/internal/parser"
	"github.com/netxfw/netguard/internal/version"
	"github.com/netxfw/netguard/pkg/storage"
)

// ExecuteRequest carries either free text or a structured directive.
// ExecuteRequest 携带自由文本或结构化指令。
type ExecuteRequest struct {
	Command string `json:"command,omitempty"`
	Action  string `json:"action,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Value   string `json:"value,omitempty"`
}

// ExecuteResponse is the outcome plus the error text, if any.
type ExecuteResponse struct {
	core.Outcome
	Error string `json:"error,omitempty"`
}

// BlockedResponse lists current entries.
type BlockedResponse struct {
	Entries []storage.BlockedEntry `json:"entries"`
	Count   int                    `json:"count"`
}

// RollbackResponse reports a replay.
type RollbackResponse struct {
	Applied int        `json:"applied"`
	Failed  [][]string `json:"failed"`
	Error   string     `json:"error,omitempty"`
}

// SafeModeRequest toggles Safe Mode.
type SafeModeRequest struct {
	On *bool `json:"on"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"version": version.Get()})
}

// handleExecute runs one directive. The HTTP status follows the error taxonomy.
// handleExecute 执行一条指令，HTTP 状态码遵循错误分类。
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid Request")
		return
	}

	d, err := directiveFrom(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.engine.ExecuteDirective(r.Context(), d)
	writeJSONResponse(w, statusFor(err), ExecuteResponse{Outcome: out, Error: errString(err)})
}

func directiveFrom(req ExecuteRequest) (core.Directive, error) {
	if req.Command != "" {
		return parser.Parse(req.Command), nil
	}
	action, err := core.ParseAction(req.Action)
	if err != nil {
		return core.Directive{}, err
	}
	kind, err := core.ParseKind(req.Kind)
	if err != nil {
		return core.Directive{}, err
	}
	return core.NewDirective(action, kind, req.Value)
}

func (s *Server) handleBlocked(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	entries, err := s.engine.ListBlocked(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []storage.BlockedEntry{}
	}
	writeJSONResponse(w, http.StatusOK, BlockedResponse{Entries: entries, Count: len(entries)})
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	res, err := s.engine.Rollback(r.Context())
	failed := make([][]string, 0, len(res.Failed))
	for _, cmd := range res.Failed {
		failed = append(failed, cmd)
	}
	writeJSONResponse(w, statusFor(err), RollbackResponse{Applied: res.Applied, Failed: failed, Error: errString(err)})
}

func (s *Server) handleSafeMode(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req SafeModeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.On == nil {
			writeError(w, http.StatusBadRequest, `Invalid Request: expected {"on": true|false}`)
			return
		}
		if err := s.engine.SetSafeMode(r.Context(), *req.On); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	on, err := s.engine.SafeMode(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]bool{"safe_mode": on})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	d, _ := core.NewDirective(core.ActionShowLogs, core.KindNone, "")
	out, err := s.engine.ExecuteDirective(r.Context(), d)
	writeJSONResponse(w, statusFor(err), ExecuteResponse{Outcome: out, Error: errString(err)})
}
