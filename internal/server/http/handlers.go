package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/w-h-a/sourcechat/internal/service/drive"
)

const maxMessageLength = 2000

type askRequest struct {
	Message  string `json:"message"`
	ThreadId string `json:"thread_id"`
}

type searchRequest struct {
	Query   string `json:"query"`
	Carpeta string `json:"carpeta"`
}

type searchResponse struct {
	Success        bool         `json:"success"`
	Total          int          `json:"total"`
	CarpetaBuscada *string      `json:"carpeta_buscada"`
	Archivos       []drive.File `json:"archivos"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Message) == 0 || len(req.Message) > maxMessageLength {
		writeError(w, http.StatusBadRequest, "message must be between 1 and 2000 characters")
		return
	}

	rsp, err := s.chatService.Ask(r.Context(), req.Message, req.ThreadId)
	if err != nil {
		// recovered degradations never reach this point; anything surfaced
		// here maps to one generic failure for the caller
		slog.ErrorContext(r.Context(), "chat turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "chat failed")
		return
	}

	writeJSON(w, http.StatusOK, rsp)
}

func (s *Server) handleSearchDrive(w http.ResponseWriter, r *http.Request) {
	if s.driveService == nil {
		writeError(w, http.StatusServiceUnavailable, "drive search is not configured")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Carpeta) > 0 {
		folderId, ok := s.driveService.FolderId(req.Carpeta)
		if !ok {
			writeError(w, http.StatusBadRequest, "carpeta '"+req.Carpeta+"' is not configured")
			return
		}

		archivos := s.driveService.SearchFolder(r.Context(), req.Query, folderId)
		if archivos == nil {
			archivos = []drive.File{}
		}

		writeJSON(w, http.StatusOK, searchResponse{
			Success:        true,
			Total:          len(archivos),
			CarpetaBuscada: &req.Carpeta,
			Archivos:       archivos,
		})
		return
	}

	archivos := []drive.File{}
	for carpeta, files := range s.driveService.SearchAll(r.Context(), req.Query) {
		for _, file := range files {
			file.Folder = carpeta
			archivos = append(archivos, file)
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Success:  true,
		Total:    len(archivos),
		Archivos: archivos,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "healthy",
		"openai_enabled":    true,
		"drive_enabled":     s.driveService != nil,
		"assistant_id":      s.assistantId,
		"references_loaded": s.referencesLoaded,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Error: detail})
}
