package httpapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	chatdomain "github.com/jinford/ppx-backend/internal/module/chat/domain"
	searchapp "github.com/jinford/ppx-backend/internal/module/search/application"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

const maxEmbeddingBodySize = 1 << 20

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := q.Get("query")
	if strings.TrimSpace(query) == "" {
		respondError(w, r, h.log, apperr.Validation("query is required"))
		return
	}

	numberDocuments, err := queryInt(q, "number_documents", searchapp.DefaultNumberDocuments)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	mock, err := queryBool(q, "mock")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	ragOnly, err := queryBool(q, "rag_only")
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	stream, err := h.deps.Chat.Chat(r.Context(), chatdomain.ChatRequest{
		Query:           query,
		SessionID:       q.Get("session_id"),
		NumberDocuments: numberDocuments,
		SystemPrompt:    q.Get("system_prompt"),
		ResourceIDs:     queryList(q, "resource_ids"),
		RAGOnly:         ragOnly,
		Mock:            mock,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	for chunk := range stream {
		if _, err := io.WriteString(w, chunk); err != nil {
			h.log.Debug("Failed to write chat chunk", "error", err)
			continue
		}
		if err := rc.Flush(); err != nil {
			h.log.Debug("Failed to flush chat chunk", "error", err)
		}
	}
}

func (h *Handler) embeddings(w http.ResponseWriter, r *http.Request) {
	data := r.URL.Query().Get("data")
	if data == "" {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxEmbeddingBodySize))
		if err != nil {
			respondError(w, r, h.log, apperr.Validation("failed to read request body: %v", err))
			return
		}
		data = string(body)
	}
	if strings.TrimSpace(data) == "" {
		respondError(w, r, h.log, apperr.Validation("data is required"))
		return
	}

	embedding, err := h.deps.Embedder.Embed(r.Context(), data)
	if err != nil {
		respondError(w, r, h.log, apperr.Upstream("embed data", err))
		return
	}
	respondJSON(w, http.StatusOK, embedding)
}

func (h *Handler) getResource(w http.ResponseWriter, r *http.Request) {
	resource, err := h.deps.Resources.Get(r.Context(), chi.URLParam(r, "resourceID"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, resource)
}

type resourceQueryRequest struct {
	Query       string   `json:"query"`
	ResourceIDs []string `json:"resource_ids"`
}

func (h *Handler) queryResources(w http.ResponseWriter, r *http.Request) {
	var req resourceQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	ids, err := h.deps.ResourceQuery.RelevantResources(r.Context(), req.Query, req.ResourceIDs)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	respondJSON(w, http.StatusOK, ids)
}

type docsSimilarityRequest struct {
	Query     string   `json:"query"`
	Docs      []string `json:"docs"`
	Threshold *float64 `json:"threshold"`
}

func (h *Handler) docsSimilarity(w http.ResponseWriter, r *http.Request) {
	var req docsSimilarityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	threshold := searchapp.DefaultSimilarityThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	result, err := h.deps.Similarity.DocsSimilarity(r.Context(), req.Query, req.Docs, threshold)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if result == nil {
		result = []searchapp.DocSimilarity{}
	}
	respondJSON(w, http.StatusOK, result)
}

type transcriptResponse struct {
	Transcript string         `json:"transcript"`
	Metadata   map[string]any `json:"metadata"`
}

func (h *Handler) youtubeTranscript(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		respondError(w, r, h.log, apperr.Validation("url is required"))
		return
	}

	result, err := h.deps.Transcripts.Load(r.Context(), url)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if len(result.Data) == 0 {
		respondError(w, r, h.log, apperr.NotFound("no transcript found for url: %s", url))
		return
	}

	record := result.Data[0]
	metadata := make(map[string]any, len(record.Metadata)+1)
	for k, v := range record.Metadata {
		metadata[k] = v
	}
	metadata["transcript_pieces"] = record.Segments

	respondJSON(w, http.StatusOK, transcriptResponse{
		Transcript: record.Content,
		Metadata:   metadata,
	})
}
