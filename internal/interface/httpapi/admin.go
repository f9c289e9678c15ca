package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	indexingapp "github.com/jinford/ppx-backend/internal/module/indexing/application"
	searchdomain "github.com/jinford/ppx-backend/internal/module/search/domain"
	topicsapp "github.com/jinford/ppx-backend/internal/module/topics/application"
	"github.com/jinford/ppx-backend/internal/shared/apperr"
)

type collectionEntry struct {
	Metadata map[string]any `json:"metadata"`
	Document string         `json:"document"`
}

type collectionResponse struct {
	Details searchdomain.Collection `json:"details"`
	Data    []collectionEntry       `json:"data"`
}

func (h *Handler) listCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.deps.Collections.ListCollections(r.Context())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if collections == nil {
		collections = []searchdomain.Collection{}
	}
	respondJSON(w, http.StatusOK, collections)
}

func (h *Handler) getCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	docs, err := h.deps.Collections.ListDocuments(r.Context(), name)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	data := make([]collectionEntry, len(docs))
	for i, doc := range docs {
		data[i] = collectionEntry{Metadata: doc.Metadata, Document: doc.Document}
	}
	respondJSON(w, http.StatusOK, collectionResponse{
		Details: searchdomain.Collection{Name: name, Count: len(docs)},
		Data:    data,
	})
}

func (h *Handler) clusterTopics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		params topicsapp.ClusterParams
		err    error
	)
	if params.MinTopicSize, err = queryInt(q, "minimum_topics", 0); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if params.NrTopics, err = queryInt(q, "nr_topics", 0); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if params.TopNWords, err = queryInt(q, "top_n_words", 0); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if params.ProbThreshold, err = queryFloat(q, "prob_threshold", 0); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	topics, err := h.deps.Topics.Clusters(r.Context(), chi.URLParam(r, "name"), params)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, topics)
}

func (h *Handler) ldaTopics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	numTopics, err := queryInt(q, "num_topics", topicsapp.DefaultNumTopics)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	passes, err := queryInt(q, "passes", topicsapp.DefaultPasses)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	result, err := h.deps.Topics.LDA(r.Context(), chi.URLParam(r, "name"), topicsapp.LDAParams{
		NumTopics: numTopics,
		Passes:    passes,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) listChatHistory(w http.ResponseWriter, r *http.Request) {
	turns, err := h.deps.History.ListAll(r.Context())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, turns)
}

func (h *Handler) getChatHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.deps.History.SessionHistory(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (h *Handler) listDataSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.deps.Sources.ListSources(r.Context())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if sources == nil {
		sources = []searchdomain.DataSource{}
	}
	respondJSON(w, http.StatusOK, sources)
}

func (h *Handler) getDataSource(w http.ResponseWriter, r *http.Request) {
	source, err := h.deps.Sources.GetSource(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, source)
}

type addDataSourceRequest struct {
	DataType     string `json:"dataType"`
	DataValue    string `json:"dataValue"`
	Metadata     string `json:"metadata"`
	EnvVariables string `json:"envVariables"`
}

func (h *Handler) addDataSource(w http.ResponseWriter, r *http.Request) {
	var req addDataSourceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	result, err := h.deps.Sources.AddSource(r.Context(), indexingapp.AddSourceParams{
		DataType:     req.DataType,
		DataValue:    req.DataValue,
		Metadata:     req.Metadata,
		EnvVariables: req.EnvVariables,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	h.log.Info("Data source added",
		"dataType", req.DataType,
		"docID", result.DocID,
		"inserted", result.Inserted,
	)
	respondMessage(w, http.StatusCreated, fmt.Sprintf("Data of data_type='%s' added successfully.", req.DataType))
}

func (h *Handler) deleteDataSource(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resourceID := q.Get("resource_id")
	if resourceID == "" {
		respondError(w, r, h.log, apperr.Validation("resource_id is required"))
		return
	}

	deleted, err := h.deps.Sources.DeleteSource(r.Context(), resourceID, q.Get("collection_name"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	h.log.Info("Data source deleted", "resourceID", resourceID, "chunks", deleted)
	respondMessage(w, http.StatusOK, "Resource deleted successfully.")
}
