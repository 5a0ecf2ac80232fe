package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"video-matrix/internal/domain"
	"video-matrix/internal/jobs"
)

// Service is the batch control surface served over HTTP.
type Service interface {
	StartBatch() (domain.Batch, error)
	StartBatchWith(settings domain.Settings) (domain.Batch, error)
	StopBatch() error
	CurrentBatch() domain.Batch
	BatchEvents(sinceSeq int64) []jobs.Event
	GetTransformations() []domain.TransformationOption
	RefreshDiagnostics() (domain.DiagnosticReport, error)
	GetSettings() (domain.Settings, error)
	SaveSettings(settings domain.Settings) (domain.Settings, error)
}

// Handler serves the HTTP API.
type Handler struct {
	Service      Service
	PollInterval time.Duration
}

// NewHandler wraps svc with the default stream poll interval.
func NewHandler(svc Service) *Handler {
	return &Handler{Service: svc, PollInterval: 500 * time.Millisecond}
}

// StartBatch runs persisted settings, or the settings in the request body if one is sent.
func (h *Handler) StartBatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}

	var batch domain.Batch
	if len(body) == 0 {
		batch, err = h.Service.StartBatch()
	} else {
		var settings domain.Settings
		if err := json.Unmarshal(body, &settings); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		batch, err = h.Service.StartBatchWith(settings)
	}
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, jobs.ErrBatchAlreadyRunning) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusAccepted, batch)
}

// StopBatch cancels the running batch.
func (h *Handler) StopBatch(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.StopBatch(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, jobs.ErrNoRunningBatch) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CurrentBatch returns the current batch snapshot.
func (h *Handler) CurrentBatch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.CurrentBatch())
}

// Events returns events newer than ?since=.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	events := h.Service.BatchEvents(since)
	if events == nil {
		events = []jobs.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Stream pushes events as server-sent events until the batch stops running
// and no new events remain, or the client goes away.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	rc := http.NewResponseController(w)
	ticker := time.NewTicker(h.PollInterval)
	defer ticker.Stop()

	for {
		events := h.Service.BatchEvents(since)
		for _, event := range events {
			data, _ := json.Marshal(event)
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Seq, event.Type, data)
			since = event.Seq
		}
		_ = rc.Flush()

		if len(events) == 0 && h.Service.CurrentBatch().Status != domain.BatchStatusRunning {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// Transformations lists every available transformation.
func (h *Handler) Transformations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.GetTransformations())
}

// Diagnostics reruns dependency checks.
func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.RefreshDiagnostics()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetSettings returns persisted settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Service.GetSettings()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// SaveSettings persists the settings in the request body.
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	saved, err := h.Service.SaveSettings(settings)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func parseSince(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return 0, nil
	}
	since, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || since < 0 {
		return 0, fmt.Errorf("invalid since: %q", raw)
	}
	return since, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
