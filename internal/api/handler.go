package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	db "sysdash/internal/database"
	"sysdash/internal/monitoring"
	"sysdash/internal/present"
	"sysdash/internal/websockets"
)

// DefaultHistoryWindow is used when /api/history gets no "since".
const DefaultHistoryWindow = time.Hour

// SnapshotProvider serves the latest snapshot and on-demand collections.
// monitoring.Scheduler implements it.
type SnapshotProvider interface {
	Latest() *monitoring.Snapshot
	Refresh(ctx context.Context) (*monitoring.Snapshot, error)
	LastError() error
}

// HistoryStore answers range queries over stored samples.
type HistoryStore interface {
	Samples(ctx context.Context, metric string, since time.Time, limit int) ([]db.Point, error)
	Metrics(ctx context.Context) ([]string, error)
}

// Handler는 API 핸들러들의 의존성을 관리합니다.
type Handler struct {
	Snapshots SnapshotProvider
	Renderer  *present.Renderer
	History   HistoryStore // nil when history is disabled
	Hub       *websockets.Hub
	Metrics   http.Handler
	Logger    *zap.SugaredLogger

	started time.Time
	now     func() time.Time
}

// NewHandler는 새로운 Handler 인스턴스를 생성합니다.
func NewHandler(snapshots SnapshotProvider, renderer *present.Renderer, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{
		Snapshots: snapshots,
		Renderer:  renderer,
		Logger:    logger,
		started:   time.Now(),
		now:       time.Now,
	}
}

// RegisterRoutes는 mux 라우터에 API 경로들을 등록합니다.
func RegisterRoutes(r *mux.Router, h *Handler) {
	r.HandleFunc("/api/snapshot", h.GetSnapshotHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/snapshot/raw", h.GetRawSnapshotHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/snapshot/{group}", h.GetGroupHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/refresh", h.RefreshHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/history", h.GetHistoryHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/history/metrics", h.GetHistoryMetricsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/health", h.HealthHandler).Methods(http.MethodGet)

	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics).Methods(http.MethodGet)
	}
	if h.Hub != nil {
		r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			websockets.ServeWs(h.Hub, w, r)
		})
	}
}

// NewRouter returns a router with every route registered and request
// logging enabled.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(LogMiddleware(h.Logger))
	RegisterRoutes(r, h)
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// 헤더는 이미 전송됨
		h.Logger.Debugw("failed to encode response", "status", status, "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

// GetSnapshotHandler는 최신 스냅샷을 화면용 값으로 변환해 반환합니다.
func (h *Handler) GetSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := h.Snapshots.Latest()
	if snapshot == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no snapshot collected yet")
		return
	}
	h.writeJSON(w, http.StatusOK, h.Renderer.Render(snapshot))
}

// GetRawSnapshotHandler returns the latest snapshot as collected.
func (h *Handler) GetRawSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := h.Snapshots.Latest()
	if snapshot == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no snapshot collected yet")
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}

// GetGroupHandler는 최신 스냅샷에서 한 그룹의 화면용 값만 반환합니다.
func (h *Handler) GetGroupHandler(w http.ResponseWriter, r *http.Request) {
	group, err := monitoring.ParseGroup(mux.Vars(r)["group"])
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	snapshot := h.Snapshots.Latest()
	if snapshot == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no snapshot collected yet")
		return
	}
	h.writeJSON(w, http.StatusOK, h.Renderer.Render(snapshot).Groups[group])
}

// RefreshHandler collects a snapshot now and returns its rendered view.
func (h *Handler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Snapshots.Refresh(r.Context())
	switch {
	case errors.Is(err, monitoring.ErrCollectionInFlight):
		h.writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, monitoring.ErrAggregationFailed):
		h.Logger.Warnw("manual refresh failed", "error", err)
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	case err != nil:
		h.Logger.Errorw("manual refresh failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, h.Renderer.Render(snapshot))
}

type historyResponse struct {
	Metric string     `json:"metric"`
	Since  time.Time  `json:"since"`
	Points []db.Point `json:"points"`
}

// GetHistoryHandler returns stored points of one metric. "since" is either an
// RFC 3339 time or a duration back from now such as "15m".
func (h *Handler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		h.writeError(w, http.StatusNotFound, "history is disabled")
		return
	}

	q := r.URL.Query()
	metric := strings.TrimSpace(q.Get("metric"))
	if metric == "" {
		h.writeError(w, http.StatusBadRequest, "metric is required")
		return
	}

	since, err := parseSince(q.Get("since"), h.now())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}

	points, err := h.History.Samples(r.Context(), metric, since, limit)
	if err != nil {
		h.Logger.Errorw("history query failed", "metric", metric, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to query history")
		return
	}
	h.writeJSON(w, http.StatusOK, historyResponse{Metric: metric, Since: since, Points: points})
}

// GetHistoryMetricsHandler lists the metric names that have stored samples.
func (h *Handler) GetHistoryMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		h.writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	metrics, err := h.History.Metrics(r.Context())
	if err != nil {
		h.Logger.Errorw("history metrics query failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to query history")
		return
	}
	h.writeJSON(w, http.StatusOK, metrics)
}

func parseSince(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Add(-DefaultHistoryWindow), nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		if d < 0 {
			d = -d
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("since must be an RFC 3339 time or a duration")
	}
	return t, nil
}

type healthResponse struct {
	Status           string             `json:"status"`
	Uptime           string             `json:"uptime"`
	LastCollection   *time.Time         `json:"lastCollection,omitempty"`
	FailedGroups     []monitoring.Group `json:"failedGroups,omitempty"`
	LastError        string             `json:"lastError,omitempty"`
	WebsocketClients int                `json:"websocketClients"`
}

// HealthHandler reports whether collection works. Status is "starting"
// before the first snapshot, "degraded" when groups are failing and "ok"
// otherwise.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Uptime: h.now().Sub(h.started).Round(time.Second).String(),
	}
	if h.Hub != nil {
		resp.WebsocketClients = h.Hub.ClientCount()
	}
	if err := h.Snapshots.LastError(); err != nil {
		resp.LastError = err.Error()
		resp.Status = "degraded"
	}

	snapshot := h.Snapshots.Latest()
	if snapshot == nil {
		if resp.LastError == "" {
			resp.Status = "starting"
		}
		h.writeJSON(w, http.StatusOK, resp)
		return
	}

	collected := snapshot.CollectedAt
	resp.LastCollection = &collected
	resp.FailedGroups = snapshot.FailedGroups()
	if len(resp.FailedGroups) > 0 {
		resp.Status = "degraded"
	}
	h.writeJSON(w, http.StatusOK, resp)
}
