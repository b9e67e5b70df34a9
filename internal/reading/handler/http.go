// Package handler exposes the query operations as the dashboard JSON API.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"vehicle-sensor-platform/backend/internal/reading/domain"
	"vehicle-sensor-platform/backend/internal/reading/query"
	"vehicle-sensor-platform/backend/internal/reading/service"
)

// dateOnlyFormat accepts bare dates from dashboard date pickers.
const dateOnlyFormat = "2006-01-02"

// Pinger reports store reachability for the health endpoint (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// API serves the dashboard query endpoints.
type API struct {
	svc          *service.QueryService
	db           Pinger // may be nil; health then skips the store ping
	defaultLimit int
	log          *zap.Logger
	now          func() time.Time
}

// New returns the API handler. db may be nil. defaultLimit caps list results
// when a request sends no limit; <= 0 leaves such requests uncapped.
func New(svc *service.QueryService, db Pinger, defaultLimit int, log *zap.Logger) *API {
	return &API{svc: svc, db: db, defaultLimit: defaultLimit, log: log, now: time.Now}
}

// Routes registers all endpoints on mux.
func (a *API) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("GET /api/sessions", a.handleSessions)
	mux.HandleFunc("GET /api/days", a.handleDays)
	mux.HandleFunc("GET /api/imu", a.handleListMotion)
	mux.HandleFunc("GET /api/imu/stats", a.handleMotionStats)
	mux.HandleFunc("GET /api/gps", a.handleListPosition)
	mux.HandleFunc("GET /api/gps/latest", a.handleLatestPosition)
	mux.HandleFunc("GET /api/summary", a.handleSummary)
}

type motionJSON struct {
	Timestamp  string           `json:"timestamp"`
	Session    domain.SessionID `json:"session"`
	Ax         float64          `json:"ax"`
	Ay         float64          `json:"ay"`
	Az         float64          `json:"az"`
	Gx         float64          `json:"gx"`
	Gy         float64          `json:"gy"`
	Gz         float64          `json:"gz"`
	ReceivedAt string           `json:"received_at"`
}

type positionJSON struct {
	Timestamp  string           `json:"timestamp"`
	Session    domain.SessionID `json:"session"`
	Lat        float64          `json:"lat"`
	Lon        float64          `json:"lon"`
	ReceivedAt string           `json:"received_at"`
}

func (a *API) handleListMotion(w http.ResponseWriter, r *http.Request) {
	f, ok := a.filter(w, r)
	if !ok {
		return
	}
	list, err := a.svc.ListMotion(r.Context(), f)
	if err != nil {
		a.serviceError(w, "list motion readings", err)
		return
	}
	out := make([]motionJSON, 0, len(list))
	for _, m := range list {
		out = append(out, motionJSON{
			Timestamp:  m.SourceTime,
			Session:    m.Session,
			Ax:         m.Ax, Ay: m.Ay, Az: m.Az,
			Gx: m.Gx, Gy: m.Gy, Gz: m.Gz,
			ReceivedAt: m.ReceivedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) handleMotionStats(w http.ResponseWriter, r *http.Request) {
	f, ok := a.filter(w, r)
	if !ok {
		return
	}
	stats, err := a.svc.MotionStats(r.Context(), f)
	if err != nil {
		a.serviceError(w, "motion statistics", err)
		return
	}
	a.writeJSON(w, http.StatusOK, statsPayload(stats))
}

func (a *API) handleListPosition(w http.ResponseWriter, r *http.Request) {
	f, ok := a.filter(w, r)
	if !ok {
		return
	}
	list, err := a.svc.ListPosition(r.Context(), f)
	if err != nil {
		a.serviceError(w, "list position readings", err)
		return
	}
	out := make([]positionJSON, 0, len(list))
	for _, p := range list {
		out = append(out, toPositionJSON(p))
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) handleLatestPosition(w http.ResponseWriter, r *http.Request) {
	p, err := a.svc.LatestPosition(r.Context())
	if err != nil {
		a.serviceError(w, "latest position", err)
		return
	}
	if p == nil {
		a.writeJSON(w, http.StatusOK, nil)
		return
	}
	a.writeJSON(w, http.StatusOK, toPositionJSON(p))
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, ok := a.filter(w, r)
	if !ok {
		return
	}
	sum, err := a.svc.Summarize(r.Context(), f)
	if err != nil {
		a.serviceError(w, "summary counts", err)
		return
	}
	a.writeJSON(w, http.StatusOK, sum)
}

func (a *API) handleSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := a.svc.Sessions(r.Context())
	if err != nil {
		a.serviceError(w, "distinct sessions", err)
		return
	}
	if ids == nil {
		ids = []domain.SessionID{}
	}
	a.writeJSON(w, http.StatusOK, ids)
}

func (a *API) handleDays(w http.ResponseWriter, r *http.Request) {
	days, err := a.svc.ActiveDays(r.Context())
	if err != nil {
		a.serviceError(w, "distinct active days", err)
		return
	}
	if days == nil {
		days = []string{}
	}
	a.writeJSON(w, http.StatusOK, days)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	store := "ok"
	if a.db != nil {
		if err := a.db.PingContext(r.Context()); err != nil {
			store = "error"
			a.log.Warn("health check store ping failed", zap.Error(err))
		}
	}
	a.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"store":  store,
	})
}

// filter parses the query parameters and normalizes them against now.
// On a malformed parameter it writes 400 and returns ok=false.
func (a *API) filter(w http.ResponseWriter, r *http.Request) (query.Filter, bool) {
	p, err := parseParams(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return query.Filter{}, false
	}
	if p.Limit == nil {
		p.Limit = &a.defaultLimit
	}
	return query.Build(p, a.now().UTC()), true
}

func parseParams(r *http.Request) (query.Params, error) {
	q := r.URL.Query()
	var p query.Params

	if v := q.Get("minutes"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, badParam("minutes", v)
		}
		p.Minutes = &m
	}
	if v := q.Get("from_dt"); v != "" {
		t, err := parseInstant(v)
		if err != nil {
			return p, badParam("from_dt", v)
		}
		p.From = &t
	}
	if v := q.Get("to_dt"); v != "" {
		t, err := parseInstant(v)
		if err != nil {
			return p, badParam("to_dt", v)
		}
		p.To = &t
	}
	p.Session = q.Get("session")
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, badParam("limit", v)
		}
		p.Limit = &n
	}
	return p, nil
}

func parseInstant(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(dateOnlyFormat, v)
}

func badParam(name, value string) error {
	return &paramError{name: name, value: value}
}

type paramError struct {
	name, value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + ": " + strconv.Quote(e.value)
}

func toPositionJSON(p *domain.PositionReading) positionJSON {
	return positionJSON{
		Timestamp:  p.SourceTime,
		Session:    p.Session,
		Lat:        p.Lat,
		Lon:        p.Lon,
		ReceivedAt: p.ReceivedAt.UTC().Format(time.RFC3339Nano),
	}
}

// statsPayload flattens the aggregate to the wire shape: count plus
// <axis>_{avg,min,max}. A zero-record aggregate stays an empty object.
func statsPayload(stats *domain.MotionStats) map[string]any {
	out := map[string]any{}
	if stats.Count == 0 {
		return out
	}
	out["count"] = stats.Count
	for _, axis := range domain.AxisNames {
		s, ok := stats.Axes[axis]
		if !ok {
			continue
		}
		out[axis+"_avg"] = s.Avg
		out[axis+"_min"] = s.Min
		out[axis+"_max"] = s.Max
	}
	return out
}

func (a *API) serviceError(w http.ResponseWriter, op string, err error) {
	a.log.Error("query failed", zap.String("op", op), zap.Error(err))
	a.writeError(w, http.StatusInternalServerError, "store query failed")
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]string{"error": msg})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("write response failed", zap.Error(err))
	}
}
