package api

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"

	"polyapprox/pkg/engine"
)

// HTTPServer 提供 JSON 管理接口, 便于调试与接入监控面板
type HTTPServer struct {
	addr string
	eng  *engine.Engine
	mux  *http.ServeMux
}

func NewHTTPServer(addr string, eng *engine.Engine) *HTTPServer {
	s := &HTTPServer{
		addr: addr,
		eng:  eng,
		mux:  http.NewServeMux(),
	}

	s.mux.HandleFunc("/api/observe", s.handleObserve)
	s.mux.HandleFunc("/api/extrapolate", s.handleExtrapolate)
	s.mux.HandleFunc("/api/derivative", s.handleDerivative)
	s.mux.HandleFunc("/api/coefs", s.handleCoefs)
	s.mux.HandleFunc("/api/trend", s.handleTrend)
	s.mux.HandleFunc("/api/history", s.handleHistory)
	s.mux.HandleFunc("/api/wall", s.handleWall)
	s.mux.HandleFunc("/api/export", s.handleExport)
	s.mux.HandleFunc("/api/series", s.handleSeries)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/ingest", s.handleIngest)
	s.mux.HandleFunc("/api/reset", s.handleReset)

	return s
}

func (s *HTTPServer) Start() error {
	log.Printf("[HTTP] listening on %s", s.addr)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseFloat(raw, 64)
}

type observeRequest struct {
	Series string  `json:"series"`
	Time   float64 `json:"time"`
	Value  float64 `json:"value"`
}

func (s *HTTPServer) handleObserve(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		setCORS(w)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("POST only"))
		return
	}

	var req observeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rank, err := s.eng.Observe(req.Series, req.Time, req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"series": req.Series, "rank": rank})
}

func (s *HTTPServer) handleExtrapolate(w http.ResponseWriter, r *http.Request) {
	series := r.URL.Query().Get("series")
	t, err := floatParam(r, "t", math.NaN())
	if err != nil || math.IsNaN(t) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing or bad t parameter"))
		return
	}

	v, err := s.eng.Extrapolate(series, t)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"series": series, "t": t, "value": v})
}

func (s *HTTPServer) handleDerivative(w http.ResponseWriter, r *http.Request) {
	series := r.URL.Query().Get("series")
	t, err := floatParam(r, "t", math.NaN())
	if err != nil || math.IsNaN(t) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing or bad t parameter"))
		return
	}
	rank, err := strconv.Atoi(r.URL.Query().Get("rank"))
	if err != nil || rank < 0 {
		rank = 1
	}

	v, err := s.eng.Derivative(series, rank, t)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"series": series, "rank": rank, "t": t, "value": v})
}

func (s *HTTPServer) handleCoefs(w http.ResponseWriter, r *http.Request) {
	series := r.URL.Query().Get("series")
	at, err := floatParam(r, "at", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	coefs, err := s.eng.Coefs(series, at)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"series": series, "at": at, "coefs": coefs})
}

func (s *HTTPServer) handleTrend(w http.ResponseWriter, r *http.Request) {
	series := r.URL.Query().Get("series")
	slope, intercept, err := s.eng.Trend(series)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"series": series, "slope": slope, "intercept": intercept,
	})
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	series := r.URL.Query().Get("series")
	from, err := floatParam(r, "from", math.Inf(-1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := floatParam(r, "to", math.Inf(1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	recs, err := s.eng.History(series, from, to)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"series": series, "samples": recs, "count": len(recs)})
}

func (s *HTTPServer) handleWall(w http.ResponseWriter, r *http.Request) {
	series := r.URL.Query().Get("series")
	depth, err := strconv.Atoi(r.URL.Query().Get("depth"))
	if err != nil {
		depth = 0
	}

	wall, err := s.eng.Wall(series, depth)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	step := wall.Step()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"series":   series,
		"order":    wall.Order(),
		"step":     real(step),
		"step_abs": cmplxAbs(step),
	})
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	series := r.URL.Query().Get("series")
	points, err := s.eng.Export(series)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	setCORS(w)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", series))
	fmt.Fprintln(w, "Time,Actual,Fitted,Error")
	for _, p := range points {
		fmt.Fprintf(w, "%g,%g,%g,%g\n", p.Time, p.Actual, p.Fitted, p.Error)
	}
}

func (s *HTTPServer) handleSeries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"series": s.eng.SeriesNames()})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Stats())
}

type ingestRequest struct {
	Series string    `json:"series"`
	Coefs  []float64 `json:"coefs"` // power-basis polynomial to sample
	Count  int       `json:"count"`
	Step   float64   `json:"step"`
	Start  float64   `json:"start"`
}

// handleIngest 生成一段多项式采样序列, 便于演示与压测
func (s *HTTPServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("POST only"))
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Series == "" || len(req.Coefs) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("series and coefs are required"))
		return
	}
	if req.Count <= 0 {
		req.Count = 100
	}
	if req.Step <= 0 {
		req.Step = 1
	}

	go func() {
		for i := 0; i < req.Count; i++ {
			t := req.Start + float64(i)*req.Step
			v := 0.0
			for j := len(req.Coefs) - 1; j >= 0; j-- {
				v = v*t + req.Coefs[j]
			}
			if _, err := s.eng.Observe(req.Series, t, v); err != nil {
				log.Printf("[HTTP] ingest %s: %v", req.Series, err)
				return
			}
		}
		log.Printf("[HTTP] ingested %d samples into %s", req.Count, req.Series)
	}()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"series": req.Series, "count": req.Count})
}

func (s *HTTPServer) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("POST only"))
		return
	}
	if err := s.eng.Reset(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
