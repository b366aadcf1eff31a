package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"RentalDashboard/src/dashboard"
	"RentalDashboard/src/rental"
	"RentalDashboard/src/report"
	"RentalDashboard/src/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PreviewRows /api/view 中返回的过滤结果行数
const PreviewRows = 20

var ErrBadQuery = errors.New("查询参数无效")

// Server 仪表盘的 HTTP 接口，只负责传输计算结果
type Server struct {
	session  *dashboard.Session
	logger   *storage.Logger
	gatherer prometheus.Gatherer
	language string
}

// NewServer gatherer 为空时不注册 /metrics
func NewServer(session *dashboard.Session, logger *storage.Logger, gatherer prometheus.Gatherer, language string) *Server {
	return &Server{session: session, logger: logger, gatherer: gatherer, language: language}
}

// Routes 注册全部路由
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/logs", s.logs)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/view", s.view)
		r.Get("/report.xlsx", s.reportXLSX)
		r.Get("/report.txt", s.reportText)
		r.Post("/reload", s.reload)
	})
	return r
}

type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// statusOf 错误到 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrBadQuery), errors.Is(err, dashboard.ErrUnknownDataset):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrNotLoaded), errors.Is(err, rental.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, rental.ErrCategoricalMapping),
		errors.Is(err, rental.ErrSchemaMismatch),
		errors.Is(err, rental.ErrInconsistentTotals):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError && s.logger != nil {
		s.logger.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: err.Error(), Status: status})
}

// parseSelection 读取 dataset、start、end 参数
func parseSelection(r *http.Request) (dashboard.Selection, error) {
	q := r.URL.Query()
	ds, err := dashboard.ParseDataset(q.Get("dataset"))
	if err != nil {
		return dashboard.Selection{}, err
	}

	sel := dashboard.Selection{Dataset: ds}
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"start", &sel.Range.Start}, {"end", &sel.Range.End}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := rental.ParseDate(v)
		if err != nil {
			return dashboard.Selection{}, fmt.Errorf("%w: %s=%q", ErrBadQuery, p.name, v)
		}
		*p.dst = t
	}
	return sel, nil
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request) (*dashboard.Page, bool) {
	sel, err := parseSelection(r)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	page, err := s.session.Render(sel)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return page, true
}

type recordView struct {
	Date       string `json:"date"`
	Hour       *int   `json:"hour,omitempty"`
	Season     string `json:"season"`
	Weather    string `json:"weather_situation"`
	Holiday    bool   `json:"is_holiday"`
	WorkingDay bool   `json:"is_working_day"`
	Casual     int    `json:"casual_count"`
	Registered int    `json:"registered_count"`
	Total      int    `json:"total_count"`
}

type viewResponse struct {
	*dashboard.Page
	Preview []recordView `json:"preview"`
}

func preview(t *rental.Table, n int) []recordView {
	if n > t.Len() {
		n = t.Len()
	}
	out := make([]recordView, 0, n)
	for i := 0; i < n; i++ {
		rec := t.At(i)
		season, _ := rec.Season.Label()
		weather, _ := rec.Weather.Label()
		v := recordView{
			Date:       rec.DateKey(),
			Season:     season,
			Weather:    weather,
			Holiday:    rec.Holiday,
			WorkingDay: rec.WorkingDay,
			Casual:     rec.Casual,
			Registered: rec.Registered,
			Total:      rec.Total,
		}
		if t.Granularity() == rental.Hourly {
			hour := rec.Hour
			v.Hour = &hour
		}
		out = append(out, v)
	}
	return out
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) {
	page, ok := s.renderPage(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, viewResponse{Page: page, Preview: preview(page.Filtered, PreviewRows)})
}

func (s *Server) reportXLSX(w http.ResponseWriter, r *http.Request) {
	page, ok := s.renderPage(w, r)
	if !ok {
		return
	}
	f, err := report.Workbook(page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="rental-%s-%s.xlsx"`, page.Dataset, page.ID))
	if err := f.Write(w); err != nil && s.logger != nil {
		s.logger.Errorf("写入报表失败: %v", err)
	}
}

func (s *Server) reportText(w http.ResponseWriter, r *http.Request) {
	page, ok := s.renderPage(w, r)
	if !ok {
		return
	}
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = s.language
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := report.Text(w, page, lang); err != nil && s.logger != nil {
		s.logger.Errorf("写入报表失败: %v", err)
	}
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Reload("http"); err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status":    "ok",
		"loaded_at": s.session.LoadedAt(),
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	_, _, loaded := s.session.Tables()
	render.JSON(w, r, map[string]interface{}{
		"status": "ok",
		"loaded": loaded,
	})
}

// logs 实时输出日志，客户端断开后取消订阅
func (s *Server) logs(w http.ResponseWriter, r *http.Request) {
	if s.logger == nil {
		http.Error(w, "logger not configured", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	logChan := s.logger.Subscribe()
	defer s.logger.Unsubscribe(logChan)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}
	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			if _, err := fmt.Fprint(w, msg); err != nil {
				// 客户端断开连接
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}
