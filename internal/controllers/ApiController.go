package controllers

import (
	"errors"
	"net/http"
	"safetywatch/internal/models"
	"safetywatch/internal/providers"
	"safetywatch/internal/report"
	"safetywatch/internal/services"
	"safetywatch/internal/violation"
	"strconv"

	json "github.com/goccy/go-json"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	logger   providers.Logger
	service  services.ViolationServiceInterface
	cache    providers.CacheProviderInterface
	exporter *report.Exporter
}

type shareRequest struct {
	Category string `json:"category"`
	Email    string `json:"email"`
}

type dismissResponse struct {
	Dismissed bool `json:"dismissed"`
}

func NewApiController(logger providers.Logger, service services.ViolationServiceInterface, cache providers.CacheProviderInterface, exporter *report.Exporter) *ApiController {
	return &ApiController{
		logger:   logger,
		service:  service,
		cache:    cache,
		exporter: exporter,
	}
}

func getCategory(r *http.Request) (models.Category, bool) {
	c := r.URL.Query().Get("c")
	return models.Category(c), c != ""
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func (ac *ApiController) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, violation.ErrUnknownCategory), errors.Is(err, services.ErrUnknownSeries):
		status = http.StatusNotFound
	case errors.Is(err, violation.ErrRemoteUnavailable):
		status = http.StatusServiceUnavailable
	}
	ac.logger.Errorf(providers.GetLogTypeByRequestType(r.Method), "%s %s: %s", r.Method, r.URL.Path, err)
	http.Error(w, http.StatusText(status), status)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, r *http.Request, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, data)
		return
	}

	result, err := compute()
	if err != nil {
		ac.fail(w, r, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		ac.fail(w, r, err)
		return
	}

	ac.cache.Set(cacheKey, gson)
	writeJSON(w, http.StatusOK, gson)
}

func (ac *ApiController) serve(w http.ResponseWriter, r *http.Request, result any) {
	gson, err := json.Marshal(result)
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gson)
}

func (ac *ApiController) GetCategories(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, "categories", func() (any, error) {
		return ac.service.Categories(), nil
	})
}

// GetDates lists a category's date folders. refresh=1 forces a remote reload
// and drops every cached response, since they all derive from the listing.
func (ac *ApiController) GetDates(w http.ResponseWriter, r *http.Request) {
	cat, ok := getCategory(r)
	if !ok {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	q := services.DatesQuery{Category: cat, Refresh: isTrue(r.URL.Query().Get("refresh"))}
	if d := r.URL.Query().Get("date"); d != "" {
		date, err := models.ParseDisplayDate(d)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		q.Date = date
	}

	compute := func() (any, error) {
		return ac.service.Dates(r.Context(), q)
	}
	if q.Refresh {
		ac.cache.Clear()
		result, err := compute()
		if err != nil {
			ac.fail(w, r, err)
			return
		}
		ac.serve(w, r, result)
		return
	}
	ac.serveFromCacheOrCompute(w, r, "dates:"+string(cat)+":"+models.DateKey(q.Date), compute)
}

func (ac *ApiController) GetSeries(w http.ResponseWriter, r *http.Request) {
	cat, ok := getCategory(r)
	if !ok {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	name := r.URL.Query().Get("s")
	ac.serveFromCacheOrCompute(w, r, "series:"+string(cat)+":"+name, func() (any, error) {
		return ac.service.Series(r.Context(), cat, name)
	})
}

func (ac *ApiController) GetReport(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, r, "report", func() (any, error) {
		return ac.service.Report(r.Context())
	})
}

// ExportReport streams the report as zstd-compressed JSON unless raw=1.
func (ac *ApiController) ExportReport(w http.ResponseWriter, r *http.Request) {
	rep, err := ac.service.Report(r.Context())
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	compress := !isTrue(r.URL.Query().Get("raw"))
	data, err := ac.exporter.Encode(rep, compress)
	if err != nil {
		ac.fail(w, r, err)
		return
	}

	name := "violation_report_" + rep.GeneratedAt.Format("20060102_150405") + ".json"
	contentType := "application/json"
	if compress {
		name += ".zst"
		contentType = "application/zstd"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (ac *ApiController) GetAlert(w http.ResponseWriter, r *http.Request) {
	ac.serve(w, r, ac.service.Alert())
}

func (ac *ApiController) DismissAlert(w http.ResponseWriter, r *http.Request) {
	ac.serve(w, r, dismissResponse{Dismissed: ac.service.Dismiss()})
}

func (ac *ApiController) Share(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload shareRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Category == "" || payload.Email == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := ac.service.Share(r.Context(), models.Category(payload.Category), payload.Email); err != nil {
		ac.fail(w, r, err)
		return
	}
	ac.logger.Infof(providers.TypePost, "Shared %s root with %s", payload.Category, payload.Email)
	w.WriteHeader(http.StatusNoContent)
}
