package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogd/internal/domain"
	"github.com/kailas-cloud/catalogd/internal/domain/actor"
	domana "github.com/kailas-cloud/catalogd/internal/domain/analytics"
	domcat "github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
	"github.com/kailas-cloud/catalogd/internal/domain/facet"
	"github.com/kailas-cloud/catalogd/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogd/internal/domain/search/order"
	"github.com/kailas-cloud/catalogd/internal/domain/search/request"
	"github.com/kailas-cloud/catalogd/internal/domain/search/result"
	"github.com/kailas-cloud/catalogd/internal/logger"
	analyticsuc "github.com/kailas-cloud/catalogd/internal/usecase/analytics"
	cataloguc "github.com/kailas-cloud/catalogd/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/catalogd/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/catalogd/internal/usecase/ingest"
	"github.com/kailas-cloud/catalogd/internal/version"
)

const maxBodyBytes = 1 << 20

// storeUnavailableMessage is all a client learns about a record store fault.
const storeUnavailableMessage = "store unavailable, try again"

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, r *http.Request, err error) bool

// Server serves the catalog, ingestion and analytics HTTP API.
type Server struct {
	catalog       *cataloguc.Service
	analytics     *analyticsuc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	limits        request.Limits
	jwtSecret     string
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	catalog *cataloguc.Service,
	analytics *analyticsuc.Service,
	ingest *ingestuc.Service,
	health *healthuc.Service,
) *Server {
	return &Server{
		catalog:   catalog,
		analytics: analytics,
		ingest:    ingest,
		health:    health,
		limits:    request.DefaultLimits(),
		errorHandlers: []errorHandler{
			validationHandler,
			sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
			sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
			sentinelHandler(domain.ErrInvalidTransition, http.StatusConflict, CodeInvalidTransition),
			sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists),
			sentinelHandler(domain.ErrMetricsRegression, http.StatusConflict, CodeMetricsRegression),
			sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized),
			upstreamHandler,
		},
	}
}

// WithPageLimits sets the default and maximum search page size.
func (s *Server) WithPageLimits(defaultSize, maxSize int) *Server {
	s.limits = request.Limits{Default: defaultSize, Max: maxSize}
	return s
}

// WithJWTSecret enables bearer token checks on write and analytics routes.
func (s *Server) WithJWTSecret(secret string) *Server {
	s.jwtSecret = secret
	return s
}

// SearchCatalog handles GET /catalog/{kind}.
func (s *Server) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var p SearchParams
	if err := decodeQuery(r, &p); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	req, err := s.searchRequest(&p)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	page, err := s.catalog.Search(r.Context(), kind, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse(&page))
}

func (s *Server) searchRequest(p *SearchParams) (request.Request, error) {
	kinds := make([]domcat.Kind, 0, len(p.Kind))
	for _, raw := range p.Kind {
		k, err := domcat.ParseKind(raw)
		if err != nil {
			return request.Request{}, err
		}
		kinds = append(kinds, k)
	}

	sel := facet.Selection{}
	for d, vals := range map[facet.Dimension][]string{
		facet.Tag:       p.Tag,
		facet.Task:      p.Task,
		facet.Framework: p.Framework,
		facet.License:   p.License,
	} {
		if len(vals) > 0 {
			sel[d] = vals
		}
	}

	flags := make([]filter.Flag, len(p.Flag))
	for i, f := range p.Flag {
		flags[i] = filter.Flag(f)
	}

	spec, err := filter.New(filter.Params{
		Query:        p.Q,
		Kinds:        kinds,
		Facets:       sel,
		MinDownloads: p.MinDownloads,
		MinLikes:     p.MinLikes,
		MinUsability: p.MinUsability,
		Flags:        flags,
	})
	if err != nil {
		return request.Request{}, err
	}

	key, err := order.ParseKey(p.Sort)
	if err != nil {
		return request.Request{}, err
	}

	return request.New(spec, key, p.Offset, p.Limit, s.limits)
}

// GetFacets handles GET /catalog/{kind}/facets.
func (s *Server) GetFacets(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	idx, err := s.catalog.Facets(r.Context(), kind)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := FacetsResponse{
		Kind:    kind,
		Records: idx.RecordCount(),
		Facets:  make(map[facet.Dimension][]facet.Value, len(facet.Dimensions)),
	}
	for _, d := range facet.Dimensions {
		resp.Facets[d] = idx.Values(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRecord handles GET /catalog/{kind}/{id}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	kind, id, err := recordParams(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	rec, err := s.catalog.Get(r.Context(), kind, id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// UpsertRecord handles PUT /catalog/{kind}/{id}.
func (s *Server) UpsertRecord(w http.ResponseWriter, r *http.Request) {
	kind, id, err := recordParams(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var p UpsertRecordParams
	if err := decodeQuery(r, &p); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var body RecordRequest
	if !decodeBody(w, r, &body) {
		return
	}

	owner := body.OwnerID
	if owner == "" {
		owner = SellerFromContext(r.Context())
	}

	rec, created, err := s.ingest.UpsertRecord(r.Context(), domcat.Record{
		ID:          id,
		Kind:        kind,
		Name:        body.Name,
		Description: body.Description,
		OwnerID:     owner,
		CreatedAt:   body.CreatedAt,
		Downloads:   body.Downloads,
		Likes:       body.Likes,
		Task:        body.Task,
		Tags:        body.Tags,
		Framework:   body.Framework,
		License:     body.License,
		FineTuned:   body.FineTuned,
		Usability:   body.Usability,
		DemoURL:     body.DemoURL,
		PaperURL:    body.PaperURL,
		RepoURL:     body.RepoURL,
	}, p.Correction)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, rec)
}

// DeleteRecord handles DELETE /catalog/{kind}/{id}.
func (s *Server) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	kind, id, err := recordParams(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if err := s.ingest.DeleteRecord(r.Context(), kind, id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpsertActor handles PUT /actors/{id}.
func (s *Server) UpsertActor(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var body ActorRequest
	if !decodeBody(w, r, &body) {
		return
	}

	a := actor.Actor{ID: id, Name: body.Name, Email: body.Email}
	if err := s.ingest.UpsertActor(r.Context(), a); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// RecordEvent handles POST /events.
func (s *Server) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var body EventRequest
	if !decodeBody(w, r, &body) {
		return
	}

	e, err := s.ingest.RecordEvent(r.Context(), event.Event{
		ID:        body.ID,
		Type:      body.Type,
		TargetID:  body.TargetID,
		ActorID:   body.ActorID,
		SellerID:  body.SellerID,
		Timestamp: body.Timestamp,
		Amount:    body.Amount,
		Status:    body.Status,
		Score:     body.Score,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

// TransitionEvent handles POST /events/{id}/status.
func (s *Server) TransitionEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var body StatusRequest
	if !decodeBody(w, r, &body) {
		return
	}

	e, err := s.ingest.TransitionPurchase(r.Context(), id, body.Status)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, e)
}

// SalesReport handles GET /analytics/sales.
func (s *Server) SalesReport(w http.ResponseWriter, r *http.Request) {
	win, ok := s.reportWindow(w, r)
	if !ok {
		return
	}

	rep, err := s.analytics.Sales(r.Context(), SellerFromContext(r.Context()), win)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

// CustomerReport handles GET /analytics/customers.
func (s *Server) CustomerReport(w http.ResponseWriter, r *http.Request) {
	win, ok := s.reportWindow(w, r)
	if !ok {
		return
	}

	rep, err := s.analytics.Customers(r.Context(), SellerFromContext(r.Context()), win)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

// CustomerDetail handles GET /analytics/customers/{actorID}.
func (s *Server) CustomerDetail(w http.ResponseWriter, r *http.Request) {
	actorID, err := pathParam(r, "actorID")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	win, ok := s.reportWindow(w, r)
	if !ok {
		return
	}

	detail, err := s.analytics.Customer(r.Context(), SellerFromContext(r.Context()), actorID, win)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// RevenueReport handles GET /analytics/revenue.
func (s *Server) RevenueReport(w http.ResponseWriter, r *http.Request) {
	var p ReportParams
	if err := decodeQuery(r, &p); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	series, err := s.analytics.Revenue(r.Context(), SellerFromContext(r.Context()), p.Days)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, series)
}

// Query handles POST /analytics/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var body QueryRequest
	if !decodeBody(w, r, &body) {
		return
	}

	spec := domana.Spec{
		GroupBy:  domana.GroupBy(body.GroupBy),
		Since:    body.Since,
		Until:    body.Until,
		SellerID: SellerFromContext(r.Context()),
	}
	for _, t := range body.Types {
		spec.Types = append(spec.Types, event.Type(t))
	}
	for _, st := range body.Statuses {
		spec.Statuses = append(spec.Statuses, event.Status(st))
	}

	rows, err := s.analytics.Analyze(r.Context(), spec)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	count, total := domana.Totals(rows)
	groupBy := spec.GroupBy
	if groupBy == "" {
		groupBy = domana.ByRecord
	}
	writeJSON(w, http.StatusOK, QueryResponse{
		GroupBy:  groupBy,
		SellerID: spec.SellerID,
		Rows:     rows,
		Total:    total,
		Count:    count,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Driver:  report.Driver,
		Version: version.Version,
		Checks:  checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) reportWindow(w http.ResponseWriter, r *http.Request) (analyticsuc.Window, bool) {
	var p ReportParams
	if err := decodeQuery(r, &p); err != nil {
		s.handleDomainError(w, r, err)
		return analyticsuc.Window{}, false
	}
	win, err := s.analytics.LastDays(p.Days)
	if err != nil {
		s.handleDomainError(w, r, err)
		return analyticsuc.Window{}, false
	}
	return win, true
}

func recordParams(r *http.Request) (domcat.Kind, string, error) {
	kind, err := kindParam(r)
	if err != nil {
		return "", "", err
	}
	id, err := pathParam(r, "id")
	if err != nil {
		return "", "", err
	}
	return kind, id, nil
}

func searchResponse(page *result.Page) SearchResponse {
	applied := page.Applied()
	spec := applied.Filter()

	flags := make([]string, len(spec.Flags()))
	for i, f := range spec.Flags() {
		flags[i] = string(f)
	}

	items := page.Items()
	if items == nil {
		items = []domcat.Record{}
	}

	return SearchResponse{
		Items:   items,
		Total:   page.Total(),
		Offset:  applied.Offset(),
		Limit:   applied.Limit(),
		HasMore: page.HasMore(),
		Applied: EffectiveFilter{
			Q:            spec.Query(),
			Kinds:        spec.Kinds(),
			Facets:       spec.Facets(),
			MinDownloads: spec.MinDownloads(),
			MinLikes:     spec.MinLikes(),
			MinUsability: spec.MinUsability(),
			Flags:        flags,
			Sort:         string(applied.Sort()),
		},
		Ignored: page.Ignored(),
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// validationHandler reports the offending field of a *domain.ValidationError.
func validationHandler(w http.ResponseWriter, _ *http.Request, err error) bool {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	code := CodeValidationFailed
	if errors.Is(err, domain.ErrUnknownFacetValue) {
		code = CodeUnknownFacetValue
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:    code,
		Message: ve.Error(),
		Field:   ve.Field,
	})
	return true
}

// upstreamHandler hides store details from the client; they are logged only.
func upstreamHandler(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, domain.ErrUpstreamStore) {
		return false
	}
	logger.FromContext(r.Context()).Error("record store failure", zap.Error(err))
	writeError(w, http.StatusServiceUnavailable, CodeStoreUnavailable, storeUnavailableMessage)
	return true
}

// sentinelHandler returns a handler for errors.Is-matched sentinel errors.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, _ *http.Request, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Debug("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, r, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
