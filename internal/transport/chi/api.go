package chi

import (
	"time"

	"github.com/shopspring/decimal"

	domana "github.com/kailas-cloud/catalogd/internal/domain/analytics"
	domcat "github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
	"github.com/kailas-cloud/catalogd/internal/domain/facet"
)

// ErrorCode is the machine-readable error class of an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeUnknownFacetValue ErrorCode = "unknown_facet_value"
	CodeNotFound          ErrorCode = "not_found"
	CodeInvalidTransition ErrorCode = "invalid_transition"
	CodeAlreadyExists     ErrorCode = "already_exists"
	CodeMetricsRegression ErrorCode = "metrics_regression"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeStoreUnavailable  ErrorCode = "store_unavailable"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// SearchParams is the query string of GET /catalog/{kind}.
type SearchParams struct {
	Q            string   `schema:"q"`
	Kind         []string `schema:"kind"`
	Tag          []string `schema:"tag"`
	Task         []string `schema:"task"`
	Framework    []string `schema:"framework"`
	License      []string `schema:"license"`
	MinDownloads *int64   `schema:"min_downloads"`
	MinLikes     *int64   `schema:"min_likes"`
	MinUsability *float64 `schema:"min_usability"`
	Flag         []string `schema:"flag"`
	Sort         string   `schema:"sort"`
	Offset       int      `schema:"offset"`
	Limit        int      `schema:"limit"`
}

// ReportParams is the query string of the analytics report routes.
type ReportParams struct {
	Days     int    `schema:"days"`
	SellerID string `schema:"seller_id"`
}

// UpsertRecordParams is the query string of PUT /catalog/{kind}/{id}.
type UpsertRecordParams struct {
	Correction bool `schema:"correction"`
}

// EffectiveFilter echoes the filter a search actually applied.
type EffectiveFilter struct {
	Q            string                       `json:"q,omitempty"`
	Kinds        []domcat.Kind                `json:"kinds,omitempty"`
	Facets       map[facet.Dimension][]string `json:"facets,omitempty"`
	MinDownloads *int64                       `json:"min_downloads,omitempty"`
	MinLikes     *int64                       `json:"min_likes,omitempty"`
	MinUsability *float64                     `json:"min_usability,omitempty"`
	Flags        []string                     `json:"flags,omitempty"`
	Sort         string                       `json:"sort"`
}

// SearchResponse is the paginated search envelope.
type SearchResponse struct {
	Items   []domcat.Record `json:"items"`
	Total   int             `json:"total"`
	Offset  int             `json:"offset"`
	Limit   int             `json:"limit"`
	HasMore bool            `json:"has_more"`
	Applied EffectiveFilter `json:"applied"`
	Ignored []facet.Unknown `json:"ignored,omitempty"`
}

// FacetsResponse lists the distinct values of every dimension.
type FacetsResponse struct {
	Kind    domcat.Kind                       `json:"kind"`
	Records int                               `json:"records"`
	Facets  map[facet.Dimension][]facet.Value `json:"facets"`
}

// RecordRequest is the body of PUT /catalog/{kind}/{id}. Kind and ID come from the path.
type RecordRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	Downloads   int64     `json:"downloads"`
	Likes       int64     `json:"likes"`
	Task        string    `json:"task"`
	Tags        []string  `json:"tags"`
	Framework   string    `json:"framework"`
	License     string    `json:"license"`
	FineTuned   bool      `json:"fine_tuned"`
	Usability   float64   `json:"usability"`
	DemoURL     string    `json:"demo_url"`
	PaperURL    string    `json:"paper_url"`
	RepoURL     string    `json:"repo_url"`
}

// ActorRequest is the body of PUT /actors/{id}.
type ActorRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EventRequest is the body of POST /events.
type EventRequest struct {
	ID        string          `json:"id"`
	Type      event.Type      `json:"type"`
	TargetID  string          `json:"target_id"`
	ActorID   string          `json:"actor_id"`
	SellerID  string          `json:"seller_id"`
	Timestamp time.Time       `json:"timestamp"`
	Amount    decimal.Decimal `json:"amount"`
	Status    event.Status    `json:"status"`
	Score     int             `json:"score"`
}

// StatusRequest is the body of POST /events/{id}/status.
type StatusRequest struct {
	Status event.Status `json:"status"`
}

// QueryRequest is the body of POST /analytics/query.
type QueryRequest struct {
	GroupBy  string    `json:"group_by"`
	Types    []string  `json:"types"`
	Statuses []string  `json:"statuses"`
	Since    time.Time `json:"since"`
	Until    time.Time `json:"until"`
}

// QueryResponse carries the rows of a generic aggregation.
type QueryResponse struct {
	GroupBy  domana.GroupBy  `json:"group_by"`
	SellerID string          `json:"seller_id,omitempty"`
	Rows     []domana.Row    `json:"rows"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Driver  string            `json:"driver"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}
