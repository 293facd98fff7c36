package catalogd

import (
	"time"

	"github.com/kailas-cloud/catalogd/internal/domain/actor"
	domana "github.com/kailas-cloud/catalogd/internal/domain/analytics"
	"github.com/kailas-cloud/catalogd/internal/domain/catalog"
	"github.com/kailas-cloud/catalogd/internal/domain/event"
	"github.com/kailas-cloud/catalogd/internal/domain/facet"
	"github.com/kailas-cloud/catalogd/internal/domain/search/filter"
	analyticsuc "github.com/kailas-cloud/catalogd/internal/usecase/analytics"
)

// Kind distinguishes catalog record variants.
type Kind = catalog.Kind

// Catalog kinds.
const (
	KindModel      = catalog.KindModel
	KindDataset    = catalog.KindDataset
	KindRepository = catalog.KindRepository
)

// Record is one catalog entry.
type Record = catalog.Record

// Actor is a customer or seller profile.
type Actor = actor.Actor

// Event is a timestamped user action against a catalog record.
type Event = event.Event

// EventType is the kind of user action.
type EventType = event.Type

// Event types.
const (
	EventView     = event.TypeView
	EventDownload = event.TypeDownload
	EventPurchase = event.TypePurchase
	EventRating   = event.TypeRating
)

// Status is the lifecycle state of a purchase.
type Status = event.Status

// Purchase statuses.
const (
	StatusPending   = event.StatusPending
	StatusCompleted = event.StatusCompleted
	StatusRefunded  = event.StatusRefunded
)

// FacetDimension is a categorical record attribute.
type FacetDimension = facet.Dimension

// Facet dimensions.
const (
	FacetTag       = facet.Tag
	FacetTask      = facet.Task
	FacetFramework = facet.Framework
	FacetLicense   = facet.License
)

// Facets selects accepted values per dimension.
type Facets = facet.Selection

// FacetValue is one distinct value and its record count.
type FacetValue = facet.Value

// UnknownFacet is a selected value the facet index does not contain.
type UnknownFacet = facet.Unknown

// FacetPolicy decides what happens to unknown facet values.
type FacetPolicy = facet.Policy

// Facet policies.
const (
	FacetReject = facet.PolicyReject
	FacetIgnore = facet.PolicyIgnore
)

// Flag is a boolean record property a query can require.
type Flag = filter.Flag

// Flags.
const (
	FlagFineTuned = filter.FineTuned
	FlagHasDemo   = filter.HasDemo
	FlagHasPaper  = filter.HasPaper
	FlagHasRepo   = filter.HasRepo
)

// Query is a catalog listing request. Zero values mean "no constraint";
// Sort defaults to popularity and Limit to 20.
type Query struct {
	Text         string
	Kinds        []Kind
	Facets       Facets
	MinDownloads *int64
	MinLikes     *int64
	MinUsability *float64
	Flags        []Flag
	Sort         string
	Offset       int
	Limit        int
}

// Page is one window of a catalog listing. Facets echoes the effective
// selection after canonicalization.
type Page struct {
	Items   []Record
	Total   int
	Offset  int
	Limit   int
	HasMore bool
	Facets  Facets
	Ignored []UnknownFacet
}

// FacetSummary lists the distinct values of every dimension.
type FacetSummary struct {
	RecordCount int
	Values      map[FacetDimension][]FacetValue
}

// GroupBy is the grouping key of an aggregation.
type GroupBy = domana.GroupBy

// Grouping keys.
const (
	ByRecord = domana.ByRecord
	ByActor  = domana.ByActor
	ByDay    = domana.ByDay
)

// Row is one group of an aggregation.
type Row = domana.Row

// Aggregation is a generic rollup over events. Zero values select
// completed purchases grouped by record.
type Aggregation struct {
	GroupBy  GroupBy
	Types    []EventType
	Statuses []Status
	Since    time.Time
	Until    time.Time
	SellerID string
}

// Report types.
type (
	SalesReport    = analyticsuc.SalesReport
	CustomerReport = analyticsuc.CustomerReport
	CustomerDetail = analyticsuc.CustomerDetail
	RevenueSeries  = analyticsuc.RevenueSeries
	Sale           = analyticsuc.Sale
	Window         = analyticsuc.Window
)
