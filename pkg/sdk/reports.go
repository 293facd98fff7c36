package catalogd

import (
	"context"
	"fmt"

	domana "github.com/kailas-cloud/catalogd/internal/domain/analytics"
)

// ReportService builds seller reports. days selects the last N calendar
// days including today; zero uses the default window.
type ReportService struct {
	svc analyticsUseCase
	obs *observer
}

// Sales summarizes a seller's purchases by model.
func (s *ReportService) Sales(ctx context.Context, sellerID string, days int) (_ SalesReport, err error) {
	track := s.obs.begin("report.sales", "")
	defer func() { track.end(err) }()

	w, err := s.svc.LastDays(days)
	if err != nil {
		return SalesReport{}, fmt.Errorf("sales report: %w", err)
	}
	rep, err := s.svc.Sales(ctx, sellerID, w)
	if err != nil {
		return SalesReport{}, fmt.Errorf("sales report: %w", err)
	}
	return rep, nil
}

// Customers summarizes a seller's completed purchases by customer.
func (s *ReportService) Customers(ctx context.Context, sellerID string, days int) (_ CustomerReport, err error) {
	track := s.obs.begin("report.customers", "")
	defer func() { track.end(err) }()

	w, err := s.svc.LastDays(days)
	if err != nil {
		return CustomerReport{}, fmt.Errorf("customer report: %w", err)
	}
	rep, err := s.svc.Customers(ctx, sellerID, w)
	if err != nil {
		return CustomerReport{}, fmt.Errorf("customer report: %w", err)
	}
	return rep, nil
}

// Customer returns one customer's purchase history with a seller.
func (s *ReportService) Customer(
	ctx context.Context, sellerID, actorID string, days int,
) (_ CustomerDetail, err error) {
	track := s.obs.begin("report.customer", "")
	defer func() { track.end(err) }()

	w, err := s.svc.LastDays(days)
	if err != nil {
		return CustomerDetail{}, fmt.Errorf("customer detail: %w", err)
	}
	rep, err := s.svc.Customer(ctx, sellerID, actorID, w)
	if err != nil {
		return CustomerDetail{}, fmt.Errorf("customer detail: %w", err)
	}
	return rep, nil
}

// Revenue returns a gap-free daily revenue series.
func (s *ReportService) Revenue(ctx context.Context, sellerID string, days int) (_ RevenueSeries, err error) {
	track := s.obs.begin("report.revenue", "")
	defer func() { track.end(err) }()

	rep, err := s.svc.Revenue(ctx, sellerID, days)
	if err != nil {
		return RevenueSeries{}, fmt.Errorf("revenue report: %w", err)
	}
	return rep, nil
}

// Aggregate runs a generic rollup.
func (s *ReportService) Aggregate(ctx context.Context, a Aggregation) (_ []Row, err error) {
	track := s.obs.begin("report.aggregate", "")
	defer func() { track.end(err) }()

	rows, err := s.svc.Analyze(ctx, domana.Spec{
		GroupBy:  a.GroupBy,
		Types:    a.Types,
		Statuses: a.Statuses,
		Since:    a.Since,
		Until:    a.Until,
		SellerID: a.SellerID,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	return rows, nil
}
