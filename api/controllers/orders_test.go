package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/shopspring/decimal"
)

type stubOrders struct {
	page       *types.Page[orders.OrderDTO]
	customerID int64
	params     pagination.Params

	from, to time.Time
	summary  *orders.SalesSummary

	updatedID     int64
	updatedStatus enums.DeliveryStatus
	err           error
}

func (s *stubOrders) ListForCustomer(_ context.Context, customerID int64, params pagination.Params) (*types.Page[orders.OrderDTO], error) {
	s.customerID = customerID
	s.params = params
	return s.page, s.err
}

func (s *stubOrders) SalesSummary(_ context.Context, from, to time.Time) (*orders.SalesSummary, error) {
	s.from, s.to = from, to
	return s.summary, s.err
}

func (s *stubOrders) UpdateDeliveryStatus(_ context.Context, orderID int64, status enums.DeliveryStatus) error {
	s.updatedID = orderID
	s.updatedStatus = status
	return s.err
}

func TestOrdersListRequiresCustomer(t *testing.T) {
	svc := &stubOrders{}
	resp := httptest.NewRecorder()
	OrdersList(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/orders", nil, identity.Guest("g1"), nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestOrdersListPassesPaging(t *testing.T) {
	svc := &stubOrders{page: &types.Page[orders.OrderDTO]{Items: []orders.OrderDTO{}}}
	resp := httptest.NewRecorder()
	OrdersList(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor=abc", nil, customerIdentity(12), nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.customerID != 12 || svc.params.Limit != 5 || svc.params.Cursor != "abc" {
		t.Fatalf("unexpected call customer=%d params=%+v", svc.customerID, svc.params)
	}

	resp = httptest.NewRecorder()
	OrdersList(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/orders?limit=1000", nil, customerIdentity(12), nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for limit above max, got %d", resp.Code)
	}
}

func TestAdminSalesSummaryDefaultsToLast30Days(t *testing.T) {
	svc := &stubOrders{summary: &orders.SalesSummary{Revenue: decimal.Zero}}
	resp := httptest.NewRecorder()
	AdminSalesSummary(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/admin/v1/reports/sales", nil, identity.Identity{}, nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := svc.to.Sub(svc.from); got != 30*24*time.Hour {
		t.Fatalf("expected 30 day window, got %s", got)
	}
	if time.Since(svc.to) > time.Minute {
		t.Fatalf("expected window to end now, got %s", svc.to)
	}
}

func TestAdminSalesSummaryExplicitRange(t *testing.T) {
	svc := &stubOrders{summary: &orders.SalesSummary{Revenue: decimal.Zero}}
	resp := httptest.NewRecorder()
	AdminSalesSummary(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/admin/v1/reports/sales?from=2026-05-01&to=2026-06-01", nil, identity.Identity{}, nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !svc.from.Equal(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) || !svc.to.Equal(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected range %s - %s", svc.from, svc.to)
	}

	resp = httptest.NewRecorder()
	AdminSalesSummary(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/admin/v1/reports/sales?from=yesterday", nil, identity.Identity{}, nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", resp.Code)
	}
}

func TestAdminUpdateDelivery(t *testing.T) {
	params := map[string]string{"orderId": "15"}

	cases := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "shipped", body: `{"status":"Shipped"}`, status: http.StatusOK},
		{name: "unknown status", body: `{"status":"Lost"}`, status: http.StatusBadRequest},
		{name: "skipped transition", body: `{"status":"Delivered"}`, err: pkgerrors.New(pkgerrors.CodeStateConflict, "invalid delivery transition"), status: http.StatusUnprocessableEntity},
		{name: "missing order", body: `{"status":"Shipped"}`, err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found"), status: http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubOrders{err: tc.err}
			resp := httptest.NewRecorder()
			AdminUpdateDelivery(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/admin/v1/orders/15/delivery", strings.NewReader(tc.body), identity.Identity{}, params))
			if resp.Code != tc.status {
				t.Fatalf("expected %d got %d: %s", tc.status, resp.Code, resp.Body.String())
			}
			if tc.status == http.StatusOK && (svc.updatedID != 15 || svc.updatedStatus != enums.DeliveryStatusShipped) {
				t.Fatalf("unexpected update %d %s", svc.updatedID, svc.updatedStatus)
			}
		})
	}
}
