package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawsuite/resort-api/internal/api/handlers"
	"github.com/pawsuite/resort-api/internal/availability"
	"github.com/pawsuite/resort-api/internal/db"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ---- fakes -----------------------------------------------------------------

type fakeSource struct {
	findOverlapping func(ctx context.Context, tenantID string, resourceIDs []string, start, end time.Time, statuses []db.ReservationStatus) ([]*db.Reservation, error)
}

func (f *fakeSource) FindOverlapping(ctx context.Context, tenantID string, resourceIDs []string, start, end time.Time, statuses []db.ReservationStatus) ([]*db.Reservation, error) {
	return f.findOverlapping(ctx, tenantID, resourceIDs, start, end, statuses)
}

type fakeReservations struct {
	createReservation       func(ctx context.Context, res *db.Reservation) ([]*db.Reservation, error)
	getReservation          func(ctx context.Context, id, tenantID string) (*db.Reservation, error)
	getReservationsByTenant func(ctx context.Context, tenantID string, limit, offset int) ([]*db.Reservation, error)
	countReservations       func(ctx context.Context, tenantID string) (int, error)
	updateStatus            func(ctx context.Context, id, tenantID string, from, to db.ReservationStatus) error
}

func (f *fakeReservations) CreateReservation(ctx context.Context, res *db.Reservation) ([]*db.Reservation, error) {
	return f.createReservation(ctx, res)
}

func (f *fakeReservations) GetReservation(ctx context.Context, id, tenantID string) (*db.Reservation, error) {
	return f.getReservation(ctx, id, tenantID)
}

func (f *fakeReservations) GetReservationsByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*db.Reservation, error) {
	return f.getReservationsByTenant(ctx, tenantID, limit, offset)
}

func (f *fakeReservations) CountReservationsByTenant(ctx context.Context, tenantID string) (int, error) {
	return f.countReservations(ctx, tenantID)
}

func (f *fakeReservations) UpdateReservationStatus(ctx context.Context, id, tenantID string, from, to db.ReservationStatus) error {
	return f.updateStatus(ctx, id, tenantID, from, to)
}

var _ handlers.ReservationStore = (*fakeReservations)(nil)

// ---- harness ---------------------------------------------------------------

// occupiedStore answers overlap queries from one confirmed reservation on A01
// (Sep 30 through Oct 2, tenant t1), honoring tenant and resource scoping.
func occupiedStore() *fakeSource {
	existing := &db.Reservation{
		ID:         "res-1",
		TenantID:   "t1",
		ResourceID: "A01",
		CustomerID: "cust-1",
		PetID:      "pet-1",
		ServiceID:  "svc-1",
		StartDate:  date(2025, 9, 30),
		EndDate:    date(2025, 10, 2),
		Status:     db.StatusConfirmed,
	}
	return &fakeSource{
		findOverlapping: func(_ context.Context, tenantID string, resourceIDs []string, start, end time.Time, _ []db.ReservationStatus) ([]*db.Reservation, error) {
			if tenantID != existing.TenantID {
				return nil, nil
			}
			for _, id := range resourceIDs {
				if id == existing.ResourceID &&
					!existing.StartDate.After(end) && !existing.EndDate.Before(start) {
					return []*db.Reservation{existing}, nil
				}
			}
			return nil, nil
		},
	}
}

// newRouter wires the handler into a bare engine with a stand-in for the JWT
// tenant middleware. An empty tenant simulates an unauthenticated request.
func newRouter(tenant string, source availability.ReservationSource, reservations handlers.ReservationStore) *gin.Engine {
	checker := availability.NewChecker(source, nil, nil, nil)
	h := handlers.NewHandler(checker, nil, nil, reservations, nil, nil, nil, nil)

	router := gin.New()
	if tenant != "" {
		router.Use(func(c *gin.Context) { c.Set("tenant_id", tenant) })
	}
	router.GET("/resources/availability", h.GetAvailability)
	router.POST("/resources/availability/batch", h.BatchAvailability)
	router.POST("/reservations", h.CreateReservation)
	router.GET("/reservations/:id", h.GetReservation)
	router.POST("/reservations/:id/cancel", h.CancelReservation)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func dataOf(t *testing.T, parsed map[string]interface{}) map[string]interface{} {
	t.Helper()
	require.Equal(t, "success", parsed["status"])
	data, ok := parsed["data"].(map[string]interface{})
	require.True(t, ok, "data payload missing")
	return data
}

// ---- GET /resources/availability -------------------------------------------

func TestGetAvailability_Occupied(t *testing.T) {
	router := newRouter("t1", occupiedStore(), nil)

	w, parsed := doJSON(t, router, http.MethodGet, "/resources/availability?resourceId=A01&date=2025-10-01", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, parsed)
	assert.Equal(t, "A01", data["resourceId"])
	assert.Equal(t, false, data["isAvailable"])
	assert.Equal(t, "2025-10-01", data["checkDate"])

	occupying, ok := data["occupyingReservations"].([]interface{})
	require.True(t, ok)
	require.Len(t, occupying, 1)
	conflict := occupying[0].(map[string]interface{})
	assert.Equal(t, "res-1", conflict["reservationId"])
	assert.Equal(t, "cust-1", conflict["customerId"])
}

func TestGetAvailability_FreeRange(t *testing.T) {
	router := newRouter("t1", occupiedStore(), nil)

	w, parsed := doJSON(t, router, http.MethodGet,
		"/resources/availability?resourceId=A01&startDate=2025-10-03&endDate=2025-10-04", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, parsed)
	assert.Equal(t, true, data["isAvailable"])
	assert.Empty(t, data["occupyingReservations"])
	assert.NotContains(t, data, "checkDate")
}

func TestGetAvailability_MissingResource(t *testing.T) {
	router := newRouter("t1", occupiedStore(), nil)

	w, parsed := doJSON(t, router, http.MethodGet, "/resources/availability?date=2025-10-01", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, parsed["error"], "resource")
}

func TestGetAvailability_MissingTenant(t *testing.T) {
	router := newRouter("", occupiedStore(), nil)

	w, _ := doJSON(t, router, http.MethodGet, "/resources/availability?resourceId=A01&date=2025-10-01", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetAvailability_BadDate(t *testing.T) {
	router := newRouter("t1", occupiedStore(), nil)

	w, parsed := doJSON(t, router, http.MethodGet, "/resources/availability?resourceId=A01&date=tomorrow", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, parsed["error"], "invalid date")
}

func TestGetAvailability_DegradedFlagged(t *testing.T) {
	source := &fakeSource{
		findOverlapping: func(context.Context, string, []string, time.Time, time.Time, []db.ReservationStatus) ([]*db.Reservation, error) {
			return nil, assert.AnError
		},
	}
	router := newRouter("t1", source, nil)

	w, parsed := doJSON(t, router, http.MethodGet, "/resources/availability?resourceId=A01&date=2025-10-01", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, parsed)
	assert.Equal(t, true, data["isAvailable"])
	assert.Equal(t, true, data["degraded"])
}

// ---- POST /resources/availability/batch ------------------------------------

func TestBatchAvailability_OrderMatchesRequest(t *testing.T) {
	router := newRouter("t1", occupiedStore(), nil)

	w, parsed := doJSON(t, router, http.MethodPost, "/resources/availability/batch", gin.H{
		"resources": []string{"A02", "A01"},
		"date":      "2025-10-01",
	})

	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, parsed)

	results, ok := data["resources"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 2)

	first := results[0].(map[string]interface{})
	second := results[1].(map[string]interface{})
	assert.Equal(t, "A02", first["resourceId"])
	assert.Equal(t, true, first["isAvailable"])
	assert.Equal(t, "A01", second["resourceId"])
	assert.Equal(t, false, second["isAvailable"])
}

func TestBatchAvailability_MissingResources(t *testing.T) {
	router := newRouter("t1", occupiedStore(), nil)

	w, _ := doJSON(t, router, http.MethodPost, "/resources/availability/batch", gin.H{
		"date": "2025-10-01",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---- POST /reservations ----------------------------------------------------

func validCreateBody() gin.H {
	return gin.H{
		"resourceId": "A01",
		"customerId": "cust-1",
		"petId":      "pet-1",
		"serviceId":  "svc-1",
		"startDate":  "2025-10-05",
		"endDate":    "2025-10-08",
	}
}

func TestCreateReservation_Success(t *testing.T) {
	var created *db.Reservation
	store := &fakeReservations{
		createReservation: func(_ context.Context, res *db.Reservation) ([]*db.Reservation, error) {
			created = res
			return nil, nil
		},
	}
	router := newRouter("t1", occupiedStore(), store)

	w, parsed := doJSON(t, router, http.MethodPost, "/reservations", validCreateBody())

	require.Equal(t, http.StatusCreated, w.Code)
	data := dataOf(t, parsed)
	assert.Equal(t, "pending", data["status"])

	require.NotNil(t, created)
	assert.Equal(t, "t1", created.TenantID)
	assert.Equal(t, db.StatusPending, created.Status)
	assert.NotEmpty(t, created.ID)
}

func TestCreateReservation_Conflict(t *testing.T) {
	blocking := &db.Reservation{
		ID:         "res-1",
		CustomerID: "cust-9",
		PetID:      "pet-9",
		ServiceID:  "svc-1",
		StartDate:  date(2025, 10, 4),
		EndDate:    date(2025, 10, 6),
		Status:     db.StatusConfirmed,
	}
	store := &fakeReservations{
		createReservation: func(context.Context, *db.Reservation) ([]*db.Reservation, error) {
			return []*db.Reservation{blocking}, db.ErrReservationConflict
		},
	}
	router := newRouter("t1", occupiedStore(), store)

	w, parsed := doJSON(t, router, http.MethodPost, "/reservations", validCreateBody())

	require.Equal(t, http.StatusConflict, w.Code)
	occupying, ok := parsed["occupyingReservations"].([]interface{})
	require.True(t, ok)
	require.Len(t, occupying, 1)
	assert.Equal(t, "res-1", occupying[0].(map[string]interface{})["reservationId"])
}

func TestCreateReservation_InvertedRange(t *testing.T) {
	router := newRouter("t1", occupiedStore(), &fakeReservations{})

	body := validCreateBody()
	body["startDate"] = "2025-10-08"
	body["endDate"] = "2025-10-05"
	w, _ := doJSON(t, router, http.MethodPost, "/reservations", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateReservation_RejectsUnknownStatus(t *testing.T) {
	router := newRouter("t1", occupiedStore(), &fakeReservations{})

	body := validCreateBody()
	body["status"] = "checked_out"
	w, _ := doJSON(t, router, http.MethodPost, "/reservations", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---- reservation lifecycle -------------------------------------------------

func TestGetReservation_NotFound(t *testing.T) {
	store := &fakeReservations{
		getReservation: func(context.Context, string, string) (*db.Reservation, error) {
			return nil, db.ErrNotFound
		},
	}
	router := newRouter("t1", occupiedStore(), store)

	w, _ := doJSON(t, router, http.MethodGet, "/reservations/unknown", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelReservation(t *testing.T) {
	var updatedFrom, updatedTo db.ReservationStatus
	store := &fakeReservations{
		getReservation: func(_ context.Context, id, tenantID string) (*db.Reservation, error) {
			return &db.Reservation{ID: id, TenantID: tenantID, Status: db.StatusConfirmed}, nil
		},
		updateStatus: func(_ context.Context, _, _ string, from, to db.ReservationStatus) error {
			updatedFrom = from
			updatedTo = to
			return nil
		},
	}
	router := newRouter("t1", occupiedStore(), store)

	w, parsed := doJSON(t, router, http.MethodPost, "/reservations/res-1/cancel", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, parsed)
	assert.Equal(t, "cancelled", data["status"])
	assert.Equal(t, db.StatusConfirmed, updatedFrom)
	assert.Equal(t, db.StatusCancelled, updatedTo)
}

func TestCancelReservation_LostStatusRace(t *testing.T) {
	// Both a cancel and a check-in read confirmed and pass the lifecycle
	// check; the compare-and-swap update lets only one through. The loser's
	// update matches zero rows and must come back as a conflict, not a
	// silently applied forbidden transition.
	store := &fakeReservations{
		getReservation: func(_ context.Context, id, tenantID string) (*db.Reservation, error) {
			return &db.Reservation{ID: id, TenantID: tenantID, Status: db.StatusConfirmed}, nil
		},
		updateStatus: func(context.Context, string, string, db.ReservationStatus, db.ReservationStatus) error {
			return db.ErrInvalidTransition
		},
	}
	router := newRouter("t1", occupiedStore(), store)

	w, parsed := doJSON(t, router, http.MethodPost, "/reservations/res-1/cancel", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, parsed["error"], "concurrently")
}

func TestCancelReservation_InvalidTransition(t *testing.T) {
	store := &fakeReservations{
		getReservation: func(_ context.Context, id, tenantID string) (*db.Reservation, error) {
			return &db.Reservation{ID: id, TenantID: tenantID, Status: db.StatusCheckedOut}, nil
		},
	}
	router := newRouter("t1", occupiedStore(), store)

	w, parsed := doJSON(t, router, http.MethodPost, "/reservations/res-1/cancel", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, parsed["error"], "checked_out")
}
