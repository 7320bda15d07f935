package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"schoolprops/internal/caching"
	"schoolprops/internal/middleware"
	"schoolprops/internal/models"
	"schoolprops/internal/repositories/memory"
	"schoolprops/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const testSecret = "handler-test-secret"

type MockPhotoStorage struct {
	mock.Mock
}

func (m *MockPhotoStorage) Upload(ctx context.Context, contentType string, reader io.Reader, size int64) (string, error) {
	args := m.Called(ctx, contentType, reader, size)
	return args.String(0), args.Error(1)
}

func (m *MockPhotoStorage) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockPhotoStorage) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockPhotoStorage) EnsureBucket(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPhotoStorage) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type stubJobs struct {
	ran []string
}

func (s *stubJobs) JobNames() []string { return []string{"alerts-sweep"} }

func (s *stubJobs) RunNow(name string) error {
	s.ran = append(s.ran, name)
	return nil
}

type HandlersTestSuite struct {
	suite.Suite
	e       *echo.Echo
	photos  *MockPhotoStorage
	jobs    *stubJobs
	health  *HealthHandlers
	admin   string
	alice   string
	bob     string
	aliceID uuid.UUID
}

func (suite *HandlersTestSuite) token(id uuid.UUID, name string, role models.Role) string {
	claims := &middleware.Claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	suite.Require().NoError(err)
	return signed
}

func (suite *HandlersTestSuite) SetupTest() {
	store := memory.NewStore()
	inventory := services.NewInventoryService(store, caching.NewNoopCacheService(), nil)
	budget := services.NewBudgetService(store, nil)
	lifecycle := services.NewLifecycleService(store, inventory, budget, nil)
	repos := store.Repos()
	notifications := services.NewNotificationService(repos.Requests, repos.Items, caching.NewMemoryReadMarkers(), nil)
	suite.photos = &MockPhotoStorage{}
	suite.jobs = &stubJobs{}

	suite.e = echo.New()
	suite.health = NewHealthHandlers("test")
	RegisterHealth(suite.e, suite.health)
	RegisterRoutes(middleware.VersionRoute(suite.e, ""), Set{
		Items:         NewItemHandlers(inventory),
		Requests:      NewRequestHandlers(lifecycle),
		Notifications: NewNotificationHandlers(notifications),
		Budget:        NewBudgetHandlers(budget),
		Uploads:       NewUploadHandlers(suite.photos),
		Snapshots:     NewSnapshotHandlers(services.NewSnapshotService(store, nil)),
		Jobs:          NewJobHandlers(suite.jobs),
	}, middleware.JWTMiddleware(testSecret, nil), middleware.PrincipalMiddleware())

	suite.aliceID = uuid.New()
	suite.admin = suite.token(uuid.New(), "Office", models.RoleAdmin)
	suite.alice = suite.token(suite.aliceID, "Alice", models.RoleTeacher)
	suite.bob = suite.token(uuid.New(), "Bob", models.RoleTeacher)
}

func (suite *HandlersTestSuite) TearDownTest() {
	suite.photos.AssertExpectations(suite.T())
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (suite *HandlersTestSuite) call(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	suite.e.ServeHTTP(rec, req)
	return rec
}

func (suite *HandlersTestSuite) decode(rec *httptest.ResponseRecorder, into interface{}) {
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), into), rec.Body.String())
}

func (suite *HandlersTestSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	suite.decode(rec, &body)
	return body.Error.Code
}

func (suite *HandlersTestSuite) createItem(name string, total int) models.InventoryItem {
	rec := suite.call(http.MethodPost, "/v1/items", suite.admin, map[string]interface{}{
		"name":           name,
		"category":       "Science",
		"quantity_total": total,
	})
	suite.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var item models.InventoryItem
	suite.decode(rec, &item)
	return item
}

func (suite *HandlersTestSuite) submitItem(token string, itemID uuid.UUID, qty int) models.Request {
	rec := suite.call(http.MethodPost, "/v1/requests", token, map[string]interface{}{
		"request_type": "item",
		"item_id":      itemID.String(),
		"quantity":     qty,
		"location":     "Lab 2",
	})
	suite.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var req models.Request
	suite.decode(rec, &req)
	return req
}

func (suite *HandlersTestSuite) available(id uuid.UUID) int {
	rec := suite.call(http.MethodGet, "/v1/items/"+id.String(), suite.alice, nil)
	suite.Require().Equal(http.StatusOK, rec.Code)
	var item models.InventoryItem
	suite.decode(rec, &item)
	return item.QuantityAvailable
}

func (suite *HandlersTestSuite) TestUnauthenticated() {
	suite.Equal(http.StatusUnauthorized, suite.call(http.MethodGet, "/v1/items", "", nil).Code)
}

func (suite *HandlersTestSuite) TestItemWritesAreAdminOnly() {
	rec := suite.call(http.MethodPost, "/v1/items", suite.alice, map[string]interface{}{"name": "Chair", "quantity_total": 1})
	suite.Equal(http.StatusForbidden, rec.Code)

	item := suite.createItem("Chair", 3)
	suite.Equal(3, item.QuantityAvailable)

	rec = suite.call(http.MethodPut, "/v1/items/"+item.ID.String(), suite.admin, map[string]interface{}{"quantity_total": 5})
	suite.Equal(http.StatusOK, rec.Code)
	suite.Equal(5, suite.available(item.ID))

	rec = suite.call(http.MethodGet, "/v1/items?q=cha", suite.bob, nil)
	suite.Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Body.String(), "Chair")

	suite.Equal(http.StatusBadRequest, suite.call(http.MethodGet, "/v1/items/not-a-uuid", suite.bob, nil).Code)
	suite.Equal(http.StatusNotFound, suite.call(http.MethodGet, "/v1/items/"+uuid.NewString(), suite.bob, nil).Code)

	suite.Equal(http.StatusNoContent, suite.call(http.MethodDelete, "/v1/items/"+item.ID.String(), suite.admin, nil).Code)
}

func (suite *HandlersTestSuite) TestItemRequestLifecycle() {
	item := suite.createItem("Microscope", 5)
	req := suite.submitItem(suite.alice, item.ID, 3)
	suite.Equal(models.StatusPending, req.Status)

	due := time.Now().Add(72 * time.Hour).UTC().Format("2006-01-02")
	rec := suite.call(http.MethodPost, "/v1/requests/"+req.ID.String()+"/approve-assign", suite.alice, map[string]interface{}{"due_date": due, "quantity": 3})
	suite.Equal(http.StatusForbidden, rec.Code)

	rec = suite.call(http.MethodPost, "/v1/requests/"+req.ID.String()+"/approve-assign", suite.admin, map[string]interface{}{"due_date": due, "quantity": 3})
	suite.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	suite.Equal(2, suite.available(item.ID))

	other := suite.submitItem(suite.bob, item.ID, 3)
	rec = suite.call(http.MethodPost, "/v1/requests/"+other.ID.String()+"/approve-assign", suite.admin, map[string]interface{}{"due_date": due, "quantity": 3})
	suite.Equal(http.StatusConflict, rec.Code)
	suite.Equal("INSUFFICIENT_STOCK", suite.errorCode(rec))

	rec = suite.call(http.MethodPost, "/v1/requests/"+req.ID.String()+"/approve-assign", suite.admin, map[string]interface{}{"due_date": due, "quantity": 3})
	suite.Equal(http.StatusConflict, rec.Code)
	suite.Equal("ALREADY_PROCESSED", suite.errorCode(rec))

	suite.Equal(http.StatusForbidden, suite.call(http.MethodPost, "/v1/requests/"+req.ID.String()+"/return", suite.bob, nil).Code)
	rec = suite.call(http.MethodPost, "/v1/requests/"+req.ID.String()+"/return", suite.alice, nil)
	suite.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = suite.call(http.MethodPost, "/v1/requests/"+req.ID.String()+"/inspect", suite.admin, map[string]interface{}{})
	suite.Equal(http.StatusBadRequest, rec.Code)

	rec = suite.call(http.MethodPost, "/v1/requests/"+req.ID.String()+"/inspect", suite.admin, map[string]interface{}{"pass": true})
	suite.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var result models.InspectionResult
	suite.decode(rec, &result)
	suite.Equal(models.StatusClosed, result.Request.Status)
	suite.Equal(5, suite.available(item.ID))

	rec = suite.call(http.MethodGet, "/v1/requests/"+req.ID.String()+"/history", suite.alice, nil)
	suite.Require().Equal(http.StatusOK, rec.Code)
	var history struct {
		Events []models.RequestEvent `json:"events"`
	}
	suite.decode(rec, &history)
	suite.Len(history.Events, 4)
}

func (suite *HandlersTestSuite) TestSubmitValidation() {
	item := suite.createItem("Globe", 1)

	rec := suite.call(http.MethodPost, "/v1/requests", suite.alice, map[string]interface{}{
		"request_type": "item", "item_id": item.ID.String(), "quantity": 0,
	})
	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.Equal("VALIDATION_ERROR", suite.errorCode(rec))

	rec = suite.call(http.MethodPost, "/v1/requests", suite.alice, map[string]interface{}{"request_type": "gift"})
	suite.Equal(http.StatusBadRequest, rec.Code)

	rec = suite.call(http.MethodPost, "/v1/requests", suite.admin, map[string]interface{}{
		"request_type": "item", "item_id": item.ID.String(), "quantity": 1,
	})
	suite.Equal(http.StatusForbidden, rec.Code)

	rec = suite.call(http.MethodPost, "/v1/requests", suite.alice, map[string]interface{}{
		"request_type": "custom", "item_name": "3D printer", "estimated_cost": 450, "photo_ref": "../etc/passwd",
	})
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *HandlersTestSuite) TestListRequestsScopesTeachers() {
	item := suite.createItem("Ruler", 30)
	suite.submitItem(suite.alice, item.ID, 1)
	suite.submitItem(suite.bob, item.ID, 1)

	var page struct {
		Requests []models.Request `json:"requests"`
	}
	rec := suite.call(http.MethodGet, "/v1/requests?status=pending", suite.alice, nil)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.decode(rec, &page)
	suite.Require().Len(page.Requests, 1)
	suite.Equal(suite.aliceID, page.Requests[0].RequesterID)

	rec = suite.call(http.MethodGet, "/v1/requests?request_type=item", suite.admin, nil)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.decode(rec, &page)
	suite.Len(page.Requests, 2)

	suite.Equal(http.StatusBadRequest, suite.call(http.MethodGet, "/v1/requests?from=yesterday", suite.admin, nil).Code)
}

func (suite *HandlersTestSuite) TestCustomRequestAndBudget() {
	rec := suite.call(http.MethodPut, "/v1/budget", suite.admin, map[string]interface{}{"total_budget": 1000})
	suite.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = suite.call(http.MethodPost, "/v1/requests", suite.alice, map[string]interface{}{
		"request_type": "custom", "item_name": "Robotics kit", "estimated_cost": 100,
	})
	suite.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var req models.Request
	suite.decode(rec, &req)

	time.Sleep(2 * time.Millisecond)
	rec = suite.call(http.MethodPost, "/v1/requests/"+req.ID.String()+"/respond", suite.admin, map[string]interface{}{
		"status": "purchasing", "admin_response": "ordered",
	})
	suite.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = suite.call(http.MethodGet, "/v1/budget", suite.admin, nil)
	suite.Require().Equal(http.StatusOK, rec.Code)
	var b models.Budget
	suite.decode(rec, &b)
	suite.Equal(100.0, b.TotalSpent)
	suite.Equal(900.0, b.RemainingBalance)
	suite.Equal(10.0, b.PercentageUsed)

	suite.Equal(http.StatusForbidden, suite.call(http.MethodGet, "/v1/budget", suite.alice, nil).Code)

	rec = suite.call(http.MethodPut, "/v1/budget", suite.admin, map[string]interface{}{"total_budget": -5})
	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.Equal("INVALID_AMOUNT", suite.errorCode(rec))

	rec = suite.call(http.MethodPost, "/v1/budget/reset", suite.admin, map[string]interface{}{})
	suite.Equal(http.StatusBadRequest, rec.Code)

	rec = suite.call(http.MethodPost, "/v1/budget/reset", suite.admin, map[string]interface{}{"confirm": true})
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.decode(rec, &b)
	suite.Equal(0.0, b.TotalSpent)

	time.Sleep(2 * time.Millisecond)
	rec = suite.call(http.MethodPost, "/v1/budget/purchases", suite.admin, map[string]interface{}{"amount": 25.5, "description": "chalk"})
	suite.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = suite.call(http.MethodGet, "/v1/budget/purchases", suite.admin, nil)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Body.String(), "chalk")
}

func (suite *HandlersTestSuite) TestNotifications() {
	item := suite.createItem("Beaker", 4)
	req := suite.submitItem(suite.alice, item.ID, 1)

	var feed models.NotificationFeed
	rec := suite.call(http.MethodGet, "/v1/notifications", suite.admin, nil)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.decode(rec, &feed)
	suite.Require().Len(feed.Notifications, 1)
	suite.Equal("pending-"+req.ID.String(), feed.Notifications[0].ID)
	suite.Equal(1, feed.UnreadCount)

	suite.Equal(http.StatusBadRequest, suite.call(http.MethodGet, "/v1/notifications?feed=weekly", suite.admin, nil).Code)
	suite.Equal(http.StatusBadRequest, suite.call(http.MethodPost, "/v1/notifications/read", suite.admin, map[string]interface{}{}).Code)

	rec = suite.call(http.MethodPost, "/v1/notifications/read", suite.admin, map[string]interface{}{"all": true})
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.JSONEq(`{"marked":1}`, rec.Body.String())

	rec = suite.call(http.MethodGet, "/v1/notifications?feed=full&requests=false", suite.admin, nil)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.decode(rec, &feed)
	suite.Empty(feed.Notifications)

	rec = suite.call(http.MethodGet, "/v1/notifications", suite.bob, nil)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.decode(rec, &feed)
	suite.Empty(feed.Notifications)
}

func (suite *HandlersTestSuite) TestSnapshot() {
	item := suite.createItem("Printer", 2)
	suite.submitItem(suite.alice, item.ID, 1)

	rec := suite.call(http.MethodGet, "/v1/snapshot", suite.admin, nil)
	suite.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var snap models.Snapshot
	suite.decode(rec, &snap)
	suite.Len(snap.Requests, 1)
	suite.Len(snap.Items, 1)

	suite.Equal(http.StatusForbidden, suite.call(http.MethodGet, "/v1/snapshot", suite.alice, nil).Code)
	suite.Equal(http.StatusBadRequest, suite.call(http.MethodGet, "/v1/snapshot?from=2024-05-01&to=2024-04-01", suite.admin, nil).Code)
}

func (suite *HandlersTestSuite) multipartUpload(contentType string, data []byte) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="photo.png"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	suite.Require().NoError(err)
	_, err = part.Write(data)
	suite.Require().NoError(err)
	suite.Require().NoError(w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+suite.alice)
	return req
}

func (suite *HandlersTestSuite) TestUploads() {
	data := []byte("png-bytes")
	suite.photos.On("Upload", mock.Anything, "image/png", mock.Anything, int64(len(data))).Return("photos/abc.png", nil).Once()

	rec := httptest.NewRecorder()
	suite.e.ServeHTTP(rec, suite.multipartUpload("image/png", data))
	suite.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	suite.JSONEq(`{"key":"photos/abc.png"}`, rec.Body.String())

	suite.photos.On("PresignedURL", mock.Anything, "photos/abc.png", photoURLExpiry).Return("http://minio/photos/abc.png?sig", nil).Once()
	rec = suite.call(http.MethodGet, "/v1/uploads/photos/abc.png", suite.admin, nil)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.True(strings.Contains(rec.Body.String(), "sig"))

	rec = suite.call(http.MethodPost, "/v1/uploads", suite.alice, map[string]interface{}{})
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *HandlersTestSuite) TestHealth() {
	rec := suite.call(http.MethodGet, "/health", "", nil)
	suite.Equal(http.StatusOK, rec.Code)

	suite.health.Register("cache", false, func(context.Context) error { return errors.New("down") })
	rec = suite.call(http.MethodGet, "/health", "", nil)
	suite.Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Body.String(), `"degraded"`)
	suite.Equal(http.StatusOK, suite.call(http.MethodGet, "/health/ready", "", nil).Code)

	suite.health.Register("database", true, func(context.Context) error { return errors.New("down") })
	suite.Equal(http.StatusServiceUnavailable, suite.call(http.MethodGet, "/health", "", nil).Code)
	suite.Equal(http.StatusServiceUnavailable, suite.call(http.MethodGet, "/health/ready", "", nil).Code)
	suite.Equal(http.StatusOK, suite.call(http.MethodGet, "/health/live", "", nil).Code)
}

func (suite *HandlersTestSuite) TestJobs() {
	rec := suite.call(http.MethodGet, "/v1/jobs", suite.admin, nil)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.JSONEq(`{"total_jobs":1,"jobs":["alerts-sweep"]}`, rec.Body.String())

	suite.Equal(http.StatusForbidden, suite.call(http.MethodPost, "/v1/jobs/alerts-sweep/run", suite.alice, nil).Code)
	suite.Equal(http.StatusNotFound, suite.call(http.MethodPost, "/v1/jobs/reindex/run", suite.admin, nil).Code)

	rec = suite.call(http.MethodPost, "/v1/jobs/alerts-sweep/run", suite.admin, nil)
	suite.Equal(http.StatusAccepted, rec.Code)
	suite.Equal([]string{"alerts-sweep"}, suite.jobs.ran)
}
