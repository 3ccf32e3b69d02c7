package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/marketplace-service/internal/app/marketplace/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	orders   *MockOrderService
	reviews  *MockReviewService
	ratings  *MockRatingService
	messages *MockMessageService
	products *MockProductService
}

func newTestServer() *testServer {
	s := &testServer{
		orders:   new(MockOrderService),
		reviews:  new(MockReviewService),
		ratings:  new(MockRatingService),
		messages: new(MockMessageService),
		products: new(MockProductService),
	}
	s.router = SetupRoutes(Handlers{
		Orders:   NewOrderHandler(s.orders),
		Reviews:  NewReviewHandler(s.reviews),
		Farmers:  NewFarmerHandler(s.ratings, s.products),
		Messages: NewMessageHandler(s.messages),
		Products: NewProductHandler(s.products),
	}, NewAuthMiddleware(testSecret), []string{"http://localhost:3000"})
	return s
}

// token подписывает JWT так же, как Auth Service
func token(t *testing.T, principal entity.Principal) string {
	t.Helper()
	claims := JWTClaims{
		UserID: principal.UserID.String(),
		Email:  "user@farm.test",
		Role:   string(principal.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path string, principal *entity.Principal, body interface{}) *httptest.ResponseRecorder {
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
	if principal != nil {
		req.Header.Set("Authorization", "Bearer "+token(t, *principal))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func newPrincipal(role entity.UserRole) *entity.Principal {
	return &entity.Principal{UserID: uuid.New(), Role: role}
}

// ===================== Infrastructure endpoints =====================

func TestHealth(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marketplace-service")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

// ===================== Auth Middleware Tests =====================

func TestAuth_MissingHeader(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodGet, "/orders", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	s.orders.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuth_InvalidTokens(t *testing.T) {
	s := newTestServer()

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		UserID: uuid.NewString(),
		Role:   "BUYER",
	}).SignedString([]byte("another-secret"))
	require.NoError(t, err)

	unknownRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		UserID: uuid.NewString(),
		Role:   "SUPERUSER",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, header := range map[string]string{
		"wrong scheme":  "Token abc",
		"forged":        "Bearer " + forged,
		"unknown role":  "Bearer " + unknownRole,
		"garbage token": "Bearer not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()

			s.router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuth_RoleLowercaseAccepted(t *testing.T) {
	s := newTestServer()
	userID := uuid.New()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		UserID: userID.String(),
		Role:   "buyer",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	s.orders.On("ListOrders", mock.Anything, entity.Principal{UserID: userID, Role: entity.RoleBuyer}, mock.Anything).
		Return([]entity.Order{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_BuyerCannotModerate(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/admin/reviews/"+uuid.NewString()+"/moderate", newPrincipal(entity.RoleBuyer),
		entity.ModerateReviewRequest{Action: entity.ActionApprove})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	s.reviews.AssertNotCalled(t, "Moderate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// ===================== Order Handler Tests =====================

func TestCreateOrderHandler_Success(t *testing.T) {
	// Arrange
	s := newTestServer()
	buyer := newPrincipal(entity.RoleBuyer)
	farmerID, productA, productB := uuid.New(), uuid.New(), uuid.New()

	order := &entity.Order{
		ID:          uuid.New(),
		BuyerID:     buyer.UserID,
		FarmerID:    farmerID,
		Status:      entity.OrderStatusPending,
		TotalAmount: decimal.RequireFromString("11.00"),
	}
	s.orders.On("CreateOrder", mock.Anything, buyer.UserID, mock.MatchedBy(func(req *entity.CreateOrderRequest) bool {
		return req.FarmerID == farmerID && len(req.Items) == 2
	})).Return(order, nil)

	// Act
	rec := s.do(t, http.MethodPost, "/orders", buyer, entity.CreateOrderRequest{
		FarmerID: farmerID,
		Items: []entity.OrderItemRequest{
			{ProductID: productA, Quantity: 3},
			{ProductID: productB, Quantity: 1},
		},
		DeliveryAddress: "ул. Садовая, 5",
	})

	// Assert
	require.Equal(t, http.StatusCreated, rec.Code)
	var response entity.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, order.ID, response.ID)
	assert.True(t, response.TotalAmount.Equal(decimal.NewFromInt(11)))
	s.orders.AssertExpectations(t)
}

func TestCreateOrderHandler_ValidationFails(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/orders", newPrincipal(entity.RoleBuyer), entity.CreateOrderRequest{
		FarmerID:        uuid.New(),
		DeliveryAddress: "ул. Садовая, 5",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	s.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrderHandler_FarmerCannotOrder(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/orders", newPrincipal(entity.RoleFarmer), entity.CreateOrderRequest{})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateOrderHandler_InsufficientStock(t *testing.T) {
	s := newTestServer()
	buyer := newPrincipal(entity.RoleBuyer)
	productID := uuid.New()

	s.orders.On("CreateOrder", mock.Anything, buyer.UserID, mock.Anything).
		Return(nil, &service.ItemError{ProductID: productID, Err: service.ErrInsufficientStock})

	rec := s.do(t, http.MethodPost, "/orders", buyer, entity.CreateOrderRequest{
		FarmerID:        uuid.New(),
		Items:           []entity.OrderItemRequest{{ProductID: productID, Quantity: 100}},
		DeliveryAddress: "ул. Садовая, 5",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, productID.String(), body["product_id"])
}

func TestOrderHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", service.ErrOrderNotFound, http.StatusNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"not cancellable", service.ErrOrderNotCancellable, http.StatusConflict},
		{"store failure", &service.StoreError{Op: "lock order", Err: assert.AnError}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			buyer := newPrincipal(entity.RoleBuyer)
			orderID := uuid.New()
			s.orders.On("CancelOrder", mock.Anything, *buyer, orderID).Return(nil, tt.err)

			rec := s.do(t, http.MethodPost, "/orders/"+orderID.String()+"/cancel", buyer, nil)

			assert.Equal(t, tt.status, rec.Code)
			// Внутренние детали хранилища не раскрываются
			assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
		})
	}
}

func TestUpdateOrderStatusHandler(t *testing.T) {
	s := newTestServer()
	farmer := newPrincipal(entity.RoleFarmer)
	orderID := uuid.New()

	s.orders.On("UpdateStatus", mock.Anything, *farmer, orderID, entity.OrderStatusAccepted).
		Return(&entity.Order{ID: orderID, Status: entity.OrderStatusAccepted}, nil)

	rec := s.do(t, http.MethodPatch, "/orders/"+orderID.String()+"/status", farmer,
		entity.UpdateOrderStatusRequest{Status: entity.OrderStatusAccepted})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ACCEPTED"`)
}

func TestUpdateOrderStatusHandler_PendingRejectedByValidation(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPatch, "/orders/"+uuid.NewString()+"/status", newPrincipal(entity.RoleAdmin),
		entity.UpdateOrderStatusRequest{Status: entity.OrderStatusPending})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrderHandler_InvalidID(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodGet, "/orders/not-a-uuid", newPrincipal(entity.RoleBuyer), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrdersHandler_PassesFilter(t *testing.T) {
	s := newTestServer()
	admin := newPrincipal(entity.RoleAdmin)

	s.orders.On("ListOrders", mock.Anything, *admin, entity.OrderFilter{Status: entity.OrderStatusPending, Limit: 10, Offset: 20}).
		Return([]entity.Order{{ID: uuid.New()}}, nil)

	rec := s.do(t, http.MethodGet, "/orders?status=PENDING&limit=10&offset=20", admin, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

// ===================== Review Handler Tests =====================

func TestListFarmerReviews_AnonymousViewer(t *testing.T) {
	s := newTestServer()
	farmerID := uuid.New()

	s.reviews.On("ListFarmerReviews", mock.Anything, (*entity.Principal)(nil), farmerID, 20, 0).
		Return([]entity.Review{{ID: uuid.New(), Approved: true}}, nil)

	rec := s.do(t, http.MethodGet, "/farmers/"+farmerID.String()+"/reviews", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	s.reviews.AssertExpectations(t)
}

func TestListFarmerReviews_AuthenticatedViewer(t *testing.T) {
	s := newTestServer()
	farmerID := uuid.New()
	viewer := newPrincipal(entity.RoleFarmer)

	s.reviews.On("ListFarmerReviews", mock.Anything, mock.MatchedBy(func(p *entity.Principal) bool {
		return p != nil && p.UserID == viewer.UserID
	}), farmerID, 5, 10).Return([]entity.Review{}, nil)

	rec := s.do(t, http.MethodGet, "/farmers/"+farmerID.String()+"/reviews?limit=5&offset=10", viewer, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	s.reviews.AssertExpectations(t)
}

func TestGetReview_HiddenIsNotFound(t *testing.T) {
	s := newTestServer()
	reviewID := uuid.New()
	s.reviews.On("GetReview", mock.Anything, (*entity.Principal)(nil), reviewID).Return(nil, service.ErrReviewNotFound)

	rec := s.do(t, http.MethodGet, "/reviews/"+reviewID.String(), nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCanReviewHandler(t *testing.T) {
	s := newTestServer()
	buyer := newPrincipal(entity.RoleBuyer)
	orderID := uuid.New()
	s.reviews.On("CanReview", mock.Anything, orderID, buyer.UserID, entity.RoleBuyer).Return(true, nil)

	rec := s.do(t, http.MethodGet, "/reviews/eligibility?order_id="+orderID.String(), buyer, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var response entity.ReviewEligibility
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.CanReview)
	assert.Equal(t, entity.RoleBuyer, response.Role)
}

func TestCreateReviewHandler_Ineligible(t *testing.T) {
	s := newTestServer()
	buyer := newPrincipal(entity.RoleBuyer)
	s.reviews.On("CreateReview", mock.Anything, *buyer, mock.Anything).Return(nil, service.ErrIneligibleReviewer)

	rec := s.do(t, http.MethodPost, "/reviews", buyer, entity.CreateReviewRequest{
		OrderID:      uuid.New(),
		RevieweeID:   uuid.New(),
		ReviewerRole: entity.RoleBuyer,
		Rating:       5,
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateReviewHandler_RatingOutOfRange(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/reviews", newPrincipal(entity.RoleBuyer), entity.CreateReviewRequest{
		OrderID:      uuid.New(),
		RevieweeID:   uuid.New(),
		ReviewerRole: entity.RoleBuyer,
		Rating:       7,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModerateReviewHandler(t *testing.T) {
	s := newTestServer()
	admin := newPrincipal(entity.RoleAdmin)
	reviewID := uuid.New()

	s.reviews.On("Moderate", mock.Anything, *admin, reviewID, entity.ActionApprove).
		Return(&entity.Review{ID: reviewID, Approved: true}, nil).Once()
	s.reviews.On("Moderate", mock.Anything, *admin, reviewID, entity.ActionReject).
		Return(nil, service.ErrCannotRejectApproved).Once()

	rec := s.do(t, http.MethodPost, "/admin/reviews/"+reviewID.String()+"/moderate", admin,
		entity.ModerateReviewRequest{Action: entity.ActionApprove})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/admin/reviews/"+reviewID.String()+"/moderate", admin,
		entity.ModerateReviewRequest{Action: entity.ActionReject})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// ===================== Farmer / Message / Product Handler Tests =====================

func TestGetFarmerRatingHandler(t *testing.T) {
	s := newTestServer()
	farmerID := uuid.New()
	s.ratings.On("GetFarmerRating", mock.Anything, farmerID).Return(&entity.FarmerRating{
		FarmerID:    farmerID,
		Rating:      decimal.RequireFromString("4.0"),
		ReviewCount: 3,
	}, nil)

	rec := s.do(t, http.MethodGet, "/farmers/"+farmerID.String()+"/rating", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var response entity.FarmerRating
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 3, response.ReviewCount)
	assert.True(t, response.Rating.Equal(decimal.NewFromInt(4)))
}

func TestReconcileHandler(t *testing.T) {
	s := newTestServer()
	s.ratings.On("ReconcileAll", mock.Anything).Return(12, nil)

	rec := s.do(t, http.MethodPost, "/admin/ratings/reconcile", newPrincipal(entity.RoleAdmin), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"processed":12`)
}

func TestModerateMessageHandler_AlreadyModerated(t *testing.T) {
	s := newTestServer()
	admin := newPrincipal(entity.RoleAdmin)
	s.messages.On("Moderate", mock.Anything, *admin, "65f1c0ffee", entity.ModerationRejected).
		Return(nil, service.ErrAlreadyModerated)

	rec := s.do(t, http.MethodPost, "/admin/messages/65f1c0ffee/moderate", admin,
		entity.ModerateMessageRequest{Flag: entity.ModerationRejected})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSendMessageHandler_InvalidParticipants(t *testing.T) {
	s := newTestServer()
	buyer := newPrincipal(entity.RoleBuyer)
	s.messages.On("SendMessage", mock.Anything, *buyer, mock.Anything).Return(nil, service.ErrInvalidParticipants)

	rec := s.do(t, http.MethodPost, "/messages", buyer, entity.SendMessageRequest{
		ReceiverID: uuid.New(),
		Content:    "Здравствуйте",
		Language:   "ru",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListConversationHandler(t *testing.T) {
	s := newTestServer()
	farmer := newPrincipal(entity.RoleFarmer)
	buyerID := uuid.New()
	s.messages.On("ListConversation", mock.Anything, *farmer, buyerID, int64(100)).Return([]entity.Message{{}, {}}, nil)

	rec := s.do(t, http.MethodGet, "/messages?with="+buyerID.String(), farmer, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":2`)
}

func TestProductAvailabilityHandler(t *testing.T) {
	s := newTestServer()
	productID := uuid.New()
	s.products.On("CanFulfill", mock.Anything, productID, 4).Return(false, nil)

	rec := s.do(t, http.MethodGet, "/products/"+productID.String()+"/availability?quantity=4", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":false`)
}

func TestUpdateProductHandler_BuyerForbidden(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPatch, "/products/"+uuid.NewString(), newPrincipal(entity.RoleBuyer), map[string]int{"stock_delta": 5})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	s.products.AssertNotCalled(t, "UpdateProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
