package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/classhub/internal/user/domain"
	"github.com/allisson/classhub/internal/user/http/dto"
	"github.com/allisson/classhub/internal/user/usecase"
)

// MockUserUseCase is a mock implementation of usecase.UseCase for testing.
type MockUserUseCase struct {
	mock.Mock
}

func (m *MockUserUseCase) RegisterUser(
	ctx context.Context,
	input usecase.RegisterUserInput,
) (*domain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUseCase) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUseCase) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// setupTestHandler creates a test handler with mocked dependencies.
func setupTestHandler(t *testing.T) (*UserHandler, *MockUserUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockUseCase := &MockUserUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewUserHandler(mockUseCase, logger), mockUseCase
}

// createTestContext creates a test Gin context with the given request.
func createTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	return c, w
}

func TestUserHandler_RegisterHandler(t *testing.T) {
	t.Run("Success_ValidRequest", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		request := dto.RegisterUserRequest{
			Name:     "John Doe",
			Email:    "john@example.com",
			Password: "SecurePass123!",
		}

		user := &domain.User{
			ID:       uuid.Must(uuid.NewV7()),
			TenantID: uuid.Must(uuid.NewV7()),
			Name:     request.Name,
			Email:    request.Email,
			Password: "hashed-password",
		}

		mockUseCase.On("RegisterUser", mock.Anything, dto.ToRegisterUserInput(request)).
			Return(user, nil)

		c, w := createTestContext(http.MethodPost, "/v1/users", request)
		handler.RegisterHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response dto.UserResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, user.ID.String(), response.ID)
		assert.Equal(t, user.Name, response.Name)
		assert.Equal(t, user.Email, response.Email)

		// The password hash must never appear in the response body.
		assert.NotContains(t, w.Body.String(), "hashed-password")
		assert.NotContains(t, w.Body.String(), "password")
	})

	t.Run("Error_InvalidJSON", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/users", nil)
		c.Request.Body = io.NopCloser(bytes.NewReader([]byte("invalid json")))

		handler.RegisterHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var response map[string]interface{}
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "validation_error", response["error"])
	})

	t.Run("Error_MissingName", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		request := dto.RegisterUserRequest{
			Email:    "john@example.com",
			Password: "SecurePass123!",
		}

		c, w := createTestContext(http.MethodPost, "/v1/users", request)
		handler.RegisterHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "RegisterUser", mock.Anything, mock.Anything)
	})

	t.Run("Error_DuplicateEmail", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		request := dto.RegisterUserRequest{
			Name:     "John Doe",
			Email:    "john@example.com",
			Password: "SecurePass123!",
		}

		mockUseCase.On("RegisterUser", mock.Anything, dto.ToRegisterUserInput(request)).
			Return(nil, domain.ErrUserAlreadyExists)

		c, w := createTestContext(http.MethodPost, "/v1/users", request)
		handler.RegisterHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestUserHandler_GetHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		user := &domain.User{
			ID:    uuid.Must(uuid.NewV7()),
			Name:  "John Doe",
			Email: "john@example.com",
		}

		mockUseCase.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)

		c, w := createTestContext(http.MethodGet, "/v1/users/"+user.ID.String(), nil)
		c.Params = gin.Params{{Key: "id", Value: user.ID.String()}}
		handler.GetHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.UserResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, user.ID.String(), response.ID)
	})

	t.Run("Error_InvalidID", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/users/not-a-uuid", nil)
		c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
		handler.GetHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		userID := uuid.Must(uuid.NewV7())
		mockUseCase.On("GetUserByID", mock.Anything, userID).Return(nil, domain.ErrUserNotFound)

		c, w := createTestContext(http.MethodGet, "/v1/users/"+userID.String(), nil)
		c.Params = gin.Params{{Key: "id", Value: userID.String()}}
		handler.GetHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
