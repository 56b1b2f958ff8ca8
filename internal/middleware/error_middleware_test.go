package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/studentinfo/internal/app/models/dto"
	"github.com/yigit/studentinfo/internal/pkg/apperrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type errorBody struct {
	Error dto.ErrorDetail `json:"error"`
}

func serve(t *testing.T, err error) (*httptest.ResponseRecorder, errorBody) {
	t.Helper()
	router := gin.New()
	router.GET("/", func(c *gin.Context) { HandleAPIError(c, err) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHandleAPIErrorStatusByKind(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   dto.ErrorCode
		field  string
	}{
		{"validation", apperrors.NewValidationError("name", "name is required"), http.StatusBadRequest, dto.ErrorCodeValidationFailed, "name"},
		{"artifact too large", fmt.Errorf("store: %w", apperrors.ErrArtifactTooLarge), http.StatusBadRequest, dto.ErrorCodeValidationFailed, "file"},
		{"duplicate aadhar", fmt.Errorf("failed to create student: %w", apperrors.ErrAadharAlreadyExists), http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "aadharNumber"},
		{"duplicate mobile", apperrors.ErrMobileAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "mobileNumber"},
		{"student not found", apperrors.ErrStudentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, ""},
		{"transaction", fmt.Errorf("%w: commit: %w", apperrors.ErrTransactionFailure, errors.New("eof")), http.StatusServiceUnavailable, dto.ErrorCodeDatabaseError, ""},
		{"io", fmt.Errorf("%w: disk full", apperrors.ErrIOFailure), http.StatusInternalServerError, dto.ErrorCodeStorageError, ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer, ""},
		{"body too large", fmt.Errorf("bind: %w", &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge, dto.ErrorCodePayloadTooLarge, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, body := serve(t, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.Equal(t, tc.field, body.Error.Field)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestHandleAPIErrorHidesInternalMessages(t *testing.T) {
	_, body := serve(t, fmt.Errorf("%w: begin: password authentication failed", apperrors.ErrTransactionFailure))
	assert.NotContains(t, body.Error.Message, "password")
	assert.Equal(t, dto.ErrorSeverityCritical, body.Error.Severity)
}

func TestErrorHandlerReportsAttachedError(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/", func(c *gin.Context) { _ = c.Error(apperrors.ErrContactNotFound) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBindJSON(t *testing.T) {
	type payload struct {
		City string `json:"city"`
	}

	router := gin.New()
	router.POST("/", MaxBodySize(16), func(c *gin.Context) {
		var p payload
		if err := BindJSON(c, &p); err != nil {
			HandleAPIError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		return w
	}

	assert.Equal(t, http.StatusOK, post(`{"city":"Pune"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"city":`).Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, post(`{"city":"`+strings.Repeat("x", 2<<20)+`"}`).Code)
}
