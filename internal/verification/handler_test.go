package verification

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-onboarding/internal/docinspect/docinspecttest"
	"partner-onboarding/internal/shared/auth"
	"partner-onboarding/internal/shared/server/middleware"
)

type handlerEnv struct {
	fixture
	router   *gin.Engine
	verifier *auth.Verifier
}

func newHandlerEnv(t *testing.T) handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	verifier, err := auth.NewVerifier("handler-test", "test")
	require.NoError(t, err)

	env := handlerEnv{fixture: newFixture(t, ResolveStrict), verifier: verifier}
	h := NewHandler(env.svc)
	router := gin.New()
	router.Use(middleware.Auth(verifier))
	h.RegisterRoutes(&router.RouterGroup)
	internal := router.Group("/internal", middleware.RequireRole(auth.RoleAdmin, auth.RoleService))
	h.RegisterInternalRoutes(internal)
	env.router = router
	return env
}

func (e handlerEnv) token(t *testing.T, sub, role string) string {
	t.Helper()
	token, err := e.verifier.Sign(auth.Claims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
	}, time.Minute)
	require.NoError(t, err)
	return "Bearer " + token
}

func (e handlerEnv) do(t *testing.T, req *http.Request, sub, role string) *httptest.ResponseRecorder {
	t.Helper()
	req.Header.Set("Authorization", e.token(t, sub, role))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, docType string, data []byte, contentType string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if docType != "" {
		require.NoError(t, w.WriteField("docType", docType))
	}
	if data != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="doc"`)
		if contentType != "" {
			hdr.Set("Content-Type", contentType)
		}
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPut, "/verification-document", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestUploadReturnsDocumentsAndStatus(t *testing.T) {
	env := newHandlerEnv(t)

	rec := env.do(t, uploadRequest(t, "governmentId", docinspecttest.PNG(1), "image/png"), "partner-1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Message               string `json:"message"`
		VerificationStatus    string `json:"verificationStatus"`
		VerificationDocuments map[string]struct {
			Path       *string    `json:"path"`
			UploadedAt *time.Time `json:"uploadedAt"`
			Status     string     `json:"status"`
		} `json:"verificationDocuments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Document uploaded successfully", resp.Message)
	assert.Equal(t, "not_submitted", resp.VerificationStatus)
	require.Len(t, resp.VerificationDocuments, 4)
	gov := resp.VerificationDocuments["governmentId"]
	assert.Equal(t, "approved", gov.Status)
	require.NotNil(t, gov.Path)
	assert.True(t, strings.HasPrefix(*gov.Path, "https://blobs.test/"))
	assert.NotNil(t, gov.UploadedAt)
	assert.Nil(t, resp.VerificationDocuments["proofOfAddress"].Path)
	assert.Equal(t, "not_submitted", resp.VerificationDocuments["proofOfAddress"].Status)
}

func TestUploadSniffsMissingContentType(t *testing.T) {
	env := newHandlerEnv(t)
	rec := env.do(t, uploadRequest(t, "proofOfInsurance", docinspecttest.PDF("policy"), ""), "partner-1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUploadErrors(t *testing.T) {
	cases := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		user   string
		status int
		code   string
	}{
		{
			name: "invalid docType",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "passport", docinspecttest.PNG(1), "image/png")
			},
			user:   "partner-1",
			status: http.StatusBadRequest,
			code:   "validation_error",
		},
		{
			name:   "missing file",
			req:    func(t *testing.T) *http.Request { return uploadRequest(t, "governmentId", nil, "") },
			user:   "partner-1",
			status: http.StatusBadRequest,
			code:   "validation_error",
		},
		{
			name: "wrong content",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "governmentId", []byte("plain text"), "image/png")
			},
			user:   "partner-1",
			status: http.StatusBadRequest,
			code:   "validation_error",
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				data := make([]byte, 6*1024*1024)
				copy(data, docinspecttest.PNG(1))
				return uploadRequest(t, "governmentId", data, "image/png")
			},
			user:   "partner-1",
			status: http.StatusBadRequest,
			code:   "validation_error",
		},
		{
			name: "unknown user",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "governmentId", docinspecttest.PNG(1), "image/png")
			},
			user:   "ghost",
			status: http.StatusNotFound,
			code:   "not_found",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newHandlerEnv(t)
			rec := env.do(t, tc.req(t), tc.user, "")
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decodeError(t, rec).Error.Code)
			assert.Zero(t, env.store.count())
		})
	}
}

func TestUploadStorageFailure(t *testing.T) {
	env := newHandlerEnv(t)
	env.store.storeErr = errors.New("bucket unavailable")

	rec := env.do(t, uploadRequest(t, "governmentId", docinspecttest.PNG(1), "image/png"), "partner-1", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "storage_error", decodeError(t, rec).Error.Code)
}

func TestDeleteRoute(t *testing.T) {
	env := newHandlerEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodDelete, "/verification-document/governmentId", nil), "partner-1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	envl := decodeError(t, rec)
	assert.Equal(t, "not_found", envl.Error.Code)
	assert.Equal(t, "no document to delete", envl.Error.Message)

	env.submit(t, DocGovernmentID, 1)
	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/verification-document/governmentId", nil), "partner-1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DocumentMutationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Document deleted successfully", resp.Message)
	assert.Equal(t, StatusNotSubmitted, resp.VerificationStatus)
	assert.Equal(t, SlotNotSubmitted, resp.VerificationDocuments[DocGovernmentID].Status)
	assert.Zero(t, env.store.count())
}

func TestDeleteRouteStorageFailure(t *testing.T) {
	env := newHandlerEnv(t)
	env.submit(t, DocGovernmentID, 1)
	env.store.deleteErr = func(string) error { return errors.New("denied") }

	rec := env.do(t, httptest.NewRequest(http.MethodDelete, "/verification-document/governmentId", nil), "partner-1", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "storage_error", decodeError(t, rec).Error.Code)
}

func TestStatusRoute(t *testing.T) {
	env := newHandlerEnv(t)
	env.submitAll(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/verification-status", nil), "partner-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusApproved, resp.VerificationStatus)
	assert.True(t, resp.Eligible)
}

func TestStatusRouteServesConcurrentTabs(t *testing.T) {
	env := newHandlerEnv(t)

	for i := 0; i < 3; i++ {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/verification-status", nil), "partner-1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	}
}

func TestReviewRouteRequiresRole(t *testing.T) {
	env := newHandlerEnv(t)
	env.svc.Policy = ManualQueue{}
	env.submit(t, DocGovernmentID, 1)

	body := func() *strings.Reader { return strings.NewReader(`{"decision":"rejected"}`) }
	req := httptest.NewRequest(http.MethodPut, "/internal/verification/partner-1/governmentId/review", body())
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(t, req, "partner-1", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/internal/verification/partner-1/governmentId/review", body())
	req.Header.Set("Content-Type", "application/json")
	rec = env.do(t, req, "reviewer-7", auth.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored := env.record(t)
	assert.Equal(t, SlotRejected, stored.Documents[DocGovernmentID].Status)
}
