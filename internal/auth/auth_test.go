package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCookieName = "ptracker_session"
	testSessionTTL = time.Hour
)

var testSigningKey = []byte("0123456789abcdef")

func issueTestSession(t *testing.T, a *Auth, email string) *http.Cookie {
	t.Helper()

	recorder := httptest.NewRecorder()
	require.NoError(t, a.IssueSession(recorder, email))

	cookies := recorder.Result().Cookies()
	require.NotEmpty(t, cookies)

	return cookies[0]
}

func TestIssueSessionSetsCookieAndHeader(t *testing.T) {
	a := New(testCookieName, testSigningKey, testSessionTTL)

	recorder := httptest.NewRecorder()
	require.NoError(t, a.IssueSession(recorder, "a@x.com"))

	assert.NotEmpty(t, recorder.Header().Get("Authorization"))

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestAuthenticateUser(t *testing.T) {
	a := New(testCookieName, testSigningKey, testSessionTTL)
	sessionCookie := issueTestSession(t, a, "a@x.com")

	handler := a.AuthenticateUser(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		email, ok := EmailFromContext(request.Context())
		require.True(t, ok)
		assert.Equal(t, "a@x.com", email)
		response.WriteHeader(http.StatusOK)
	}))

	testCases := []struct {
		name         string
		prepare      func(request *http.Request)
		expectedCode int
	}{
		{
			name: "valid_cookie",
			prepare: func(request *http.Request) {
				request.AddCookie(sessionCookie)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "valid_authorization_header",
			prepare: func(request *http.Request) {
				request.Header.Set("Authorization", sessionCookie.Value)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "missing_token",
			prepare:      func(request *http.Request) {},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name: "garbage_token",
			prepare: func(request *http.Request) {
				request.Header.Set("Authorization", "not-a-jwt")
			},
			expectedCode: http.StatusUnauthorized,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/images", nil)
			testCase.prepare(request)

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, testCase.expectedCode, recorder.Code)
		})
	}
}

func TestAuthenticateUserRejectsForeignSignature(t *testing.T) {
	issuer := New(testCookieName, []byte("another-secret-key"), testSessionTTL)
	foreignCookie := issueTestSession(t, issuer, "a@x.com")

	a := New(testCookieName, testSigningKey, testSessionTTL)
	handler := a.AuthenticateUser(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		t.Fatal("handler must not be reached with a foreign token")
	}))

	request := httptest.NewRequest(http.MethodGet, "/images", nil)
	request.AddCookie(foreignCookie)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestAuthenticateUserRejectsExpiredSession(t *testing.T) {
	issuer := New(testCookieName, testSigningKey, -time.Minute)
	expiredCookie := issueTestSession(t, issuer, "a@x.com")

	a := New(testCookieName, testSigningKey, testSessionTTL)
	handler := a.AuthenticateUser(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		t.Fatal("handler must not be reached with an expired token")
	}))

	request := httptest.NewRequest(http.MethodGet, "/images", nil)
	request.AddCookie(expiredCookie)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestClearSession(t *testing.T) {
	a := New(testCookieName, testSigningKey, testSessionTTL)

	recorder := httptest.NewRecorder()
	a.ClearSession(recorder)

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
