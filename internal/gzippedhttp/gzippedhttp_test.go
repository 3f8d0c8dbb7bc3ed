package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipBytes(t *testing.T, input string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(input))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

func TestUngzipRequest(t *testing.T) {
	handler := UngzipRequest(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		body, err := io.ReadAll(request.Body)
		require.NoError(t, err)
		assert.Equal(t, `{"images":[]}`, string(body))
		response.WriteHeader(http.StatusOK)
	}))

	request := httptest.NewRequest(
		http.MethodPost,
		"/images",
		bytes.NewReader(gzipBytes(t, `{"images":[]}`)),
	)
	request.Header.Set("Content-Encoding", "gzip")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestUngzipRequestLeavesPlainBodyAlone(t *testing.T) {
	handler := UngzipRequest(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		body, err := io.ReadAll(request.Body)
		require.NoError(t, err)
		assert.Equal(t, "plain", string(body))
	}))

	request := httptest.NewRequest(http.MethodPost, "/images", strings.NewReader("plain"))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestGzipResponse(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		response.WriteHeader(http.StatusOK)
		_, err := response.Write([]byte(`[{"id":1}]`))
		require.NoError(t, err)
	}))

	request := httptest.NewRequest(http.MethodGet, "/images", nil)
	request.Header.Set("Accept-Encoding", "gzip")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	require.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(recorder.Body)
	require.NoError(t, err)
	decompressed, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(decompressed))
}

func TestGzipResponseSkippedWithoutAcceptEncoding(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		_, err := response.Write([]byte("plain"))
		require.NoError(t, err)
	}))

	request := httptest.NewRequest(http.MethodGet, "/images", nil)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Empty(t, recorder.Header().Get("Content-Encoding"))
	assert.Equal(t, "plain", recorder.Body.String())
}
