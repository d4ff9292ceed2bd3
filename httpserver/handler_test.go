package httpserver

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhanglinchao1/Feature-Algorithm/engine"
	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
	"github.com/zhanglinchao1/Feature-Algorithm/storage"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	eng, err := engine.New(interfaces.DefaultConfig(), storage.NewMemoryStore(), slog.Default())
	require.NoError(t, err)
	handler := NewHandler(eng, slog.Default())

	mux := chi.NewRouter()
	mux.Post("/api/v1/devices/{device_id}/register", handler.HandleRegister)
	mux.Post("/api/v1/devices/{device_id}/authenticate", handler.HandleAuthenticate)
	return mux
}

// testMeasurements yields one extractable bit per dimension: alternating
// positive and negated copies of a bimodal sample pattern.
func testMeasurements(dims int) [][]float64 {
	pattern := []float64{0, 5, 5, 5, 10, 10}
	ms := make([][]float64, len(pattern))
	for m := range ms {
		ms[m] = make([]float64, dims)
		for d := range ms[m] {
			v := pattern[m]
			if d%2 == 0 {
				v = -v
			}
			ms[m][d] = v
		}
	}
	return ms
}

func testRequestBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(operationRequest{
		Measurements: testMeasurements(256),
		Context: contextRequest{
			SrcID:   "020000000001",
			DstID:   "020000000002",
			Epoch:   7,
			Nonce:   "0102030405060708090a0b0c0d0e0f10",
			Counter: 1,
			AlgID:   "feature-v1",
			Version: 1,
			CSIID:   42,
		},
		Mask: "deadbeef",
	})
	require.NoError(t, err)
	return body
}

func doRequest(t *testing.T, router http.Handler, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterThenAuthenticate(t *testing.T) {
	router := newTestRouter(t)
	body := testRequestBody(t)

	rec := doRequest(t, router, "/api/v1/devices/dev-1/register", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var registered registerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	assert.Equal(t, interfaces.DefaultConfig().HelperBytes(), registered.HelperBytes)

	keyBytes, err := hex.DecodeString(registered.K)
	require.NoError(t, err)
	assert.Len(t, keyBytes, interfaces.DefaultConfig().KeyLength)

	rec = doRequest(t, router, "/api/v1/devices/dev-1/authenticate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var authenticated keyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &authenticated))
	assert.Equal(t, registered.S, authenticated.S)
	assert.Equal(t, registered.K, authenticated.K)
	assert.Equal(t, registered.Ks, authenticated.Ks)
	assert.Equal(t, registered.Digest, authenticated.Digest)
}

func TestAuthenticateUnknownDeviceReturns404(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, "/api/v1/devices/ghost/authenticate", testRequestBody(t))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDuplicateRegistrationReturns409(t *testing.T) {
	router := newTestRouter(t)
	body := testRequestBody(t)

	rec := doRequest(t, router, "/api/v1/devices/dev-2/register", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, "/api/v1/devices/dev-2/register", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMalformedRequestsReturn400(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, "/api/v1/devices/dev-3/register", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var req operationRequest
	require.NoError(t, json.Unmarshal(testRequestBody(t), &req))
	req.Context.SrcID = "zz"
	body, err := json.Marshal(req)
	require.NoError(t, err)
	rec = doRequest(t, router, "/api/v1/devices/dev-3/register", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, json.Unmarshal(testRequestBody(t), &req))
	req.Mask = "not-hex"
	body, err = json.Marshal(req)
	require.NoError(t, err)
	rec = doRequest(t, router, "/api/v1/devices/dev-3/register", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, json.Unmarshal(testRequestBody(t), &req))
	req.Measurements = req.Measurements[:3]
	body, err = json.Marshal(req)
	require.NoError(t, err)
	rec = doRequest(t, router, "/api/v1/devices/dev-3/register", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterGeneratesNonceWhenOmitted(t *testing.T) {
	router := newTestRouter(t)

	var req operationRequest
	require.NoError(t, json.Unmarshal(testRequestBody(t), &req))
	req.Context.Nonce = ""
	body, err := json.Marshal(req)
	require.NoError(t, err)

	rec := doRequest(t, router, "/api/v1/devices/dev-4/register", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var registered registerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	assert.NotEmpty(t, registered.L)
}
