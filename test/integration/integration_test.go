package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/avotaangi/multibank/internal/api"
	"github.com/avotaangi/multibank/internal/bank"
	"github.com/avotaangi/multibank/internal/config"
	"github.com/avotaangi/multibank/internal/logging"
	"github.com/avotaangi/multibank/internal/models"
	"github.com/avotaangi/multibank/internal/store"
	"github.com/avotaangi/multibank/test/mocks"
)

// testServer wires the full stack over an in-process upstream bank and a
// SQLite store in a temporary directory.
type testServer struct {
	Router   *gin.Engine
	Store    store.Store
	Upstream *mocks.UpstreamBank
}

func setupTestServer(t *testing.T, banks ...string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := mocks.NewUpstreamBank()
	t.Cleanup(upstream.Close)

	logger := logging.NewLogger(logging.WithOutput(io.Discard))
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.NewSQLiteStore(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	for _, name := range banks {
		require.NoError(t, st.RegisterBank(models.Bank{Name: name, BaseURL: upstream.URL()}))
	}

	client := bank.NewClient(st, "team42", "s3cret", 2*time.Second, logger, nil)
	service := bank.NewService(st, client, logger, nil)

	cfg := config.ServerConfig{Host: "localhost", HTTPPort: 8318}
	apiCfg := config.APIConfig{Enabled: true}
	srv := api.NewServer(cfg, apiCfg, st, service, nil, logger)

	return &testServer{Router: srv.Router(), Store: st, Upstream: upstream}
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func provision(t *testing.T, ts *testServer, userID, bankName string) string {
	t.Helper()
	w := doRequest(t, ts.Router, http.MethodPost, "/users/"+userID+"/banks/"+bankName, nil)
	require.Equal(t, http.StatusOK, w.Code)
	return decode(t, w)["status"].(string)
}
