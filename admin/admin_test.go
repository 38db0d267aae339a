// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminTest struct {
	t        *testing.T
	logLevel slog.LevelVar
	apiLogs  atomic.Bool
}

func (a *adminTest) do(method, path, body string, wantStatus int, out any) {
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	rr := httptest.NewRecorder()
	HTTPHandler(&a.logLevel, &a.apiLogs).ServeHTTP(rr, req)

	require.Equal(a.t, wantStatus, rr.Code, rr.Body.String())
	if out != nil {
		require.NoError(a.t, json.NewDecoder(rr.Body).Decode(out))
	}
}

func TestLogLevel(t *testing.T) {
	a := &adminTest{t: t}

	var resp logLevelResponse
	a.do(http.MethodGet, "/admin/loglevel", "", http.StatusOK, &resp)
	assert.Equal(t, "INFO", resp.CurrentLevel)

	a.do(http.MethodPost, "/admin/loglevel", `{"level":"debug"}`, http.StatusOK, &resp)
	assert.Equal(t, "DEBUG", resp.CurrentLevel)
	assert.Equal(t, slog.LevelDebug, a.logLevel.Level())

	var errResp errorResponse
	a.do(http.MethodPost, "/admin/loglevel", `{"level":"invalid_body"}`, http.StatusBadRequest, &errResp)
	assert.Equal(t, "Invalid verbosity level", errResp.ErrorMessage)
	a.do(http.MethodPost, "/admin/loglevel", `not json`, http.StatusBadRequest, &errResp)
	assert.Equal(t, "Invalid request body", errResp.ErrorMessage)
	assert.Equal(t, slog.LevelDebug, a.logLevel.Level())

	a.do(http.MethodDelete, "/admin/loglevel", "", http.StatusMethodNotAllowed, &errResp)
}

func TestAPILogs(t *testing.T) {
	a := &adminTest{t: t}

	var resp apiLogsResponse
	a.do(http.MethodGet, "/admin/apilogs", "", http.StatusOK, &resp)
	assert.False(t, resp.Enabled)

	a.do(http.MethodPost, "/admin/apilogs", `{"enabled":true}`, http.StatusOK, &resp)
	assert.True(t, resp.Enabled)
	assert.True(t, a.apiLogs.Load())
}

func TestStartServer(t *testing.T) {
	var logLevel slog.LevelVar
	var apiLogs atomic.Bool

	url, stop, err := StartServer("localhost:0", &logLevel, &apiLogs)
	require.NoError(t, err)
	defer stop()

	resp, err := http.Post(url+"/loglevel", "application/json", strings.NewReader(`{"level":"warn"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, slog.LevelWarn, logLevel.Level())
}
