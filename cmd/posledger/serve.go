// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/posledger/admin"
	"github.com/vechain/posledger/api"
	"github.com/vechain/posledger/genesis"
	"github.com/vechain/posledger/log"
	"github.com/vechain/posledger/metrics"
	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/state"
)

const shutdownTimeout = 5 * time.Second

func handleXGenesisID(h http.Handler, genesisID pos.Bytes32) http.Handler {
	const headerKey = "x-genesis-id"
	expectedID := genesisID.String()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actualID := r.Header.Get(headerKey)
		if actualID == "" {
			actualID = r.URL.Query().Get(headerKey)
		}
		w.Header().Set(headerKey, expectedID)
		if actualID != "" && actualID != expectedID {
			http.Error(w, "genesis id mismatch", http.StatusForbidden)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func handleAPITimeout(h http.Handler, timeout time.Duration) http.Handler {
	return http.TimeoutHandler(h, timeout, "request timeout")
}

// newAPIHandler builds the API handler for the committed ledger behind creator.
func newAPIHandler(ctx *cli.Context, creator *state.Creator, apiLogs *atomic.Bool) (http.Handler, error) {
	params, err := readParams(creator)
	if err != nil {
		return nil, err
	}
	st, release := creator.NewReadOnly()
	genesisID, _, err := genesis.ReadID(st)
	release()
	if err != nil {
		return nil, err
	}

	slowQueriesThreshold, err := readIntFromUInt64Flag(ctx.Uint64(apiSlowQueriesThresholdFlag.Name))
	if err != nil {
		return nil, errors.Wrap(err, "parse slow queries threshold flag")
	}
	var handler http.Handler = api.New(creator, params, api.Options{
		AllowedOrigins:       ctx.String(apiCorsFlag.Name),
		PprofOn:              ctx.Bool(pprofFlag.Name),
		EnableReqLogger:      apiLogs,
		SlowQueriesThreshold: time.Duration(slowQueriesThreshold) * time.Millisecond,
		EnableMetrics:        ctx.Bool(enableMetricsFlag.Name),
	})
	timeout, err := readIntFromUInt64Flag(ctx.Uint64(apiTimeoutFlag.Name))
	if err != nil {
		return nil, errors.Wrap(err, "parse api timeout flag")
	}
	if timeout > 0 {
		handler = handleAPITimeout(handler, time.Duration(timeout)*time.Millisecond)
	}
	return handleXGenesisID(handler, genesisID), nil
}

func serveAction(ctx *cli.Context) error {
	defer func() { log.Info("exited") }()

	logLevel, err := initLogger(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	creator, closeDB, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	var apiLogs atomic.Bool
	apiLogs.Store(ctx.Bool(enableAPILogsFlag.Name))

	handler, err := newAPIHandler(ctx, creator, &apiLogs)
	if err != nil {
		return err
	}

	if ctx.Bool(enableAdminFlag.Name) {
		url, stop, err := admin.StartServer(ctx.String(adminAddrFlag.Name), logLevel, &apiLogs)
		if err != nil {
			return err
		}
		defer func() { log.Info("stopping admin server..."); stop() }()
		log.Info("admin server started", "url", url)
	}

	addr := ctx.String(apiAddrFlag.Name)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen API addr [%v]", addr)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second}
	log.Info("API server started", "url", "http://"+listener.Addr().String()+"/")

	g, gctx := errgroup.WithContext(handleExitSignal())
	g.Go(func() error {
		if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("stopping API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
