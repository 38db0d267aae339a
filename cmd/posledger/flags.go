// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/posledger/log"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for the ledger database",
	}
	cacheFlag = cli.Uint64Flag{
		Name:  "cache",
		Usage: "megabytes of ram allocated to the database cache",
		Value: 128,
	}
	verbosityFlag = cli.Uint64Flag{
		Name:  "verbosity",
		Value: log.LegacyLevelInfo,
		Usage: "log verbosity (0-9)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format (default when stderr is not a terminal)",
	}

	genesisFlag = cli.StringFlag{
		Name:  "genesis",
		Value: "devnet",
		Usage: "path to a genesis YAML file, or 'devnet' for the built-in dev network",
	}

	sourceFlag = cli.StringFlag{
		Name:  "source",
		Usage: "address owning the bond (defaults to the validator for self-bonds)",
	}
	validatorFlag = cli.StringFlag{
		Name:  "validator",
		Usage: "validator address",
	}
	destFlag = cli.StringFlag{
		Name:  "dest",
		Usage: "destination validator address",
	}
	amountFlag = cli.StringFlag{
		Name:  "amount",
		Usage: "token amount, decimal or 0x-prefixed hex",
	}
	rateFlag = cli.StringFlag{
		Name:  "rate",
		Usage: "new commission rate, e.g. 0.05",
	}
	slashTypeFlag = cli.StringFlag{
		Name:  "type",
		Value: "duplicate-vote",
		Usage: "misbehavior type (duplicate-vote|light-client-attack)",
	}
	infractionEpochFlag = cli.Uint64Flag{
		Name:  "infraction-epoch",
		Usage: "epoch of the misbehavior (defaults to the current epoch)",
	}
	heightFlag = cli.Uint64Flag{
		Name:  "height",
		Usage: "block height of the misbehavior",
	}
	epochsFlag = cli.Uint64Flag{
		Name:  "epochs",
		Value: 1,
		Usage: "number of epochs to advance",
	}
	outFlag = cli.StringFlag{
		Name:  "out",
		Usage: "write the dump to this file instead of stdout",
	}

	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8669",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiTimeoutFlag = cli.Uint64Flag{
		Name:  "api-timeout",
		Value: 10000,
		Usage: "API request timeout value in milliseconds",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	apiSlowQueriesThresholdFlag = cli.Uint64Flag{
		Name:  "api-slow-queries-threshold",
		Value: 0,
		Usage: "log API requests slower than this many milliseconds, even when API logs are disabled (0 disables)",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection, served at /metrics",
	}
	enableAdminFlag = cli.BoolFlag{
		Name:  "enable-admin",
		Usage: "enables admin server",
	}
	adminAddrFlag = cli.StringFlag{
		Name:  "admin-addr",
		Value: "localhost:2113",
		Usage: "admin service listening address",
	}
	pprofFlag = cli.BoolFlag{
		Name:  "pprof",
		Usage: "turn on go-pprof",
	}
)

// commonFlags are accepted by every command.
var commonFlags = []cli.Flag{
	dataDirFlag,
	cacheFlag,
	verbosityFlag,
	jsonLogsFlag,
}

func withCommon(flags ...cli.Flag) []cli.Flag {
	return append(flags, commonFlags...)
}
