// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fullVersion()
	app.Name = "posledger"
	app.Usage = "Proof-of-stake staking and slashing ledger"
	app.Copyright = "2025 VeChain Foundation <https://vechain.org/>"
	app.Commands = []cli.Command{
		{
			Name:   "init",
			Usage:  "initialize the ledger database from a genesis",
			Flags:  withCommon(genesisFlag),
			Action: initAction,
		},
		{
			Name:   "bond",
			Usage:  "bond tokens to a validator",
			Flags:  withCommon(sourceFlag, validatorFlag, amountFlag),
			Action: bondAction,
		},
		{
			Name:   "unbond",
			Usage:  "start unbonding tokens from a validator",
			Flags:  withCommon(sourceFlag, validatorFlag, amountFlag),
			Action: unbondAction,
		},
		{
			Name:   "withdraw",
			Usage:  "withdraw matured unbonds",
			Flags:  withCommon(sourceFlag, validatorFlag),
			Action: withdrawAction,
		},
		{
			Name:   "redelegate",
			Usage:  "move a delegation to another validator",
			Flags:  withCommon(sourceFlag, validatorFlag, destFlag, amountFlag),
			Action: redelegateAction,
		},
		{
			Name:   "slash",
			Usage:  "report a validator misbehavior",
			Flags:  withCommon(validatorFlag, slashTypeFlag, infractionEpochFlag, heightFlag),
			Action: slashAction,
		},
		{
			Name:   "unjail",
			Usage:  "unjail a validator",
			Flags:  withCommon(validatorFlag),
			Action: unjailAction,
		},
		{
			Name:   "change-commission",
			Usage:  "change a validator commission rate",
			Flags:  withCommon(validatorFlag, rateFlag),
			Action: changeCommissionAction,
		},
		{
			Name:   "deactivate",
			Usage:  "remove a validator from the sets at the pipeline epoch",
			Flags:  withCommon(validatorFlag),
			Action: deactivateAction,
		},
		{
			Name:   "reactivate",
			Usage:  "return an inactive validator to the sets",
			Flags:  withCommon(validatorFlag),
			Action: reactivateAction,
		},
		{
			Name:   "advance",
			Usage:  "advance the ledger to the next epoch",
			Flags:  withCommon(epochsFlag),
			Action: advanceAction,
		},
		{
			Name:   "export",
			Usage:  "dump the committed ledger as JSON",
			Flags:  withCommon(outFlag),
			Action: exportAction,
		},
		{
			Name:  "serve",
			Usage: "serve the read-only ledger API",
			Flags: withCommon(
				apiAddrFlag,
				apiCorsFlag,
				apiTimeoutFlag,
				enableAPILogsFlag,
				apiSlowQueriesThresholdFlag,
				enableMetricsFlag,
				enableAdminFlag,
				adminAddrFlag,
				pprofFlag,
			),
			Action: serveAction,
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
