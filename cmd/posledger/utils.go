// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/big"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"syscall"

	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/posledger/genesis"
	"github.com/vechain/posledger/kv"
	"github.com/vechain/posledger/log"
	"github.com/vechain/posledger/lvldb"
	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/state"
)

// stateBucket prefixes every key of the ledger state in the main database.
const stateBucket = kv.Bucket("s/")

func readIntFromUInt64Flag(val uint64) (int, error) {
	if val > math.MaxInt {
		return 0, fmt.Errorf("value %d exceeds max int", val)
	}
	return int(val), nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func initLogger(ctx *cli.Context) (*slog.LevelVar, error) {
	verbosity, err := readIntFromUInt64Flag(ctx.Uint64(verbosityFlag.Name))
	if err != nil {
		return nil, errors.Wrap(err, "parse verbosity flag")
	}
	var level slog.LevelVar
	level.Set(log.FromLegacyLevel(verbosity))

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) || !isTerminal(os.Stderr) {
		handler = log.JSONHandlerWithLevel(os.Stderr, &level)
	} else {
		handler = log.LogfmtHandlerWithLevel(os.Stderr, &level)
	}
	log.SetDefault(log.NewLogger(handler))
	return &level, nil
}

func selectGenesis(ctx *cli.Context) (*genesis.Genesis, error) {
	network := ctx.String(genesisFlag.Name)
	switch network {
	case "":
		return nil, fmt.Errorf("genesis is required, use -%s to specify", genesisFlag.Name)
	case "devnet":
		return genesis.NewDevnet(), nil
	default:
		custom, err := genesis.LoadCustomGenesis(network)
		if err != nil {
			return nil, err
		}
		return genesis.NewCustomNet(custom)
	}
}

func makeDataDir(ctx *cli.Context) (string, error) {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return "", fmt.Errorf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", errors.Wrapf(err, "create data dir [%v]", dataDir)
	}
	return dataDir, nil
}

func openMainDB(ctx *cli.Context) (*lvldb.LevelDB, error) {
	dataDir, err := makeDataDir(ctx)
	if err != nil {
		return nil, err
	}
	cacheMB, err := readIntFromUInt64Flag(ctx.Uint64(cacheFlag.Name))
	if err != nil {
		return nil, errors.Wrap(err, "parse cache flag")
	}
	log.Debug("cache size(MB)", "size", cacheMB)

	dir := filepath.Join(dataDir, "main.db")
	db, err := lvldb.New(dir, lvldb.Options{CacheSize: cacheMB})
	if err != nil {
		return nil, errors.Wrapf(err, "open main database [%v]", dir)
	}
	return db, nil
}

func newStateCreator(db *lvldb.LevelDB) *state.Creator {
	return state.NewCreator(stateBucket.NewStore(db), 0)
}

func parseAddressFlag(ctx *cli.Context, flag cli.StringFlag) (pos.Address, error) {
	s := ctx.String(flag.Name)
	if s == "" {
		return pos.Address{}, fmt.Errorf("missing -%s", flag.Name)
	}
	addr, err := pos.ParseAddress(s)
	if err != nil {
		return pos.Address{}, errors.WithMessage(err, flag.Name)
	}
	return addr, nil
}

// parseBondID reads the bond from the source and validator flags. A
// missing source means a self-bond.
func parseBondID(ctx *cli.Context) (pos.BondID, error) {
	validator, err := parseAddressFlag(ctx, validatorFlag)
	if err != nil {
		return pos.BondID{}, err
	}
	if ctx.String(sourceFlag.Name) == "" {
		return pos.BondID{Source: validator, Validator: validator}, nil
	}
	source, err := parseAddressFlag(ctx, sourceFlag)
	if err != nil {
		return pos.BondID{}, err
	}
	return pos.BondID{Source: source, Validator: validator}, nil
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("missing -%s", amountFlag.Name)
	}
	v, ok := ethmath.ParseBig256(s)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// handleExitSignal returns a context canceled on the first interrupt or
// terminate signal.
func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(exitSignalCh)

		sig := <-exitSignalCh
		log.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func defaultDataDir() string {
	// Try to place the data folder in the user's home dir
	if home := homeDir(); home != "" {
		switch runtime.GOOS {
		case "darwin":
			return filepath.Join(home, "Library", "Application Support", "org.vechain.posledger")
		case "windows":
			return filepath.Join(home, "AppData", "Roaming", "org.vechain.posledger")
		default:
			return filepath.Join(home, ".org.vechain.posledger")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}
