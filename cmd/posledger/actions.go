// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"os"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/posledger/api/ledger"
	"github.com/vechain/posledger/genesis"
	"github.com/vechain/posledger/log"
	"github.com/vechain/posledger/pos"
	"github.com/vechain/posledger/processor"
	"github.com/vechain/posledger/staker"
	"github.com/vechain/posledger/state"
)

type txResult struct {
	Op     string    `json:"op"`
	Amount string    `json:"amount,omitempty"`
	Epoch  pos.Epoch `json:"epoch"`
}

type setUpdate struct {
	Address pos.Address `json:"address"`
	Stake   string      `json:"stake"`
	Removed bool        `json:"removed"`
}

type advanceResult struct {
	Epoch   pos.Epoch    `json:"epoch"`
	Updates []*setUpdate `json:"updates"`
}

// openLedger opens the main database. The returned func closes it.
func openLedger(ctx *cli.Context) (*state.Creator, func(), error) {
	db, err := openMainDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	return newStateCreator(db), func() {
		log.Debug("closing main database...")
		if err := db.Close(); err != nil {
			log.Warn("failed to close main database", "err", err)
		}
	}, nil
}

// withDB initializes logging, opens the main database and hands a state
// creator to fn.
func withDB(ctx *cli.Context, fn func(creator *state.Creator) error) error {
	if _, err := initLogger(ctx); err != nil {
		return err
	}
	creator, closeDB, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer closeDB()
	return fn(creator)
}

func initAction(ctx *cli.Context) error {
	return withDB(ctx, func(creator *state.Creator) error {
		gene, err := selectGenesis(ctx)
		if err != nil {
			return err
		}
		if err := gene.Build(creator); err != nil {
			return errors.Wrap(err, "build genesis")
		}
		return writeJSON(ctx.App.Writer, map[string]any{
			"name":      gene.Name(),
			"genesisId": gene.ID().String(),
		})
	})
}

// executeTx runs the op built from the command flags as one transaction
// and commits it. A rejected op is reported as an error.
func executeTx(ctx *cli.Context, build func(p *processor.Processor) (processor.Op, error)) error {
	return withDB(ctx, func(creator *state.Creator) error {
		p, err := processor.New(creator)
		if err != nil {
			return err
		}
		op, err := build(p)
		if err != nil {
			return err
		}
		receipt, err := p.Execute(op)
		if err != nil {
			return err
		}
		if receipt.Reverted {
			return errors.WithMessagef(receipt.Reason, "%s rejected", op.Name())
		}
		if err := p.Commit(); err != nil {
			return err
		}

		epoch, err := p.Staker().CurrentEpoch()
		if err != nil {
			return err
		}
		out := &txResult{Op: op.Name(), Epoch: epoch}
		if amount := receipt.Outputs[0].Amount; amount != nil {
			out.Amount = amount.String()
		}
		log.Info("transaction committed", "op", op.Name(), "epoch", epoch)
		return writeJSON(ctx.App.Writer, out)
	})
}

func bondAction(ctx *cli.Context) error {
	return executeTx(ctx, func(*processor.Processor) (processor.Op, error) {
		id, err := parseBondID(ctx)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(ctx.String(amountFlag.Name))
		if err != nil {
			return nil, err
		}
		return &processor.Bond{ID: id, Amount: amount}, nil
	})
}

func unbondAction(ctx *cli.Context) error {
	return executeTx(ctx, func(*processor.Processor) (processor.Op, error) {
		id, err := parseBondID(ctx)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(ctx.String(amountFlag.Name))
		if err != nil {
			return nil, err
		}
		return &processor.Unbond{ID: id, Amount: amount}, nil
	})
}

func withdrawAction(ctx *cli.Context) error {
	return executeTx(ctx, func(*processor.Processor) (processor.Op, error) {
		id, err := parseBondID(ctx)
		if err != nil {
			return nil, err
		}
		return &processor.Withdraw{ID: id}, nil
	})
}

func redelegateAction(ctx *cli.Context) error {
	return executeTx(ctx, func(*processor.Processor) (processor.Op, error) {
		id, err := parseBondID(ctx)
		if err != nil {
			return nil, err
		}
		dest, err := parseAddressFlag(ctx, destFlag)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(ctx.String(amountFlag.Name))
		if err != nil {
			return nil, err
		}
		return &processor.Redelegate{ID: id, Dest: dest, Amount: amount}, nil
	})
}

func slashAction(ctx *cli.Context) error {
	return executeTx(ctx, func(p *processor.Processor) (processor.Op, error) {
		validator, err := parseAddressFlag(ctx, validatorFlag)
		if err != nil {
			return nil, err
		}
		typ, err := pos.ParseSlashType(ctx.String(slashTypeFlag.Name))
		if err != nil {
			return nil, err
		}
		var infraction pos.Epoch
		if ctx.IsSet(infractionEpochFlag.Name) {
			infraction = pos.Epoch(ctx.Uint64(infractionEpochFlag.Name))
		} else if infraction, err = p.Staker().CurrentEpoch(); err != nil {
			return nil, err
		}
		return &processor.Slash{
			Validator:  validator,
			Type:       typ,
			Infraction: infraction,
			Height:     ctx.Uint64(heightFlag.Name),
		}, nil
	})
}

func unjailAction(ctx *cli.Context) error {
	return executeTx(ctx, func(*processor.Processor) (processor.Op, error) {
		validator, err := parseAddressFlag(ctx, validatorFlag)
		if err != nil {
			return nil, err
		}
		return &processor.Unjail{Validator: validator}, nil
	})
}

func changeCommissionAction(ctx *cli.Context) error {
	return executeTx(ctx, func(*processor.Processor) (processor.Op, error) {
		validator, err := parseAddressFlag(ctx, validatorFlag)
		if err != nil {
			return nil, err
		}
		rate, err := pos.ParseDec(ctx.String(rateFlag.Name))
		if err != nil {
			return nil, errors.WithMessage(err, rateFlag.Name)
		}
		return &processor.ChangeCommission{Validator: validator, Rate: rate}, nil
	})
}

func deactivateAction(ctx *cli.Context) error {
	return executeTx(ctx, func(*processor.Processor) (processor.Op, error) {
		validator, err := parseAddressFlag(ctx, validatorFlag)
		if err != nil {
			return nil, err
		}
		return &processor.Deactivate{Validator: validator}, nil
	})
}

func reactivateAction(ctx *cli.Context) error {
	return executeTx(ctx, func(*processor.Processor) (processor.Op, error) {
		validator, err := parseAddressFlag(ctx, validatorFlag)
		if err != nil {
			return nil, err
		}
		return &processor.Reactivate{Validator: validator}, nil
	})
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func advanceAction(ctx *cli.Context) error {
	return withDB(ctx, func(creator *state.Creator) error {
		p, err := processor.New(creator)
		if err != nil {
			return err
		}
		results := make([]*advanceResult, 0, ctx.Uint64(epochsFlag.Name))
		for range ctx.Uint64(epochsFlag.Name) {
			result, err := p.ProcessBlock(&processor.Block{EndOfEpoch: true})
			if err != nil {
				return err
			}
			out := &advanceResult{Epoch: result.Epoch, Updates: make([]*setUpdate, 0, len(result.Updates))}
			for _, u := range result.Updates {
				out.Updates = append(out.Updates, &setUpdate{u.Address, amountString(u.BondedStake), u.Removed})
			}
			results = append(results, out)
		}
		return writeJSON(ctx.App.Writer, results)
	})
}

func readParams(creator *state.Creator) (*pos.Params, error) {
	st, release := creator.NewReadOnly()
	defer release()

	if _, found, err := genesis.ReadID(st); err != nil {
		return nil, err
	} else if !found {
		return nil, errors.New("ledger not initialized, run init first")
	}
	params, err := staker.ReadParams(st)
	if err != nil {
		return nil, errors.Wrap(err, "read params")
	}
	return params, nil
}

func exportAction(ctx *cli.Context) error {
	return withDB(ctx, func(creator *state.Creator) error {
		params, err := readParams(creator)
		if err != nil {
			return err
		}
		dump, err := ledger.New(creator, params).Export()
		if err != nil {
			return err
		}

		out := ctx.App.Writer
		if path := ctx.String(outFlag.Name); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return writeJSON(out, dump)
	})
}
