// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/dpos/balance"
	"github.com/vechain/dpos/node"
	"github.com/vechain/dpos/staker"
	"github.com/vechain/dpos/thor"
)

func simulateAction(ctx *cli.Context) error {
	initLogger(ctx)
	gene := loadGenesis(ctx)

	blocks := ctx.Int(blocksFlag.Name)
	if blocks <= 0 {
		return errors.Errorf("-%s must be positive", blocksFlag.Name)
	}

	mainDB := openMemMainDB()
	defer mainDB.Close()
	logDB := openMemLogDB()
	defer logDB.Close()

	n, err := node.New(mainDB, logDB, gene, node.Options{BlockInterval: time.Second})
	if err != nil {
		return errors.Wrap(err, "initialize node")
	}

	fmt.Printf(">> Simulating %v blocks on %v <<\n", blocks, gene.Name)
	bar := pb.New(blocks).
		SetMaxWidth(90).
		Start()
	for range blocks {
		if err := n.ProduceBlocks(1); err != nil {
			bar.NotPrint = true
			return err
		}
		bar.Increment()
	}
	bar.Finish()

	return printState(n)
}

func printState(n *node.Node) error {
	status, err := n.Status()
	if err != nil {
		return err
	}
	fmt.Printf("\nBest block #%v, epoch %v, %v validator set updates\n\n", status.BestBlock, status.Epoch, status.SetUpdates)

	elected := make(map[thor.Address]bool, len(status.Elected))
	for _, v := range status.Elected {
		elected[v] = true
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VALIDATOR\tELECTED\tSTAKE\tBLOCKS\tFREE\tISSUANCE SHARE")
	err = n.View(func(s *staker.Staker, l *balance.Ledger) error {
		stakes, err := s.Stakes()
		if err != nil {
			return err
		}
		counts, err := s.BlockCounts()
		if err != nil {
			return err
		}
		total, err := l.TotalIssuance()
		if err != nil {
			return err
		}
		for _, st := range stakes {
			free, err := l.Balance(st.Address)
			if err != nil {
				return err
			}
			share := "-"
			if !total.IsZero() {
				share = fmt.Sprintf("%.2f%%", 100*free.Float64()/total.Float64())
			}
			fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n", st.Address, elected[st.Address], st.Amount, counts[st.Address], free, share)
		}
		fmt.Fprintf(w, "\nTOTAL ISSUANCE\t\t%v\n", total)
		return nil
	})
	if err != nil {
		return err
	}
	return w.Flush()
}
