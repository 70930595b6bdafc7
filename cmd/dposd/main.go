// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/dpos/api"
	"github.com/vechain/dpos/api/admin"
	"github.com/vechain/dpos/health"
	"github.com/vechain/dpos/log"
	"github.com/vechain/dpos/logdb"
	"github.com/vechain/dpos/lvldb"
	"github.com/vechain/dpos/metrics"
	"github.com/vechain/dpos/node"
)

var (
	version   string
	gitCommit string
	gitTag    string
	logger    = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "dposd",
		Usage:     "Delegated proof of stake staking node",
		Copyright: "2018 VeChain Foundation <https://vechain.org/>",
		Flags: []cli.Flag{
			genesisFlag,
			dataDirFlag,
			persistFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiLogsLimitFlag,
			adminAddrFlag,
			enableMetricsFlag,
			blockIntervalFlag,
			verbosityFlag,
			jsonLogsFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:  "simulate",
				Usage: "produce blocks in memory and print the resulting staking state",
				Flags: []cli.Flag{
					genesisFlag,
					blocksFlag,
					verbosityFlag,
					jsonLogsFlag,
				},
				Action: simulateAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	logLevel := initLogger(ctx)
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	gene := loadGenesis(ctx)

	var mainDB *lvldb.LevelDB
	var logDB *logdb.LogDB
	var instanceDir string

	if ctx.Bool(persistFlag.Name) {
		instanceDir = makeInstanceDir(ctx, gene)
		mainDB = openMainDB(instanceDir)
		logDB = openLogDB(instanceDir)
	} else {
		instanceDir = "Memory"
		mainDB = openMemMainDB()
		logDB = openMemLogDB()
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()
	defer func() { logger.Info("closing log database..."); logDB.Close() }()

	blockInterval := ctx.Duration(blockIntervalFlag.Name)
	nodeHealth := &health.Health{}
	n, err := node.New(mainDB, logDB, gene, node.Options{
		BlockInterval: blockInterval,
		Health:        nodeHealth,
	})
	if err != nil {
		return errors.Wrap(err, "initialize node")
	}

	apiHandler, apiCloser := api.New(n, logDB, api.Options{
		AllowedOrigins: ctx.String(apiCorsFlag.Name),
		LogsLimit:      ctx.Uint64(apiLogsLimitFlag.Name),
		EnableMetrics:  ctx.Bool(enableMetricsFlag.Name),
	})
	defer func() { logger.Info("closing subscriptions..."); apiCloser() }()

	apiSrv := listen(ctx.String(apiAddrFlag.Name), apiHandler)
	servers := []*server{apiSrv}

	adminURL := "disabled"
	if addr := ctx.String(adminAddrFlag.Name); addr != "" {
		adminSrv := listen(addr, admin.New(logLevel, nodeHealth, n, blockInterval))
		servers = append(servers, adminSrv)
		adminURL = adminSrv.url
	}

	printStartupMessage(gene, n, instanceDir, apiSrv.url, adminURL)

	group, groupCtx := errgroup.WithContext(handleExitSignal())
	group.Go(func() error {
		return n.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		for _, srv := range servers {
			logger.Info("stopping server...", "url", srv.url)
			if err := srv.Shutdown(context.Background()); err != nil {
				logger.Warn("failed to stop server", "err", err)
			}
		}
		return nil
	})
	for _, srv := range servers {
		group.Go(func() error {
			if err := srv.Serve(srv.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrapf(err, "serve %v", srv.url)
			}
			return nil
		})
	}
	return group.Wait()
}
