// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/dpos/genesis"
	"github.com/vechain/dpos/log"
	"github.com/vechain/dpos/logdb"
	"github.com/vechain/dpos/lvldb"
	"github.com/vechain/dpos/node"
	"github.com/vechain/dpos/thor"
)

func fatal(args ...any) {
	var w io.Writer
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		} else {
			w = io.MultiWriter(os.Stdout, os.Stderr)
		}
	}
	fmt.Fprint(w, "Fatal: ")
	fmt.Fprintln(w, args...)
	os.Exit(1)
}

// verbosity levels, lowest first
var verbosityLevels = []slog.Level{
	log.LevelCrit,
	log.LevelError,
	log.LevelWarn,
	log.LevelInfo,
	log.LevelDebug,
	log.LevelTrace,
}

func initLogger(ctx *cli.Context) *slog.LevelVar {
	verbosity := ctx.Uint64(verbosityFlag.Name)
	if verbosity >= uint64(len(verbosityLevels)) {
		verbosity = uint64(len(verbosityLevels) - 1)
	}
	logLevel := new(slog.LevelVar)
	logLevel.Set(verbosityLevels[verbosity])

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandler(os.Stdout)
	} else {
		useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
		handler = log.TerminalHandler(os.Stderr, useColor)
	}
	log.SetDefault(log.WithLevel(handler, logLevel))
	return logLevel
}

func loadGenesis(ctx *cli.Context) *genesis.Genesis {
	path := ctx.String(genesisFlag.Name)
	if path == "" {
		return genesis.NewDevnet()
	}
	gene, err := genesis.Load(path)
	if err != nil {
		fatal(fmt.Sprintf("load genesis file [%v]: %v", path, err))
	}
	return gene
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

func defaultDataDir() string {
	if home := homeDir(); home != "" {
		return filepath.Join(home, ".dpos")
	}
	return ""
}

func makeDataDir(ctx *cli.Context) string {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		fatal(fmt.Sprintf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name))
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		fatal(fmt.Sprintf("create data dir [%v]: %v", dataDir, err))
	}
	return dataDir
}

// makeInstanceDir returns a directory unique to the genesis, so different
// networks never share databases.
func makeInstanceDir(ctx *cli.Context, gene *genesis.Genesis) string {
	dataDir := makeDataDir(ctx)

	data, err := gene.Encode()
	if err != nil {
		fatal(fmt.Sprintf("encode genesis: %v", err))
	}
	id := thor.Blake2b(data)
	instanceDir := filepath.Join(dataDir, fmt.Sprintf("instance-%x", id.Bytes()[24:]))
	if err := os.MkdirAll(instanceDir, 0700); err != nil {
		fatal(fmt.Sprintf("create instance dir [%v]: %v", instanceDir, err))
	}
	return instanceDir
}

func openMainDB(dataDir string) *lvldb.LevelDB {
	dir := filepath.Join(dataDir, "main.db")
	db, err := lvldb.New(dir, lvldb.Options{SyncWrites: true})
	if err != nil {
		fatal(fmt.Sprintf("open main database [%v]: %v", dir, err))
	}
	return db
}

func openLogDB(dataDir string) *logdb.LogDB {
	dir := filepath.Join(dataDir, "logs.db")
	db, err := logdb.New(dir)
	if err != nil {
		fatal(fmt.Sprintf("open log database [%v]: %v", dir, err))
	}
	return db
}

func openMemMainDB() *lvldb.LevelDB {
	db, err := lvldb.NewMem()
	if err != nil {
		fatal(fmt.Sprintf("open main database: %v", err))
	}
	return db
}

func openMemLogDB() *logdb.LogDB {
	db, err := logdb.NewMem()
	if err != nil {
		fatal(fmt.Sprintf("open log database: %v", err))
	}
	return db
}

type server struct {
	*http.Server
	listener net.Listener
	url      string
}

func listen(addr string, handler http.Handler) *server {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		fatal(fmt.Sprintf("listen addr [%v]: %v", addr, err))
	}
	return &server{
		Server:   &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second},
		listener: listener,
		url:      "http://" + listener.Addr().String() + "/",
	}
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func printStartupMessage(gene *genesis.Genesis, n *node.Node, instanceDir, apiURL, adminURL string) {
	status, err := n.Status()
	if err != nil {
		fatal(fmt.Sprintf("read node status: %v", err))
	}
	fmt.Printf(`Starting %v
    Network      [ %v ]
    Best block   [ #%v epoch %v ]
    Validators   [ %v registered, %v elected ]
    Instance dir [ %v ]
    API portal   [ %v ]
    Admin portal [ %v ]
`,
		fullVersion(),
		gene.Name,
		status.BestBlock, status.Epoch,
		status.Validators, len(status.Elected),
		instanceDir,
		apiURL,
		adminURL)
}
