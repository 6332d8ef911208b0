// Command edb_cli is an interactive inspector for edb page and log files.
// It opens a page file (and optionally a log file) and lets you hex-dump
// pages, append log records, and watch the LSN watermarks move.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"go.uber.org/zap"

	pagemanager "github.com/edb-io/edb/core/write_engine/page_manager"
	"github.com/edb-io/edb/core/write_engine/wal"
	"github.com/edb-io/edb/pkg/logger"
	"github.com/edb-io/edb/pkg/telemetry"
)

const defaultPageSize = 4096

func main() {
	dataPath := flag.String("data", "", "path to the page file to inspect")
	logPath := flag.String("log", "", "path to the log file to inspect (optional)")
	pageSize := flag.Int("page-size", defaultPageSize, "page size both files were written with")
	logLevel := flag.String("log-level", "warn", "logger level (debug, info, warn, error)")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address (optional)")
	flag.Parse()

	if *dataPath == "" && *logPath == "" {
		fmt.Fprintln(os.Stderr, "usage: edb_cli -data <pagefile> [-log <logfile>] [-page-size N]")
		os.Exit(2)
	}

	zlog, err := logger.New(logger.Config{Level: *logLevel, Format: "console", OutputFile: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	zlog = zlog.With(zap.String("session_id", uuid.NewString()))
	defer zlog.Sync()

	tel, telShutdown, err := telemetry.New(telemetry.Config{
		Enabled:     *metricsAddr != "",
		ServiceName: "edb_cli",
		ListenAddr:  *metricsAddr,
	})
	if err != nil {
		zlog.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer telShutdown(context.Background())

	var dataManager *pagemanager.PageManager
	if *dataPath != "" {
		dataManager, err = pagemanager.NewPageManager(*dataPath, *pageSize, zlog)
		if err != nil {
			zlog.Fatal("failed to open page file", zap.String("path", *dataPath), zap.Error(err))
		}
		defer dataManager.Close()
		if err := dataManager.RegisterMetrics(tel.Meter); err != nil {
			zlog.Warn("failed to register page manager metrics", zap.Error(err))
		}
	}

	var logManager *wal.LogManager
	if *logPath != "" {
		logStore, err := pagemanager.NewPageManager(*logPath, *pageSize, zlog)
		if err != nil {
			zlog.Fatal("failed to open log file", zap.String("path", *logPath), zap.Error(err))
		}
		defer logStore.Close()
		logManager, err = wal.NewLogManager(logStore, zlog)
		if err != nil {
			zlog.Fatal("failed to open log manager", zap.Error(err))
		}
		if err := logManager.RegisterMetrics(tel.Meter); err != nil {
			zlog.Warn("failed to register log manager metrics", zap.Error(err))
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "edb> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		zlog.Fatal("failed to initialize readline", zap.Error(err))
	}
	defer rl.Close()

	printHelp()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			zlog.Error("readline failed", zap.Error(err))
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "exit" || fields[0] == "quit" {
			return
		}
		runCommand(dataManager, logManager, fields)
	}
}

func runCommand(dataManager *pagemanager.PageManager, logManager *wal.LogManager, fields []string) {
	switch fields[0] {
	case "help":
		printHelp()

	case "read":
		if dataManager == nil {
			fmt.Println("no page file open (use -data)")
			return
		}
		if len(fields) != 2 {
			fmt.Println("usage: read <position>")
			return
		}
		position, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			fmt.Printf("bad position %q: %v\n", fields[1], err)
			return
		}
		page, err := dataManager.ReadPage(position)
		if err != nil {
			fmt.Printf("read failed: %v\n", err)
			return
		}
		fmt.Print(hex.Dump(page.Read()))

	case "npages":
		if dataManager == nil {
			fmt.Println("no page file open (use -data)")
			return
		}
		n, err := dataManager.NPages()
		if err != nil {
			fmt.Printf("npages failed: %v\n", err)
			return
		}
		fmt.Printf("%d pages\n", n)

	case "append":
		if logManager == nil {
			fmt.Println("no log file open (use -log)")
			return
		}
		if len(fields) < 2 {
			fmt.Println("usage: append <text>")
			return
		}
		record := strings.Join(fields[1:], " ")
		lsn, err := logManager.Append([]byte(record))
		if err != nil {
			fmt.Printf("append failed: %v\n", err)
			return
		}
		fmt.Printf("appended, lsn=%d\n", lsn)

	case "flush":
		if logManager == nil {
			fmt.Println("no log file open (use -log)")
			return
		}
		if err := logManager.Flush(); err != nil {
			fmt.Printf("flush failed: %v\n", err)
			return
		}
		fmt.Printf("flushed through lsn=%d\n", logManager.LatestFlushedLSN())

	case "flush-since":
		if logManager == nil {
			fmt.Println("no log file open (use -log)")
			return
		}
		if len(fields) != 2 {
			fmt.Println("usage: flush-since <lsn>")
			return
		}
		lsn, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			fmt.Printf("bad lsn %q: %v\n", fields[1], err)
			return
		}
		if err := logManager.FlushSinceLSN(wal.LSN(lsn)); err != nil {
			fmt.Printf("flush-since failed: %v\n", err)
			return
		}
		fmt.Printf("flushed through lsn=%d\n", logManager.LatestFlushedLSN())

	case "lsn":
		if logManager == nil {
			fmt.Println("no log file open (use -log)")
			return
		}
		fmt.Printf("latest=%d flushed=%d tail_position=%d\n",
			logManager.LatestLSN(), logManager.LatestFlushedLSN(), logManager.TailPosition())

	case "tail":
		if logManager == nil {
			fmt.Println("no log file open (use -log)")
			return
		}
		fmt.Print(hex.Dump(logManager.TailSnapshot()))

	default:
		fmt.Printf("unknown command %q (try help)\n", fields[0])
	}
}

func printHelp() {
	fmt.Println(`commands:
  read <position>     hex-dump a page from the page file
  npages              number of pages in the page file
  append <text>       append a record to the log
  flush               flush the log tail to disk
  flush-since <lsn>   flush only if <lsn> may not be durable yet
  lsn                 show LSN watermarks and tail position
  tail                hex-dump the in-memory log tail
  exit                quit`)
}
