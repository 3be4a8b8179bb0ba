package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"levelbook/domain/orderbook"
	"levelbook/infra/config"
	"levelbook/infra/eventlog"
	"levelbook/infra/logging"
	"levelbook/infra/metrics"
	"levelbook/infra/sequence"
	"levelbook/service"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults to $LEVELBOOK_CONFIG)")
	importPath := flag.String("import", "", "JSON-lines delta file to apply and record")
	serve := flag.Bool("serve", false, "keep serving /metrics after the summary until interrupted")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *importPath, *serve); err != nil {
		logger.Error("levelbook failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger, importPath string, serve bool) error {
	// ---------------- Event log ----------------

	log, err := eventlog.Open(eventlog.Config{
		Dir:  cfg.EventLog.Dir,
		Sync: cfg.EventLog.Sync,
	})
	if err != nil {
		return err
	}
	defer log.Close()

	// ---------------- Builder ----------------

	m := metrics.New()
	builder := service.NewBookBuilder(
		service.NewOrderPool(),
		sequence.New(0),
		log,
		m,
		logger,
	)

	// ---------------- Replay ----------------

	if _, err := service.ReplayFromLog(log, builder); err != nil {
		return fmt.Errorf("event log replay: %w", err)
	}

	// ---------------- Import ----------------

	if importPath != "" {
		if err := importFile(importPath, builder, logger); err != nil {
			return err
		}
	}

	if err := builder.Check(); err != nil {
		return fmt.Errorf("level integrity: %w", err)
	}
	printSummary(builder)

	// ---------------- Metrics ----------------

	if cfg.Metrics.Addr == "" || !serve {
		return nil
	}
	return serveMetrics(cfg.Metrics.Addr, m, logger)
}

func importFile(path string, builder *service.BookBuilder, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	applied, rejected := 0, 0
	err = service.ReadJSONLines(f, func(d orderbook.Delta) error {
		if _, err := builder.Apply(d); err != nil {
			if errors.Is(err, orderbook.ErrOrderNotFound) || errors.Is(err, orderbook.ErrInvalidQuantity) {
				rejected++
				return nil
			}
			return err
		}
		applied++
		return nil
	})
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}

	logger.Info("import completed",
		zap.String("file", path),
		zap.Int("applied", applied),
		zap.Int("rejected", rejected),
	)
	return nil
}

func printSummary(builder *service.BookBuilder) {
	var levels []*orderbook.Level
	builder.Levels(func(l *orderbook.Level) bool {
		levels = append(levels, l)
		return true
	})
	sort.Slice(levels, func(i, j int) bool {
		if levels[i].Side() != levels[j].Side() {
			return levels[i].Side() < levels[j].Side()
		}
		return levels[i].Price().LessThan(levels[j].Price())
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIDE\tPRICE\tORDERS\tVOLUME")
	for _, l := range levels {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", l.Side(), l.Price(), l.OrderCount(), l.Volume())
	}
	_ = w.Flush()
}

func serveMetrics(addr string, m *metrics.Metrics, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
