package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"fsrtos/internal/board"
	"fsrtos/internal/config"
	"fsrtos/internal/job"
	"fsrtos/internal/kernel"
	"fsrtos/internal/observability"
	"fsrtos/internal/trace"
)

func main() {
	var (
		cfgPath string
		virtual bool
		rounds  int
		samples int
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file.")
	flag.BoolVar(&virtual, "virtual", false, "Use a virtual clock instead of real ticks.")
	flag.IntVar(&rounds, "rounds", 0, "Ping/pong exchanges per boot (0 = forever).")
	flag.IntVar(&samples, "samples", 0, "Sampler releases per boot (0 = forever).")
	flag.Parse()

	// Read the configuration
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	rec := trace.NewRecorder(log.Named("trace"), cfg.Trace.Ring)
	if cfg.Trace.CSV != "" {
		if err := rec.EnableCSV(cfg.Trace.CSV); err != nil {
			log.Fatal("csv trace", zap.Error(err))
		}
	}
	if cfg.Trace.Binary != "" {
		if err := rec.EnableBinary(cfg.Trace.Binary, cfg.Trace.Format); err != nil {
			log.Fatal("binary trace", zap.Error(err))
		}
	}
	defer rec.Close()

	app := job.DefaultApp()
	app.Rounds = rounds
	app.Samples = samples
	blinker := board.NewBlinker(log.Named("led"), time.Duration(cfg.Supervisor.BlinkMS)*time.Millisecond)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sup := &board.Supervisor{MaxRestarts: cfg.Supervisor.MaxRestarts, Log: log}
	err = sup.Run(ctx, func(ctx context.Context, b board.Boot) error {
		rec.SetBoot(b.ID)

		var clock kernel.Clock
		if virtual {
			clock = kernel.NewVirtualClock()
		} else {
			tc := kernel.NewTickClock(256)
			tc.Start(time.Duration(cfg.Kernel.TickMS) * time.Millisecond)
			defer tc.Stop()
			clock = tc
		}

		k := kernel.New(cfg.Kernel,
			kernel.WithLogger(log.Named("kernel")),
			kernel.WithClock(clock),
			kernel.WithSignaler(blinker),
			kernel.WithObserver(rec.Observe),
			kernel.WithHaltOnIdle(),
		)
		if _, err := k.CreateSystem(job.App(k, app, log.Named("app")), 0); err != nil {
			return err
		}
		return k.Run(ctx)
	})

	switch {
	case err == nil:
		log.Info("system halted")
	case errors.Is(err, context.Canceled):
		log.Info("interrupted")
	default:
		log.Error("system stopped", zap.Error(err))
		rec.Close()
		log.Sync()
		os.Exit(1)
	}
}
