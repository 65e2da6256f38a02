package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	dnssim "github.com/cznic-dnsjit/dnssim-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	logLevel uint32
	version  bool
}

func main() {
	var opt options
	cmd := &cobra.Command{
		Use:   "dnssim-replay <config>",
		Short: "DNS traffic simulator",
		Long: `DNS traffic simulator.

Replays a stream of pre-captured DNS queries against a target resolver
over UDP or DNS-over-TCP, measuring per-request latency and response
code distribution. Each distinct source IP in the input is replayed as
an independent client, so the target sees realistic connection fan-out
instead of a single sender. A query lost over UDP is never retransmitted.
`,
		Example: `  dnssim-replay config.toml`,
		Args:    cobra.MinimumNArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return start(opt, args)
		},
		SilenceUsage: true,
	}

	cmd.Flags().Uint32VarP(&opt.logLevel, "log-level", "l", 4, "log level; 0=None .. 6=Trace")
	cmd.Flags().BoolVarP(&opt.version, "version", "v", false, "Prints code version string")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func start(opt options, args []string) error {
	if opt.version {
		printVersion()
		return nil
	}
	if len(args) < 1 {
		return fmt.Errorf("not enough arguments")
	}
	if opt.logLevel > 6 {
		return fmt.Errorf("invalid log level: %d", opt.logLevel)
	}
	dnssim.Log.SetLevel(logrus.Level(opt.logLevel))

	cfg, err := loadConfig(args...)
	if err != nil {
		return err
	}

	e := dnssim.New(cfg.MaxClients)

	transport := dnssim.TransportUDP
	if cfg.Transport == "tcp" {
		transport = dnssim.TransportTCP
	}
	if err := e.SetTransport(transport); err != nil {
		return err
	}
	if cfg.TimeoutMs > 0 {
		e.SetTimeoutMs(cfg.TimeoutMs)
	}
	if cfg.IdleTimeoutMs > 0 {
		e.SetIdleTimeoutMs(cfg.IdleTimeoutMs)
	}
	if err := e.SetTarget(cfg.Target.Host, cfg.Target.Port); err != nil {
		return err
	}
	for _, s := range cfg.Sources {
		if err := e.AddSource(s); err != nil {
			return fmt.Errorf("source %q: %w", s, err)
		}
	}

	var adm *adminServer
	if cfg.Admin.Address != "" {
		adm = newAdminServer(cfg.Admin.Address, e)
		adm.start()
		defer adm.stop()
	}

	in := io.Reader(os.Stdin)
	if cfg.Input != "" && cfg.Input != "-" {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	reader := newIngestReader(in)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

readLoop:
	for {
		select {
		case <-sigCh:
			break readLoop
		default:
		}

		obj, err := reader.next()
		if err == io.EOF {
			break readLoop
		}
		if err != nil {
			dnssim.Log.WithError(err).Warn("dnssim-replay: skipping malformed ingest record")
			continue
		}
		e.Receive(obj)
		e.RunNowait()
	}

	// Drain whatever is still in flight: every timer and socket callback
	// keeps posting events onto the loop in the background; RunNowait just
	// needs to be called again each time one lands.
	for e.RunNowait() > 0 {
		time.Sleep(10 * time.Millisecond)
	}

	snap := e.StatsSum()
	fmt.Printf("requests=%d answers=%d dropped=%d\n", snap.Requests, snap.Answers, e.Dropped())
	return nil
}

func printVersion() {
	fmt.Println("dnssim-replay (dev build)")
}
