package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bsc-ssrg/hermes/hermes"
	"github.com/bsc-ssrg/hermes/cmn/nlog"
	"github.com/bsc-ssrg/hermes/examples"
	"github.com/bsc-ssrg/hermes/xport"
)

var (
	bindAddr  string
	debugAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the example RPC server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&bindAddr, "bind", "127.0.0.1:7777", "address to listen on")
	serveCmd.Flags().StringVar(&debugAddr, "debug-addr", "127.0.0.1:7778", "address for the /metrics, /debug/registry and /healthz HTTP surface")
}

func loadViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("HERMESD")
	v.AutomaticEnv()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			nlog.Warningf("hermesd: config file %q: %v", cfgFile, err)
		}
	}
	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := loadViper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracingShutdown, err := hermes.InitTracing(ctx, hermes.TracingConfig{
		Enabled:        v.GetBool("tracing.enabled"),
		OTLPEndpoint:   v.GetString("tracing.otlp_endpoint"),
		Insecure:       v.GetBool("tracing.insecure"),
		ServiceName:    "hermesd",
		ServiceVersion: Version,
		SampleRatio:    v.GetFloat64("tracing.sample_ratio"),
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() { _ = tracingShutdown(ctx) }()

	profilingShutdown, err := hermes.InitProfiling(hermes.ProfilingConfig{
		Enabled:        v.GetBool("profiling.enabled"),
		ServiceName:    "hermesd",
		ServiceVersion: Version,
		Endpoint:       v.GetString("profiling.endpoint"),
		ProfileTypes:   v.GetStringSlice("profiling.profile_types"),
	})
	if err != nil {
		return fmt.Errorf("profiling: %w", err)
	}
	defer func() { _ = profilingShutdown() }()

	if err := examples.Declare(); err != nil {
		return fmt.Errorf("declare request types: %w", err)
	}

	opts := hermes.DefaultOptions()
	opts.StatsOnTeardown = true
	if d := v.GetDuration("retry.per_attempt_timeout"); d > 0 {
		opts.RetryPolicy.PerAttemptTimeout = d
	}
	opts.RetryPolicy.MaxRetries = v.GetInt("retry.max_retries")
	if d := v.GetDuration("stats_log_interval"); d > 0 {
		opts.StatsLogInterval = d
	}

	srv, err := hermes.New(xport.BmiTCP, opts, bindAddr, true)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}

	shuttingDown := &atomic.Bool{}
	if err := registerHandlers(srv, shuttingDown); err != nil {
		return err
	}

	srv.Run()
	defer srv.Close()

	self, err := srv.SelfAddress()
	if err != nil {
		return fmt.Errorf("self address: %w", err)
	}
	nlog.Infof("hermesd: listening on %s", self.String())

	debug := hermes.NewDebugServer(srv)
	debugSrv := &http.Server{Addr: debugAddr, Handler: debug.Router()}
	go func() {
		if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nlog.Errorf("hermesd: debug server: %v", err)
		}
	}()
	defer debugSrv.Shutdown(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-sigCh:
			nlog.Infof("hermesd: shutdown signal received")
			return nil
		case <-ticker.C:
			if shuttingDown.Load() {
				nlog.Infof("hermesd: shutdown request (scenario S2) received")
				return nil
			}
		}
	}
}
