// Command mqtiny-agent connects to a broker and runs the agent modules:
// a heartbeat, a command responder and an optional message logger.
//
// Usage:
//
//	mqtiny-agent --config agent.yaml [--broker tcp://host:1883] [--client-id id]
//
// Lines read from standard input with --stdin are published to
// <prefix>/stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/gonzalop/mqtiny"
	"github.com/gonzalop/mqtiny/internal/agent"
	"github.com/gonzalop/mqtiny/internal/config"
	"github.com/gonzalop/mqtiny/modular"
	"github.com/gonzalop/mqtiny/transport"
)

const disconnectTimeout = 2 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "mqtiny-agent: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("mqtiny-agent", pflag.ExitOnError)
	config.RegisterFlags(fs)
	stdin := fs.Bool("stdin", false, "publish lines read from standard input to <prefix>/stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path, _ := fs.GetString(config.FlagConfig)
	envFile, _ := fs.GetString(config.FlagEnvFile)
	cfg, err := config.Load(path, fs, envFile)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)
	dialOpts, err := cfg.DialOptions()
	if err != nil {
		return err
	}

	hb := agent.NewHeartbeat(cfg.Agent.TopicPrefix, cfg.Agent.HeartbeatInterval, cfg.QoS(), nil)
	modules := []modular.Module{
		hb,
		agent.NewCommander(cfg.Agent.TopicPrefix, cfg.QoS(), nil),
	}
	if len(cfg.Agent.LogFilters) > 0 {
		modules = append(modules, agent.NewLogger(logger, cfg.Agent.LogFilters...))
	}

	client := mqtiny.NewClient(nil, append(cfg.ClientOptions(logger), hb.Will())...)
	rt := modular.NewRuntime(client, modules, cfg.RuntimeOptions(logger)...)

	logger.Info("starting agent",
		"broker", cfg.Broker.URL,
		"client_id", cfg.Broker.ClientID,
		"prefix", cfg.Agent.TopicPrefix,
		"modules", len(modules))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return serve(ctx, cfg, rt, dialOpts, logger)
	})
	if *stdin {
		g.Go(func() error {
			return relayStdin(ctx, rt.Handle(), cfg.Agent.TopicPrefix+"/stdin", cfg.QoS())
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("agent stopped")
	return nil
}

// serve dials the broker and runs the runtime, dialing again after
// cfg.Broker.ReconnectDelay whenever the connection fails. It returns nil
// once ctx is done.
func serve(ctx context.Context, cfg *config.Config, rt *modular.Runtime, dialOpts []transport.DialOption, logger *slog.Logger) error {
	client := rt.Client()
	for {
		conn, err := transport.Dial(ctx, cfg.Broker.URL, dialOpts...)
		if err == nil {
			if err = client.SetTransport(conn); err != nil {
				_ = conn.Close()
				return err
			}
			err = rt.Run(ctx)
			if ctx.Err() != nil {
				shutdown(client, logger)
				_ = conn.Close()
				return nil
			}
			if !mqtiny.IsConnectionError(err) {
				shutdown(client, logger)
				_ = conn.Close()
				return err
			}
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return nil
		}

		logger.Warn("connection failed, retrying", "error", err, "delay", cfg.Broker.ReconnectDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cfg.Broker.ReconnectDelay):
		}
	}
}

func shutdown(client *mqtiny.Client, logger *slog.Logger) {
	if !client.IsConnected() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Warn("disconnect failed", "error", err)
	}
}

// relayStdin publishes every line of standard input to topic through h.
func relayStdin(ctx context.Context, h *modular.Handle, topic string, qos mqtiny.QoS) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := h.Publish(ctx, topic, []byte(line), qos); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
		}
	}
}
