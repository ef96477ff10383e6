package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickpipe/internal/og"
	"tickpipe/internal/ops"
	"tickpipe/internal/transport"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("gateway: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/pipeline.yaml", "Path to YAML config")
	network := flag.String("network", "", "tcp or unix (default: gateway.network from config)")
	addr := flag.String("addr", "", "Listen address or socket path (default: gateway.addr from config)")
	flag.Parse()

	_ = ops.LoadEnv()
	loaded, err := ops.Load(*configPath)
	if err != nil {
		return errors.Wrap(err, "config")
	}
	gc := loaded.Pipeline.Gateway
	if v := strings.TrimSpace(*network); v != "" {
		gc.Network = v
	}
	if v := strings.TrimSpace(*addr); v != "" {
		gc.Addr = v
	}
	if gc.Network == "" {
		gc.Network = "tcp"
	}

	ln, err := transport.Listen(gc.Network, gc.Addr)
	if err != nil {
		return err
	}

	gw := og.NewGateway(gc.Local, loaded.Registry)
	defer gw.Close()

	ctx, cancel := ops.ShutdownContext(context.Background())
	defer cancel()

	logs.Infof("gateway: listening on %s %s (ack delay %s)", gc.Network, ln.Addr(), gc.Local.AckDelay)
	if err := og.NewServer(gw).Serve(ctx, ln); err != nil {
		return err
	}
	logs.Info("gateway: stopped")
	return nil
}
