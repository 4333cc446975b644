package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spacesim/internal/agent"
	"spacesim/internal/logging"
	"spacesim/internal/transport"
)

// agentCmd connects a built-in agent to a running match
func agentCmd(args []string) error {
	fs := flag.NewFlagSet("agent", flag.ExitOnError)
	link := fs.String("url", "", "agent URL printed by the server, token included")
	name := fs.String("agent", "hunter", "built-in agent to fly with")
	timeout := fs.Duration("timeout", 8*time.Millisecond, "local decision budget")
	level := fs.String("log", "info", "log level")
	fs.Parse(args)

	if *link == "" {
		fs.Usage()
		os.Exit(2)
	}
	u, err := url.Parse(*link)
	if err != nil {
		return err
	}
	token := u.Query().Get("token")
	if token == "" {
		return fmt.Errorf("url has no token")
	}
	u.RawQuery = ""

	a, err := agent.ByName(*name)
	if err != nil {
		return err
	}
	log := logging.New(*level, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ws, err := transport.Dial(ctx, u.String(), token)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.Host, err)
	}
	host := &transport.Host{Agent: a, Timeout: *timeout, Log: log}
	end, err := host.Run(ctx, ws)
	if err != nil {
		return err
	}
	log.Info().Int64("tick", end.Tick).Strs("winners", end.Winners).Str("ship", host.Ship().Ship).Msg("match over")
	return nil
}
