package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"

	"spacesim/internal/agent"
	"spacesim/internal/config"
	"spacesim/internal/engine"
	"spacesim/internal/logging"
	"spacesim/internal/match"
	"spacesim/internal/protocol"
	"spacesim/internal/scenario"
)

type runSummary struct {
	Scenario   string         `json:"scenario"`
	Ticks      int64          `json:"ticks"`
	Ended      bool           `json:"ended"`
	Winners    []string       `json:"winners"`
	Explosions int            `json:"explosions"`
	Errors     int            `json:"agentErrors"`
	Survivors  map[string]int `json:"survivors"`
}

// unlimitedRunTicks bounds an offline run that has no tick limit
const unlimitedRunTicks = 1000

// simulate steps eng until the match ends. Without a tick limit a match
// whose ships never engage would never end, so it gives up after
// unlimitedRunTicks.
func simulate(ctx context.Context, eng *engine.Engine, limit int64) engine.State {
	if limit <= 0 {
		return eng.Step(ctx, unlimitedRunTicks)
	}
	final := eng.State()
	for !final.EndOfGame && ctx.Err() == nil {
		final = eng.Step(ctx, 100)
	}
	return final
}

// runCmd simulates a scenario as fast as possible. Remote ships idle.
func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file")
	scenarioPath := fs.String("scenario", "", "scenario file (required)")
	maxTicks := fs.Int64("max-ticks", 0, "tick cap, overrides match.maxTicks")
	out := fs.String("out", "", "write the final snapshot to this file")
	verbose := fs.Bool("v", false, "log agent output")
	fs.Parse(args)

	if *scenarioPath == "" {
		fs.Usage()
		os.Exit(2)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	log := logging.New(level, os.Stderr)

	sc, err := scenario.Load(*scenarioPath)
	if err != nil {
		return err
	}
	tables, err := loadTables(cfg.Blueprints.Path)
	if err != nil {
		return err
	}
	st, roster, err := sc.Build(tables)
	if err != nil {
		return err
	}
	agents := make(map[string]engine.Agent, len(roster))
	for _, a := range roster {
		if a.Agent == "" || a.Agent == match.RemoteAgentName {
			continue
		}
		ag, err := agent.ByName(a.Agent)
		if err != nil {
			return err
		}
		agents[a.ShipID] = ag
	}

	limit := cfg.Match.MaxTicks
	if *maxTicks > 0 {
		limit = *maxTicks
	}
	ender := sc.Ender()
	if limit > 0 {
		ender = engine.AnyOf(ender, engine.TimeLimit(limit))
	}

	summary := runSummary{Scenario: sc.Name, Survivors: make(map[string]int)}
	observer := engine.ObserverFunc(func(ev engine.Event) {
		switch ev.Kind {
		case engine.EventExplosion:
			summary.Explosions++
			log.Info().Int64("tick", ev.Tick).Str("ship", ev.ShipID).Str("bullet", ev.BulletID).Msg("explosion")
		case engine.EventAgentError:
			summary.Errors++
		case engine.EventAgentLog:
			log.Debug().Int64("tick", ev.Tick).Str("ship", ev.ShipID).Msg(strings.Join(ev.Lines, "; "))
		}
	})

	cfg.Engine.HistoryLimit = 1
	eng := engine.New(st, agents, ender,
		engine.WithConfig(cfg.Engine),
		engine.WithLogger(log.With().Str("scenario", sc.Name).Logger()),
		engine.WithObserver(observer),
	)
	defer eng.Close()

	final := simulate(context.Background(), eng, limit)

	summary.Ticks = final.TimeElapsed
	summary.Ended = final.EndOfGame
	summary.Winners = final.AliveTeams()
	for _, s := range final.Ships {
		if !s.Destroyed {
			summary.Survivors[s.Team]++
		}
	}

	if *out != "" {
		if err := protocol.WriteSnapshot(*out, protocol.NewSnapshot(sc.Name, final)); err != nil {
			return err
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
