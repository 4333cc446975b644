package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"spacesim/internal/auth"
	"spacesim/internal/config"
	"spacesim/internal/logging"
	"spacesim/internal/store"
)

// tokenCmd signs an agent URL with the server's secret
func tokenCmd(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file")
	matchID := fs.String("match", "", "match id (required)")
	ship := fs.String("ship", "", "ship id (required)")
	qr := fs.String("qr", "", "also write a pairing QR code PNG to this file")
	fs.Parse(args)

	if *matchID == "" || *ship == "" {
		fs.Usage()
		os.Exit(2)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, os.Stderr)

	var db *store.DB
	if cfg.Auth.Secret == "" {
		// the secret lives in the server's database
		db, err = store.Open(cfg.DB.Path)
		if err != nil {
			return err
		}
		defer db.Close()
	}
	a, err := auth.New(db, cfg.Auth.Secret, log)
	if err != nil {
		return err
	}
	token, err := a.IssueShipToken(*matchID, *ship, cfg.Auth.ShipTokenTTL)
	if err != nil {
		return err
	}
	link, err := auth.AgentURL(cfg.HTTP.PublicURL, token)
	if err != nil {
		return err
	}
	fmt.Println(link)

	if *qr != "" {
		png, err := auth.PairingQR(link, 0)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*qr, png, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s (%s)\n", *qr, humanize.Bytes(uint64(len(png))))
	}
	return nil
}

// classesCmd prints the ship catalog
func classesCmd(args []string) error {
	fs := flag.NewFlagSet("classes", flag.ExitOnError)
	overrides := fs.String("blueprints", "", "TOML blueprint overrides")
	fs.Parse(args)

	tables, err := loadTables(*overrides)
	if err != nil {
		return err
	}
	classes := tables.ShipClasses()
	sort.Slice(classes, func(i, j int) bool {
		pi, _ := tables.Price(classes[i])
		pj, _ := tables.Price(classes[j])
		return pi < pj
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CLASS\tPRICE\tSIZE\tACCEL\tTURN\tDETECT\tSTEALTH\tWEAPONS")
	for _, class := range classes {
		bp, err := tables.Ship(class)
		if err != nil {
			return err
		}
		weapons := ""
		for i, l := range bp.Weapons {
			if i > 0 {
				weapons += ", "
			}
			weapons += fmt.Sprintf("%s x%d", l.Bullet, l.Ammo)
		}
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.3f\t%.3f\t%.0f\t%v\t%s\n", class, humanize.Comma(int64(bp.Price)),
			bp.Stats.Size, bp.Stats.Acceleration, bp.Stats.Turn, bp.Stats.Detection, bp.Stats.Stealth, weapons)
	}
	return w.Flush()
}
