// Command rustql is RustQL's CLI driver: it opens (or creates) a
// JSON-backed database and runs an interactive SQL shell over stdin,
// exactly the external, out-of-scope-for-the-core-spec collaborator
// spec.md §1 describes. Grounded on mjm918-tur/cmd/turdb/main.go's
// minimal flag-parsed entrypoint, enriched with an optional -config
// flag loading internal/config's viper-backed YAML (see SPEC_FULL.md's
// AMBIENT STACK / DOMAIN STACK sections), the same two-flag shape
// tuannm99-novasql/cmd/server/main.go uses for its own config flag.
package main

import (
	"flag"
	"log"
	"os"

	"rustql/internal/config"
	"rustql/pkg/cli"
	"rustql/pkg/session"
)

func main() {
	dbPath := flag.String("db", "", "path to the JSON database file (default db.json, or the config file's database.path)")
	configPath := flag.String("config", "", "path to an optional rustql.yaml config file")
	prompt := flag.String("prompt", "", "override the shell prompt")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("rustql: %v", err)
		}
		cfg = loaded
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *prompt != "" {
		cfg.Shell.Prompt = *prompt
	}

	sess, err := session.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("rustql: opening %s: %v", cfg.Database.Path, err)
	}

	sh := cli.New(sess, os.Stdin, os.Stdout, os.Stderr, cfg.Shell.Prompt)
	defer sh.Close()
	sh.Run()

	if sh.ErrOccurred() {
		if fi, ferr := os.Stdin.Stat(); ferr == nil && (fi.Mode()&os.ModeCharDevice) == 0 {
			os.Exit(1)
		}
	}
}
