package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/senyabanana/tender-engine/internal/db"
	"github.com/senyabanana/tender-engine/internal/repository"
	"github.com/senyabanana/tender-engine/internal/router/config"
	"github.com/senyabanana/tender-engine/internal/seed"

	"github.com/jedib0t/go-pretty/v6/table"
)

func main() {
	fixturePath := flag.String("fixture", "fixtures/dev.yaml", "path to the YAML fixture")
	configPath := flag.String("config", ".", "directory containing app.env")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed dev tokens")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	file, err := os.Open(*fixturePath)
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	fixture, err := seed.Load(file)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	pool, err := db.InitDb(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	tokens, err := seed.Apply(ctx, fixture,
		repository.NewPostgresContractorRepository(pool),
		repository.NewPostgresTenderRepository(pool),
		[]byte(cfg.JWTSecret), *tokenTTL)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("seeded %d users and %d tenders", len(fixture.Users), len(fixture.Tenders))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Email", "Role", "Bearer token"})
	for _, token := range tokens {
		t.AppendRow(table.Row{token.Email, token.Role, token.Token})
	}
	t.Render()
}
