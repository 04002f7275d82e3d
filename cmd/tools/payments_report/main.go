package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"

	"github.com/senyabanana/tender-engine/internal/db"
	"github.com/senyabanana/tender-engine/internal/models"
	"github.com/senyabanana/tender-engine/internal/repository"
	"github.com/senyabanana/tender-engine/internal/router/config"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
)

func main() {
	configPath := flag.String("config", ".", "directory containing app.env")
	contractor := flag.String("contractor", "", "show only payments to this contractor")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	ctx := context.Background()
	pool, err := db.InitDb(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	payments, err := repository.NewPostgresTenderRepository(pool).GetPayments(ctx, *contractor)
	if err != nil {
		log.Fatal(err)
	}
	render(os.Stdout, payments)
}

// render печатает реестр платежей с итогом по каждому статусу.
func render(w io.Writer, payments []models.PaymentSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Tender", "Contractor", "Amount", "Status", "Reference", "Paid At"})

	totals := make(map[models.PaymentStatus]decimal.Decimal)
	for _, p := range payments {
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			log.Printf("Skipping tender %s: invalid amount %q", p.TenderID, p.Amount)
			continue
		}
		totals[p.Status] = totals[p.Status].Add(amount)

		paidAt := "-"
		if p.Date != nil {
			paidAt = p.Date.Format("2006-01-02 15:04")
		}
		t.AppendRow(table.Row{p.TenderTitle, p.ContractorID, amount.StringFixed(2), p.Status, p.SettlementReference, paidAt})
	}

	t.AppendSeparator()
	for _, status := range []models.PaymentStatus{models.PendingPayment, models.ProcessingPayment, models.CompletedPayment, models.FailedPayment} {
		if total, ok := totals[status]; ok {
			t.AppendRow(table.Row{"", "Total", total.StringFixed(2), status, "", ""})
		}
	}
	t.Render()
}
