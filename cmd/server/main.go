package main

import (
	"log"
	"net/http"

	"github.com/tdonkor/payterm/internal/api"
	"github.com/tdonkor/payterm/internal/audit"
	"github.com/tdonkor/payterm/internal/config"
	"github.com/tdonkor/payterm/internal/domain"
	"github.com/tdonkor/payterm/internal/payment"
	"github.com/tdonkor/payterm/internal/supervisor"
	"github.com/tdonkor/payterm/internal/terminal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Initializing audit journal at %s", cfg.AuditDBPath)
	db, err := audit.InitDB(cfg.AuditDBPath)
	if err != nil {
		log.Fatalf("Failed to init audit journal: %v", err)
	}
	defer db.Close()
	journal := audit.NewSQLiteStore(db)

	sup := supervisor.New(supervisor.Config{
		ExecutablePath: cfg.DriverPath,
		ProcessName:    cfg.DriverProcessName,
		Endpoint:       cfg.DriverEndpoint,
		ReadyTimeout:   cfg.ReadyTimeout,
		PollInterval:   cfg.PollInterval,
		Timeouts: terminal.Timeouts{
			Dial: cfg.DialTimeout,
			Call: cfg.CallTimeout,
		},
	})

	engine := payment.NewEngine(sup, journal, domain.RuntimeConfiguration{
		Address:           cfg.TerminalAddress,
		POSNumber:         cfg.POSNumber,
		ForceOnline:       cfg.ForceOnline,
		RecordDir:         cfg.RecordDir,
		PendingTicketPath: cfg.PendingTicketPath,
	})

	router := api.NewRouter(engine, sup, journal)

	log.Printf("Payterm unattended payment peripheral")
	log.Printf("Driver: %s (endpoint %s)", cfg.DriverPath, cfg.DriverEndpoint)
	log.Printf("Listening on http://localhost:%s", cfg.Port)
	log.Printf("")
	log.Printf("Endpoints:")
	log.Printf("  POST   /api/v1/terminal/init")
	log.Printf("  GET    /api/v1/terminal/test")
	log.Printf("  POST   /api/v1/terminal/pay")
	log.Printf("  POST   /api/v1/terminal/unload")
	log.Printf("  PUT    /api/v1/terminal/settings")
	log.Printf("  GET    /api/v1/terminal/settings/schema")
	log.Printf("  GET    /api/v1/transactions")
	log.Printf("  GET    /metrics")

	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
