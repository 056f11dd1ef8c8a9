package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mvarga/habitmail/internal/config"
	"github.com/mvarga/habitmail/internal/dedup"
	"github.com/mvarga/habitmail/internal/imap"
	"github.com/mvarga/habitmail/internal/ingest"
	"github.com/mvarga/habitmail/internal/load"
	"github.com/mvarga/habitmail/internal/notify"
	"github.com/mvarga/habitmail/internal/store"
)

func main() {
	watch := flag.Bool("watch", false, "keep running and re-ingest on mailbox updates (IMAP IDLE)")
	checkDB := flag.Bool("check-db", false, "print tables and columns, then exit")
	dropTable := flag.String("drop-table", "", "drop the named table, then exit")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.CloseConnection(pool)
	log.Printf("Successfully connected to database")

	if *checkDB {
		if err := runCheckDB(ctx, pool); err != nil {
			log.Fatalf("Failed to check database: %v", err)
		}
		return
	}

	if *dropTable != "" {
		if err := store.DropTable(ctx, pool, *dropTable); err != nil {
			log.Fatalf("Failed to drop table: %v", err)
		}
		log.Printf("Dropped table %s", *dropTable)
		return
	}

	session, err := imap.NewSession(cfg.IMAPServer, cfg.IMAPUsername, cfg.IMAPPassword, cfg.IMAPUseTLS)
	if err != nil {
		log.Fatalf("Failed to connect to mailbox: %v", err)
	}
	defer func() {
		if err := session.Logout(); err != nil {
			log.Printf("Failed to log out of mailbox: %v", err)
		}
	}()
	log.Printf("Successfully connected to mailbox %s", cfg.IMAPServer)

	runner := ingest.NewRunner(
		session,
		dedup.NewGate(cfg.DownloadDir),
		load.NewLoader(pool, cfg.Location()),
		notify.NewSMTPNotifier(cfg.SMTPServer, cfg.SMTPFrom, cfg.IMAPUsername, cfg.IMAPPassword, cfg.IMAPUseTLS),
	)

	if err := runPass(ctx, runner); err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	for *watch {
		log.Printf("Waiting for mailbox updates...")
		if err := session.WaitForUpdate(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Printf("Shutting down")
				return
			}
			log.Fatalf("Mailbox watch failed: %v", err)
		}
		if err := runPass(ctx, runner); err != nil {
			log.Fatalf("Ingestion failed: %v", err)
		}
	}
}

func runPass(ctx context.Context, runner *ingest.Runner) error {
	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf(
		"Pass complete: %d message(s), %d loaded, %d skipped, %d failed",
		summary.Messages, summary.Loaded, summary.Skipped, summary.Failed,
	)
	return nil
}

func runCheckDB(ctx context.Context, pool *pgxpool.Pool) error {
	tables, err := store.ListTables(ctx, pool)
	if err != nil {
		return err
	}

	fmt.Println("Tables in database:")
	for _, table := range tables {
		fmt.Printf("\n%s:\n", table)
		columns, err := store.DescribeTable(ctx, pool, table)
		if err != nil {
			return err
		}
		for _, col := range columns {
			fmt.Printf("  %s: %s\n", col.Name, col.DataType)
		}
	}

	return nil
}
