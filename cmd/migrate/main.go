package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"ongon.org/internal/bootstrap"
	"ongon.org/internal/config"
	"ongon.org/internal/migrate"
	"ongon.org/internal/store/pg"
)

func main() {
	log.SetFlags(0)
	var (
		dsn     = flag.String("dsn", os.Getenv("ONGON_PG_DSN"), "PostgreSQL DSN")
		dir     = flag.String("migrations", "", "Directory with SQL migrations (defaults to the embedded set)")
		table   = flag.String("table", "", "Migrations bookkeeping table")
		timeout = flag.Duration("timeout", time.Minute, "Overall timeout")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or ONGON_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|status|pending|seed]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := pg.Open(config.Postgres{DSN: *dsn})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	opts := []migrate.Option{migrate.WithMigrationsTable(*table)}
	if *dir != "" {
		opts = append(opts, migrate.WithFS(os.DirFS(*dir), "."))
	}
	mgr := migrate.NewManager(store.DB(), opts...)

	switch flag.Arg(0) {
	case "up":
		var applied []string
		applied, err = mgr.Up(ctx)
		printAll("applied", applied)
	case "down":
		var name string
		name, err = mgr.Down(ctx)
		if err == nil && name != "" {
			fmt.Println("rolled back", name)
		}
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		printAll("", history)
	case "pending":
		var pending []string
		pending, err = mgr.Pending(ctx)
		printAll("pending", pending)
	case "seed":
		err = seed(ctx, store)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

func seed(ctx context.Context, store *pg.Store) error {
	seeder, err := bootstrap.NewSeeder(store, store)
	if err != nil {
		return err
	}
	report, err := seeder.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d rows (permissions=%d roles=%d grants=%d course_categories=%d job_categories=%d loan_products=%d crops=%d)\n",
		report.Total(), report.Permissions, report.Roles, report.Grants,
		report.CourseCategories, report.JobCategories, report.LoanProducts, report.Crops)
	return nil
}

func printAll(prefix string, items []string) {
	for _, item := range items {
		if prefix == "" {
			fmt.Println(item)
			continue
		}
		fmt.Println(prefix, item)
	}
}
