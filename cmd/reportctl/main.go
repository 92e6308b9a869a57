package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/andresuchdata/erp-reports/backend-go/internal/config"
	"github.com/andresuchdata/erp-reports/backend-go/internal/repository/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type contextKey string

const dbKey contextKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string (defaults to the DB_* settings)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func sessionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "token",
			Usage:    "Backend access token",
			Required: true,
			EnvVars:  []string{"ERP_ACCESS_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "division",
			Usage:   "Division id; 1 selects every division",
			EnvVars: []string{"ERP_DIVISION_ID"},
		},
	}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "from", Usage: "From date (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "to", Usage: "To date (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "entity", Usage: "Customer or warehouse id"},
		&cli.StringFlag{Name: "search", Usage: "Free text search"},
		&cli.IntFlag{Name: "page", Value: 1, Usage: "Page to show"},
		&cli.IntFlag{Name: "per-page", Usage: "Rows per page (defaults to REPORT_DEFAULT_PER_PAGE)"},
	}
}

func initDB(c *cli.Context) error {
	dsn := c.String("db-url")
	if dsn == "" {
		dsn = postgres.DSN(&config.Load().Database)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "reportctl",
		Usage: "List and export ERP reports from the command line",
		Commands: []*cli.Command{
			{
				Name:   "catalog",
				Usage:  "List the available reports",
				Action: runCatalog,
			},
			{
				Name:      "list",
				Usage:     "Show one page of a report",
				ArgsUsage: "<report>",
				Flags: append(append(sessionFlags(), filterFlags()...),
					&cli.BoolFlag{Name: "json", Usage: "Print the raw JSON response"},
				),
				Action: runList,
			},
			{
				Name:      "export",
				Usage:     "Export a report to PDF, XLSX or CSV",
				ArgsUsage: "<report>",
				Flags: append(append(sessionFlags(), filterFlags()...),
					&cli.StringFlag{Name: "format", Value: "xlsx", Usage: "pdf, xlsx or csv"},
					&cli.StringFlag{Name: "scope", Value: "all", Usage: "page or all"},
					&cli.StringFlag{Name: "out", Usage: "Output path (defaults to the generated file name)"},
				),
				Action: runExport,
			},
			{
				Name:  "exports",
				Usage: "Show recent export runs",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{Name: "report", Usage: "Only runs of this report"},
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Before: initDB,
				After:  closeDB,
				Action: runRecentExports,
			},
			{
				Name:   "migrate",
				Usage:  "Create the export run log tables",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					db, ok := c.Context.Value(dbKey).(*sql.DB)
					if !ok {
						return fmt.Errorf("database connection not initialized")
					}
					if err := postgres.Migrate(c.Context, db); err != nil {
						return err
					}
					log.Println("Migrations applied")
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
