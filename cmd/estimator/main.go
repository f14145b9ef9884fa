// Estimator prices HVAC jobs and upgrade scenarios from the command line.
//
// Usage:
//
//	estimator init
//	estimator quote --file job.json [--save --title "Henderson furnace"]
//	estimator roi --category furnace --current-rating 80 --proposed-rating 96 --price 4275 --monthly-bill 250
//	estimator rebates --category ac --rating 16
//	estimator catalog [--category furnace]
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/Simplici0/hvacquote/internal/db"
	"github.com/Simplici0/hvacquote/internal/logging"
	"github.com/Simplici0/hvacquote/internal/migrations"
	"github.com/Simplici0/hvacquote/internal/pricing"
	"github.com/Simplici0/hvacquote/internal/seed"
	"github.com/Simplici0/hvacquote/internal/store"
)

var version = "dev"

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(stdout io.Writer) *cli.App {
	return &cli.App{
		Name:    "estimator",
		Usage:   "Price HVAC installs, rebates and upgrade payback",
		Version: version,
		Writer:  stdout,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Value:   "./hvac.db",
				Usage:   "Path to the SQLite database",
				EnvVars: []string{"DB_PATH"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},

		Before: func(c *cli.Context) error {
			logging.SetupWithLevel(logging.ParseLevel(c.String("log-level")))
			return nil
		},

		Commands: []*cli.Command{
			initCommand(),
			quoteCommand(),
			roiCommand(),
			rebatesCommand(),
			catalogCommand(),
		},
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create the schema and load the default catalog and rebate programs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "admin-email", EnvVars: []string{"ADMIN_EMAIL"}, Usage: "Admin user to create"},
			&cli.StringFlag{Name: "admin-password", EnvVars: []string{"ADMIN_PASSWORD"}, Usage: "Password for the admin user"},
		},
		Action: func(c *cli.Context) error {
			return withDatabase(c, func(ctx context.Context, database *sql.DB) error {
				stats, err := seed.Run(ctx, database, seed.Config{
					AdminEmail:    c.String("admin-email"),
					AdminPassword: c.String("admin-password"),
				})
				if err != nil {
					return err
				}
				slog.Info("database initialised", "path", c.String("db"), "inserts", stats.Inserts)
				return writeJSON(c, map[string]int{"inserts": stats.Inserts})
			})
		},
	}
}

// quoteFile is the JSON accepted by the quote command.
type quoteFile struct {
	pricing.QuoteRequest
	Title string `json:"title"`
	Notes string `json:"notes"`
}

func quoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "quote",
		Usage: "Build a quote from a JSON job file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the job JSON (- for stdin)",
				Required: true,
			},
			&cli.BoolFlag{Name: "save", Usage: "Store the quote in the database"},
			&cli.StringFlag{Name: "title", Usage: "Title for a saved quote (overrides the file)"},
		},
		Action: func(c *cli.Context) error {
			job, err := readQuoteFile(c.String("file"), c.App.Reader)
			if err != nil {
				return err
			}
			if title := c.String("title"); title != "" {
				job.Title = title
			}

			return withStore(c, func(ctx context.Context, s *store.Store, engine *pricing.Engine) error {
				quote, err := engine.BuildQuote(job.QuoteRequest)
				if err != nil {
					return userError(err)
				}
				if !c.Bool("save") {
					return writeJSON(c, quote)
				}

				urgency, _ := pricing.ParseUrgency(string(job.Urgency))
				saved, err := s.SaveQuote(ctx, quote, store.QuoteMeta{
					Title:      job.Title,
					Notes:      job.Notes,
					Complexity: job.Complexity,
					Urgency:    urgency,
				})
				if err != nil {
					return err
				}
				slog.Info("quote saved", "id", saved.ID)
				return writeJSON(c, saved)
			})
		},
	}
}

func readQuoteFile(path string, stdin io.Reader) (quoteFile, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return quoteFile{}, fmt.Errorf("open job file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var job quoteFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&job); err != nil {
		return quoteFile{}, fmt.Errorf("parse job file %s: %w", path, err)
	}
	return job, nil
}

func roiCommand() *cli.Command {
	return &cli.Command{
		Name:  "roi",
		Usage: "Estimate savings and payback for an equipment upgrade",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Value: string(pricing.CategoryFurnace), Usage: "Equipment category (furnace, ac)"},
			&cli.StringFlag{Name: "current-rating", Required: true, Usage: "Current AFUE % or SEER"},
			&cli.StringFlag{Name: "proposed-rating", Required: true, Usage: "Proposed AFUE % or SEER"},
			&cli.StringFlag{Name: "price", Required: true, Usage: "Installed price of the proposed equipment"},
			&cli.StringFlag{Name: "monthly-bill", Value: "0", Usage: "Average monthly energy bill"},
			&cli.StringFlag{Name: "home-size", Value: "0", Usage: "Conditioned floor area in sq ft, used when no bill is given"},
		},
		Action: func(c *cli.Context) error {
			category, err := pricing.ParseCategory(c.String("category"))
			if err != nil {
				return userError(err)
			}
			amounts, err := decimalFlags(c, "current-rating", "proposed-rating", "price", "monthly-bill", "home-size")
			if err != nil {
				return err
			}

			return withStore(c, func(ctx context.Context, _ *store.Store, engine *pricing.Engine) error {
				result, err := engine.ComputeROI(pricing.ROIRequest{
					Current:      pricing.EquipmentSnapshot{Category: category, EfficiencyRating: amounts["current-rating"]},
					Proposed:     pricing.EquipmentSnapshot{Category: category, EfficiencyRating: amounts["proposed-rating"], Price: amounts["price"]},
					MonthlyBill:  amounts["monthly-bill"],
					HomeSizeSqFt: amounts["home-size"],
				})
				if err != nil {
					return userError(err)
				}
				return writeJSON(c, result)
			})
		},
	}
}

func rebatesCommand() *cli.Command {
	return &cli.Command{
		Name:  "rebates",
		Usage: "List the rebate programs a piece of equipment qualifies for",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Required: true, Usage: "Equipment category (furnace, ac)"},
			&cli.StringFlag{Name: "rating", Required: true, Usage: "AFUE % or SEER of the equipment"},
		},
		Action: func(c *cli.Context) error {
			category, err := pricing.ParseCategory(c.String("category"))
			if err != nil {
				return userError(err)
			}
			amounts, err := decimalFlags(c, "rating")
			if err != nil {
				return err
			}

			return withStore(c, func(ctx context.Context, _ *store.Store, engine *pricing.Engine) error {
				programs, total := engine.ApplicableRebates(pricing.EquipmentSnapshot{
					Category:         category,
					EfficiencyRating: amounts["rating"],
				})
				return writeJSON(c, map[string]any{"programs": programs, "total": total})
			})
		},
	}
}

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Print the active catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Usage: "Only list one category"},
		},
		Action: func(c *cli.Context) error {
			return withStore(c, func(ctx context.Context, _ *store.Store, engine *pricing.Engine) error {
				catalog := engine.Catalog()
				if raw := c.String("category"); raw != "" {
					category, err := pricing.ParseCategory(raw)
					if err != nil {
						return userError(err)
					}
					return writeJSON(c, catalog.ItemsByCategory(category))
				}
				return writeJSON(c, catalog.Items())
			})
		},
	}
}

func withDatabase(c *cli.Context, fn func(context.Context, *sql.DB) error) error {
	ctx := c.Context
	database, err := db.Open(ctx, c.String("db"))
	if err != nil {
		return err
	}
	defer database.Close()

	if err := migrations.Up(ctx, database); err != nil {
		return err
	}
	return fn(ctx, database)
}

func withStore(c *cli.Context, fn func(context.Context, *store.Store, *pricing.Engine) error) error {
	return withDatabase(c, func(ctx context.Context, database *sql.DB) error {
		s := store.New(database)
		engine, err := s.LoadEngine(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, s, engine)
	})
}

func decimalFlags(c *cli.Context, names ...string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(names))
	for _, name := range names {
		raw := strings.TrimSpace(c.String(name))
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, cli.Exit(fmt.Sprintf("--%s: %q is not a number", name, raw), 2)
		}
		out[name] = v
	}
	return out, nil
}

// userError turns engine rejections into exit code 2 so scripts can tell bad
// input from failures.
func userError(err error) error {
	if errors.Is(err, pricing.ErrNotFound) || errors.Is(err, pricing.ErrValidation) || errors.Is(err, pricing.ErrInvalidInput) {
		return cli.Exit(err.Error(), 2)
	}
	return err
}

func writeJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
