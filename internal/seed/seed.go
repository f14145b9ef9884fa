package seed

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

type catalogRow struct {
	id, name, category, matchKey string
	priceCents                   int64
	unit, size                   string
}

type laborRow struct {
	category, base, perUnit string
	// factors are simple, moderate, complex; nil leaves the category on the default table.
	factors []string
}

type rebateRow struct {
	name        string
	amountCents int64
	category    string
	minRating   string
	description string
}

var defaultCatalog = []catalogRow{
	{"furnace-40k-80", "40,000 BTU 80% AFUE Furnace", "furnace", "40000/80% AFUE", 185000, "each", "40000"},
	{"furnace-60k-80", "60,000 BTU 80% AFUE Furnace", "furnace", "60000/80% AFUE", 235000, "each", "60000"},
	{"furnace-60k-92", "60,000 BTU 92% AFUE Furnace", "furnace", "60000/92% AFUE", 315000, "each", "60000"},
	{"furnace-60k-96", "60,000 BTU 96% AFUE Furnace", "furnace", "60000/96% AFUE", 375000, "each", "60000"},
	{"furnace-80k-92", "80,000 BTU 92% AFUE Furnace", "furnace", "80000/92% AFUE", 355000, "each", "80000"},
	{"furnace-80k-96", "80,000 BTU 96% AFUE Furnace", "furnace", "80000/96% AFUE", 427500, "each", "80000"},
	{"furnace-100k-96", "100,000 BTU 96% AFUE Furnace", "furnace", "100000/96% AFUE", 495000, "each", "100000"},
	{"ac-2t-14", "2 Ton 14 SEER Air Conditioner", "ac", "2/14 SEER", 265000, "each", "2"},
	{"ac-25t-14", "2.5 Ton 14 SEER Air Conditioner", "ac", "2.5/14 SEER", 299000, "each", "2.5"},
	{"ac-3t-16", "3 Ton 16 SEER Air Conditioner", "ac", "3/16 SEER", 389000, "each", "3"},
	{"ac-3t-18", "3 Ton 18 SEER Air Conditioner", "ac", "3/18 SEER", 460000, "each", "3"},
	{"ac-4t-16", "4 Ton 16 SEER Air Conditioner", "ac", "4/16 SEER", 445000, "each", "4"},
	{"duct-6", "6\" Round Duct", "material", "DUCT-6", 425, "linear-foot", "0"},
	{"duct-8", "8\" Round Duct", "material", "DUCT-8", 575, "linear-foot", "0"},
	{"filter-merv11", "MERV 11 Filter", "material", "FILTER-MERV11", 2499, "each", "0"},
	{"lineset-25", "25 ft Refrigerant Line Set", "material", "LINESET-25", 18900, "each", "0"},
	{"ac-pad", "Condenser Pad", "material", "AC-PAD", 6500, "each", "0"},
	{"elbow-6", "6\" Adjustable Elbow", "fitting", "ELBOW-6", 799, "each", "0"},
	{"elbow-8", "8\" Adjustable Elbow", "fitting", "ELBOW-8", 949, "each", "0"},
	{"takeoff-6", "6\" Start Collar Takeoff", "fitting", "TAKEOFF-6", 650, "each", "0"},
	{"register-4x10", "4x10 Floor Register", "fitting", "REGISTER-4X10", 1200, "each", "0"},
	{"thermostat-install", "Thermostat Installation", "labor", "THERMOSTAT", 14500, "each", "0"},
	{"gas-line", "Gas Line Connection", "labor", "GAS-LINE", 35000, "each", "0"},
	{"permit", "Permit Filing & Inspection", "labor", "PERMIT", 12000, "each", "0"},
}

var defaultLaborRules = []laborRow{
	{category: "furnace", base: "800", perUnit: "0.008"},
	{category: "ac", base: "950", perUnit: "275", factors: []string{"1.0", "1.2", "1.5"}},
	{category: "labor", base: "0", perUnit: "12.50"},
}

var defaultRebates = []rebateRow{
	{"High-Efficiency Furnace Rebate", 75000, "furnace", "95", "Furnaces rated 95% AFUE or better"},
	{"Efficient Furnace Rebate", 25000, "furnace", "90", "Furnaces rated 90% AFUE or better"},
	{"Cooling Efficiency Rebate", 40000, "ac", "16", "Air conditioners rated 16 SEER or better"},
	{"Premium Cooling Rebate", 30000, "ac", "18", "Air conditioners rated 18 SEER or better"},
}

var complexityLevels = []string{"simple", "moderate", "complex"}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	stats := Stats{}

	steps := []func(context.Context, *sql.Tx, *Stats) error{
		func(ctx context.Context, tx *sql.Tx, stats *Stats) error {
			return seedAdmin(ctx, tx, cfg.AdminEmail, cfg.AdminPassword, stats)
		},
		ensureCatalog,
		ensureLaborRules,
		ensureRebates,
	}
	for _, step := range steps {
		if err := step(ctx, tx, &stats); err != nil {
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

// HashPassword returns a bcrypt hash suitable for the users table.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func seedAdmin(ctx context.Context, tx *sql.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, email).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, hash); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureCatalog(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	for i, row := range defaultCatalog {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_items (id, display_name, category, match_key, unit_price_cents, unit, size, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, row.id, row.name, row.category, row.matchKey, row.priceCents, row.unit, row.size, i)
		if err != nil {
			return fmt.Errorf("insert catalog item %s: %w", row.id, err)
		}
		if err := countInserted(res, stats); err != nil {
			return err
		}
	}
	return nil
}

func ensureLaborRules(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	for _, row := range defaultLaborRules {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO labor_rules (category, base_install_cost, per_unit_rate)
			VALUES (?, ?, ?)
			ON CONFLICT(category) DO NOTHING
		`, row.category, row.base, row.perUnit)
		if err != nil {
			return fmt.Errorf("insert labor rule %s: %w", row.category, err)
		}
		if err := countInserted(res, stats); err != nil {
			return err
		}

		for i, factor := range row.factors {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO labor_complexity_factors (category, level, factor)
				VALUES (?, ?, ?)
				ON CONFLICT(category, level) DO NOTHING
			`, row.category, complexityLevels[i], factor)
			if err != nil {
				return fmt.Errorf("insert %s complexity factor for %s: %w", complexityLevels[i], row.category, err)
			}
			if err := countInserted(res, stats); err != nil {
				return err
			}
		}
	}
	return nil
}

func ensureRebates(ctx context.Context, tx *sql.Tx, stats *Stats) error {
	for i, row := range defaultRebates {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO rebate_programs (name, amount_cents, category, min_efficiency, description, sort_order)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(name) DO NOTHING
		`, row.name, row.amountCents, row.category, row.minRating, row.description, i)
		if err != nil {
			return fmt.Errorf("insert rebate program %q: %w", row.name, err)
		}
		if err := countInserted(res, stats); err != nil {
			return err
		}
	}
	return nil
}

func countInserted(res sql.Result, stats *Stats) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read seed rows affected: %w", err)
	}
	stats.Inserts += int(n)
	return nil
}
