package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Mnabil10/fasket-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestCommissionConfigsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_commission_configs.sql")

	checks := []string{
		"CREATE TYPE IF NOT EXISTS commission_scope_enum AS ENUM",
		"CREATE TYPE IF NOT EXISTS commission_mode_enum AS ENUM",
		"CREATE TYPE IF NOT EXISTS fee_recipient_enum AS ENUM",
		"CREATE TYPE IF NOT EXISTS discount_rule_enum AS ENUM",
		"CREATE TABLE IF NOT EXISTS commission_configs",
		"CHECK (commission_rate_bps IS NULL OR commission_rate_bps BETWEEN 0 AND 10000)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_commission_scope_tuple",
		"DROP TABLE IF EXISTS commission_configs",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestBalanceAndLedgerMigrationsContainGuards(t *testing.T) {
	balances := readMigration(t, "*_create_vendor_balances.sql")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS vendor_balances",
		"CHECK (available_cents >= 0)",
		"CHECK (pending_cents >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_vendor_balances_provider_id",
	} {
		if !strings.Contains(balances, sub) {
			t.Errorf("vendor_balances migration missing %q", sub)
		}
	}

	financials := readMigration(t, "*_create_order_financials.sql")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS order_financials",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_order_financials_order_id",
		"CHECK (vendor_net_cents >= 0)",
	} {
		if !strings.Contains(financials, sub) {
			t.Errorf("order_financials migration missing %q", sub)
		}
	}

	ledger := readMigration(t, "*_create_transaction_ledger.sql")
	for _, sub := range []string{
		"CREATE TYPE IF NOT EXISTS ledger_entry_type_enum AS ENUM",
		"CREATE TABLE IF NOT EXISTS transaction_ledger",
		"idx_transaction_ledger_provider_created",
	} {
		if !strings.Contains(ledger, sub) {
			t.Errorf("transaction_ledger migration missing %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
