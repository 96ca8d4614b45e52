package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/tradelog_backend/config"
	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"github.com/shopspring/decimal"
)

// ledger-check reports lots whose stored quantity_remaining differs from
// quantity_acquired minus the active consumption, and lots that are
// oversold. It only reads; fix drift with ./cmd/lot-reconcile.
//
// Example:
//
//	go run ./cmd/ledger-check/ -owner=12
func main() {
	ownerID := flag.Int("owner", 0, "Optional: restrict to one owner (user) id")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	ctx := utils.SetSkipOwnerScopeInContext(context.Background(), true)

	type row struct {
		ID                int
		OwnerId           int
		QuantityAcquired  decimal.Decimal
		QuantityRemaining decimal.Decimal
		Consumed          decimal.Decimal
	}
	var rows []row
	q := db.WithContext(ctx).Raw(`
		SELECT l.id, l.owner_id, l.quantity_acquired, l.quantity_remaining,
		       COALESCE(SUM(c.quantity_consumed), 0) AS consumed
		FROM acquisition_lots l
		LEFT JOIN consumption_records c ON c.lot_id = l.id AND c.deleted_at IS NULL
		WHERE l.deleted_at IS NULL AND (? = 0 OR l.owner_id = ?)
		GROUP BY l.id, l.owner_id, l.quantity_acquired, l.quantity_remaining
		ORDER BY l.owner_id, l.id
	`, *ownerID, *ownerID)
	if err := q.Scan(&rows).Error; err != nil {
		fmt.Fprintf(os.Stderr, "query lots: %v\n", err)
		os.Exit(1)
	}

	drifted, oversold := 0, 0
	for _, r := range rows {
		expected := r.QuantityAcquired.Sub(r.Consumed)
		if !expected.Equal(r.QuantityRemaining) {
			drifted++
			fmt.Printf("DRIFT owner=%d lot=%d stored=%s expected=%s\n", r.OwnerId, r.ID, r.QuantityRemaining.String(), expected.String())
		}
		if expected.IsNegative() {
			oversold++
			fmt.Printf("OVERSOLD owner=%d lot=%d remaining=%s\n", r.OwnerId, r.ID, expected.String())
		}
	}

	fmt.Printf("checked=%d drifted=%d oversold=%d\n", len(rows), drifted, oversold)
	if drifted > 0 {
		os.Exit(2)
	}
}
