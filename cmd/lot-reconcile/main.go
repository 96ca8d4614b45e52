package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/tradelog_backend/config"
	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/repository"
	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"bitbucket.org/mmdatafocus/tradelog_backend/workflow"
)

// lot-reconcile recomputes quantity_remaining from the active consumption
// records. Without --owner every owner that has lots is processed.
//
// Example:
//
//	go run ./cmd/lot-reconcile/ -owner=12
//	go run ./cmd/lot-reconcile/ -owner=12 -lot=345
func main() {
	ownerID := flag.Int("owner", 0, "Optional: owner (user) id")
	lotID := flag.Int("lot", 0, "Optional: single lot id (requires --owner)")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing owners and continue with the others")
	flag.Parse()

	if *lotID > 0 && *ownerID <= 0 {
		fmt.Fprintln(os.Stderr, "--lot requires --owner")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx := context.Background()
	ledger := workflow.NewLedger(repository.NewGormStore(db), config.GetLogger(), config.LoadLedgerSettings())

	if *lotID > 0 {
		lot, err := ledger.ReconcileLot(ctx, *ownerID, *lotID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reconcile failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("owner=%d lot=%d remaining=%s status=%s\n", *ownerID, lot.ID, lot.QuantityRemaining.String(), lot.Status)
		return
	}

	owners := []int{*ownerID}
	if *ownerID <= 0 {
		owners = nil
		scoped := utils.SetSkipOwnerScopeInContext(ctx, true)
		if err := db.WithContext(scoped).Model(&models.AcquisitionLot{}).Distinct("owner_id").Order("owner_id").Pluck("owner_id", &owners).Error; err != nil {
			fmt.Fprintf(os.Stderr, "discover owners: %v\n", err)
			os.Exit(1)
		}
	}

	failed := 0
	for _, owner := range owners {
		summary, err := ledger.ReconcileOwner(ctx, owner)
		if err != nil {
			failed++
			if *continueOnError {
				fmt.Fprintf(os.Stderr, "owner=%d reconcile failed (skipping): %v\n", owner, err)
				continue
			}
			fmt.Fprintf(os.Stderr, "owner=%d reconcile failed: %v\n", owner, err)
			os.Exit(1)
		}
		fmt.Printf("owner=%d lots=%d changed=%d oversold=%v\n", owner, summary.Lots, summary.Changed, summary.OversoldIds)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "lot reconcile finished with %d failed owner(s)\n", failed)
		os.Exit(2)
	}
	fmt.Println("lot reconcile complete")
}
