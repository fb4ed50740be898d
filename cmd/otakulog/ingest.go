package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kerbaras/otakulog/pkg/data"
	"github.com/kerbaras/otakulog/pkg/services"
	"github.com/kerbaras/otakulog/pkg/sources"
)

func parseKind(s string) (data.MediaKind, error) {
	switch s {
	case "anime":
		return data.KindAnime, nil
	case "manga":
		return data.KindManga, nil
	case "lightnovel", "ln":
		return data.KindLightNovel, nil
	}
	return "", fmt.Errorf("unknown kind %q (want anime, manga or lightnovel)", s)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [kind] [file]",
	Short: "Bulk-ingest entries from a JSON file",
	Long:  "Read a JSON array of entries, create them in chunks, and run the enrichment queues until every job has settled",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := parseKind(args[0])
		cobra.CheckErr(err)

		raw, err := os.ReadFile(args[1])
		cobra.CheckErr(err)
		var entries []services.RawEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			cobra.CheckErr(fmt.Errorf("parse %s: %w", args[1], err))
		}
		if len(entries) == 0 {
			fmt.Println("Nothing to ingest.")
			return
		}

		cfg, db, log := setup()
		defer db.Close()
		defer log.Sync()

		ctrl := services.NewController(db, cfg, sources.NewJikan(), sources.NewMangaDex(), log)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		ctrl.Start(ctx)

		results := ctrl.Ingestor.Ingest(ctx, kind, entries)

		fmt.Println("Waiting for enrichment jobs to settle...")
		ctrl.Drain()

		counts := map[services.ItemStatus]int{}
		for _, r := range results {
			counts[r.Status]++
			if r.Err != nil {
				fmt.Printf("  #%d (external id %d): %s: %v\n", r.Index+1, r.ExternalID, r.Status, r.Err)
			}
		}
		fmt.Printf("\n%d created, %d duplicate, %d invalid, %d failed\n",
			counts[services.StatusCreated],
			counts[services.StatusDuplicate],
			counts[services.StatusInvalid],
			counts[services.StatusFailed])
	},
}
