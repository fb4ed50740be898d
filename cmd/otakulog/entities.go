package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kerbaras/otakulog/pkg/data"
)

func parseEntityKind(s string) (data.EntityKind, error) {
	switch s {
	case "author":
		return data.EntityAuthor, nil
	case "genre":
		return data.EntityGenre, nil
	case "theme":
		return data.EntityTheme, nil
	case "studio":
		return data.EntityStudio, nil
	}
	return "", fmt.Errorf("unknown entity kind %q (want author, genre, theme or studio)", s)
}

var entitiesCmd = &cobra.Command{
	Use:   "entities [kind]",
	Short: "List cross-reference entities of one kind",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := parseEntityKind(args[0])
		cobra.CheckErr(err)

		_, db, log := setup()
		defer db.Close()
		defer log.Sync()

		entities, err := data.NewStore(db).ListEntities(context.Background(), kind)
		cobra.CheckErr(err)

		if len(entities) == 0 {
			fmt.Printf("No %s entities yet.\n", kind)
			return
		}

		t := newTable("#", "Name", "ID")
		for i, e := range entities {
			t.Row(fmt.Sprintf("%d", i+1), truncateString(e.Name, 48), e.ID)
		}
		fmt.Println(t)
	},
}
