package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"courtmap/storage"

	"github.com/spf13/cobra"
)

func placesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "places",
		Short: "Manage saved search centers",
	}

	cmd.AddCommand(placesListCmd())
	cmd.AddCommand(placesAddCmd())
	cmd.AddCommand(placesRemoveCmd())
	return cmd
}

func placesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved places",
		RunE: func(cmd *cobra.Command, args []string) error {
			places, err := storage.LoadPlaces()
			if err != nil {
				return err
			}

			if outputJSON {
				return writeJSON(places)
			}

			if len(places) == 0 {
				fmt.Println("No places saved.")
				return nil
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 2, 2, ' ', 0)
			if !outputCompact {
				fmt.Fprintln(writer, "ALIAS\tNAME\tLAT\tLNG")
			}
			for _, place := range places {
				fmt.Fprintf(writer, "%s\t%s\t%.6f\t%.6f\n", place.Alias, place.Name, place.Lat, place.Lng)
			}
			return writer.Flush()
		},
	}

	return cmd
}

func placesAddCmd() *cobra.Command {
	var alias string
	var name string
	var near string
	var replace bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a place under an alias",
		RunE: func(cmd *cobra.Command, args []string) error {
			alias = strings.TrimSpace(alias)
			if alias == "" || strings.TrimSpace(near) == "" {
				return fmt.Errorf("--alias and --near are required")
			}
			if strings.Contains(alias, ",") {
				return fmt.Errorf("alias %q must not contain a comma", alias)
			}

			places, err := storage.LoadPlaces()
			if err != nil {
				return err
			}
			if _, ok := storage.FindPlaceByAlias(places, alias); ok && !replace {
				return fmt.Errorf("place alias %q already exists (use --replace)", alias)
			}

			ctx, cancel := contextWithLocateTimeout(cmd)
			defer cancel()
			lat, lng, err := resolveLocation(ctx, near)
			if err != nil {
				return err
			}
			if name == "" {
				name = near
			}

			places = storage.UpsertPlace(places, storage.Place{Alias: alias, Name: name, Lat: lat, Lng: lng})
			if err := storage.SavePlaces(places); err != nil {
				return err
			}

			fmt.Printf("Saved place %s (%.6f, %.6f).\n", alias, lat, lng)
			return nil
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Short alias")
	cmd.Flags().StringVar(&name, "name", "", "Display name (default: --near)")
	cmd.Flags().StringVar(&near, "near", "", "Location name or lat,lng")
	cmd.Flags().BoolVar(&replace, "replace", false, "Overwrite an existing alias")
	return cmd
}

func placesRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <alias>",
		Short: "Remove a saved place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias := strings.TrimSpace(args[0])
			places, err := storage.LoadPlaces()
			if err != nil {
				return err
			}

			places, removed := storage.RemovePlace(places, alias)
			if !removed {
				return fmt.Errorf("place alias %q not found", alias)
			}
			if err := storage.SavePlaces(places); err != nil {
				return err
			}

			fmt.Printf("Removed place %s.\n", alias)
			return nil
		},
	}

	return cmd
}
