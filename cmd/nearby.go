package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"courtmap/api"
	"courtmap/discovery"
	"courtmap/tui"

	"github.com/spf13/cobra"
)

const (
	sourceLive     = "live"
	sourceSnapshot = "snapshot"
)

type NearbyResult struct {
	Center      discovery.Center           `json:"center"`
	RadiusMiles float64                    `json:"radius_mi"`
	SortKey     string                     `json:"sort"`
	Source      string                     `json:"source"`
	FetchedAt   time.Time                  `json:"fetched_at"`
	Notice      string                     `json:"notice,omitempty"`
	Fetched     int                        `json:"fetched"`
	Matched     int                        `json:"matched"`
	Venues      []discovery.AnnotatedVenue `json:"venues"`
}

func nearbyCmd() *cobra.Command {
	var near string
	var limit int
	var offline bool
	var flags criteriaFlags

	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "List venues near a location, filtered and ranked",
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, key, err := flags.criteria()
			if err != nil {
				return err
			}
			radius, err := flags.radiusMiles()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			session := newSession(criteria, key, radius)
			defer session.Close()

			db := openSnapshots()
			if db != nil {
				defer db.Close()
			}

			locator := placeLocator{input: near}
			result := NearbyResult{Source: sourceLive}

			if offline {
				center, err := locator.Locate(ctx)
				if err != nil {
					if errors.Is(err, discovery.ErrLocationPermissionDenied) {
						return locationError(err)
					}
					return err
				}
				snap, err := seedFromSnapshot(db, session, center, radius)
				if err != nil {
					return err
				}
				if snap == nil {
					return fmt.Errorf("no snapshot for %.4f,%.4f within %g mi; run without --offline first", center.Lat, center.Lng, radius)
				}
				result.Source = sourceSnapshot
			} else {
				err := session.SetCenterFrom(ctx, locator).Wait()
				switch {
				case err == nil:
					saveSnapshot(db, session)
				case errors.Is(err, discovery.ErrLocationPermissionDenied):
					return locationError(err)
				case api.IsRecoverable(err):
					view := session.View()
					snap, snapErr := seedFromSnapshot(db, session, view.Center, radius)
					if snapErr != nil || snap == nil {
						return err
					}
					result.Source = sourceSnapshot
					result.Notice = fmt.Sprintf("live fetch failed (%v); showing snapshot from %s", err, ageLabel(time.Since(snap.FetchedAt)))
				default:
					return err
				}
			}

			view := session.View()
			result.Center = view.Center
			result.RadiusMiles = view.RadiusMiles
			result.SortKey = view.SortKey.String()
			result.FetchedAt = view.FetchedAt
			result.Fetched = view.FetchedCount
			result.Matched = view.RankedCount
			result.Venues = view.Ranked
			if limit > 0 && len(result.Venues) > limit {
				result.Venues = result.Venues[:limit]
			}

			if result.Notice != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), result.Notice)
			}
			if outputJSON {
				return writeJSONTo(cmd.OutOrStdout(), result)
			}
			return writeNearbyTable(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&near, "near", "", "Place alias, location name or lat,lng (default: default_location from config)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum venues to print (0 for all)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the stored snapshot instead of the API")
	flags.register(cmd)
	return cmd
}

func writeNearbyTable(w io.Writer, result NearbyResult) error {
	if len(result.Venues) == 0 {
		fmt.Fprintf(w, "No venues match (%d fetched within %g mi).\n", result.Fetched, result.RadiusMiles)
		return nil
	}

	writer := tabwriter.NewWriter(w, 2, 2, 2, ' ', 0)
	if !outputCompact {
		fmt.Fprintf(writer, "%d of %d venues within %g mi, by %s (%s)\n", result.Matched, result.Fetched, result.RadiusMiles, result.SortKey, result.Source)
		fmt.Fprintln(writer, "\tNAME\tDIST\tRATING\tCOURTS\tACCESS\tNOW\tADDRESS")
	}
	for _, v := range result.Venues {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tui.VerifiedMark(v),
			v.Name,
			tui.DistanceLabel(v),
			tui.RatingBar(v.Rating),
			tui.CourtsLabel(v),
			v.Access.String(),
			tui.OpenLabel(v),
			v.FormattedAddress(),
		)
	}
	return writer.Flush()
}
