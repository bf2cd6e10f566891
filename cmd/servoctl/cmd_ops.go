package main

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/geocoding"
	pagesrepository "github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/pages/repository"
)

var (
	geocodeProvider string
	geocodeTimeout  time.Duration
	messagesLimit   int
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Look up coordinates for stations stored without a location",
	Long: `Geocode every stored station whose latitude and longitude are unset.
The API key is read from $GEOCODER_KEY, falling back to $MAPBOX_TOKEN for the
mapbox provider. Failed lookups are logged and skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.TrimSpace(os.Getenv("GEOCODER_KEY"))
		if key == "" && geocodeProvider == string(geocoding.ProviderTypeMapbox) {
			key = strings.TrimSpace(os.Getenv("MAPBOX_TOKEN"))
		}
		provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
			Type:    geocoding.ProviderType(geocodeProvider),
			APIKey:  key,
			Timeout: geocodeTimeout,
		})
		if err != nil {
			return err
		}
		return withDB(func(conn *sql.DB) error {
			svc := newStationService(conn)
			defer svc.Close()

			updated, err := svc.GeocodeMissing(cmd.Context(), provider)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d stations geocoded\n", updated)
			return nil
		})
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "List the latest contact form messages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(conn *sql.DB) error {
			msgs, err := pagesrepository.NewRepository(conn).GetMessages(messagesLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(msgs) == 0 {
				fmt.Fprintln(out, "no messages")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RECEIVED\tFROM\tSUBJECT")
			for _, m := range msgs {
				fmt.Fprintf(tw, "%s\t%s <%s>\t%s\n", m.CreatedAt.Format(time.DateTime), m.Name, m.Email, m.Subject)
			}
			return tw.Flush()
		})
	},
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeProvider, "provider", "mapbox", "geocoding provider (mapbox, google)")
	geocodeCmd.Flags().DurationVar(&geocodeTimeout, "timeout", 5*time.Second, "per-lookup timeout")
	messagesCmd.Flags().IntVarP(&messagesLimit, "limit", "n", 20, "number of messages to show")
}
