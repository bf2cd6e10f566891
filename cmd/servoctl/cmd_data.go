package main

import (
	"database/sql"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/datafile"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/format"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/migrate"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/repository"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/service"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(conn *sql.DB) error {
			pending, err := migrate.Pending(conn)
			if err != nil {
				return err
			}
			if err := migrate.Run(conn); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migrations applied\n", len(pending))
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace the stored stations with a stations JSON file",
	Long: `Load and validate a stations JSON file, then replace the stored stations
with its contents. Stations missing from the file are removed. Defaults to
$STATIONS_FILE or data/stations.json.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := os.Getenv("STATIONS_FILE")
		if path == "" {
			path = "data/stations.json"
		}
		if len(args) == 1 {
			path = args[0]
		}
		return withDB(func(conn *sql.DB) error {
			if err := migrate.Run(conn); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			svc := newStationService(conn)
			defer svc.Close()

			res, err := datafile.ImportFile(path, svc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %d stations upserted, %d removed\n", path, res.Upserted, res.Removed)
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print station count and prices per fuel type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(conn *sql.DB) error {
			svc := newStationService(conn)
			defer svc.Close()

			stations, err := svc.Stations()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "stations: %d\n\n", len(stations))

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FUEL\tSTATIONS\tAVERAGE\tLOWEST")
			for _, fs := range types.Stats(stations) {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", fs.FuelType.Label(), fs.Stations, format.Price(fs.Average), format.Price(fs.Lowest))
			}
			return tw.Flush()
		})
	},
}

func newStationService(conn *sql.DB) *service.Service {
	return service.NewService(repository.NewRepository(conn), service.Options{})
}
