package repository

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/format"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
)

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-station.sql
var getStationSQL string

//go:embed sql/get-prices.sql
var getPricesSQL string

//go:embed sql/get-station-prices.sql
var getStationPricesSQL string

//go:embed sql/get-station-ids.sql
var getStationIDsSQL string

//go:embed sql/count-stations.sql
var countStationsSQL string

//go:embed sql/upsert-station.sql
var upsertStationSQL string

//go:embed sql/delete-station.sql
var deleteStationSQL string

//go:embed sql/upsert-price.sql
var upsertPriceSQL string

//go:embed sql/delete-stale-price.sql
var deleteStalePriceSQL string

//go:embed sql/touch-station.sql
var touchStationSQL string

//go:embed sql/station-exists.sql
var stationExistsSQL string

//go:embed sql/get-stations-missing-location.sql
var getStationsMissingLocationSQL string

//go:embed sql/update-station-location.sql
var updateStationLocationSQL string

// ErrNotFound is returned when a station id does not exist.
var ErrNotFound = errors.New("station not found")

// ErrEmptyImport guards against wiping the table with an empty data file.
var ErrEmptyImport = errors.New("refusing to import an empty station list")

// timestampLayout matches SQLite's strftime('%Y-%m-%dT%H:%M:%fZ') so stored
// timestamps compare correctly as text.
const timestampLayout = "2006-01-02T15:04:05.000Z"

type ImportResult struct {
	Upserted int
	Removed  int
}

type StationRepository interface {
	GetStations() ([]types.Station, error)
	GetStation(id int) (types.Station, error)
	CountStations() (int, error)
	ReplaceStations(stations []types.Station) (ImportResult, error)
	// UpsertPrice stores u unless an equal or newer price is already stored.
	// It reports whether the stored price changed.
	UpsertPrice(u types.PriceUpdate) (bool, error)
	GetStationsMissingLocation() ([]types.Station, error)
	UpdateLocation(id int, lat, lng float64) error
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) StationRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetStations() ([]types.Station, error) {
	stations, err := r.queryStations(getStationsSQL)
	if err != nil {
		return nil, err
	}
	prices, err := r.queryPrices(getPricesSQL)
	if err != nil {
		return nil, err
	}
	for i := range stations {
		if p, ok := prices[stations[i].ID]; ok {
			stations[i].Prices = p
		}
	}
	return stations, nil
}

func (r *repositoryImpl) GetStation(id int) (types.Station, error) {
	var s types.Station
	err := scanStation(r.db.QueryRow(getStationSQL, id), &s)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Station{}, ErrNotFound
	}
	if err != nil {
		return types.Station{}, err
	}
	prices, err := r.queryPrices(getStationPricesSQL, id)
	if err != nil {
		return types.Station{}, err
	}
	s.Prices = prices[id]
	if s.Prices == nil {
		s.Prices = types.Prices{}
	}
	return s, nil
}

func (r *repositoryImpl) CountStations() (int, error) {
	var n int
	err := r.db.QueryRow(countStationsSQL).Scan(&n)
	return n, err
}

func (r *repositoryImpl) GetStationsMissingLocation() ([]types.Station, error) {
	return r.queryStations(getStationsMissingLocationSQL)
}

func (r *repositoryImpl) UpdateLocation(id int, lat, lng float64) error {
	res, err := r.db.Exec(updateStationLocationSQL, lat, lng, id)
	if err != nil {
		return fmt.Errorf("update location of station %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceStations makes the table match stations: rows are upserted and
// stations missing from the list are removed along with their prices. A fuel
// missing from a station's price map is dropped unless the feed priced it
// after the file's lastUpdated; likewise a newer feed price beats the file.
func (r *repositoryImpl) ReplaceStations(stations []types.Station) (ImportResult, error) {
	if len(stations) == 0 {
		return ImportResult{}, ErrEmptyImport
	}
	tx, err := r.db.Begin()
	if err != nil {
		return ImportResult{}, err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("rollback station import", "error", err)
		}
	}()

	existing, err := stationIDs(tx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("list station ids: %w", err)
	}

	var res ImportResult
	keep := make(map[int]bool, len(stations))
	for _, s := range stations {
		if _, err := tx.Exec(upsertStationSQL,
			s.ID, s.Name, s.Brand, s.Logo, s.Address, s.Suburb, s.Postcode, s.Region,
			s.Latitude, s.Longitude, s.LastUpdated, s.Verified,
		); err != nil {
			return ImportResult{}, fmt.Errorf("upsert station %d: %w", s.ID, err)
		}
		keep[s.ID] = true
		res.Upserted++

		var pricedAt time.Time
		if t, ok := format.ParseTimestamp(s.LastUpdated); ok {
			pricedAt = t
		}
		stamp := pricedAt.UTC().Format(timestampLayout)
		for _, ft := range types.FuelTypes {
			v, present := s.Prices[ft]
			if !present {
				if _, err := tx.Exec(deleteStalePriceSQL, s.ID, string(ft), stamp); err != nil {
					return ImportResult{}, fmt.Errorf("drop %s price of station %d: %w", ft, s.ID, err)
				}
				continue
			}
			var price any
			if p, ok := s.Prices.Price(ft); ok {
				price = p
			} else if v != nil {
				continue
			}
			if _, err := tx.Exec(upsertPriceSQL, s.ID, string(ft), price, stamp); err != nil {
				return ImportResult{}, fmt.Errorf("upsert %s price of station %d: %w", ft, s.ID, err)
			}
		}
	}

	for _, id := range existing {
		if keep[id] {
			continue
		}
		if _, err := tx.Exec(deleteStationSQL, id); err != nil {
			return ImportResult{}, fmt.Errorf("delete station %d: %w", id, err)
		}
		res.Removed++
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

func (r *repositoryImpl) UpsertPrice(u types.PriceUpdate) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("rollback price upsert", "error", err)
		}
	}()

	var exists bool
	if err := tx.QueryRow(stationExistsSQL, u.StationID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check station %d: %w", u.StationID, err)
	}
	if !exists {
		return false, ErrNotFound
	}

	var price any
	if u.PriceCents != nil {
		price = *u.PriceCents
	}
	ts := u.UpdatedAt.UTC()
	res, err := tx.Exec(upsertPriceSQL, u.StationID, string(u.FuelType), price, ts.Format(timestampLayout))
	if err != nil {
		return false, fmt.Errorf("upsert price: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, tx.Commit()
	}
	if _, err := tx.Exec(touchStationSQL, ts.Format(time.RFC3339), u.StationID); err != nil {
		return false, fmt.Errorf("touch station %d: %w", u.StationID, err)
	}
	return true, tx.Commit()
}

func (r *repositoryImpl) queryStations(query string, args ...any) ([]types.Station, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()
	var out []types.Station
	for rows.Next() {
		var s types.Station
		if err := scanStation(rows, &s); err != nil {
			return nil, err
		}
		s.Prices = types.Prices{}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) queryPrices(query string, args ...any) (map[int]types.Prices, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close prices rows", "error", err)
		}
	}()
	out := make(map[int]types.Prices)
	for rows.Next() {
		var (
			id    int
			ft    string
			price sql.NullFloat64
		)
		if err := rows.Scan(&id, &ft, &price); err != nil {
			return nil, err
		}
		if out[id] == nil {
			out[id] = types.Prices{}
		}
		if price.Valid {
			v := price.Float64
			out[id][types.FuelType(ft)] = &v
		} else {
			out[id][types.FuelType(ft)] = nil
		}
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStation(row scanner, s *types.Station) error {
	return row.Scan(&s.ID, &s.Name, &s.Brand, &s.Logo, &s.Address, &s.Suburb, &s.Postcode,
		&s.Region, &s.Latitude, &s.Longitude, &s.LastUpdated, &s.Verified)
}

func stationIDs(tx *sql.Tx) ([]int, error) {
	rows, err := tx.Query(getStationIDsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close station id rows", "error", err)
		}
	}()
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
