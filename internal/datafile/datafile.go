// Package datafile loads the stations JSON file and re-imports it when it changes.
package datafile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/format"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/repository"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
)

var ErrNoStations = errors.New("data file contains no stations")

// Importer stores a full station list. The stations service satisfies it.
type Importer interface {
	Import(stations []types.Station) (repository.ImportResult, error)
}

// Load reads and validates the stations file at path.
func Load(path string) ([]types.Station, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	stations, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stations, nil
}

// ImportFile loads path and hands the stations to imp.
func ImportFile(path string, imp Importer) (repository.ImportResult, error) {
	stations, err := Load(path)
	if err != nil {
		return repository.ImportResult{}, err
	}
	return imp.Import(stations)
}

// Parse decodes either a bare JSON array of stations or an object with a
// "stations" array, then validates every record.
func Parse(data []byte) ([]types.Station, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoStations
	}

	var stations []types.Station
	if data[0] == '{' {
		var wrapped struct {
			Stations []types.Station `json:"stations"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decode stations: %w", err)
		}
		stations = wrapped.Stations
	} else if err := json.Unmarshal(data, &stations); err != nil {
		return nil, fmt.Errorf("decode stations: %w", err)
	}

	if len(stations) == 0 {
		return nil, ErrNoStations
	}
	if err := Validate(stations); err != nil {
		return nil, err
	}
	return stations, nil
}

// Validate reports every invalid record at once.
func Validate(stations []types.Station) error {
	var errs []error
	seen := make(map[int]int, len(stations))
	for i, s := range stations {
		if err := validateStation(s); err != nil {
			errs = append(errs, fmt.Errorf("station %d (index %d): %w", s.ID, i, err))
		}
		if prev, dup := seen[s.ID]; dup && s.ID > 0 {
			errs = append(errs, fmt.Errorf("station %d (index %d): duplicate id, first at index %d", s.ID, i, prev))
		}
		seen[s.ID] = i
	}
	return errors.Join(errs...)
}

func validateStation(s types.Station) error {
	var errs []error
	if s.ID <= 0 {
		errs = append(errs, errors.New("id must be positive"))
	}
	if s.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if s.Latitude < -90 || s.Latitude > 90 || s.Longitude < -180 || s.Longitude > 180 {
		errs = append(errs, fmt.Errorf("coordinates %v,%v out of range", s.Latitude, s.Longitude))
	}
	for ft, p := range s.Prices {
		if _, err := types.ParseFuelType(string(ft)); err != nil {
			errs = append(errs, fmt.Errorf("price key %q: %w", ft, err))
			continue
		}
		if p != nil && (math.IsNaN(*p) || *p < 0) {
			errs = append(errs, fmt.Errorf("%s price %v is negative", ft, *p))
		}
	}
	if s.LastUpdated != "" {
		if _, ok := format.ParseTimestamp(s.LastUpdated); !ok {
			errs = append(errs, fmt.Errorf("lastUpdated %q is not a timestamp", s.LastUpdated))
		}
	}
	return errors.Join(errs...)
}
