package filter

import "github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"

const PageSize = 24

type Page struct {
	Stations   []types.Station
	Current    int
	TotalPages int
	Total      int
}

func (p Page) HasPrev() bool { return p.Current > 1 }
func (p Page) HasNext() bool { return p.Current < p.TotalPages }

// Paginate slices one page out of stations. Out of range pages clamp to the
// nearest valid page; an empty list has a single empty page.
func Paginate(stations []types.Station, page, size int) Page {
	if size <= 0 {
		size = PageSize
	}
	total := len(stations)
	totalPages := (total + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * size
	end := min(start+size, total)
	return Page{
		Stations:   stations[start:end],
		Current:    page,
		TotalPages: totalPages,
		Total:      total,
	}
}
