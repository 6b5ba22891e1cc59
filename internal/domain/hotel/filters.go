package hotel

import (
	"net/url"
	"strconv"
)

// Filters narrows a hotel listing. Zero values are omitted from the query.
type Filters struct {
	Statut        string   `json:"statut,omitempty" form:"statut"`
	Device        string   `json:"device,omitempty" form:"device"`
	PrixMin       *float64 `json:"prix_min,omitempty" form:"prix_min"`
	PrixMax       *float64 `json:"prix_max,omitempty" form:"prix_max"`
	Search        string   `json:"search,omitempty" form:"search"`
	SortField     string   `json:"sort_field,omitempty" form:"sort_field"`
	SortDirection string   `json:"sort_direction,omitempty" form:"sort_direction"`
	Page          int      `json:"page,omitempty" form:"page"`
	PerPage       int      `json:"per_page,omitempty" form:"per_page"`
}

// Values renders the filters as query parameters.
func (f Filters) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("statut", f.Statut)
	set("device", f.Device)
	if f.PrixMin != nil {
		v.Set("prix_min", strconv.FormatFloat(*f.PrixMin, 'f', -1, 64))
	}
	if f.PrixMax != nil {
		v.Set("prix_max", strconv.FormatFloat(*f.PrixMax, 'f', -1, 64))
	}
	set("search", f.Search)
	set("sort_field", f.SortField)
	set("sort_direction", f.SortDirection)
	if f.Page != 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage != 0 {
		v.Set("per_page", strconv.Itoa(f.PerPage))
	}
	return v
}

// Encode is the canonical query string: keys sorted, unset fields dropped.
// Distinct filters always encode differently, so it doubles as a cache key.
func (f Filters) Encode() string {
	return f.Values().Encode()
}

// Float is a helper for building filters with price bounds.
func Float(v float64) *float64 {
	return &v
}
