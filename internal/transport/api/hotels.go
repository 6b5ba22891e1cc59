package api

import (
	"context"
	"net/http"
	"net/url"

	"hotel-admin-go/internal/domain/hotel"
	"hotel-admin-go/internal/domain/image"
)

// Result is the acknowledgement of a mutation without payload.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HotelResult wraps a single hotel.
type HotelResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    hotel.Hotel `json:"data"`
}

// PhotoResult is returned after a photo upload.
type PhotoResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Photo   string `json:"photo"`
}

type statsEnvelope struct {
	Success bool        `json:"success"`
	Data    hotel.Stats `json:"data"`
}

type graphEnvelope struct {
	Success bool               `json:"success"`
	Data    []hotel.GraphPoint `json:"data"`
}

func hotelPath(id string, suffix string) string {
	return "/hotels/" + url.PathEscape(id) + suffix
}

// ListHotels returns one page of hotels matching filters.
func (c *Client) ListHotels(ctx context.Context, filters hotel.Filters) (hotel.ListResponse, error) {
	var out hotel.ListResponse
	r := c.request(ctx).SetQueryParamsFromValues(filters.Values())
	err := c.do(ctx, r, http.MethodGet, "/hotels", &out)
	return out, err
}

// GetHotel fetches one hotel, deleted ones included.
func (c *Client) GetHotel(ctx context.Context, id string) (hotel.Hotel, error) {
	var out HotelResult
	err := c.do(ctx, c.request(ctx), http.MethodGet, hotelPath(id, ""), &out)
	return out.Data, err
}

// CreateHotel posts the form as multipart with an optional photo.
func (c *Client) CreateHotel(ctx context.Context, in hotel.CreateInput) (HotelResult, error) {
	fields := map[string]string{
		"nom":           in.Nom,
		"adresse":       in.Adresse,
		"mail":          in.Mail,
		"telephone":     in.Telephone,
		"prix_par_nuit": hotel.Amount(in.PrixParNuit).String(),
		"device":        string(in.Device),
	}
	if in.Statut != "" {
		fields["statut"] = string(in.Statut)
	}
	r := c.request(ctx).SetMultipartFormData(fields)
	attach(r, "photo", in.Photo)

	var out HotelResult
	err := c.do(ctx, r, http.MethodPost, "/hotels", &out)
	return out, err
}

// UpdateHotel sends a JSON partial update. Photos go through UpdateHotelPhoto.
func (c *Client) UpdateHotel(ctx context.Context, id string, in hotel.UpdateInput) (HotelResult, error) {
	var out HotelResult
	err := c.do(ctx, c.request(ctx).SetBody(in), http.MethodPut, hotelPath(id, ""), &out)
	return out, err
}

// DeleteHotel soft-deletes a hotel.
func (c *Client) DeleteHotel(ctx context.Context, id string) (Result, error) {
	var out Result
	err := c.do(ctx, c.request(ctx), http.MethodDelete, hotelPath(id, ""), &out)
	return out, err
}

// RestoreHotel undoes a soft delete.
func (c *Client) RestoreHotel(ctx context.Context, id string) (Result, error) {
	var out Result
	err := c.do(ctx, c.request(ctx), http.MethodPatch, hotelPath(id, "/restore"), &out)
	return out, err
}

// UpdateHotelPhoto replaces the photo and returns its new URL.
func (c *Client) UpdateHotelPhoto(ctx context.Context, id string, photo image.Upload) (PhotoResult, error) {
	r := c.request(ctx)
	attach(r, "photo", &photo)

	var out PhotoResult
	err := c.do(ctx, r, http.MethodPost, hotelPath(id, "/update-photo"), &out)
	return out, err
}

// Stats returns the dashboard counters.
func (c *Client) Stats(ctx context.Context) (hotel.Stats, error) {
	var out statsEnvelope
	err := c.do(ctx, c.request(ctx), http.MethodGet, "/hotels/statistiques", &out)
	return out.Data, err
}

// GraphStats returns monthly hotel creations.
func (c *Client) GraphStats(ctx context.Context) ([]hotel.GraphPoint, error) {
	var out graphEnvelope
	err := c.do(ctx, c.request(ctx), http.MethodGet, "/hotels/statistiques/graphiques", &out)
	return out.Data, err
}
