package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"hotel-admin-go/internal/domain/eventbus"
	"hotel-admin-go/internal/domain/hotel"
	"hotel-admin-go/internal/domain/image"
	"hotel-admin-go/internal/domain/query"
	"hotel-admin-go/internal/domain/validation"
	platformerrors "hotel-admin-go/internal/platform/errors"
	"hotel-admin-go/internal/platform/logging"
	"hotel-admin-go/internal/transport/api"
)

// HotelBackend is the part of the API client the hotel service needs.
type HotelBackend interface {
	ListHotels(ctx context.Context, filters hotel.Filters) (hotel.ListResponse, error)
	GetHotel(ctx context.Context, id string) (hotel.Hotel, error)
	CreateHotel(ctx context.Context, in hotel.CreateInput) (api.HotelResult, error)
	UpdateHotel(ctx context.Context, id string, in hotel.UpdateInput) (api.HotelResult, error)
	DeleteHotel(ctx context.Context, id string) (api.Result, error)
	RestoreHotel(ctx context.Context, id string) (api.Result, error)
	UpdateHotelPhoto(ctx context.Context, id string, photo image.Upload) (api.PhotoResult, error)
}

type mutation struct {
	success  string
	failure  string
	entities []string
}

var (
	createMutation  = mutation{"Hôtel créé avec succès", "Erreur lors de la création", []string{EntityHotels, EntityDashboardStats}}
	updateMutation  = mutation{"Hôtel modifié avec succès", "Erreur lors de la modification", []string{EntityHotels, EntityDashboardStats}}
	deleteMutation  = mutation{"Hôtel supprimé avec succès", "Erreur lors de la suppression", []string{EntityHotels, EntityDashboardStats}}
	restoreMutation = mutation{"Hôtel restauré avec succès", "Erreur lors de la restauration", []string{EntityHotels, EntityDashboardStats}}
	photoMutation   = mutation{"Photo mise à jour avec succès", "Erreur lors de la mise à jour de la photo", []string{EntityHotels}}
)

// HotelService 酒店查询与变更
type HotelService struct {
	api         HotelBackend
	cache       *query.Cache
	bus         *eventbus.Bus
	uploads     *image.Pipeline
	limits      image.Limits
	listStale   time.Duration
	detailStale time.Duration
	logger      *logging.Logger
}

// HotelConfig 酒店服务配置
type HotelConfig struct {
	API             HotelBackend
	Cache           *query.Cache
	Bus             *eventbus.Bus
	Uploads         *image.Pipeline
	PhotoLimits     image.Limits
	ListStaleTime   time.Duration
	DetailStaleTime time.Duration
	Logger          *logging.Logger
}

// NewHotelService 创建酒店服务
func NewHotelService(config *HotelConfig) (*HotelService, error) {
	if config.API == nil || config.Cache == nil {
		return nil, errors.New("hotel service requires api and cache")
	}
	s := &HotelService{
		api:         config.API,
		cache:       config.Cache,
		bus:         config.Bus,
		uploads:     config.Uploads,
		limits:      config.PhotoLimits,
		listStale:   config.ListStaleTime,
		detailStale: config.DetailStaleTime,
		logger:      config.Logger,
	}
	if s.uploads == nil {
		s.uploads = image.NewPipeline(config.Logger)
	}
	if s.limits.MaxFileSize == 0 {
		s.limits = image.PhotoLimits()
	}
	if s.listStale == 0 {
		s.listStale = DefaultListStaleTime
	}
	return s, nil
}

// HotelsKey is the cache key of a listing.
func HotelsKey(filters hotel.Filters) query.Key {
	return query.Key{Entity: EntityHotels, Params: filters.Encode()}
}

// HotelKey is the cache key of a single hotel.
func HotelKey(id string) query.Key {
	return query.Key{Entity: EntityHotel, Params: id}
}

// Hotels reads a listing. Each distinct filter set is cached separately.
func (s *HotelService) Hotels(ctx context.Context, filters hotel.Filters) (hotel.ListResponse, error) {
	return query.Get(ctx, s.cache, HotelsKey(filters), readOptions(s.listStale, 0), func(ctx context.Context) (hotel.ListResponse, error) {
		return s.api.ListHotels(ctx, filters)
	})
}

// Hotel reads one hotel. An empty id disables the query: no request is sent.
func (s *HotelService) Hotel(ctx context.Context, id string) (hotel.Hotel, error) {
	id = strings.TrimSpace(id)
	opts := readOptions(s.detailStale, 0)
	opts.Disabled = id == ""
	return query.Get(ctx, s.cache, HotelKey(id), opts, func(ctx context.Context) (hotel.Hotel, error) {
		return s.api.GetHotel(ctx, id)
	})
}

// Create validates and creates a hotel.
func (s *HotelService) Create(ctx context.Context, in hotel.CreateInput) (hotel.Hotel, error) {
	formErr := validation.CreateHotel(&in)
	photoErr := s.uploads.Check("photo", in.Photo, s.limits)
	if formErr != nil || photoErr != nil {
		return hotel.Hotel{}, mergeInvalid("services.hotel_create", formErr, photoErr)
	}

	res, err := s.api.CreateHotel(ctx, in)
	if err != nil {
		return hotel.Hotel{}, s.failed(createMutation, err)
	}
	s.succeeded(createMutation)
	s.logger.InfoTag("酒店", "hotel %s created", res.Data.ID)
	return res.Data, nil
}

// Update validates and applies a partial update.
func (s *HotelService) Update(ctx context.Context, id string, in hotel.UpdateInput) (hotel.Hotel, error) {
	if err := validation.UpdateHotel(&in); err != nil {
		return hotel.Hotel{}, err
	}
	if in.Empty() {
		return hotel.Hotel{}, platformerrors.Invalid("services.hotel_update", "Aucune modification à enregistrer", nil)
	}

	res, err := s.api.UpdateHotel(ctx, id, in)
	if err != nil {
		return hotel.Hotel{}, s.failed(updateMutation, err)
	}
	s.cache.Invalidate(HotelKey(id))
	s.succeeded(updateMutation)
	return res.Data, nil
}

// Delete soft-deletes a hotel.
func (s *HotelService) Delete(ctx context.Context, id string) error {
	if _, err := s.api.DeleteHotel(ctx, id); err != nil {
		return s.failed(deleteMutation, err)
	}
	s.cache.Invalidate(HotelKey(id))
	s.succeeded(deleteMutation)
	s.logger.InfoTag("酒店", "hotel %s deleted", id)
	return nil
}

// Restore brings back a deleted or inactive hotel.
func (s *HotelService) Restore(ctx context.Context, id string) error {
	if _, err := s.api.RestoreHotel(ctx, id); err != nil {
		return s.failed(restoreMutation, err)
	}
	s.cache.Invalidate(HotelKey(id))
	s.succeeded(restoreMutation)
	return nil
}

// UpdatePhoto replaces the photo of a hotel and returns its URL.
func (s *HotelService) UpdatePhoto(ctx context.Context, id string, photo image.Upload) (string, error) {
	if err := s.uploads.Check("photo", &photo, s.limits); err != nil {
		return "", err
	}

	res, err := s.api.UpdateHotelPhoto(ctx, id, photo)
	if err != nil {
		return "", s.failed(photoMutation, err)
	}
	s.cache.Invalidate(HotelKey(id))
	s.succeeded(photoMutation)
	return res.Photo, nil
}

func (s *HotelService) succeeded(m mutation) {
	for _, entity := range m.entities {
		s.cache.InvalidateEntity(entity)
	}
	s.bus.Success(m.success, "")
}

func (s *HotelService) failed(m mutation, err error) error {
	s.bus.Error(genericErrorTitle, describe(err, m.failure))
	s.logger.WarnTag("酒店", "%s: %v", m.failure, err)
	return err
}
