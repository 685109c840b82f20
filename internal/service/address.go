package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/linemk/marketplace/internal/storage"
)

type AddressService interface {
	Create(ctx context.Context, userID int64, address *models.Address) (*models.Address, error)
	List(ctx context.Context, userID int64) ([]*models.Address, error)
}

type addressService struct {
	log         *slog.Logger
	addressRepo storage.AddressStorage
}

func NewAddressService(log *slog.Logger, addressRepo storage.AddressStorage) AddressService {
	return &addressService{log: log, addressRepo: addressRepo}
}

func (s *addressService) Create(ctx context.Context, userID int64, address *models.Address) (*models.Address, error) {
	const op = "service.AddressService.Create"

	address.UserID = userID
	created, err := s.addressRepo.CreateAddress(ctx, address)
	if err != nil {
		s.log.Error("failed to create address", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

func (s *addressService) List(ctx context.Context, userID int64) ([]*models.Address, error) {
	const op = "service.AddressService.List"

	addresses, err := s.addressRepo.ListAddresses(ctx, userID)
	if err != nil {
		s.log.Error("failed to list addresses", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if addresses == nil {
		addresses = []*models.Address{}
	}
	return addresses, nil
}
