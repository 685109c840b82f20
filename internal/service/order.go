package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/linemk/marketplace/internal/storage"
)

// OrderService — чтение заказов покупателя.
type OrderService interface {
	List(ctx context.Context, userID int64) ([]*models.Order, error)
	// Get возвращает заказ вместе с позициями и посылками; чужой заказ выглядит как несуществующий
	Get(ctx context.Context, userID, orderID int64) (*models.Order, error)
}

type orderService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
	shipRepo  storage.ShipmentStorage
}

func NewOrderService(log *slog.Logger, orderRepo storage.OrderStorage, shipRepo storage.ShipmentStorage) OrderService {
	return &orderService{
		log:       log,
		orderRepo: orderRepo,
		shipRepo:  shipRepo,
	}
}

func (s *orderService) List(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "service.OrderService.List"

	orders, err := s.orderRepo.ListOrdersByUser(ctx, userID)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return orders, nil
}

func (s *orderService) Get(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	const op = "service.OrderService.Get"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("orderID", orderID))

	order, err := s.orderRepo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
	}

	order.Items, err = s.orderRepo.ListOrderItems(ctx, orderID)
	if err != nil {
		logger.Error("failed to list order items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	order.Shipments, err = s.shipRepo.ListShipmentsByOrder(ctx, orderID)
	if err != nil {
		logger.Error("failed to list shipments", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}
