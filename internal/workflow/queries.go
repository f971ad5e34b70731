package workflow

import (
	"context"

	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/store"
)

// Read side of the coordinator. Queries go straight to the store; they see
// only committed state.

func (s *Service) GetRequisition(ctx context.Context, requisitionID string) (*models.Requisition, error) {
	return s.store.GetRequisition(ctx, requisitionID)
}

func (s *Service) ListRequisitions(ctx context.Context, filter store.RequisitionFilter) ([]models.Requisition, error) {
	return s.store.ListRequisitions(ctx, filter)
}

func (s *Service) GetStockLevel(ctx context.Context, productSKU string) (models.StockLevel, error) {
	if _, err := s.store.GetProduct(ctx, productSKU); err != nil {
		return models.StockLevel{}, err
	}
	return s.ledger.OnHand(ctx, productSKU)
}

func (s *Service) ListReceiptHistory(ctx context.Context, requisitionID string) ([]models.ReceiptEvent, error) {
	if _, err := s.store.GetRequisition(ctx, requisitionID); err != nil {
		return nil, err
	}
	return s.store.ListReceipts(ctx, requisitionID)
}

// AttachReceiptDocument links an uploaded delivery-note URL to an existing
// receipt. The receipt's quantity record is never touched.
func (s *Service) AttachReceiptDocument(ctx context.Context, receiptID, url string) error {
	if _, err := s.store.GetReceipt(ctx, receiptID); err != nil {
		return err
	}
	return s.store.SetReceiptDocument(ctx, receiptID, url)
}

func (s *Service) ListMovements(ctx context.Context, productSKU string) ([]models.StockMovement, error) {
	if _, err := s.store.GetProduct(ctx, productSKU); err != nil {
		return nil, err
	}
	return s.store.ListMovements(ctx, productSKU)
}

func (s *Service) ListDispatches(ctx context.Context, productSKU string) ([]models.DispatchEvent, error) {
	return s.store.ListDispatches(ctx, productSKU)
}
