package cart

import (
	"context"
	"errors"

	"craftkart/internal/domain"
	cartrepo "craftkart/internal/repository/cart"
)

// MergeGuestCarts folds a guest's ACTIVE carts into the customer's cart at
// login. Quantities for matching product+length variants are summed; replace
// semantics would silently drop items the shopper added on another surface.
// Merged guest carts become CHECKED_OUT so they can never be merged twice.
func (s *Service) MergeGuestCarts(ctx context.Context, customerID, sessionID, deviceFingerprint string) (*domain.Cart, error) {
	target, err := s.repo.GetActiveByCustomer(ctx, customerID)
	if errors.Is(err, domain.ErrNotFound) {
		target, err = s.GetOrCreate(ctx, Identity{CustomerID: customerID})
	}
	if err != nil {
		return nil, err
	}

	guests, err := s.repo.GetActiveGuestCarts(ctx, sessionID, deviceFingerprint)
	if err != nil {
		return nil, err
	}
	if len(guests) == 0 {
		return target, nil
	}

	merged := 0
	for _, guest := range guests {
		for _, item := range guest.Items {
			if err := s.repo.AddItem(ctx, target.ID, cartrepo.AddItemInput{
				ProductID:           item.ProductID,
				Quantity:            item.Quantity,
				UnitPriceCents:      item.UnitPriceCents,
				CustomLengthMM:      item.CustomLengthMM,
				CalculatedUnitCents: item.CalculatedUnitCents,
				IsGift:              item.IsGift,
				GiftMessage:         item.GiftMessage,
				DiscountCents:       item.DiscountCents,
			}); err != nil {
				return nil, err
			}
		}
		if err := s.repo.SetStatus(ctx, guest.ID, domain.CartCheckedOut); err != nil {
			return nil, err
		}
		merged++
	}
	s.logger.Printf("cart service: merged %d guest cart(s) into cart=%s customer=%s", merged, target.ID, customerID)

	return s.reprice(ctx, target.ID)
}
