package service

import (
	"context"
	"fmt"

	"github.com/spendwise/spendwise/internal/catalog"
	"github.com/spendwise/spendwise/internal/database/repository"
	"github.com/spendwise/spendwise/internal/session"
)

// ShoppingService answers "which store is cheapest for this list" from
// recorded purchase history.
type ShoppingService struct {
	Transactions *repository.TransactionRepo
	Mappings     *repository.MappingRepo
	Session      session.Provider
}

// CheapestStore resolves the shopping list against price history. With
// visitedOnly the comparison covers only stores the current user has shopped
// at; otherwise all recorded stores compete. Either way a store missing any
// item is disqualified, and catalog.ErrNoFulfillingStore is returned when no
// store can cover the full list.
func (s *ShoppingService) CheapestStore(ctx context.Context, items []string, visitedOnly bool) (catalog.StoreQuote, error) {
	userID, err := s.Session.UserID(ctx)
	if err != nil {
		return catalog.StoreQuote{}, err
	}

	mappings, err := s.Mappings.List(ctx)
	if err != nil {
		return catalog.StoreQuote{}, fmt.Errorf("list mappings: %w", err)
	}

	var history []catalog.PriceRecord
	if visitedOnly {
		history, err = s.Transactions.PriceHistory(ctx, userID)
	} else {
		history, err = s.Transactions.PriceHistoryAll(ctx)
	}
	if err != nil {
		return catalog.StoreQuote{}, fmt.Errorf("price history: %w", err)
	}

	return catalog.CheapestStore(items, mappings, history, nil)
}
