// Package svcutil holds the loading and error-translation helpers shared by
// the billing services.
package svcutil

import (
	"context"
	"errors"

	"github.com/dmitrymomot/saasbilling/pkg/apperr"
	"github.com/dmitrymomot/saasbilling/pkg/model"
	"github.com/dmitrymomot/saasbilling/pkg/processor"
	"github.com/dmitrymomot/saasbilling/pkg/store"
)

var ErrSubscriptionNotFound = apperr.New(apperr.NotFound, "subscription.not_found")

// LoadSubscription fetches a subscription, reporting a missing one as
// ErrSubscriptionNotFound.
func LoadSubscription(ctx context.Context, subs store.Subscriptions, id string) (*model.Subscription, error) {
	if id == "" {
		return nil, ErrSubscriptionNotFound
	}
	sub, err := subs.GetSubscription(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSubscriptionNotFound.With(err)
		}
		return nil, StoreError(err)
	}
	return sub, nil
}

// StoreError classifies a store failure. Errors that already carry a kind pass
// through unchanged.
func StoreError(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, "store.not_found", err)
	}
	return apperr.Wrap(apperr.Internal, "store.failed", err)
}

// ProcessorError classifies a processor failure: a missing object is NotFound,
// anything else is Internal.
func ProcessorError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, processor.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, "processor.not_found", err)
	}
	return apperr.Wrap(apperr.Internal, "processor.failed", err)
}
