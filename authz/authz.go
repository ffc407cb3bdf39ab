// Package authz resolves whether a caller identity may act on a given
// entity. Ownership checks that used to be duplicated inline in every
// handler live here. Lookups fail closed: a store error denies the
// operation with an infrastructure error, never a silent permit.
package authz

import (
	"errors"
	"fmt"

	"qr-order-api/apperrors"
	"qr-order-api/models"
	"qr-order-api/statemachine"

	"gorm.io/gorm"
)

// Identity is the caller resolved from a verified credential.
type Identity struct {
	UserID uint
	Role   models.UserRole
}

type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// RequireRestaurantOwner permits the action iff the caller owns the
// restaurant. A missing restaurant is NotFound regardless of identity.
func (r *Resolver) RequireRestaurantOwner(id Identity, restaurantID uint) error {
	var restaurant models.Restaurant
	if err := r.db.First(&restaurant, restaurantID).Error; err != nil {
		return classify(err)
	}
	if restaurant.OwnerID != id.UserID {
		return apperrors.ErrForbidden
	}
	return nil
}

// RequireMenuItemOwner permits mutation of a menu item iff the caller owns
// the restaurant it belongs to.
func (r *Resolver) RequireMenuItemOwner(id Identity, menuItemID uint) error {
	var item models.MenuItem
	if err := r.db.First(&item, menuItemID).Error; err != nil {
		return classify(err)
	}
	return r.RequireRestaurantOwner(id, item.RestaurantID)
}

// CanReadOrder permits reading an order to its placer and to the owner of
// the restaurant it was placed at.
func (r *Resolver) CanReadOrder(id Identity, order *models.Order) error {
	if order.UserID == id.UserID {
		return nil
	}
	ownerID, err := r.restaurantOwner(order.RestaurantID)
	if err != nil {
		return err
	}
	if ownerID == id.UserID {
		return nil
	}
	return apperrors.ErrForbidden
}

// TransitionActors maps the caller to their state-machine actors for an
// order: the restaurant owner drives the lifecycle forward, the placer
// may cancel. An owner ordering at their own restaurant holds both roles.
// Anyone else is forbidden.
func (r *Resolver) TransitionActors(id Identity, order *models.Order) ([]statemachine.Actor, error) {
	ownerID, err := r.restaurantOwner(order.RestaurantID)
	if err != nil {
		return nil, err
	}
	var actors []statemachine.Actor
	if ownerID == id.UserID {
		actors = append(actors, statemachine.ActorOwner)
	}
	if order.UserID == id.UserID {
		actors = append(actors, statemachine.ActorCustomer)
	}
	if len(actors) == 0 {
		return nil, apperrors.ErrForbidden
	}
	return actors, nil
}

func (r *Resolver) restaurantOwner(restaurantID uint) (uint, error) {
	var restaurant models.Restaurant
	if err := r.db.First(&restaurant, restaurantID).Error; err != nil {
		return 0, classify(err)
	}
	return restaurant.OwnerID, nil
}

func classify(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	return fmt.Errorf("%w: %v", apperrors.ErrInfrastructure, err)
}
