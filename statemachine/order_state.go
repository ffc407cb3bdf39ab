package statemachine

import (
	"fmt"

	"qr-order-api/apperrors"
	"qr-order-api/models"
)

// Actor identifies who is requesting a state change.
type Actor string

const (
	// ActorOwner is the owner of the restaurant the order was placed at.
	ActorOwner Actor = "owner"
	// ActorCustomer is the user who placed the order.
	ActorCustomer Actor = "customer"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
}

// validTransitions is the authoritative state machine definition.
// The restaurant owner drives the order forward; the customer may only
// cancel, and only while the order is still pending.
var validTransitions = []Transition{
	{From: models.StatusPending, To: models.StatusAccepted, Actor: ActorOwner},
	{From: models.StatusAccepted, To: models.StatusPreparing, Actor: ActorOwner},
	{From: models.StatusPreparing, To: models.StatusReady, Actor: ActorOwner},
	{From: models.StatusReady, To: models.StatusCompleted, Actor: ActorOwner},
	{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorCustomer},
}

// transitionKey is used to look up valid transitions quickly
type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
}

// Build a lookup map for O(1) validation
var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// IsTerminal reports whether no transition leaves the given state.
func IsTerminal(status models.OrderStatus) bool {
	return len(ValidTransitionsFrom(status)) == 0
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor Actor) error {
	key := transitionKey{From: from, To: to, Actor: actor}
	if transitionMap[key] {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s is not allowed for actor %q (valid next states: %s)",
		apperrors.ErrInvalidTransition, from, to, actor, describeValidFrom(from))
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	result := ""
	for i, s := range nexts {
		if i > 0 {
			result += ", "
		}
		result += string(s)
	}
	return result
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
