package models

import (
	"fmt"
	"strings"
)

// Priority of a task. Required at creation.
type Priority string

// Priority constants
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorityRanks = map[Priority]int{
	PriorityLow:    1,
	PriorityMedium: 2,
	PriorityHigh:   3,
	PriorityUrgent: 4,
}

// ParsePriority validates a priority value.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := priorityRanks[p]; !ok {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// Rank orders priorities; urgent is highest.
func (p Priority) Rank() int {
	return priorityRanks[p]
}

// DeliveryLocation tags where a task's item should be brought.
type DeliveryLocation string

// Delivery locations
const (
	LocationCheckout       DeliveryLocation = "checkout"
	LocationFittingRoom    DeliveryLocation = "fitting_room"
	LocationShowroom       DeliveryLocation = "showroom"
	LocationWarehouse      DeliveryLocation = "warehouse"
	LocationCustomerPickup DeliveryLocation = "customer_pickup"
)

// ParseDeliveryLocation validates a delivery location tag.
func ParseDeliveryLocation(s string) (DeliveryLocation, error) {
	l := DeliveryLocation(strings.ToLower(strings.TrimSpace(s)))
	switch l {
	case LocationCheckout, LocationFittingRoom, LocationShowroom, LocationWarehouse, LocationCustomerPickup:
		return l, nil
	}
	return "", fmt.Errorf("unknown delivery location %q", s)
}
