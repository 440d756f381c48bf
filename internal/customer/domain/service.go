package domain

import (
	"context"
	"errors"
)

type EnsureCustomerRequest struct {
	UID   string
	Email string
}

type Service interface {
	// EnsureCustomer returns the buyer's processor customer, creating it on
	// first use.
	EnsureCustomer(context.Context, EnsureCustomerRequest) (Customer, error)
}

var (
	ErrInvalidUID   = errors.New("invalid_uid")
	ErrInvalidEmail = errors.New("invalid_email")
)
