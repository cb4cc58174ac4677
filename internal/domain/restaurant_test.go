package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
)

func makeRestaurant() domain.Restaurant {
	now := time.Now().UTC()
	return domain.Restaurant{
		ID:         "rest-1",
		OwnerEmail: "vendor@example.com",
		Name:       "simply-the-best",
		Status:     "active",
		Profile:    map[string]any{"cuisine": "spanish"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestRestaurantValidateInvariants_Ok(t *testing.T) {
	r := makeRestaurant()
	if errs := r.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestRestaurantValidateInvariants_Errors(t *testing.T) {
	r := makeRestaurant()
	r.OwnerEmail = ""
	r.Name = ""
	if errs := r.ValidateInvariants(); len(errs) != 2 {
		t.Fatalf("expected 2 validation errors, got %v", errs)
	}
}

func TestRestaurantConnected(t *testing.T) {
	r := makeRestaurant()
	if r.Connected() {
		t.Fatal("fresh restaurant should not be connected")
	}
	r.PaymentAccount = "acct_123"
	if !r.Connected() {
		t.Fatal("expected restaurant to be connected")
	}
}

func TestRestaurantCloneProfile(t *testing.T) {
	r := makeRestaurant()
	clone := r.CloneProfile()
	clone["cuisine"] = "thai"
	if r.Profile["cuisine"] != "spanish" {
		t.Fatal("clone must not alias the original profile")
	}

	r.Profile = nil
	if r.CloneProfile() != nil {
		t.Fatal("clone of nil profile must be nil")
	}
}
