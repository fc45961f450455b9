package utils

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrappersPreserveTaxonomy(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{NotFoundf("order %d", 7), ErrNotFound},
		{InvalidArgumentf("qty %s", "0"), ErrInvalidArgument},
		{Unauthorizedf("user %d", 3), ErrUnauthorized},
		{IllegalTransitionf("task %d", 9), ErrIllegalTransition},
		{InsufficientStockf("item %q", "paint"), ErrInsufficientStock},
	}
	for _, c := range cases {
		if !errors.Is(c.err, c.sentinel) {
			t.Errorf("%v does not wrap %v", c.err, c.sentinel)
		}
	}
}

func TestWrappersKeepFormattedDetail(t *testing.T) {
	err := InsufficientStockf("movement of %s would drive %q to %s", "-4", "paint", "-1")
	if !strings.Contains(err.Error(), `"paint"`) {
		t.Fatalf("detail lost: %v", err)
	}
	if !strings.Contains(err.Error(), ErrInsufficientStock.Error()) {
		t.Fatalf("sentinel text lost: %v", err)
	}
}

func TestTaxonomySurvivesFurtherWrapping(t *testing.T) {
	inner := NotFoundf("task %d", 4)
	outer := fmt.Errorf("finishing task: %w", inner)
	if !errors.Is(outer, ErrNotFound) {
		t.Fatalf("wrapping broke errors.Is: %v", outer)
	}
}
