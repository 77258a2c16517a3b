package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/discr/discr-api/models"
	"gorm.io/gorm"
)

// MaxCodeResolutionAttempts bounds the generate-then-verify rounds for one batch
const MaxCodeResolutionAttempts = 3

// ErrCodePoolExhausted is returned when collisions keep a batch short after every round
var ErrCodePoolExhausted = errors.New("failed to generate unique QR codes")

// CodeRegistry answers which of a set of codes have already been issued
type CodeRegistry interface {
	ExistingCodes(ctx context.Context, codes []string) (map[string]bool, error)
}

// CodeGeneratorFunc returns count codes that are distinct from each other
type CodeGeneratorFunc func(count int) []string

// GormCodeRegistry checks the qr_codes table
type GormCodeRegistry struct {
	DB *gorm.DB
}

// ExistingCodes returns the subset of codes already present in qr_codes
func (r GormCodeRegistry) ExistingCodes(ctx context.Context, codes []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(codes) == 0 {
		return existing, nil
	}

	var found []string
	if err := r.DB.WithContext(ctx).
		Model(&models.QRCode{}).
		Where("short_code IN ?", codes).
		Pluck("short_code", &found).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing codes: %w", err)
	}
	for _, code := range found {
		existing[code] = true
	}
	return existing, nil
}

// ResolveUniqueCodes returns quantity codes that are absent from the registry.
//
// The first round checks quantity fresh candidates. Every later round backfills
// twice the remaining shortfall, drops known collisions and already accepted
// values, and checks the rest against the registry again. After
// MaxCodeResolutionAttempts rounds without a full batch it gives up with
// ErrCodePoolExhausted.
func ResolveUniqueCodes(ctx context.Context, registry CodeRegistry, generate CodeGeneratorFunc, quantity int) ([]string, error) {
	if quantity <= 0 {
		return []string{}, nil
	}

	accepted := make([]string, 0, quantity)
	acceptedSet := make(map[string]bool, quantity)
	collided := make(map[string]bool)

	for attempt := 0; attempt < MaxCodeResolutionAttempts; attempt++ {
		var candidates []string
		if attempt == 0 {
			candidates = generate(quantity)
		} else {
			candidates = generate((quantity - len(accepted)) * 2)
		}

		fresh := make([]string, 0, len(candidates))
		for _, code := range candidates {
			if !acceptedSet[code] && !collided[code] {
				fresh = append(fresh, code)
			}
		}

		existing, err := registry.ExistingCodes(ctx, fresh)
		if err != nil {
			return nil, err
		}

		for _, code := range fresh {
			if existing[code] {
				collided[code] = true
				continue
			}
			if len(accepted) < quantity && !acceptedSet[code] {
				accepted = append(accepted, code)
				acceptedSet[code] = true
			}
		}

		if len(accepted) == quantity {
			return accepted, nil
		}
	}

	return nil, ErrCodePoolExhausted
}
