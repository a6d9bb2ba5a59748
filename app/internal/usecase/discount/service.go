package discount

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domdiscount "example.com/mechstore/app/internal/domain/discount"
)

// Validation is the upstream verdict for a code.
type Validation struct {
	Valid   bool
	Percent decimal.Decimal
}

type Validator interface {
	ValidateDiscount(ctx context.Context, code string) (*Validation, error)
}

type Service struct {
	validator Validator
	logger    *zap.Logger
}

func NewService(validator Validator, logger *zap.Logger) *Service {
	return &Service{validator: validator, logger: logger}
}

// Apply normalizes code and confirms it upstream.
func (s *Service) Apply(ctx context.Context, code string) (domdiscount.State, error) {
	code = domdiscount.NormalizeCode(code)
	if code == "" {
		return domdiscount.State{}, domdiscount.ErrEmptyCode
	}

	res, err := s.validator.ValidateDiscount(ctx, code)
	if err != nil {
		return domdiscount.State{}, fmt.Errorf("validate discount code: %w", err)
	}
	if res == nil || !res.Valid {
		s.logger.Info("discount code rejected", zap.String("code", code))
		return domdiscount.State{}, domdiscount.ErrInvalidCode
	}

	st, err := domdiscount.NewState(code, res.Percent)
	if err != nil {
		s.logger.Warn("upstream returned out-of-range discount",
			zap.String("code", code), zap.String("percent", res.Percent.String()))
		return domdiscount.State{}, domdiscount.ErrInvalidCode
	}
	return st, nil
}

// Revalidate re-checks an applied state. The upstream percent wins if it
// changed since the code was applied.
func (s *Service) Revalidate(ctx context.Context, st domdiscount.State) (domdiscount.State, error) {
	if !st.Applied {
		return st, nil
	}
	fresh, err := s.Apply(ctx, st.Code)
	if err != nil {
		return domdiscount.State{}, err
	}
	if !fresh.Percent.Equal(st.Percent) {
		s.logger.Info("discount percent changed since apply",
			zap.String("code", st.Code),
			zap.String("was", st.Percent.String()),
			zap.String("now", fresh.Percent.String()))
	}
	return fresh, nil
}
