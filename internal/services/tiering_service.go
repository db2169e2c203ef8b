package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"gamestore/internal/models"
	"gamestore/internal/repositories"

	"github.com/shopspring/decimal"
)

// SalesHistory is an admin view of one customer's orders and tier.
type SalesHistory struct {
	UserID  string          `json:"user_id"`
	Email   string          `json:"email"`
	Orders  []models.Order  `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
	Tier    models.Tier     `json:"tier"`
}

// TieringService computes customer profit and segments users into tiers.
type TieringService struct {
	log    *slog.Logger
	users  repositories.UserRepository
	orders repositories.OrderRepository
}

// NewTieringService creates a new TieringService.
func NewTieringService(log *slog.Logger, users repositories.UserRepository, orders repositories.OrderRepository) *TieringService {
	return &TieringService{log: log, users: users, orders: orders}
}

// ComputeProfitPerUser sums (unitPrice - unitBuyPrice) * quantity over every order line,
// grouped by the ordering user. Every known user appears, with zero when they have no orders.
func (s *TieringService) ComputeProfitPerUser(ctx context.Context) (map[string]decimal.Decimal, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.profitsFor(ctx, users)
}

func (s *TieringService) profitsFor(ctx context.Context, users []models.User) (map[string]decimal.Decimal, error) {
	lines, err := s.orders.ProfitLines(ctx)
	if err != nil {
		return nil, err
	}

	profits := make(map[string]decimal.Decimal, len(users))
	for _, u := range users {
		profits[u.ID] = decimal.Zero
	}
	for _, line := range lines {
		current, known := profits[line.UserID]
		if !known {
			// Orders of deleted users stay in the ledger but have no audience.
			continue
		}
		margin := line.UnitPrice.Sub(line.UnitBuyPrice).Mul(decimal.NewFromInt(int64(line.Quantity)))
		profits[line.UserID] = current.Add(margin)
	}
	return profits, nil
}

// BuildAudience returns the distinct, non-blank emails of users in the target tier,
// or of every user for "All". The result is sorted.
func (s *TieringService) BuildAudience(ctx context.Context, target string) ([]string, error) {
	if !validAudience(target) {
		ve := newValidationError()
		ve.Add("target", "must be one of: All Bronze Silver Gold Platinum")
		return nil, ve
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	profits, err := s.profitsFor(ctx, users)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(users))
	recipients := make([]string, 0, len(users))
	for _, u := range users {
		email := strings.TrimSpace(u.Email)
		if email == "" {
			continue
		}
		if target != models.AudienceAll && models.TierFromProfit(profits[u.ID]) != models.Tier(target) {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		recipients = append(recipients, email)
	}
	sort.Strings(recipients)

	s.log.Debug("audience built", slog.String("target", target), slog.Int("count", len(recipients)))
	return recipients, nil
}

// UserSalesHistory returns one user's orders with revenue, profit and tier.
func (s *TieringService) UserSalesHistory(ctx context.Context, userID string) (*SalesHistory, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrNotFound
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := summarize(orders)
	return &SalesHistory{
		UserID:  user.ID,
		Email:   user.Email,
		Orders:  summary.Orders,
		Revenue: summary.Revenue,
		Profit:  summary.Profit,
		Tier:    summary.Tier,
	}, nil
}

func validAudience(target string) bool {
	switch models.Tier(target) {
	case models.TierBronze, models.TierSilver, models.TierGold, models.TierPlatinum:
		return true
	}
	return target == models.AudienceAll
}
