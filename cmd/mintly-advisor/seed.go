package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/umutugur/mintly-advisor/internal/model"
	"github.com/umutugur/mintly-advisor/internal/storage"
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a demo dataset for local exploration",
		Long: `Create a demo user with three months of transactions, budgets, and
recurring rules so the insight command has data to work with.`,
		RunE: runSeed,
	}

	cmd.Flags().String("user", "demo", "user id to seed")
	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetString("user")

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := seedDemoData(ctx, store, userID); err != nil {
		return fmt.Errorf("failed to seed demo data: %w", err)
	}

	slog.Info("Demo data loaded", "user_id", userID)
	return nil
}

func seedDemoData(ctx context.Context, store *storage.SQLiteStorage, userID string) error {
	if err := store.SaveUser(ctx, model.User{ID: userID, Name: "Demo User", Email: "demo@example.com"}); err != nil {
		return err
	}
	if err := store.SavePreferences(ctx, model.Preferences{
		UserID:            userID,
		BaseCurrency:      "USD",
		RiskProfile:       model.RiskMedium,
		SavingsTargetRate: 20,
	}); err != nil {
		return err
	}

	checking := model.Account{ID: userID + "-checking", UserID: userID, Name: "Checking", Currency: "USD"}
	savings := model.Account{ID: userID + "-savings", UserID: userID, Name: "Savings", Currency: "USD"}
	for _, a := range []model.Account{checking, savings} {
		if err := store.SaveAccount(ctx, a); err != nil {
			return err
		}
	}

	categories := []model.Category{
		{ID: "cat-salary", Name: "Salary"},
		{ID: "cat-rent", Name: "Rent"},
		{ID: "cat-food", Name: "Food"},
		{ID: "cat-transport", Name: "Transport"},
		{ID: "cat-entertainment", Name: "Entertainment"},
		{ID: "cat-utilities", Name: "Utilities"},
	}
	for _, c := range categories {
		if err := store.SaveCategory(ctx, c); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var txns []model.Transaction
	addTxn := func(month time.Time, day int, categoryID, description string, txType model.TransactionType, amount float64) {
		occurred := month.AddDate(0, 0, day-1).Add(12 * time.Hour)
		txns = append(txns, model.Transaction{
			ID:          fmt.Sprintf("%s-%s-%s-%d", userID, month.Format("2006-01"), categoryID, day),
			UserID:      userID,
			AccountID:   checking.ID,
			CategoryID:  categoryID,
			Currency:    "USD",
			Description: description,
			Type:        txType,
			Kind:        model.KindNormal,
			Amount:      amount,
			OccurredAt:  occurred,
		})
	}

	// Three months of activity, slightly varied so trends and
	// month-over-month figures are non-trivial.
	for offset := 2; offset >= 0; offset-- {
		month := monthStart.AddDate(0, -offset, 0)
		variation := float64(offset) * 120

		addTxn(month, 1, "cat-salary", "Monthly salary", model.TypeIncome, 5200)
		addTxn(month, 2, "cat-rent", "Apartment rent", model.TypeExpense, 1600)
		addTxn(month, 5, "cat-food", "Grocery Store", model.TypeExpense, 420-variation/4)
		addTxn(month, 12, "cat-food", "Grocery Store", model.TypeExpense, 380)
		addTxn(month, 8, "cat-transport", "Metro card", model.TypeExpense, 90)
		addTxn(month, 15, "cat-entertainment", "Cinema night", model.TypeExpense, 60+variation/2)
		addTxn(month, 20, "cat-utilities", "Electricity bill", model.TypeExpense, 140+variation/3)
	}
	// One outsized purchase in the current month for anomaly detection.
	addTxn(monthStart, 18, "cat-entertainment", "Concert tickets", model.TypeExpense, 640)

	if err := store.SaveTransactions(ctx, txns); err != nil {
		return err
	}

	if err := store.SaveBudget(ctx, model.Budget{
		ID:          userID + "-budget-food",
		UserID:      userID,
		CategoryID:  "cat-food",
		Month:       monthStart.Format("2006-01"),
		LimitAmount: 900,
	}); err != nil {
		return err
	}

	rules := []model.RecurringRule{
		{
			ID:         userID + "-rule-rent",
			UserID:     userID,
			CategoryID: "cat-rent",
			Kind:       model.KindNormal,
			Type:       model.TypeExpense,
			Cadence:    model.CadenceMonthly,
			Amount:     1600,
		},
		{
			ID:         userID + "-rule-streaming",
			UserID:     userID,
			CategoryID: "cat-entertainment",
			Kind:       model.KindNormal,
			Type:       model.TypeExpense,
			Cadence:    model.CadenceMonthly,
			Amount:     35,
		},
		{
			ID:            userID + "-rule-savings",
			UserID:        userID,
			FromAccountID: checking.ID,
			ToAccountID:   savings.ID,
			Kind:          model.KindTransfer,
			Cadence:       model.CadenceMonthly,
			Amount:        500,
		},
	}
	for _, r := range rules {
		if err := store.SaveRecurringRule(ctx, r); err != nil {
			return err
		}
	}

	return nil
}
