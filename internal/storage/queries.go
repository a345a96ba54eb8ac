package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/umutugur/mintly-advisor/internal/common"
	"github.com/umutugur/mintly-advisor/internal/model"
)

// FindUserPreferences returns the user's preferences, applying defaults
// for users without a stored preference row. A missing user is an error.
func (s *SQLiteStorage) FindUserPreferences(ctx context.Context, userID string) (model.Preferences, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Preferences{}, common.ErrUserNotFound
	}
	if err != nil {
		return model.Preferences{}, fmt.Errorf("failed to look up user: %w", err)
	}

	prefs := model.DefaultPreferences(userID)
	err = s.db.QueryRowContext(ctx, `
		SELECT base_currency, risk_profile, savings_target_rate
		FROM preferences WHERE user_id = ?`, userID,
	).Scan(&prefs.BaseCurrency, &prefs.RiskProfile, &prefs.SavingsTargetRate)
	if errors.Is(err, sql.ErrNoRows) {
		return prefs, nil
	}
	if err != nil {
		return model.Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	return prefs, nil
}

// FindAccounts returns the user's non-deleted accounts.
func (s *SQLiteStorage) FindAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, currency
		FROM accounts
		WHERE user_id = ? AND deleted = 0
		ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// FindTransactions returns non-deleted normal-kind transactions with
// from <= occurred_at < to, oldest first.
func (s *SQLiteStorage) FindTransactions(ctx context.Context, userID string, from, to time.Time) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, account_id, category_id, currency, description, type, kind, amount, occurred_at
		FROM transactions
		WHERE user_id = ? AND deleted = 0 AND kind = ? AND occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at`, userID, model.KindNormal, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &t.Currency,
			&t.Description, &t.Type, &t.Kind, &t.Amount, &t.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// FindBudgets returns the user's non-deleted budgets for one month.
func (s *SQLiteStorage) FindBudgets(ctx context.Context, userID, month string) ([]model.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category_id, month, limit_amount
		FROM budgets
		WHERE user_id = ? AND month = ? AND deleted = 0
		ORDER BY category_id`, userID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		var b model.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Month, &b.LimitAmount); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// FindRecurringRules returns active rules that drain money: normal
// expenses and transfers.
func (s *SQLiteStorage) FindRecurringRules(ctx context.Context, userID string) ([]model.RecurringRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category_id, from_account_id, to_account_id, kind, type, cadence, amount, next_run_at
		FROM recurring_rules
		WHERE user_id = ? AND deleted = 0 AND paused = 0
		  AND (kind = ? OR (kind = ? AND type = ?))
		ORDER BY id`, userID, model.KindTransfer, model.KindNormal, model.TypeExpense)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.RecurringRule
	for rows.Next() {
		var r model.RecurringRule
		var nextRun sql.NullTime
		if err := rows.Scan(&r.ID, &r.UserID, &r.CategoryID, &r.FromAccountID, &r.ToAccountID,
			&r.Kind, &r.Type, &r.Cadence, &r.Amount, &nextRun); err != nil {
			return nil, fmt.Errorf("failed to scan recurring rule: %w", err)
		}
		if nextRun.Valid {
			r.NextRunAt = nextRun.Time
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// FindCategories resolves ids against the user's own categories plus
// global ones (empty user_id).
func (s *SQLiteStorage) FindCategories(ctx context.Context, userID string, ids []string) ([]model.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, userID)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, user_id, name
		FROM categories
		WHERE id IN (%s) AND (user_id = ? OR user_id = '')
		ORDER BY name`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// AggregateAccountBalances computes each non-deleted account's all-time
// income minus expense total from normal-kind transactions.
func (s *SQLiteStorage) AggregateAccountBalances(ctx context.Context, userID string) ([]model.AccountBalance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id,
		       COALESCE(SUM(CASE WHEN t.type = ? THEN t.amount ELSE -t.amount END), 0)
		FROM accounts a
		LEFT JOIN transactions t
		  ON t.account_id = a.id AND t.deleted = 0 AND t.kind = ?
		WHERE a.user_id = ? AND a.deleted = 0
		GROUP BY a.id
		ORDER BY a.id`, model.TypeIncome, model.KindNormal, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate balances: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var balances []model.AccountBalance
	for rows.Next() {
		var b model.AccountBalance
		if err := rows.Scan(&b.AccountID, &b.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// SaveUser inserts or updates a user record.
func (s *SQLiteStorage) SaveUser(ctx context.Context, user model.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		user.ID, user.Name, user.Email)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// SavePreferences inserts or updates a user's preferences.
func (s *SQLiteStorage) SavePreferences(ctx context.Context, prefs model.Preferences) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, base_currency, risk_profile, savings_target_rate)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			base_currency = excluded.base_currency,
			risk_profile = excluded.risk_profile,
			savings_target_rate = excluded.savings_target_rate`,
		prefs.UserID, prefs.BaseCurrency, prefs.RiskProfile, prefs.SavingsTargetRate)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// SaveAccount inserts or updates an account.
func (s *SQLiteStorage) SaveAccount(ctx context.Context, account model.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, currency, deleted)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			currency = excluded.currency,
			deleted = excluded.deleted`,
		account.ID, account.UserID, account.Name, account.Currency, account.Deleted)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// SaveCategory inserts or updates a category.
func (s *SQLiteStorage) SaveCategory(ctx context.Context, category model.Category) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		category.ID, category.UserID, category.Name)
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

// SaveTransactions inserts or updates a batch of transactions in one
// database transaction.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, txns []model.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (id, user_id, account_id, category_id, currency, description, type, kind, amount, occurred_at, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_id = excluded.category_id,
			description = excluded.description,
			amount = excluded.amount,
			occurred_at = excluded.occurred_at,
			deleted = excluded.deleted`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range txns {
		if _, err := stmt.ExecContext(ctx, t.ID, t.UserID, t.AccountID, t.CategoryID, t.Currency,
			t.Description, t.Type, t.Kind, t.Amount, t.OccurredAt.UTC(), t.Deleted); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}
	return nil
}

// SaveBudget inserts or updates a budget.
func (s *SQLiteStorage) SaveBudget(ctx context.Context, budget model.Budget) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (id, user_id, category_id, month, limit_amount, deleted)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			limit_amount = excluded.limit_amount,
			deleted = excluded.deleted`,
		budget.ID, budget.UserID, budget.CategoryID, budget.Month, budget.LimitAmount, budget.Deleted)
	if err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}
	return nil
}

// SaveRecurringRule inserts or updates a recurring rule.
func (s *SQLiteStorage) SaveRecurringRule(ctx context.Context, rule model.RecurringRule) error {
	var nextRun any
	if !rule.NextRunAt.IsZero() {
		nextRun = rule.NextRunAt.UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_rules (id, user_id, category_id, from_account_id, to_account_id, kind, type, cadence, amount, next_run_at, paused, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			cadence = excluded.cadence,
			next_run_at = excluded.next_run_at,
			paused = excluded.paused,
			deleted = excluded.deleted`,
		rule.ID, rule.UserID, rule.CategoryID, rule.FromAccountID, rule.ToAccountID,
		rule.Kind, rule.Type, rule.Cadence, rule.Amount, nextRun, rule.Paused, rule.Deleted)
	if err != nil {
		return fmt.Errorf("failed to save recurring rule: %w", err)
	}
	return nil
}
