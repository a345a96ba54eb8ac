package model

// Account is a user account used for balance aggregation and
// recurring-rule labeling.
type Account struct {
	ID       string
	UserID   string
	Name     string
	Currency string
	Deleted  bool
}

// AccountBalance is the all-time income minus expense total for one account.
type AccountBalance struct {
	AccountID string
	Balance   float64
}

// Category labels expense and income transactions. An empty UserID marks a
// global category visible to every user.
type Category struct {
	ID     string
	UserID string
	Name   string
}
