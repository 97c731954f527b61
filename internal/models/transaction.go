package models

import "time"

type Transaction struct {
	ID          int64
	UserID      string
	Amount      int64
	Description string
	Category    *string
	CreatedAt   time.Time
}

func (t Transaction) CategoryOr(fallback string) string {
	if t.Category == nil || *t.Category == "" {
		return fallback
	}
	return *t.Category
}

// TransactionFilter narrows a transaction query. Since is inclusive, Until
// exclusive.
type TransactionFilter struct {
	Category string
	Keyword  string
	Since    *time.Time
	Until    *time.Time
	Limit    int
}

// CategoryTotal sums one category. TotalNegative is the (negative) sum of
// its expenses alone.
type CategoryTotal struct {
	Category      *string
	Total         int64
	TotalNegative int64
}

type Summary struct {
	Balance int64
	Rows    []Transaction
}
