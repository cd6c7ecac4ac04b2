package domain

// TrialBalance is the free, non-renewing allowance granted once per account.
type TrialBalance struct {
	Remaining    int `json:"remaining"`
	Used         int `json:"used"`
	TotalGranted int `json:"total_granted"`
}

// TokenBalance tracks purchased, non-expiring generation capacity.
type TokenBalance struct {
	Balance        int `json:"balance"`
	TotalPurchased int `json:"total_purchased"`
	TotalSpent     int `json:"total_spent"`
	TotalRefunded  int `json:"total_refunded"`
}

// HolidayBalance tracks seasonal credits earned via signup bonus or sharing.
// CanGenerate is computed server-side; the client does not re-derive it.
type HolidayBalance struct {
	Credits           int            `json:"credits"`
	Earned            int            `json:"earned"`
	CanGenerate       bool           `json:"can_generate"`
	EarningsBreakdown map[string]int `json:"earnings_breakdown,omitempty"`
}

// Subscription is the account's subscription state as the server reports it.
type Subscription struct {
	Active bool   `json:"active"`
	Plan   string `json:"plan,omitempty"`
}

// UnifiedBalance is the server-authoritative view over all three ledgers.
// The client only ever holds a cached snapshot of it.
type UnifiedBalance struct {
	Trial        TrialBalance   `json:"trial"`
	Token        TokenBalance   `json:"token"`
	Holiday      HolidayBalance `json:"holiday"`
	Subscription Subscription   `json:"subscription"`
}
