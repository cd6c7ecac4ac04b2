// Package auth decides which ledger pays for the next generation.
//
// The priority order is fixed: an active subscription wins over trial
// credits, trial credits win over purchased tokens. Keeping the selection
// in one pure function means gating can never disagree with whatever
// balance the rest of the app is displaying.
package auth

import "github.com/yarda-ai/orchestrator/internal/core/domain"

// Method identifies the ledger a generation would be charged against.
type Method string

const (
	MethodSubscription Method = "subscription"
	MethodTrial        Method = "trial"
	MethodToken        Method = "token"
	MethodNone         Method = "none"
)

// Resolve maps a balance snapshot to the chargeable method.
// A nil balance (cache not yet populated) resolves to none.
func Resolve(bal *domain.UnifiedBalance) Method {
	if bal == nil {
		return MethodNone
	}
	if bal.Subscription.Active {
		return MethodSubscription
	}
	if bal.Trial.Remaining > 0 {
		return MethodTrial
	}
	if bal.Token.Balance > 0 {
		return MethodToken
	}
	return MethodNone
}

// CanGenerate reports whether the standard flow has anything to charge.
func CanGenerate(bal *domain.UnifiedBalance) bool {
	return Resolve(bal) != MethodNone
}

// CanGenerateHoliday reports whether the seasonal flow may generate.
// Holiday eligibility is server-computed and independent of the three
// standard ledgers.
func CanGenerateHoliday(bal *domain.UnifiedBalance) bool {
	return bal != nil && bal.Holiday.CanGenerate
}
