package domain

// RecoverySnapshot is the minimal state needed to resume polling an
// in-flight generation after a process restart.
type RecoverySnapshot struct {
	RequestID string
	Areas     []AreaSpec
	Address   string
}
