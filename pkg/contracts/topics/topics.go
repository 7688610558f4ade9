package topics

const (
	// Pagamentos (processador externo)
	PaymentRequested = "payment_requested"
	PaymentSettled   = "payment_settled"

	// Trilha de auditoria do ledger
	LedgerEntries = "ledger_entries"

	// DLQs
	PaymentSettledDLQ = "payment_settled_dlq"
)
