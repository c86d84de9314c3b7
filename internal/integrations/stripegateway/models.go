package stripegateway

// ChargeStatus исход попытки списания
type ChargeStatus string

const (
	// ChargeSucceeded деньги списаны
	ChargeSucceeded ChargeStatus = "succeeded"

	// ChargeRequiresAction платеж ждет подтверждения на стороне клиента (3DS);
	// клиенту возвращается client secret для завершения оплаты
	ChargeRequiresAction ChargeStatus = "requiresAction"

	// ChargeFailed списание не удалось
	ChargeFailed ChargeStatus = "failed"
)

// ChargeResult результат обращения к платежному шлюзу
type ChargeResult struct {
	Status ChargeStatus

	IntentID string

	// ClientSecret заполняется только при ChargeRequiresAction
	ClientSecret string
}

// ChargeRequest параметры списания
type ChargeRequest struct {
	// Amount сумма в основной валютной единице
	Amount   float64
	Currency string

	PaymentMethodID string

	// IdempotencyKey защищает от двойного списания при ретраях
	IdempotencyKey string

	Description string
}
