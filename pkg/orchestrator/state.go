package orchestrator

// State — состояние конечного автомата покупки. В один момент времени
// оркестратор находится ровно в одном состоянии, переходы защищены мьютексом.
type State int

const (
	// StateIdle — покупка не выполняется, можно начинать новую.
	StateIdle State = iota
	// StatePurchasing — запущен нативный диалог покупки, ждём событие от SDK.
	StatePurchasing
	// StateValidating — чек отправлен на сервер валидации.
	StateValidating
	// StateActive — покупка подтверждена сервером.
	StateActive
	// StateFailed — попытка завершилась ошибкой.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePurchasing:
		return "purchasing"
	case StateValidating:
		return "validating"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
