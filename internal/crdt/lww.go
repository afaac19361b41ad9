// Package crdt содержит правило разрешения конфликтов Last-Write-Wins
// и логические часы, которыми клиент штампует локальные изменения.
package crdt

// Причины, по которым изменение не применено.
const (
	ReasonStale   = "stale"   // существующая версия не старше входящей
	ReasonInvalid = "invalid" // изменение нарушает ограничения сервера
)

// Decision результат сравнения входящего изменения с текущим состоянием.
// Отказ применить изменение является обычным исходом, а не ошибкой.
type Decision struct {
	Reason  string // причина отказа, пусто если Applied
	Applied bool
}

// Applied решение "применить".
func Applied() Decision {
	return Decision{Applied: true}
}

// Rejected решение "отклонить" с причиной.
func Rejected(reason string) Decision {
	return Decision{Reason: reason}
}

// CurrentMax возвращает время последнего изменения сущности,
// то есть max(record.updatedAt, tombstone.updatedAt). Нулевое значение означает отсутствие.
func CurrentMax(recordUpdatedAt, tombstoneUpdatedAt int64) int64 {
	return max(recordUpdatedAt, tombstoneUpdatedAt, 0)
}

// Decide применяет правило LWW: входящее изменение выигрывает только если
// его updatedAt строго больше текущего максимума. При равенстве побеждает
// уже сохраненная версия.
func Decide(incomingUpdatedAt, recordUpdatedAt, tombstoneUpdatedAt int64) Decision {
	if incomingUpdatedAt <= CurrentMax(recordUpdatedAt, tombstoneUpdatedAt) {
		return Rejected(ReasonStale)
	}
	return Applied()
}
