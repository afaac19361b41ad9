package api

// Причины пропуска изменения в PushResponse
const (
	SkipReasonStale   = "stale"   // на сервере есть версия не старше
	SkipReasonInvalid = "invalid" // изменение некорректно
)

// Change изменение записи на проводе.
// Для удаления передаются только itemId, updatedAt и deleted.
type Change struct {
	ItemID     string `json:"itemId"`
	Label      string `json:"label,omitempty"`
	URL        string `json:"url,omitempty"`
	Category   string `json:"category,omitempty"`
	Ciphertext []byte `json:"ciphertext,omitempty"`
	IV         []byte `json:"iv,omitempty"`
	AuthTag    []byte `json:"authTag,omitempty"`
	Seq        int64  `json:"seq,omitempty"` // назначается сервером, только в pull
	UpdatedAt  int64  `json:"updatedAt"`
	CreatedAt  int64  `json:"createdAt,omitempty"`
	Deleted    bool   `json:"deleted"`
}

// PushRequest пакет локальных изменений
type PushRequest struct {
	Changes []Change `json:"changes"`
}

// SkippedItem изменение, которое сервер не применил
type SkippedItem struct {
	ItemID string `json:"itemId"`
	Reason string `json:"reason"`
}

// PushResponse результат применения пакета
type PushResponse struct {
	Applied []string      `json:"applied"` // id примененных изменений
	Skipped []SkippedItem `json:"skipped"` // отклоненные изменения с причиной
	Cursor  int64         `json:"cursor"`  // наибольший seq, назначенный в этом запросе
}

// PullResponse страница изменений с seq > cursor
type PullResponse struct {
	Changes    []Change `json:"changes"`
	Cursor     int64    `json:"cursor"`     // cursor из запроса
	NextCursor int64    `json:"nextCursor"` // seq последнего изменения или cursor
	HasMore    bool     `json:"hasMore"`
}
