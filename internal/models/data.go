package models

import "errors"

var (
	ErrEmptyItemID      = errors.New("item id is empty")
	ErrInvalidTimestamp = errors.New("updatedAt must be positive")
	ErrMissingPayload   = errors.New("upsert change has no payload")
	ErrPayloadMismatch  = errors.New("payload does not match change header")
)

// Record запись хранилища паролей.
// Label, URL и Category хранятся открыто и используются для списка и поиска.
// Ciphertext, Nonce и AuthTag непрозрачны для движка синхронизации.
type Record struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	URL        string `json:"url"`
	Category   string `json:"category"`
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	AuthTag    []byte `json:"authTag"`
	CreatedAt  int64  `json:"createdAt"`
	UpdatedAt  int64  `json:"updatedAt"`
}

// Clone создает глубокую копию записи
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Ciphertext = cloneBytes(r.Ciphertext)
	c.Nonce = cloneBytes(r.Nonce)
	c.AuthTag = cloneBytes(r.AuthTag)
	return &c
}

// RecordFields открытые метаданные и зашифрованная нагрузка для UpsertLocal.
type RecordFields struct {
	Label      string
	URL        string
	Category   string
	Ciphertext []byte
	Nonce      []byte
	AuthTag    []byte
}

// Tombstone отметка о том, что запись удалена на момент UpdatedAt.
type Tombstone struct {
	ID        string `json:"id"`
	UpdatedAt int64  `json:"updatedAt"`
}

// OutboxItem маркер "состояние id на момент UpdatedAt еще не отправлено".
type OutboxItem struct {
	ID        string `json:"id"`
	UpdatedAt int64  `json:"updatedAt"`
	Deleted   bool   `json:"deleted"`
}

// Secret открытые чувствительные поля записи.
// Шифруется целиком в Record.Ciphertext и никогда не покидает клиента в открытом виде.
type Secret struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Notes    string `json:"notes"`
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
