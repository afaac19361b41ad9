package api

// KDFParams параметры деривации ключа конверта
type KDFParams struct {
	Name      string `json:"name"`
	Time      uint32 `json:"time"`
	MemoryKiB uint32 `json:"memoryKiB"`
	Threads   uint8  `json:"threads"`
}

// KeyEnvelope обернутый ключ хранилища. Сервер его не расшифровывает.
type KeyEnvelope struct {
	KDF        KDFParams `json:"kdf"`
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	AuthTag    []byte    `json:"authTag"`
	KeyVersion int       `json:"keyVersion"`
	UpdatedAt  int64     `json:"updatedAt"` // назначается сервером
}

// EnvelopeRequest тело PUT /v1/keys/envelope
type EnvelopeRequest struct {
	Envelope *KeyEnvelope `json:"envelope"`
}

// EnvelopeResponse ответ GET/PUT /v1/keys/envelope, Envelope == nil если конверта нет
type EnvelopeResponse struct {
	Envelope *KeyEnvelope `json:"envelope"`
}
