package models

// Change нормализованное представление одного изменения записи.
// Используется и для push (Seq = 0), и для pull (Seq назначен сервером).
// Для удаления Record == nil и Deleted == true.
type Change struct {
	Record    *Record // Record полезная нагрузка upsert-изменения, nil для удаления
	ItemID    string  // ItemID идентификатор записи
	Seq       int64   // Seq порядковый номер, назначенный сервером (0 для локальных изменений)
	UpdatedAt int64   // UpdatedAt логическое время изменения (мс с начала эпохи)
	Deleted   bool    // Deleted true для tombstone-изменения
}

// UpsertChange создает upsert-изменение из записи.
func UpsertChange(r *Record) Change {
	return Change{
		ItemID:    r.ID,
		UpdatedAt: r.UpdatedAt,
		Record:    r.Clone(),
	}
}

// DeleteChange создает изменение-удаление.
func DeleteChange(id string, updatedAt int64) Change {
	return Change{
		ItemID:    id,
		UpdatedAt: updatedAt,
		Deleted:   true,
	}
}

// Tombstone возвращает tombstone для изменения-удаления.
func (c Change) Tombstone() Tombstone {
	return Tombstone{ID: c.ItemID, UpdatedAt: c.UpdatedAt}
}

// Validate проверяет согласованность изменения.
func (c Change) Validate() error {
	if c.ItemID == "" {
		return ErrEmptyItemID
	}
	if c.UpdatedAt <= 0 {
		return ErrInvalidTimestamp
	}
	if !c.Deleted {
		if c.Record == nil {
			return ErrMissingPayload
		}
		if c.Record.ID != c.ItemID || c.Record.UpdatedAt != c.UpdatedAt {
			return ErrPayloadMismatch
		}
	}
	return nil
}
