package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/pkg/api"
)

func TestChangeToAPI_Upsert(t *testing.T) {
	rec := &models.Record{
		ID:         "r1",
		Label:      "GitHub",
		URL:        "https://github.com",
		Category:   "work",
		CreatedAt:  90,
		UpdatedAt:  100,
		Ciphertext: []byte("ct"),
		Nonce:      []byte("iv"),
		AuthTag:    []byte("tag"),
	}

	got := ChangeToAPI(models.UpsertChange(rec))

	assert.Equal(t, api.Change{
		ItemID:     "r1",
		Label:      "GitHub",
		URL:        "https://github.com",
		Category:   "work",
		CreatedAt:  90,
		UpdatedAt:  100,
		Ciphertext: []byte("ct"),
		IV:         []byte("iv"),
		AuthTag:    []byte("tag"),
	}, got)
}

func TestChangeToAPI_DeleteCarriesNoPayload(t *testing.T) {
	got := ChangeToAPI(models.Change{Seq: 1, ItemID: "r1", UpdatedAt: 110, Deleted: true})

	assert.Equal(t, api.Change{Seq: 1, ItemID: "r1", UpdatedAt: 110, Deleted: true}, got)
}

func TestChangeFromAPI(t *testing.T) {
	t.Run("upsert maps iv to nonce", func(t *testing.T) {
		c := ChangeFromAPI(api.Change{
			Seq: 3, ItemID: "r1", UpdatedAt: 100, CreatedAt: 90,
			Ciphertext: []byte("ct"), IV: []byte("iv"), AuthTag: []byte("tag"),
		})
		require.NotNil(t, c.Record)
		assert.Equal(t, int64(3), c.Seq)
		assert.Equal(t, []byte("iv"), c.Record.Nonce)
		assert.Equal(t, int64(90), c.Record.CreatedAt)
		assert.NoError(t, c.Validate())
	})

	t.Run("missing createdAt defaults to updatedAt", func(t *testing.T) {
		c := ChangeFromAPI(api.Change{ItemID: "r1", UpdatedAt: 100})
		require.NotNil(t, c.Record)
		assert.Equal(t, int64(100), c.Record.CreatedAt)
	})

	t.Run("delete has no record", func(t *testing.T) {
		c := ChangeFromAPI(api.Change{ItemID: "r1", UpdatedAt: 110, Deleted: true, Label: "ignored"})
		assert.Nil(t, c.Record)
		assert.True(t, c.Deleted)
	})
}

func TestChangesToAPI_EmptyIsNotNil(t *testing.T) {
	assert.NotNil(t, ChangesToAPI(nil))
	assert.NotNil(t, ChangesFromAPI(nil))
}

func TestEnvelopeConversion(t *testing.T) {
	assert.Nil(t, EnvelopeToAPI(nil))
	assert.Nil(t, EnvelopeFromAPI(nil))

	env := &models.KeyEnvelope{
		KeyVersion: 1,
		KDF:        models.KDFParams{Name: "argon2id", Time: 1, MemoryKiB: 65536, Threads: 4},
		Salt:       []byte("salt"),
		Nonce:      []byte("nonce"),
		Ciphertext: []byte("ct"),
		AuthTag:    []byte("tag"),
		UpdatedAt:  5,
	}
	assert.Equal(t, env, EnvelopeFromAPI(EnvelopeToAPI(env)))
}
