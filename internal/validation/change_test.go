package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/vaultsync/pkg/api"
)

func TestValidateChange(t *testing.T) {
	tests := []struct {
		name    string
		change  api.Change
		wantErr bool
	}{
		{name: "upsert", change: api.Change{ItemID: "r1", UpdatedAt: 100, Ciphertext: []byte("ct")}},
		{name: "delete", change: api.Change{ItemID: "r1", UpdatedAt: 110, Deleted: true}},
		{name: "delete ignores payload limits", change: api.Change{ItemID: "r1", UpdatedAt: 1, Deleted: true, Label: strings.Repeat("l", MaxMetadataLen+1)}},
		{name: "empty id", change: api.Change{UpdatedAt: 100}, wantErr: true},
		{name: "long id", change: api.Change{ItemID: strings.Repeat("i", MaxItemIDLen+1), UpdatedAt: 100}, wantErr: true},
		{name: "zero updatedAt", change: api.Change{ItemID: "r1"}, wantErr: true},
		{name: "negative updatedAt", change: api.Change{ItemID: "r1", UpdatedAt: -5, Deleted: true}, wantErr: true},
		{name: "long label", change: api.Change{ItemID: "r1", UpdatedAt: 1, Label: strings.Repeat("l", MaxMetadataLen+1)}, wantErr: true},
		{name: "huge ciphertext", change: api.Change{ItemID: "r1", UpdatedAt: 1, Ciphertext: make([]byte, MaxPayloadSize+1)}, wantErr: true},
		{name: "negative createdAt", change: api.Change{ItemID: "r1", UpdatedAt: 1, CreatedAt: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChange(tt.change)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidChange)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEncodedSize_BoundsJSON(t *testing.T) {
	largest := api.Change{
		ItemID:     strings.Repeat("i", MaxItemIDLen),
		Label:      strings.Repeat("\x01", MaxMetadataLen),
		URL:        strings.Repeat("<", MaxMetadataLen),
		Category:   strings.Repeat("\"", MaxMetadataLen),
		Ciphertext: make([]byte, MaxPayloadSize),
		IV:         make([]byte, 12),
		AuthTag:    make([]byte, 16),
		Seq:        1 << 62,
		UpdatedAt:  1 << 62,
		CreatedAt:  1 << 62,
	}
	require.NoError(t, ValidateChange(largest))

	tests := []struct {
		name   string
		change api.Change
	}{
		{name: "delete", change: api.Change{ItemID: "r1", UpdatedAt: 110, Deleted: true}},
		{name: "small upsert", change: api.Change{ItemID: "r1", Label: "Mail", UpdatedAt: 100, Ciphertext: []byte("ct")}},
		{name: "largest valid upsert", change: largest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.change)
			require.NoError(t, err)
			// запятая между элементами массива
			assert.LessOrEqual(t, len(data)+1, EncodedSize(tt.change))
		})
	}

	// одно изменение всегда помещается в push
	assert.Less(t, EncodedSize(largest), MaxPushBodySize/8)
}
