package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		token string
		want  Kind
		ok    bool
	}{
		{"document", KindDocument, true},
		{"Document", KindDocument, true},
		{"documents", KindDocument, true},
		{"DOCS", KindDocument, true},
		{"  Documents\t", KindDocument, true},
		{"receipt", KindReceipt, true},
		{"Receipts", KindReceipt, true},
		{"invoices", KindReceipt, true},
		{"Form", KindForm, true},
		{"forms", KindForm, true},
		{"unknown", KindUnknown, true},
		{"Uncategorized", KindUnknown, true},
		{"", "", false},
		{"recipes", "", false},
		{"s", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := ParseKind(tt.token)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			if ok {
				assert.True(t, got.IsValid())
			}
		})
	}
}

func TestParseKindFilter(t *testing.T) {
	t.Run("all means no filter", func(t *testing.T) {
		for _, token := range []string{"", "all", "ALL", " All "} {
			k, err := ParseKindFilter(token)
			require.NoError(t, err)
			assert.Nil(t, k)
		}
	})

	t.Run("aliases normalize", func(t *testing.T) {
		k, err := ParseKindFilter("Documents")
		require.NoError(t, err)
		require.NotNil(t, k)
		assert.Equal(t, KindDocument, *k)
	})

	t.Run("unknown token fails", func(t *testing.T) {
		k, err := ParseKindFilter("spreadsheets")
		assert.Nil(t, k)

		var fve *FilterValidationError
		require.True(t, errors.As(err, &fve))
		assert.Equal(t, "kind", fve.Field)
	})
}

func TestKind_Description(t *testing.T) {
	assert.Equal(t, "Documents", KindDocument.Description())
	assert.Equal(t, "Uncategorized", KindUnknown.Description())
	assert.Equal(t, unknownDescription, Kind("x").Description())
	assert.Equal(t, []Kind{KindDocument, KindReceipt, KindForm, KindUnknown}, AllKinds())
}
