package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	busy := New(KindBusy, "screening already running")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"sentinel", busy, KindBusy},
		{"wrapped", fmt.Errorf("submit: %w", busy), KindBusy},
		{"joined", errors.Join(errors.New("x"), New(KindValidation, "pe_max")), KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "network", KindNetwork.String())
	assert.Equal(t, "unknown", Kind(99).String())

	text, err := KindNotConfirmed.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "not_confirmed", string(text))
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", New(KindStale, "stale"))
	assert.True(t, Is(err, KindStale))
	assert.False(t, Is(err, KindNetwork))
}
