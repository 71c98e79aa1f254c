package transfer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/guild-ledger/internal/domain"
)

func TestIDAllocator_Next(t *testing.T) {
	a := NewIDAllocator()

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id, err := a.Next()
		require.NoError(t, err)
		assert.Len(t, id, DefaultIDWidth)
		for _, r := range id {
			assert.True(t, strings.ContainsRune(DefaultAlphabet, r), "unexpected rune %q", r)
		}
		seen[id] = struct{}{}
	}

	// 32^6 ids; 200 draws colliding would point at a broken source.
	assert.Greater(t, len(seen), 195)
}

func TestIDAllocator_Options(t *testing.T) {
	a := NewIDAllocator(WithWidth(3), WithAlphabet("AB"), WithMaxAttempts(2))

	id, err := a.Next()
	require.NoError(t, err)
	assert.Len(t, id, 3)
	assert.Equal(t, "", strings.Trim(id, "AB"))
	assert.Equal(t, 2, a.MaxAttempts())
}

func TestIDAllocator_LowerCaseAlphabetStaysResolvable(t *testing.T) {
	a := NewIDAllocator(WithAlphabet("xyz"))
	reg := NewRegistry(a)

	record, err := reg.Create(context.Background(), domain.PendingTransfer{Kind: domain.KindDeposit, RequesterID: 1})
	require.NoError(t, err)
	assert.Equal(t, NormalizeID(record.ID), record.ID)
	assert.Equal(t, "", strings.Trim(record.ID, "XYZ"))

	got, err := reg.Peek(strings.ToLower(record.ID))
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
}

func TestIDAllocator_RandomFailure(t *testing.T) {
	boom := errors.New("entropy unavailable")
	a := NewIDAllocator(withRandom(func(int) (int, error) { return 0, boom }))

	_, err := a.Next()
	assert.ErrorIs(t, err, boom)
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "AB12CD", NormalizeID("  ab12cd "))
	assert.Equal(t, "", NormalizeID(""))
}
