package infer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/audience-sync/internal/domain"
)

func TestInferScalars(t *testing.T) {
	tests := []struct {
		name    string
		samples []domain.Value
		want    domain.FieldType
	}{
		{"number", []domain.Value{domain.Number(30), domain.String("25")}, domain.FieldNumber},
		{"first usable sample wins", []domain.Value{domain.String("25"), domain.Number(30)}, domain.FieldString},
		{"boolean", []domain.Value{domain.Boolean(true)}, domain.FieldBoolean},
		{"time value", []domain.Value{domain.Timestamp(time.Now())}, domain.FieldDate},
		{"plain string", []domain.Value{domain.String("hello world")}, domain.FieldString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Infer(tt.samples)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Type)
			assert.False(t, got.IsArray)
		})
	}
}

func TestInferStringRefinement(t *testing.T) {
	// Null samples are skipped; the first usable value is representative.
	got, ok := Infer([]domain.Value{domain.String("a@x.com"), domain.Null})
	require.True(t, ok)
	assert.Equal(t, domain.FieldEmail, got.Type)

	got, ok = Infer([]domain.Value{domain.Null, domain.String("2024-06-01")})
	require.True(t, ok)
	assert.Equal(t, domain.FieldDate, got.Type)

	got, ok = Infer([]domain.Value{domain.String("2024-06-01T10:30:00Z")})
	require.True(t, ok)
	assert.Equal(t, domain.FieldDate, got.Type)

	// Email refinement runs before date refinement.
	got, ok = Infer([]domain.Value{domain.String("2023@example.com")})
	require.True(t, ok)
	assert.Equal(t, domain.FieldEmail, got.Type)

	got, ok = Infer([]domain.Value{domain.String("not a date")})
	require.True(t, ok)
	assert.Equal(t, domain.FieldString, got.Type)
}

func TestInferArrays(t *testing.T) {
	got, ok := Infer([]domain.Value{
		domain.Array(domain.String("a"), domain.String("b")),
		domain.Array(domain.String("c")),
	})
	require.True(t, ok)
	assert.Equal(t, domain.FieldString, got.Type)
	assert.True(t, got.IsArray)

	got, ok = Infer([]domain.Value{domain.Array(domain.Number(1), domain.Number(2))})
	require.True(t, ok)
	assert.Equal(t, domain.FieldNumber, got.Type)
	assert.True(t, got.IsArray)

	// Empty array still marks the field as a list.
	got, ok = Infer([]domain.Value{domain.Array()})
	require.True(t, ok)
	assert.True(t, got.IsArray)
}

func TestInferNoUsableSample(t *testing.T) {
	_, ok := Infer(nil)
	assert.False(t, ok)

	_, ok = Infer([]domain.Value{domain.Null, domain.String("")})
	assert.False(t, ok)
}

func TestInferIdempotent(t *testing.T) {
	samples := []domain.Value{domain.String("a@x.com"), domain.Null, domain.String("b@y.org")}

	first, ok := Infer(samples)
	require.True(t, ok)
	second, ok := Infer(samples)
	require.True(t, ok)
	assert.Equal(t, first, second)
}
