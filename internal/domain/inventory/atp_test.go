package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tu-usuario/editorial-stock/internal/domain/inventory"
)

// Casos de la fórmula ATP = max(0, actual - reservado - mínimo + entrante).
func TestATPFormula(t *testing.T) {
	cases := []struct {
		name                                  string
		current, reserved, minLevel, incoming int64
		want                                  int64
	}{
		{"caso base", 100, 20, 10, 0, 70},
		{"con stock entrante", 100, 20, 10, 15, 85},
		{"todo reservado", 50, 50, 0, 0, 0},
		{"acotado en cero", 10, 20, 5, 0, 0},
		{"acotado en cero por minimo", 10, 0, 30, 0, 0},
		{"entrante rescata el piso", 10, 0, 30, 25, 5},
		{"sin stock", 0, 0, 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := inventory.ATPFormula(tc.current, tc.reserved, tc.minLevel, tc.incoming)
			assert.Equal(t, tc.want, got, "ATP calculado debe coincidir")
		})
	}
}

// El ATP nunca debe ser negativo, sin importar la combinación de entradas.
func TestATPFormula_NuncaNegativo(t *testing.T) {
	values := []int64{-50, 0, 10, 100}
	for _, current := range values {
		for _, reserved := range values {
			for _, minLevel := range values {
				got := inventory.ATPFormula(current, reserved, minLevel, 0)
				assert.GreaterOrEqual(t, got, int64(0), "el ATP no puede ser negativo")
			}
		}
	}
}
