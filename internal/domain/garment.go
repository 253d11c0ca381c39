package domain

import (
	"fmt"
	"math/rand"
	"strings"
)

type Size string

const (
	SizeS  Size = "S"
	SizeM  Size = "M"
	SizeL  Size = "L"
	SizeXL Size = "XL"
	SizeO  Size = "O"
)

// AllSizes es el orden canónico de talles; cada prenda tiene una entrada
// (posiblemente cero) para cada uno.
var AllSizes = []Size{SizeS, SizeM, SizeL, SizeXL, SizeO}

func ParseSize(s string) (Size, error) {
	v := Size(strings.ToUpper(strings.TrimSpace(s)))
	for _, sz := range AllSizes {
		if v == sz {
			return sz, nil
		}
	}
	return "", fmt.Errorf("talle %q: %w", s, ErrInvalid)
}

type Garment struct {
	Name      string       `json:"name"`
	CostPrice float64      `json:"costPrice"`
	Price     float64      `json:"price"`
	Color     string       `json:"color"`
	Sizes     map[Size]int `json:"sizes"`
}

func NewGarment(name string, costPrice, price float64) Garment {
	g := Garment{Name: name, CostPrice: costPrice, Price: price, Color: randomColor()}
	g.EnsureSizes()
	return g
}

// EnsureSizes materializa las entradas faltantes en cero. Se aplica también
// al decodificar registros, para sostener la invariante aunque el documento
// almacenado venga incompleto.
func (g *Garment) EnsureSizes() {
	if g.Sizes == nil {
		g.Sizes = make(map[Size]int, len(AllSizes))
	}
	for _, sz := range AllSizes {
		if _, ok := g.Sizes[sz]; !ok {
			g.Sizes[sz] = 0
		}
	}
}

func (g Garment) TotalUnits() int {
	total := 0
	for _, q := range g.Sizes {
		total += q
	}
	return total
}

// randomColor genera un tono aleatorio con saturación y luminosidad fijas.
func randomColor() string {
	return fmt.Sprintf("hsl(%d, 70%%, 65%%)", rand.Intn(360))
}
