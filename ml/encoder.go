package ml

import (
	"errors"
	"fmt"
)

// OneHotEncoder expands categorical columns into indicator blocks and passes
// numeric columns through. Unknown categories encode as all zeros.
type OneHotEncoder struct {
	columns    []string
	categories map[string][]string
	index      map[string]map[string]int
	width      int
}

// NewOneHotEncoder builds an encoder for columns in order. Every column named
// in categories is treated as categorical.
func NewOneHotEncoder(columns []string, categories map[string][]string) (*OneHotEncoder, error) {
	if len(columns) == 0 {
		return nil, errors.New("encoder needs at least one column")
	}
	enc := &OneHotEncoder{
		columns:    append([]string(nil), columns...),
		categories: make(map[string][]string, len(categories)),
		index:      make(map[string]map[string]int, len(categories)),
	}
	known := make(map[string]bool, len(columns))
	for _, col := range columns {
		if known[col] {
			return nil, fmt.Errorf("duplicate column %q", col)
		}
		known[col] = true
	}
	for col, values := range categories {
		if !known[col] {
			return nil, fmt.Errorf("categories given for unknown column %q", col)
		}
		idx := make(map[string]int, len(values))
		for i, v := range values {
			idx[v] = i
		}
		enc.categories[col] = append([]string(nil), values...)
		enc.index[col] = idx
	}
	for _, col := range columns {
		if values, ok := enc.categories[col]; ok {
			enc.width += len(values)
		} else {
			enc.width++
		}
	}
	return enc, nil
}

// Width is the length of encoded vectors.
func (e *OneHotEncoder) Width() int {
	return e.width
}

func (e *OneHotEncoder) Encode(record Record) ([]float64, error) {
	if len(record) != len(e.columns) {
		return nil, fmt.Errorf("record has %d columns, model expects %d", len(record), len(e.columns))
	}
	vector := make([]float64, 0, e.width)
	for i, col := range e.columns {
		value := record[i]
		if value.Name != col {
			return nil, fmt.Errorf("column %d is %q, model expects %q", i, value.Name, col)
		}
		idx, categorical := e.index[col]
		if !categorical {
			if value.Kind != Numeric {
				return nil, fmt.Errorf("column %q must be numeric", col)
			}
			vector = append(vector, value.Number)
			continue
		}
		if value.Kind != Categorical {
			return nil, fmt.Errorf("column %q must be categorical", col)
		}
		block := make([]float64, len(e.categories[col]))
		if pos, ok := idx[value.Text]; ok {
			block[pos] = 1
		}
		vector = append(vector, block...)
	}
	return vector, nil
}
