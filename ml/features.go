package ml

import (
	"math"
	"strconv"
	"strings"
)

type Kind int

const (
	Categorical Kind = iota
	Numeric
)

// Value is one named cell of a model input row.
type Value struct {
	Name   string
	Kind   Kind
	Text   string
	Number float64
}

// Record is a single-row, fixed-schema model input.
type Record []Value

// Key renders the record as a stable string, used for memoization.
func (r Record) Key() string {
	var b strings.Builder
	for i, v := range r {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		if v.Kind == Categorical {
			b.WriteString(v.Text)
		} else {
			b.WriteString(strconv.FormatFloat(v.Number, 'g', -1, 64))
		}
	}
	return b.String()
}

// Columns returns the record's column names in order.
func (r Record) Columns() []string {
	names := make([]string, len(r))
	for i, v := range r {
		names[i] = v.Name
	}
	return names
}

// DerivedFeatures is the model's input schema. Field order matters.
type DerivedFeatures struct {
	Company     string  `json:"company"`
	TypeName    string  `json:"type_name"`
	Ram         int     `json:"ram"`
	Weight      float64 `json:"weight"`
	TouchScreen int     `json:"touchscreen"`
	IPS         int     `json:"ips"`
	PPI         float64 `json:"ppi"`
	CPU         string  `json:"cpu"`
	HDD         int     `json:"hdd"`
	SSD         int     `json:"ssd"`
	GPU         string  `json:"gpu"`
	OpSys       string  `json:"os"`
}

// FeatureNames lists the model columns in training order.
func FeatureNames() []string {
	return []string{
		ColCompany, ColTypeName, ColRam, ColWeight, ColTouchScreen, ColIPS,
		ColPPI, ColCPU, ColHDD, ColSSD, ColGPU, ColOpSys,
	}
}

func (f DerivedFeatures) Record() Record {
	return Record{
		{Name: ColCompany, Kind: Categorical, Text: f.Company},
		{Name: ColTypeName, Kind: Categorical, Text: f.TypeName},
		{Name: ColRam, Kind: Numeric, Number: float64(f.Ram)},
		{Name: ColWeight, Kind: Numeric, Number: f.Weight},
		{Name: ColTouchScreen, Kind: Numeric, Number: float64(f.TouchScreen)},
		{Name: ColIPS, Kind: Numeric, Number: float64(f.IPS)},
		{Name: ColPPI, Kind: Numeric, Number: f.PPI},
		{Name: ColCPU, Kind: Categorical, Text: f.CPU},
		{Name: ColHDD, Kind: Numeric, Number: float64(f.HDD)},
		{Name: ColSSD, Kind: Numeric, Number: float64(f.SSD)},
		{Name: ColGPU, Kind: Categorical, Text: f.GPU},
		{Name: ColOpSys, Kind: Categorical, Text: f.OpSys},
	}
}

// Allower answers catalog membership questions for a column.
type Allower interface {
	Allows(column, value string) bool
}

// Deriver turns raw form values into model features.
type Deriver struct {
	catalog Allower
}

// NewDeriver returns a deriver that checks categorical and Ram/HDD/SSD values
// against catalog. A nil catalog only enforces the fixed numeric and
// resolution sets.
func NewDeriver(catalog Allower) *Deriver {
	return &Deriver{catalog: catalog}
}

// PPI is the diagonal pixel count over the diagonal size in inches.
func PPI(res Resolution, screenSize float64) (float64, error) {
	if math.IsNaN(screenSize) || math.IsInf(screenSize, 0) || screenSize <= 0 {
		return 0, invalid(ColScreenSize, "must be positive, got %v", screenSize)
	}
	w := float64(res.Width)
	h := float64(res.Height)
	return math.Sqrt(w*w+h*h) / screenSize, nil
}

func (d *Deriver) Derive(spec LaptopSpec) (DerivedFeatures, error) {
	text := []struct {
		column string
		value  *string
	}{
		{ColCompany, &spec.Company},
		{ColTypeName, &spec.TypeName},
		{ColCPU, &spec.CPU},
		{ColGPU, &spec.GPU},
		{ColOpSys, &spec.OpSys},
	}
	for _, field := range text {
		*field.value = strings.TrimSpace(*field.value)
		if *field.value == "" {
			return DerivedFeatures{}, invalid(field.column, "value is required")
		}
		if d.catalog != nil && !d.catalog.Allows(field.column, *field.value) {
			return DerivedFeatures{}, invalid(field.column, "%q is not in the catalog", *field.value)
		}
	}

	numeric := []struct {
		column  string
		value   int
		allowed []int
	}{
		{ColRam, spec.Ram, RamOptions},
		{ColHDD, spec.HDD, HDDOptions},
		{ColSSD, spec.SSD, SSDOptions},
	}
	for _, field := range numeric {
		ok := containsInt(field.allowed, field.value)
		if d.catalog != nil {
			ok = d.catalog.Allows(field.column, strconv.Itoa(field.value))
		}
		if !ok {
			return DerivedFeatures{}, invalid(field.column, "%d GB is not an offered size", field.value)
		}
	}

	if math.IsNaN(spec.Weight) || math.IsInf(spec.Weight, 0) || spec.Weight <= 0 {
		return DerivedFeatures{}, invalid(ColWeight, "must be positive, got %v", spec.Weight)
	}

	res, err := ParseResolution(spec.Resolution)
	if err != nil {
		return DerivedFeatures{}, err
	}
	ppi, err := PPI(res, spec.ScreenSize)
	if err != nil {
		return DerivedFeatures{}, err
	}

	return DerivedFeatures{
		Company:     spec.Company,
		TypeName:    spec.TypeName,
		Ram:         spec.Ram,
		Weight:      spec.Weight,
		TouchScreen: flag(spec.TouchScreen),
		IPS:         flag(spec.IPS),
		PPI:         ppi,
		CPU:         spec.CPU,
		HDD:         spec.HDD,
		SSD:         spec.SSD,
		GPU:         spec.GPU,
		OpSys:       spec.OpSys,
	}, nil
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
