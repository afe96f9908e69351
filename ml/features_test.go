package ml

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func validSpec() LaptopSpec {
	return LaptopSpec{
		Company:     "Dell",
		TypeName:    "Notebook",
		Ram:         8,
		Weight:      2.1,
		TouchScreen: true,
		IPS:         false,
		CPU:         "Intel Core i5",
		HDD:         0,
		SSD:         256,
		GPU:         "Intel",
		OpSys:       "Windows",
		ScreenSize:  15.6,
		Resolution:  "1920x1080",
	}
}

type setAllower map[string]map[string]bool

func (s setAllower) Allows(column, value string) bool {
	return s[column][value]
}

func TestDerivePPI(t *testing.T) {
	features, err := NewDeriver(nil).Derive(validSpec())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(features.PPI-141.21) > 0.005 {
		t.Fatalf("expected ppi ~141.21, got %f", features.PPI)
	}
}

func TestPPIMatchesFormula(t *testing.T) {
	for _, resolution := range Resolutions {
		res, err := ParseResolution(resolution)
		if err != nil {
			t.Fatalf("%s: %v", resolution, err)
		}
		for _, size := range []float64{0.5, 10, 13.3, 15.6, 17.3, 20, 42} {
			got, err := PPI(res, size)
			if err != nil {
				t.Fatalf("%s/%v: %v", resolution, size, err)
			}
			w, h := float64(res.Width), float64(res.Height)
			want := math.Sqrt(w*w+h*h) / size
			if math.Abs(got-want) > 1e-9 {
				t.Fatalf("%s/%v: got %f want %f", resolution, size, got, want)
			}
		}
	}
}

func TestDeriveEncodesFlags(t *testing.T) {
	spec := validSpec()
	var err error
	if spec.TouchScreen, err = ParseYesNo(ColTouchScreen, "Yes"); err != nil {
		t.Fatal(err)
	}
	if spec.IPS, err = ParseYesNo(ColIPS, "No"); err != nil {
		t.Fatal(err)
	}
	features, err := NewDeriver(nil).Derive(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if features.TouchScreen != 1 || features.IPS != 0 {
		t.Fatalf("expected (1, 0), got (%d, %d)", features.TouchScreen, features.IPS)
	}
}

func TestParseYesNoRejectsOtherLabels(t *testing.T) {
	if _, err := ParseYesNo(ColIPS, "maybe"); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestDeriveRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LaptopSpec)
		field  string
	}{
		{"zero screen", func(s *LaptopSpec) { s.ScreenSize = 0 }, ColScreenSize},
		{"negative screen", func(s *LaptopSpec) { s.ScreenSize = -14 }, ColScreenSize},
		{"nan screen", func(s *LaptopSpec) { s.ScreenSize = math.NaN() }, ColScreenSize},
		{"unknown resolution", func(s *LaptopSpec) { s.Resolution = "1024x768" }, ColResolution},
		{"garbage resolution", func(s *LaptopSpec) { s.Resolution = "big" }, ColResolution},
		{"empty company", func(s *LaptopSpec) { s.Company = "  " }, ColCompany},
		{"empty os", func(s *LaptopSpec) { s.OpSys = "" }, ColOpSys},
		{"ram not offered", func(s *LaptopSpec) { s.Ram = 7 }, ColRam},
		{"hdd not offered", func(s *LaptopSpec) { s.HDD = 100 }, ColHDD},
		{"ssd not offered", func(s *LaptopSpec) { s.SSD = 2048 }, ColSSD},
		{"zero weight", func(s *LaptopSpec) { s.Weight = 0 }, ColWeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)
			features, err := NewDeriver(nil).Derive(spec)
			var inputErr *InvalidInputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("expected InvalidInputError, got %v", err)
			}
			if inputErr.Field != tt.field {
				t.Fatalf("expected field %s, got %s", tt.field, inputErr.Field)
			}
			if features != (DerivedFeatures{}) {
				t.Fatalf("expected no partial features, got %+v", features)
			}
		})
	}
}

func TestDeriveChecksCatalog(t *testing.T) {
	catalog := setAllower{
		ColCompany:  {"Dell": true},
		ColTypeName: {"Notebook": true},
		ColCPU:      {"Intel Core i5": true},
		ColGPU:      {"Intel": true},
		ColOpSys:    {"Windows": true},
		ColRam:      {"8": true, "16": true},
		ColHDD:      {"0": true},
		ColSSD:      {"256": true},
	}
	deriver := NewDeriver(catalog)
	if _, err := deriver.Derive(validSpec()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spec := validSpec()
	spec.Company = "Acme"
	if _, err := deriver.Derive(spec); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input for unknown company, got %v", err)
	}

	// 12 GB is a fixed option but this catalog does not offer it
	spec = validSpec()
	spec.Ram = 12
	var inputErr *InvalidInputError
	if _, err := deriver.Derive(spec); !errors.As(err, &inputErr) || inputErr.Field != ColRam {
		t.Fatalf("expected ram rejected by catalog, got %v", err)
	}
}

func TestCheckFormRanges(t *testing.T) {
	tests := []struct {
		name   string
		weight float64
		screen float64
		field  string
	}{
		{"lower bounds", MinWeight, MinScreenSize, ""},
		{"upper bounds", MaxWeight, MaxScreenSize, ""},
		{"light", 0.01, 15.6, ColWeight},
		{"heavy", 5.1, 15.6, ColWeight},
		{"nan weight", math.NaN(), 15.6, ColWeight},
		{"small screen", 2.1, 1, ColScreenSize},
		{"large screen", 2.1, 20.5, ColScreenSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			spec.Weight = tt.weight
			spec.ScreenSize = tt.screen
			err := CheckFormRanges(spec)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var inputErr *InvalidInputError
			if !errors.As(err, &inputErr) || inputErr.Field != tt.field {
				t.Fatalf("expected %s error, got %v", tt.field, err)
			}
		})
	}
}

func TestRecordFieldOrder(t *testing.T) {
	want := []string{
		"Company", "TypeName", "Ram", "Weight", "TouchScreen", "IPS",
		"PPI", "CPU_name", "HDD", "SSD", "Gpu brand", "OpSys",
	}
	if !reflect.DeepEqual(FeatureNames(), want) {
		t.Fatalf("unexpected feature names: %v", FeatureNames())
	}

	deriver := NewDeriver(nil)
	for _, resolution := range Resolutions {
		for _, ram := range RamOptions {
			spec := validSpec()
			spec.Resolution = resolution
			spec.Ram = ram
			features, err := deriver.Derive(spec)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := features.Record().Columns(); !reflect.DeepEqual(got, want) {
				t.Fatalf("unexpected column order: %v", got)
			}
		}
	}
}

func TestRecordKeyDistinguishesValues(t *testing.T) {
	a, _ := NewDeriver(nil).Derive(validSpec())
	spec := validSpec()
	spec.ScreenSize = 14
	b, _ := NewDeriver(nil).Derive(spec)
	if a.Record().Key() == b.Record().Key() {
		t.Fatal("expected different keys for different screens")
	}
	if a.Record().Key() != a.Record().Key() {
		t.Fatal("expected stable key")
	}
}
