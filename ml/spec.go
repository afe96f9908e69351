package ml

import (
	"math"
	"strconv"
	"strings"
)

// Column names as the model was trained on them.
const (
	ColCompany     = "Company"
	ColTypeName    = "TypeName"
	ColRam         = "Ram"
	ColWeight      = "Weight"
	ColTouchScreen = "TouchScreen"
	ColIPS         = "IPS"
	ColPPI         = "PPI"
	ColCPU         = "CPU_name"
	ColHDD         = "HDD"
	ColSSD         = "SSD"
	ColGPU         = "Gpu brand"
	ColOpSys       = "OpSys"

	ColScreenSize = "ScreenSize"
	ColResolution = "Resolution"
)

// Ranges offered by the input controls.
const (
	MinWeight     = 0.8
	MaxWeight     = 5.0
	MinScreenSize = 10.0
	MaxScreenSize = 20.0
)

var (
	RamOptions = []int{2, 4, 6, 8, 12, 16, 24, 32, 64}
	HDDOptions = []int{0, 128, 256, 512, 1024, 2048}
	SSDOptions = []int{0, 8, 128, 256, 512, 1024}

	Resolutions = []string{
		"1920x1080", "1366x768", "1600x900", "3840x2160",
		"3200x1800", "2880x1800", "2560x1600", "2560x1440", "2304x1440",
	}
)

// LaptopSpec holds the raw values entered on the form.
type LaptopSpec struct {
	Company     string  `json:"company"`
	TypeName    string  `json:"type_name"`
	Ram         int     `json:"ram"`
	Weight      float64 `json:"weight"`
	TouchScreen bool    `json:"touchscreen"`
	IPS         bool    `json:"ips"`
	CPU         string  `json:"cpu"`
	HDD         int     `json:"hdd"`
	SSD         int     `json:"ssd"`
	GPU         string  `json:"gpu"`
	OpSys       string  `json:"os"`
	ScreenSize  float64 `json:"screen_size"`
	Resolution  string  `json:"resolution"`
}

// Resolution is a parsed "WxH" display resolution.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return strconv.Itoa(r.Width) + "x" + strconv.Itoa(r.Height)
}

// ParseResolution accepts only the fixed resolution catalog.
func ParseResolution(value string) (Resolution, error) {
	value = strings.TrimSpace(value)
	if !containsString(Resolutions, value) {
		return Resolution{}, invalid(ColResolution, "%q is not a supported resolution", value)
	}
	parts := strings.Split(value, "x")
	if len(parts) != 2 {
		return Resolution{}, invalid(ColResolution, "%q is not WxH", value)
	}
	width, err := strconv.Atoi(parts[0])
	if err != nil || width <= 0 {
		return Resolution{}, invalid(ColResolution, "bad width in %q", value)
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil || height <= 0 {
		return Resolution{}, invalid(ColResolution, "bad height in %q", value)
	}
	return Resolution{Width: width, Height: height}, nil
}

// CheckFormRanges applies the weight and screen size limits of the input
// controls. Derive itself accepts any positive value.
func CheckFormRanges(spec LaptopSpec) error {
	if math.IsNaN(spec.Weight) || spec.Weight < MinWeight || spec.Weight > MaxWeight {
		return invalid(ColWeight, "must be between %.1f and %.1f kg", MinWeight, MaxWeight)
	}
	if math.IsNaN(spec.ScreenSize) || spec.ScreenSize < MinScreenSize || spec.ScreenSize > MaxScreenSize {
		return invalid(ColScreenSize, "must be between %.1f and %.1f inches", MinScreenSize, MaxScreenSize)
	}
	return nil
}

// ParseYesNo maps the form's "Yes"/"No" labels to a bool.
func ParseYesNo(field, label string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, invalid(field, "expected Yes or No, got %q", label)
	}
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func containsInt(values []int, value int) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
