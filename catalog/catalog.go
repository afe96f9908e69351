// Package catalog loads the reference dataset that populates form choices.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"laptopprice/ml"
)

// RequiredColumns must be present in the reference dataset.
var RequiredColumns = []string{ml.ColCompany, ml.ColTypeName, ml.ColCPU, ml.ColOpSys, ml.ColGPU}

// Dataset is a read-only, column-oriented view of the reference CSV.
type Dataset struct {
	columns map[string][]string
}

func LoadDataset(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()
	return ReadDataset(file)
}

func ReadDataset(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("read dataset header: %w", err)
	}
	ds := &Dataset{columns: make(map[string][]string, len(header))}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		ds.columns[header[i]] = nil
	}
	for _, col := range RequiredColumns {
		if _, ok := ds.columns[col]; !ok {
			return nil, fmt.Errorf("dataset is missing column %q", col)
		}
	}

	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset line %d: %w", line, err)
		}
		for i, name := range header {
			if name == "" || i >= len(row) {
				continue
			}
			ds.columns[name] = append(ds.columns[name], strings.TrimSpace(row[i]))
		}
	}
	return ds, nil
}

// Distinct returns the non-empty values of column in first-appearance order.
func (d *Dataset) Distinct(column string) ([]string, error) {
	values, ok := d.columns[column]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", column)
	}
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}

// distinctInts returns the distinct whole-number values of column, ascending.
func (d *Dataset) distinctInts(column string) ([]int, error) {
	values, err := d.Distinct(column)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("column %q has no values", column)
	}
	out := make([]int, 0, len(values))
	seen := make(map[int]bool, len(values))
	for _, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			f, ferr := strconv.ParseFloat(v, 64)
			if ferr != nil || f != math.Trunc(f) {
				return nil, fmt.Errorf("column %q: %q is not a whole number", column, v)
			}
			n = int(f)
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out, nil
}

// Options are the choice lists shown on the form.
type Options struct {
	Companies   []string `json:"companies"`
	Types       []string `json:"types"`
	CPUs        []string `json:"cpus"`
	GPUs        []string `json:"gpus"`
	OpSys       []string `json:"os"`
	Ram         []int    `json:"ram"`
	HDD         []int    `json:"hdd"`
	SSD         []int    `json:"ssd"`
	Resolutions []string `json:"resolutions"`
}

// Catalog is immutable after NewCatalog and safe for concurrent reads.
type Catalog struct {
	options Options
	allowed map[string]map[string]bool
}

// NewCatalog builds choice lists from ds. With sorted set every list is
// ordered and Ram/HDD/SSD come from the dataset, otherwise dataset order and
// the fixed numeric sets are used.
func NewCatalog(ds *Dataset, sorted bool) (*Catalog, error) {
	if ds == nil {
		return nil, errors.New("dataset is required")
	}
	text := make(map[string][]string, len(RequiredColumns))
	for _, col := range RequiredColumns {
		values, err := ds.Distinct(col)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("column %q has no values", col)
		}
		if sorted {
			sort.Strings(values)
		}
		text[col] = values
	}

	ram, hdd, ssd := ml.RamOptions, ml.HDDOptions, ml.SSDOptions
	if sorted {
		var err error
		if ram, err = ds.distinctInts(ml.ColRam); err != nil {
			return nil, err
		}
		if hdd, err = ds.distinctInts(ml.ColHDD); err != nil {
			return nil, err
		}
		if ssd, err = ds.distinctInts(ml.ColSSD); err != nil {
			return nil, err
		}
	}

	c := &Catalog{
		options: Options{
			Companies:   text[ml.ColCompany],
			Types:       text[ml.ColTypeName],
			CPUs:        text[ml.ColCPU],
			GPUs:        text[ml.ColGPU],
			OpSys:       text[ml.ColOpSys],
			Ram:         append([]int(nil), ram...),
			HDD:         append([]int(nil), hdd...),
			SSD:         append([]int(nil), ssd...),
			Resolutions: append([]string(nil), ml.Resolutions...),
		},
		allowed: make(map[string]map[string]bool),
	}

	for col, values := range text {
		c.allowed[col] = toSet(values)
	}
	c.allowed[ml.ColRam] = intSet(ram)
	c.allowed[ml.ColHDD] = intSet(hdd)
	c.allowed[ml.ColSSD] = intSet(ssd)
	c.allowed[ml.ColResolution] = toSet(ml.Resolutions)
	return c, nil
}

// Options returns a copy of the choice lists.
func (c *Catalog) Options() Options {
	o := c.options
	o.Companies = append([]string(nil), o.Companies...)
	o.Types = append([]string(nil), o.Types...)
	o.CPUs = append([]string(nil), o.CPUs...)
	o.GPUs = append([]string(nil), o.GPUs...)
	o.OpSys = append([]string(nil), o.OpSys...)
	o.Ram = append([]int(nil), o.Ram...)
	o.HDD = append([]int(nil), o.HDD...)
	o.SSD = append([]int(nil), o.SSD...)
	o.Resolutions = append([]string(nil), o.Resolutions...)
	return o
}

func (c *Catalog) Allows(column, value string) bool {
	return c.allowed[column][value]
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func intSet(values []int) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strconv.Itoa(v)] = true
	}
	return set
}
