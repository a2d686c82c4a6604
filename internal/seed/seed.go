// Package seed reads the optional YAML file that provides the initial
// service catalog and closures for a fresh data directory.
//
//	services:
//	  - name: Cut & Style
//	    duration: 60
//	closed_days:
//	  close_on_sundays: true
//	  ranges:
//	    - start: "2024-12-24"
//	      end: "2024-12-26"
package seed

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/glamcal/internal/apperr"
	"github.com/starford/glamcal/internal/closure"
	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/models"
)

// Catalog is the decoded seed file. A nil ClosedDays means the file does not
// configure closures.
type Catalog struct {
	Services   []models.Service
	ClosedDays *models.ClosedDaysConfig
}

type fileService struct {
	Name     string `yaml:"name"`
	Duration int    `yaml:"duration"`
}

type fileRange struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type fileClosedDays struct {
	CloseOnSundays bool        `yaml:"close_on_sundays"`
	Ranges         []fileRange `yaml:"ranges"`
}

type file struct {
	Services   []fileService   `yaml:"services"`
	ClosedDays *fileClosedDays `yaml:"closed_days"`
}

// Load reads and parses the seed file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("seed: %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a seed document. Unknown keys are rejected so that typos do
// not silently produce an empty catalog. Services get ids "1", "2", ... in
// file order.
func Parse(data []byte) (*Catalog, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	out := &Catalog{}
	for i, s := range f.Services {
		s.Name = strings.TrimSpace(s.Name)
		err := validation.ValidateStruct(&s,
			validation.Field(&s.Name, validation.Required),
			validation.Field(&s.Duration, validation.Required, validation.Min(1)),
		)
		if err != nil {
			return nil, fmt.Errorf("services[%d]: %w", i, apperr.Validation(err))
		}
		out.Services = append(out.Services, models.Service{
			ID:       strconv.Itoa(i + 1),
			Name:     s.Name,
			Duration: s.Duration,
		})
	}

	if f.ClosedDays != nil {
		cfg := models.ClosedDaysConfig{
			CloseOnSundays: f.ClosedDays.CloseOnSundays,
			CustomRanges:   []models.ClosedDateRange{},
		}
		for i, r := range f.ClosedDays.Ranges {
			end := r.End
			if end == "" {
				end = r.Start
			}
			rng := models.ClosedDateRange{Start: datekey.Key(r.Start), End: datekey.Key(end)}
			if err := closure.ValidateRange(rng); err != nil {
				return nil, fmt.Errorf("closed_days.ranges[%d]: %w", i, err)
			}
			cfg.CustomRanges = append(cfg.CustomRanges, rng)
		}
		closure.SortRanges(cfg.CustomRanges)
		out.ClosedDays = &cfg
	}
	return out, nil
}
