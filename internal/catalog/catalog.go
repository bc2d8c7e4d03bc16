// Package catalog holds the static table of Bokun products exposed as calendar feeds.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Product is one bookable tour. It is read once at startup and never mutated.
type Product struct {
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	BookingURL        string `yaml:"booking_url"`
	Color             string `yaml:"color,omitempty"`
	DurationMinutes   int    `yaml:"duration_minutes,omitempty"`
	DepartureLocation string `yaml:"departure_location,omitempty"`
}

type file struct {
	Products []Product `yaml:"products"`
}

// Default returns the built-in product table.
func Default() []Product {
	return []Product{
		{
			ID:         "1084194",
			Name:       "Skerries & Dunluce",
			BookingURL: "https://aquaholics.co.uk/pages/boku-test",
		},
		{
			ID:         "1087988",
			Name:       "Giant's Causeway, Skerries & Dunluce",
			BookingURL: "https://aquaholics.co.uk/pages/giants-causeway-bkuk",
		},
	}
}

// Load returns the products in path, or Default when path is empty.
func Load(path string) ([]Product, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog of the form:
//
//	products:
//	  - id: "1084194"
//	    name: Skerries & Dunluce
//	    booking_url: https://example.com/book
func Parse(data []byte) ([]Product, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if len(f.Products) == 0 {
		return nil, errors.New("catalog: no products defined")
	}

	seen := make(map[string]struct{}, len(f.Products))
	products := make([]Product, 0, len(f.Products))
	for i, p := range f.Products {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		p.BookingURL = strings.TrimSpace(p.BookingURL)
		if p.ID == "" {
			return nil, fmt.Errorf("catalog: product %d: id is required", i)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("catalog: product %s: name is required", p.ID)
		}
		if p.DurationMinutes < 0 {
			return nil, fmt.Errorf("catalog: product %s: negative duration", p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate product id %s", p.ID)
		}
		seen[p.ID] = struct{}{}
		products = append(products, p)
	}
	return products, nil
}
