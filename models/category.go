package models

import (
	"fmt"
	"strings"
)

// Category is one of the fixed gallery sections an image is filed under.
type Category string

const (
	CategoryNature       Category = "nature"
	CategoryAnimals      Category = "animals"
	CategoryArchitecture Category = "architecture"
	CategoryPeople       Category = "people"
	CategoryArt          Category = "art"
	CategoryTravel       Category = "travel"
	CategoryFood         Category = "food"
	CategoryOther        Category = "other"
)

// Categories lists every category in gallery display order.
var Categories = []Category{
	CategoryNature,
	CategoryAnimals,
	CategoryArchitecture,
	CategoryPeople,
	CategoryArt,
	CategoryTravel,
	CategoryFood,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory normalizes s and checks it against the known categories.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
