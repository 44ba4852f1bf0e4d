// Package catalog turns stored product rows into a single detail variant.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrAmbiguousDetail = errors.New("catalog: product has both a recipe and a growing log")

// Kind tags which variant a Detail is.
type Kind string

const (
	KindPlain      Kind = "plain"
	KindRecipe     Kind = "recipe"
	KindGrowingLog Kind = "growing_log"
)

type Product struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
}

type Recipe struct {
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	PrepMinutes int      `json:"prep_minutes"`
	Servings    int      `json:"servings"`
}

type GrowingEntry struct {
	Date  string `json:"date"`
	Stage string `json:"stage"`
	Note  string `json:"note"`
}

type GrowingLog struct {
	Method  string         `json:"method"`
	Entries []GrowingEntry `json:"entries"`
}

// Detail is one of Plain, WithRecipe or WithGrowingLog.
type Detail interface {
	Kind() Kind
	Base() Product
}

type Plain struct {
	Product
}

type WithRecipe struct {
	Product
	Recipe Recipe `json:"recipe"`
}

type WithGrowingLog struct {
	Product
	GrowingLog GrowingLog `json:"growing_log"`
}

func (Plain) Kind() Kind          { return KindPlain }
func (WithRecipe) Kind() Kind     { return KindRecipe }
func (WithGrowingLog) Kind() Kind { return KindGrowingLog }

func (p Plain) Base() Product          { return p.Product }
func (p WithRecipe) Base() Product     { return p.Product }
func (p WithGrowingLog) Base() Product { return p.Product }

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// Resolve picks the variant from the optional recipe and growing log
// documents stored with the product.
func Resolve(p Product, recipe, growingLog json.RawMessage) (Detail, error) {
	hasRecipe, hasLog := present(recipe), present(growingLog)
	switch {
	case hasRecipe && hasLog:
		return nil, ErrAmbiguousDetail
	case hasRecipe:
		var r Recipe
		if err := json.Unmarshal(recipe, &r); err != nil {
			return nil, fmt.Errorf("decode recipe of product %s: %w", p.ID, err)
		}
		return WithRecipe{Product: p, Recipe: r}, nil
	case hasLog:
		var l GrowingLog
		if err := json.Unmarshal(growingLog, &l); err != nil {
			return nil, fmt.Errorf("decode growing log of product %s: %w", p.ID, err)
		}
		return WithGrowingLog{Product: p, GrowingLog: l}, nil
	}
	return Plain{Product: p}, nil
}

// Envelope is the wire form of a Detail: the variant tag next to its body.
type Envelope struct {
	Kind   Kind   `json:"kind"`
	Detail Detail `json:"detail"`
}

func Wrap(d Detail) Envelope {
	return Envelope{Kind: d.Kind(), Detail: d}
}
