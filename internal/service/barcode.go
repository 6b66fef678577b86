package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	ErrBadBarcode      = errors.New("barcode must have at least 8 digits")
	ErrProductNotFound = errors.New("product not found")
)

var nonDigits = regexp.MustCompile(`\D`)

// Product is a packaged food resolved from Open Food Facts. Nutrient
// values prefer per-serving numbers and fall back to per-100g.
type Product struct {
	Barcode      string  `json:"barcode"`
	Name         string  `json:"name"`
	Brand        string  `json:"brand"`
	ServingSize  string  `json:"serving_size"`
	CaloriesKcal float64 `json:"calories_kcal"`
	ProteinGrams float64 `json:"protein_g"`
	CarbsGrams   float64 `json:"carbs_g"`
	FatGrams     float64 `json:"fat_g"`
	FiberGrams   float64 `json:"fiber_g"`
	SodiumMg     float64 `json:"sodium_mg"`
	Source       string  `json:"source"`
}

type BarcodeClient struct {
	http  *http.Client
	base  string
	cache persist.CacheStore
}

func NewBarcodeClient(cache persist.CacheStore) *BarcodeClient {
	return &BarcodeClient{
		http:  &http.Client{Timeout: 15 * time.Second},
		base:  strings.TrimSuffix(viper.GetString("barcode.base_url"), "/"),
		cache: cache,
	}
}

// NormalizeBarcode strips everything that isn't a digit.
func NormalizeBarcode(raw string) (string, error) {
	code := nonDigits.ReplaceAllString(raw, "")
	if len(code) < 8 {
		return "", ErrBadBarcode
	}

	return code, nil
}

// Lookup resolves a barcode through the cache first, then Open Food
// Facts. The second return value tells whether the answer was cached.
func (b *BarcodeClient) Lookup(ctx context.Context, raw string) (*Product, bool, error) {
	code, err := NormalizeBarcode(raw)
	if err != nil {
		return nil, false, err
	}

	var cached Product
	err = b.cache.Get("barcode:"+code, &cached)
	if err == nil {
		return &cached, true, nil
	}
	if !errors.Is(err, persist.ErrCacheMiss) {
		zap.L().Warn("Barcode cache read failed", zap.String("barcode", code), zap.Error(err))
	}

	product, err := b.fetch(ctx, code)
	if err != nil {
		return nil, false, err
	}

	ttl := time.Duration(viper.GetInt("barcode.cache_ttl_minutes")) * time.Minute
	if err := b.cache.Set("barcode:"+code, *product, ttl); err != nil {
		zap.L().Warn("Barcode cache write failed", zap.String("barcode", code), zap.Error(err))
	}

	return product, false, nil
}

type offResponse struct {
	Status  int        `json:"status"`
	Product offProduct `json:"product"`
}

type offProduct struct {
	ProductName string         `json:"product_name"`
	GenericName string         `json:"generic_name"`
	Brands      string         `json:"brands"`
	ServingSize string         `json:"serving_size"`
	Nutriments  map[string]any `json:"nutriments"`
}

func (b *BarcodeClient) fetch(ctx context.Context, code string) (*Product, error) {
	url := fmt.Sprintf("%s/api/v2/product/%s.json", b.base, code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request, %w", err)
	}

	res, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach open food facts, %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrProductNotFound
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open food facts returned %s", res.Status)
	}

	var payload offResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode product, %w", err)
	}

	if payload.Status != 1 {
		return nil, ErrProductNotFound
	}

	p := payload.Product

	name := p.ProductName
	if name == "" {
		name = p.GenericName
	}
	if name == "" {
		name = "Unknown packaged food"
	}

	return &Product{
		Barcode:      code,
		Name:         name,
		Brand:        p.Brands,
		ServingSize:  p.ServingSize,
		CaloriesKcal: p.nutrient("energy-kcal"),
		ProteinGrams: p.nutrient("proteins"),
		CarbsGrams:   p.nutrient("carbohydrates"),
		FatGrams:     p.nutrient("fat"),
		FiberGrams:   p.nutrient("fiber"),
		SodiumMg:     math.Round(p.nutrient("sodium")*1000*100) / 100,
		Source:       "openfoodfacts",
	}, nil
}

// nutrient picks the first usable value among the serving, per-100g and
// bare variants of a nutriment key.
func (p offProduct) nutrient(name string) float64 {
	for _, key := range []string{name + "_serving", name + "_100g", name} {
		if v := toFloat(p.Nutriments[key]); v != 0 {
			return v
		}
	}

	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	case json.Number:
		f, _ := n.Float64()
		return f
	}

	return 0
}
