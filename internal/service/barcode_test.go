package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const offProductJSON = `{
	"status": 1,
	"product": {
		"product_name": "Crunchy Peanut Butter",
		"brands": "NutCo",
		"serving_size": "32g",
		"nutriments": {
			"energy-kcal_serving": 190,
			"energy-kcal_100g": 594,
			"proteins_serving": 8,
			"carbohydrates_serving": 7,
			"fat_serving": 16,
			"fiber_serving": 2,
			"sodium_serving": 0.14
		}
	}
}`

func testBarcodeClient(t *testing.T, handler http.HandlerFunc) (*BarcodeClient, *int) {
	t.Helper()

	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		handler(w, r)
	}))
	t.Cleanup(ts.Close)

	viper.Set("barcode.base_url", ts.URL)
	viper.Set("barcode.cache_ttl_minutes", 60)

	return NewBarcodeClient(persist.NewMemoryStore(time.Minute)), &hits
}

func TestBarcodeLookup(t *testing.T) {
	var gotPath string

	b, _ := testBarcodeClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(offProductJSON))
	})

	p, cached, err := b.Lookup(context.Background(), "0123456789012")
	require.NoError(t, err)

	assert.Equal(t, "/api/v2/product/0123456789012.json", gotPath)
	assert.False(t, cached)
	assert.Equal(t, "Crunchy Peanut Butter", p.Name)
	assert.Equal(t, "NutCo", p.Brand)
	assert.InDelta(t, 190, p.CaloriesKcal, 0.01, "per-serving beats per-100g")
	assert.InDelta(t, 140, p.SodiumMg, 0.01, "sodium grams are converted to mg")
}

func TestBarcodeLookupCachesResult(t *testing.T) {
	b, hits := testBarcodeClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(offProductJSON))
	})

	_, cached, err := b.Lookup(context.Background(), "40084077")
	require.NoError(t, err)
	assert.False(t, cached)

	p, cached, err := b.Lookup(context.Background(), "40084077")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "Crunchy Peanut Butter", p.Name)

	assert.Equal(t, 1, *hits, "the second lookup must not hit the upstream")
}

func TestBarcodeLookupNormalizesInput(t *testing.T) {
	var gotPath string

	b, _ := testBarcodeClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(offProductJSON))
	})

	_, _, err := b.Lookup(context.Background(), " 4008-4077 ")
	require.NoError(t, err)
	assert.Equal(t, "/api/v2/product/40084077.json", gotPath)
}

func TestBarcodeLookupRejectsShortCodes(t *testing.T) {
	b, hits := testBarcodeClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, _, err := b.Lookup(context.Background(), "1234567")
	assert.ErrorIs(t, err, ErrBadBarcode)
	assert.Zero(t, *hits)
}

func TestBarcodeLookupNotFound(t *testing.T) {
	b, _ := testBarcodeClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": 0, "status_verbose": "product not found"}`))
	})

	_, _, err := b.Lookup(context.Background(), "00000000")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestBarcodeLookupUpstream404(t *testing.T) {
	b, _ := testBarcodeClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, _, err := b.Lookup(context.Background(), "00000000")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestBarcodeLookupFallsBackTo100g(t *testing.T) {
	b, _ := testBarcodeClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": 1,
			"product": {
				"product_name": "Rolled Oats",
				"nutriments": {
					"energy-kcal_100g": 379,
					"proteins_100g": "13.2",
					"carbohydrates_100g": 67.7,
					"fat_100g": 6.5
				}
			}
		}`))
	})

	p, _, err := b.Lookup(context.Background(), "12345678")
	require.NoError(t, err)

	assert.InDelta(t, 379, p.CaloriesKcal, 0.01)
	assert.InDelta(t, 13.2, p.ProteinGrams, 0.01, "string nutriment values still parse")
}
