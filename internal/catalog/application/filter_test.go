package application

import (
	"testing"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/catalog/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func price(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func catalogFixture() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "Tensiomètre électronique", Price: price(15000), Category: "Diagnostic"},
		{ID: 2, Name: "Gants nitrile", Description: "Boîte de 100", Price: price(3000), Category: "Protection"},
		{ID: 3, Name: "Fauteuil roulant", Category: "Mobilité"},
		{ID: 4, Name: "Thermomètre", Description: "Lecture ÉLECTRONIQUE rapide", Price: price(5000), Category: "Diagnostic"},
	}
}

func ids(products []domain.Product) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestFilter_Term(t *testing.T) {
	got := Filter{Term: "  électronique "}.Apply(catalogFixture())
	assert.Equal(t, []int64{1, 4}, ids(got))

	got = Filter{Term: "boîte"}.Apply(catalogFixture())
	assert.Equal(t, []int64{2}, ids(got))
}

func TestFilter_Categories(t *testing.T) {
	got := Filter{Categories: []string{"Diagnostic", "Mobilité"}}.Apply(catalogFixture())
	assert.Equal(t, []int64{1, 3, 4}, ids(got))

	assert.Len(t, Filter{}.Apply(catalogFixture()), 4)
}

func TestFilter_PriceRangeTreatsNullAsZero(t *testing.T) {
	got := Filter{MaxPrice: price(4000)}.Apply(catalogFixture())
	assert.Equal(t, []int64{2, 3}, ids(got))

	got = Filter{MinPrice: price(1), MaxPrice: price(15000)}.Apply(catalogFixture())
	assert.Equal(t, []int64{1, 2, 4}, ids(got))
}

func TestPriceCeiling(t *testing.T) {
	assert.True(t, PriceCeiling(catalogFixture()).Equal(decimal.NewFromInt(15000)))
	assert.True(t, PriceCeiling([]domain.Product{{ID: 1}}).Equal(DefaultPriceCeiling))
	assert.True(t, PriceCeiling(nil).Equal(DefaultPriceCeiling))
}

func TestPaginate(t *testing.T) {
	products := catalogFixture()

	page := Paginate(products, 2, 3)
	assert.Equal(t, []int64{4}, ids(page.Products))
	assert.Equal(t, int64(2), page.Pagination.Pages)

	page = Paginate(products, 5, 3)
	assert.Empty(t, page.Products)
	assert.NotNil(t, page.Products)
}
