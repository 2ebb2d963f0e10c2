package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"retailpos/internal/core/entity"
	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
	"retailpos/internal/domain/catalogs/product"
)

type mockRow struct {
	entity.BaseEntity
	Code    string `db:"code"`
	Name    string `db:"name"`
	Skipped string `db:"-"`
	NoTag   string
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[mockRow]()

	assert.Equal(t, []string{"id", "version", "created_at", "updated_at", "code", "name"}, cols)
}

func TestExtractDBColumns_Product(t *testing.T) {
	cols := ExtractDBColumns[product.Product]()

	for _, expected := range []string{"id", "version", "sku", "price", "current_stock", "pricing_rules"} {
		assert.Contains(t, cols, expected)
	}
}

func TestStructToMap_Embedded(t *testing.T) {
	now := time.Now().UTC()
	row := mockRow{
		BaseEntity: entity.BaseEntity{
			ID:        id.New(),
			Version:   5,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Code:    "TEST",
		Name:    "Test Name",
		Skipped: "x",
	}

	m := StructToMap(&row)

	assert.Equal(t, row.ID, m["id"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, now, m["created_at"])
	assert.Equal(t, "TEST", m["code"])
	assert.Equal(t, "Test Name", m["name"])
	assert.NotContains(t, m, "-")
	assert.Len(t, m, 6)
}

func TestStructToMap_ProductStock(t *testing.T) {
	p := product.NewProduct("cola-330", "Cola", types.MustMoney("1.50"))
	p.CurrentStock = types.NewQuantity(12)

	m := StructToMap(p)

	assert.Equal(t, "COLA-330", m["sku"])
	assert.Equal(t, types.NewQuantity(12), m["current_stock"])
	assert.Equal(t, true, m["track_inventory"])
}

func TestStructToMap_NotAStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	assert.Nil(t, StructToMap((*mockRow)(nil)))
}

type rowWithHidden struct {
	Code   string `db:"code"`
	hidden string `db:"hidden"`
}

func TestStructToMap_SkipsUnexportedFields(t *testing.T) {
	m := StructToMap(rowWithHidden{Code: "A", hidden: "b"})

	assert.Equal(t, map[string]any{"code": "A"}, m)
	assert.Equal(t, []string{"code"}, ExtractDBColumns[rowWithHidden]())
}
