package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func equalAmount(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()

	items := []PricedItem{
		{ID: "f-60-92", DisplayName: "60,000 BTU 92% AFUE Furnace", Category: CategoryFurnace, MatchKey: "60000/92% AFUE", UnitPrice: d("3150"), Unit: UnitEach, Size: d("60000")},
		{ID: "f-80-96", DisplayName: "80,000 BTU 96% AFUE Furnace", Category: CategoryFurnace, MatchKey: "80000/96% AFUE", UnitPrice: d("4275"), Unit: UnitEach, Size: d("80000")},
		{ID: "ac-3-16", DisplayName: "3 Ton 16 SEER Air Conditioner", Category: CategoryAC, MatchKey: "3/16 SEER", UnitPrice: d("3890"), Unit: UnitEach, Size: d("3")},
		{ID: "m-duct-6", DisplayName: "6\" Round Duct", Category: CategoryMaterial, MatchKey: "DUCT-6", UnitPrice: d("4.25"), Unit: UnitLinearFoot},
		{ID: "ft-elbow-6", DisplayName: "6\" Adjustable Elbow", Category: CategoryFitting, MatchKey: "ELBOW-6", UnitPrice: d("7.99"), Unit: UnitEach},
		{ID: "l-thermo", DisplayName: "Thermostat Installation", Category: CategoryLabor, MatchKey: "THERMOSTAT", UnitPrice: d("145"), Unit: UnitEach},
	}
	rules := []LaborRule{
		{Category: CategoryFurnace, BaseInstallCost: d("800"), PerUnitRate: d("0.008")},
		{Category: CategoryAC, BaseInstallCost: d("950"), PerUnitRate: d("275")},
		{Category: CategoryLabor, PerUnitRate: d("12.50")},
	}

	catalog, err := NewCatalog(items, rules)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return catalog
}

func testRebates(t *testing.T) *RebateTable {
	t.Helper()

	table, err := NewRebateTable([]RebateProgram{
		{Name: "High Efficiency Furnace", Amount: d("750"), Description: "AFUE 95 or better", Eligibility: MinEfficiency(CategoryFurnace, d("95"))},
		{Name: "Efficient Furnace", Amount: d("250"), Description: "AFUE 90 or better", Eligibility: MinEfficiency(CategoryFurnace, d("90"))},
		{Name: "Efficient Cooling", Amount: d("400"), Description: "SEER 16 or better", Eligibility: MinEfficiency(CategoryAC, d("16"))},
	})
	if err != nil {
		t.Fatalf("NewRebateTable: %v", err)
	}
	return table
}
