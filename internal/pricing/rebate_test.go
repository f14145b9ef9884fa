package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestApplicableRebates_StackAllMatchingPrograms(t *testing.T) {
	table := testRebates(t)

	tests := []struct {
		name      string
		proposed  EquipmentSnapshot
		wantNames []string
		wantTotal string
	}{
		{"96 AFUE gets both furnace programs", EquipmentSnapshot{Category: CategoryFurnace, EfficiencyRating: d("96")}, []string{"High Efficiency Furnace", "Efficient Furnace"}, "1000"},
		{"95 AFUE is inclusive", EquipmentSnapshot{Category: CategoryFurnace, EfficiencyRating: d("95")}, []string{"High Efficiency Furnace", "Efficient Furnace"}, "1000"},
		{"92 AFUE gets one program", EquipmentSnapshot{Category: CategoryFurnace, EfficiencyRating: d("92")}, []string{"Efficient Furnace"}, "250"},
		{"80 AFUE gets nothing", EquipmentSnapshot{Category: CategoryFurnace, EfficiencyRating: d("80")}, nil, "0"},
		{"SEER 18 air conditioner", EquipmentSnapshot{Category: CategoryAC, EfficiencyRating: d("18")}, []string{"Efficient Cooling"}, "400"},
		{"category gates the threshold", EquipmentSnapshot{Category: CategoryAC, EfficiencyRating: d("96")}, []string{"Efficient Cooling"}, "400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.ApplicableRebates(tt.proposed)
			if len(got) != len(tt.wantNames) {
				t.Fatalf("got %d programs, want %d", len(got), len(tt.wantNames))
			}
			for i, p := range got {
				if p.Name != tt.wantNames[i] {
					t.Fatalf("program %d = %q, want %q", i, p.Name, tt.wantNames[i])
				}
			}
			equalAmount(t, "total", TotalRebateAmount(got), tt.wantTotal)
		})
	}
}

func TestTotalRebateAmount_EqualsSumOfPredicateMatches(t *testing.T) {
	table := testRebates(t)

	for rating := 70; rating <= 100; rating++ {
		proposed := EquipmentSnapshot{Category: CategoryFurnace, EfficiencyRating: decimal.NewFromInt(int64(rating))}

		want := decimal.Zero
		for _, p := range table.Programs() {
			if p.Eligibility(proposed) {
				want = want.Add(p.Amount)
			}
		}
		got := TotalRebateAmount(table.ApplicableRebates(proposed))
		if !got.Equal(want) {
			t.Fatalf("rating %d: total %s, want %s", rating, got, want)
		}
	}
}

func TestApplicableRebates_OrderIndependent(t *testing.T) {
	forward := testRebates(t).Programs()
	reversed := make([]RebateProgram, len(forward))
	for i, p := range forward {
		reversed[len(forward)-1-i] = p
	}
	table, err := NewRebateTable(reversed)
	if err != nil {
		t.Fatalf("NewRebateTable: %v", err)
	}

	proposed := EquipmentSnapshot{Category: CategoryFurnace, EfficiencyRating: d("97")}
	a := TotalRebateAmount(testRebates(t).ApplicableRebates(proposed))
	b := TotalRebateAmount(table.ApplicableRebates(proposed))
	if !a.Equal(b) {
		t.Fatalf("totals differ by table order: %s vs %s", a, b)
	}
}

func TestNewRebateTable_Validation(t *testing.T) {
	always := func(EquipmentSnapshot) bool { return true }

	tests := []struct {
		name     string
		programs []RebateProgram
	}{
		{"empty name", []RebateProgram{{Amount: d("1"), Eligibility: always}}},
		{"duplicate name", []RebateProgram{{Name: "a", Eligibility: always}, {Name: "a", Eligibility: always}}},
		{"negative amount", []RebateProgram{{Name: "a", Amount: d("-5"), Eligibility: always}}},
		{"no predicate", []RebateProgram{{Name: "a", Amount: d("5")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRebateTable(tt.programs); !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRebateTable_Find(t *testing.T) {
	table := testRebates(t)

	p, err := table.Find("Efficient Cooling")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	equalAmount(t, "amount", p.Amount, "400")

	if _, err := table.Find("Solar"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
