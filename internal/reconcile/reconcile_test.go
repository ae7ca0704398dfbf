package reconcile

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "expected %s, got %s %v", want, got.String(), msgAndArgs)
}

const (
	memberA snowflake.ID = 101
	memberB snowflake.ID = 102
	memberC snowflake.ID = 103
)

func scenarioPeriod() Period {
	return Period{
		Members:           []snowflake.ID{memberA, memberB, memberC},
		ActiveMemberCount: 3,
		Bazars: []Bazar{
			{MemberID: memberA, Cost: d("700")},
			{MemberID: memberB, Cost: d("500")},
		},
		Meals: []Meal{
			{MemberID: memberA, Breakfast: 5, Lunch: 5, Dinner: 5},
			{MemberID: memberA, Lunch: 3, Dinner: 2},
			{MemberID: memberB, Breakfast: 8, Lunch: 9, Dinner: 8},
			{MemberID: memberC, Lunch: 8, Dinner: 7},
		},
		Deposits: []Deposit{
			{MemberID: memberA, Amount: d("600")},
			{MemberID: memberA, Amount: d("400")},
			{MemberID: memberB, Amount: d("1200")},
			{MemberID: memberC, Amount: d("800")},
		},
		AdditionalCosts: []AdditionalCost{
			{Amount: d("90")},
			{Amount: d("60")},
		},
	}
}

func TestComputeRate(t *testing.T) {
	tests := []struct {
		name   string
		bazars []Bazar
		meals  []Meal
		want   string
	}{
		{
			name:   "empty period",
			bazars: nil,
			meals:  nil,
			want:   "0",
		},
		{
			name:   "nine hundred over thirty meals",
			bazars: []Bazar{{Cost: d("400")}, {Cost: d("500")}},
			meals: []Meal{
				{MemberID: 1, Breakfast: 4, Lunch: 4, Dinner: 2},
				{MemberID: 2, Breakfast: 3, Lunch: 5, Dinner: 2},
				{MemberID: 3, Lunch: 5, Dinner: 5},
			},
			want: "30",
		},
		{
			name:   "bazar without meals",
			bazars: []Bazar{{Cost: d("500")}},
			meals:  nil,
			want:   "0",
		},
		{
			name:   "records with zero counts",
			bazars: []Bazar{{Cost: d("120")}},
			meals:  []Meal{{MemberID: 1}},
			want:   "0",
		},
		{
			name:   "fractional rate",
			bazars: []Bazar{{Cost: d("100.50")}},
			meals:  []Meal{{MemberID: 1, Lunch: 4}},
			want:   "25.125",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.want, ComputeRate(tt.bazars, tt.meals))
		})
	}
}

func TestComputeRateDeterministic(t *testing.T) {
	bazars := []Bazar{{Cost: d("100")}, {Cost: d("0.01")}, {Cost: d("33.33")}}
	meals := []Meal{{MemberID: 1, Lunch: 7}}

	first := ComputeRate(bazars, meals)
	second := ComputeRate(bazars, meals)
	assert.Equal(t, first.String(), second.String())
	assert.True(t, first.Equal(second))
}

func TestAllocator(t *testing.T) {
	assertDecimal(t, "50", PerHeadShare(d("150"), 3))
	assertDecimal(t, "150", PerHeadShare(d("150"), 0), "floor divides by one")

	suppress := Allocator{Policy: ZeroMemberSuppress}
	assertDecimal(t, "0", suppress.PerHeadShare(d("150"), 0))
	assertDecimal(t, "0", suppress.AggregatePerHead([]decimal.Decimal{d("1"), d("2")}, 0))
	assertDecimal(t, "1", suppress.AggregatePerHead([]decimal.Decimal{d("1"), d("2")}, 3))

	assertDecimal(t, "0", AggregatePerHead(nil, 4))
}

func TestAggregatePerHeadOrderInvariant(t *testing.T) {
	costs := []decimal.Decimal{d("10"), d("20"), d("33.33"), d("0.01"), d("7"), d("1000.10")}
	want := AggregatePerHead(costs, 3)

	permutations := [][]int{
		{5, 4, 3, 2, 1, 0},
		{2, 0, 5, 1, 3, 4},
		{3, 1, 4, 0, 5, 2},
	}
	for _, perm := range permutations {
		reordered := make([]decimal.Decimal, 0, len(costs))
		for _, i := range perm {
			reordered = append(reordered, costs[i])
		}
		got := AggregatePerHead(reordered, 3)
		assert.Truef(t, want.Equal(got), "order %v: want %s got %s", perm, want, got)
	}
}

func TestParseZeroMemberPolicy(t *testing.T) {
	assert.Equal(t, ZeroMemberSuppress, ParseZeroMemberPolicy(" Suppress "))
	assert.Equal(t, ZeroMemberFloor, ParseZeroMemberPolicy("floor"))
	assert.Equal(t, ZeroMemberFloor, ParseZeroMemberPolicy("unknown"))
}

func TestStatementScenario(t *testing.T) {
	st := Reconciler{}.Statement(scenarioPeriod())

	assertDecimal(t, "20", st.MealRate)
	assertDecimal(t, "1200", st.TotalBazar)
	assert.Equal(t, int64(60), st.TotalMeals)
	assertDecimal(t, "150", st.TotalAdditionalCost)
	assertDecimal(t, "50", st.PerHeadAdditionalCost)
	assertDecimal(t, "3000", st.TotalDeposits)
	require.Len(t, st.Members, 3)

	want := map[snowflake.ID]struct {
		meals    int64
		mealCost string
		balance  string
		bazar    string
	}{
		memberA: {20, "400", "550", "700"},
		memberB: {25, "500", "650", "500"},
		memberC: {15, "300", "450", "0"},
	}
	for _, m := range st.Members {
		exp := want[m.MemberID]
		assert.Equal(t, exp.meals, m.MealCount)
		assertDecimal(t, exp.mealCost, m.MealCost)
		assertDecimal(t, exp.balance, m.Balance)
		assertDecimal(t, exp.bazar, m.BazarContribution)
		assert.Equal(t, LabelSurplus, m.Label())
	}
}

func TestReconcileMatchesStatement(t *testing.T) {
	p := scenarioPeriod()
	st := Reconciler{}.Statement(p)
	for _, id := range p.Members {
		single := Reconcile(id, p)
		fromStatement, ok := st.Member(id)
		require.True(t, ok)
		assert.Equal(t, fromStatement, single)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	p := scenarioPeriod()
	first := Reconcile(memberB, p)
	second := Reconcile(memberB, p)
	assert.Equal(t, first, second)
}

func TestBalanceDecompositionLaw(t *testing.T) {
	p := Period{
		Members:           []snowflake.ID{1, 2, 3},
		ActiveMemberCount: 3,
		Bazars:            []Bazar{{Cost: d("1000")}, {Cost: d("333.37")}},
		Meals: []Meal{
			{MemberID: 1, Breakfast: 1, Lunch: 2, Dinner: 1},
			{MemberID: 2, Lunch: 3},
			{MemberID: 3, Breakfast: 2, Dinner: 3},
		},
		Deposits: []Deposit{
			{MemberID: 1, Amount: d("250.10")},
			{MemberID: 2, Amount: d("99.99")},
		},
		AdditionalCosts: []AdditionalCost{{Amount: d("100")}, {Amount: d("0.07")}},
	}

	st := Reconciler{}.Statement(p)
	for _, m := range st.Members {
		recomposed := m.Balance.Add(m.MealCost).Add(m.PerHeadAdditionalCost)
		assert.Truef(t, recomposed.Equal(m.DepositTotal), "member %d: %s != %s", m.MemberID, recomposed, m.DepositTotal)
	}
}

func TestZeroMealPeriod(t *testing.T) {
	p := Period{
		Members:           []snowflake.ID{memberA, memberB},
		ActiveMemberCount: 2,
		Bazars:            []Bazar{{MemberID: memberA, Cost: d("500")}},
		Deposits:          []Deposit{{MemberID: memberA, Amount: d("300")}},
		AdditionalCosts:   []AdditionalCost{{Amount: d("40")}},
	}

	st := Reconciler{}.Statement(p)
	assertDecimal(t, "0", st.MealRate)
	a, _ := st.Member(memberA)
	b, _ := st.Member(memberB)
	assertDecimal(t, "0", a.MealCost)
	assertDecimal(t, "280", a.Balance)
	assertDecimal(t, "0", b.MealCost)
	assertDecimal(t, "-20", b.Balance)
	assert.Equal(t, LabelDue, b.Label())
}

func TestStatementIncludesMembersOnlySeenInRecords(t *testing.T) {
	p := Period{
		Members:           []snowflake.ID{memberA},
		ActiveMemberCount: 1,
		Meals:             []Meal{{MemberID: memberC, Lunch: 1}},
		Deposits:          []Deposit{{MemberID: memberB, Amount: d("10")}},
	}
	st := Reconciler{}.Statement(p)
	require.Len(t, st.Members, 3)
	assert.Equal(t, memberA, st.Members[0].MemberID)
	assert.Equal(t, memberC, st.Members[1].MemberID)
	assert.Equal(t, memberB, st.Members[2].MemberID)
}

func TestZeroActiveMembersPolicies(t *testing.T) {
	p := Period{
		Members:         []snowflake.ID{memberA},
		Deposits:        []Deposit{{MemberID: memberA, Amount: d("100")}},
		AdditionalCosts: []AdditionalCost{{Amount: d("30")}},
	}

	floor := NewReconciler(ZeroMemberFloor).Reconcile(memberA, p)
	assertDecimal(t, "30", floor.PerHeadAdditionalCost)
	assertDecimal(t, "70", floor.Balance)

	suppressed := NewReconciler(ZeroMemberSuppress).Reconcile(memberA, p)
	assertDecimal(t, "0", suppressed.PerHeadAdditionalCost)
	assertDecimal(t, "100", suppressed.Balance)
}
