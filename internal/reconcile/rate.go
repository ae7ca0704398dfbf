package reconcile

import "github.com/shopspring/decimal"

// TotalBazar sums the cost of every purchase.
func TotalBazar(bazars []Bazar) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bazars {
		total = total.Add(b.Cost)
	}
	return total
}

// TotalMeals sums breakfast, lunch and dinner over every record.
func TotalMeals(meals []Meal) int64 {
	var total int64
	for _, m := range meals {
		total += int64(m.Total())
	}
	return total
}

// ComputeRate is the cost per meal: total bazar over total meals, or zero when
// no meals were eaten.
func ComputeRate(bazars []Bazar, meals []Meal) decimal.Decimal {
	totalMeals := TotalMeals(meals)
	if totalMeals <= 0 {
		return decimal.Zero
	}
	return TotalBazar(bazars).Div(decimal.NewFromInt(totalMeals))
}
