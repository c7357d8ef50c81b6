package models

// PredictionFields lists the manual form fields in form order. The names are
// the JSON keys expected by the prediction service.
var PredictionFields = []string{
	"monthly_sales",
	"stock_value",
	"num_customers",
	"monthly_expenses",
	"monthly_profit",
	"num_employees",
	"avg_transaction_value",
	"return_rate",
	"marketing_spend",
}

func (r *PredictionRequest) field(name string) *float64 {
	switch name {
	case "monthly_sales":
		return &r.MonthlySales
	case "stock_value":
		return &r.StockValue
	case "num_customers":
		return &r.NumCustomers
	case "monthly_expenses":
		return &r.MonthlyExpenses
	case "monthly_profit":
		return &r.MonthlyProfit
	case "num_employees":
		return &r.NumEmployees
	case "avg_transaction_value":
		return &r.AvgTransactionValue
	case "return_rate":
		return &r.ReturnRate
	case "marketing_spend":
		return &r.MarketingSpend
	}
	return nil
}

// Set assigns the field with the given JSON name. It returns false for unknown names.
func (r *PredictionRequest) Set(name string, v float64) bool {
	p := r.field(name)
	if p == nil {
		return false
	}
	*p = v
	return true
}
