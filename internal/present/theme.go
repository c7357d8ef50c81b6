// Package present turns prediction results into display-ready views.
package present

import "github.com/Alias1177/MSMEPredictor/models"

// Theme is the visual treatment of a risk category
type Theme struct {
	Key    string // css modifier: low, medium, high
	Icon   string // check, info, warning
	Advice string
}

var (
	lowTheme = Theme{
		Key:    "low",
		Icon:   "check",
		Advice: "Your business shows strong indicators of survival and growth potential.",
	}
	mediumTheme = Theme{
		Key:    "medium",
		Icon:   "info",
		Advice: "Your business requires attention in some areas to improve stability.",
	}
	highTheme = Theme{
		Key:    "high",
		Icon:   "warning",
		Advice: "Your business is at high risk. Immediate action is recommended.",
	}
)

// ThemeFor selects the theme of a category. Anything that is not Low or
// Medium Risk is shown with the high risk theme.
func ThemeFor(category models.RiskCategory) Theme {
	switch category {
	case models.RiskLow:
		return lowTheme
	case models.RiskMedium:
		return mediumTheme
	default:
		return highTheme
	}
}
