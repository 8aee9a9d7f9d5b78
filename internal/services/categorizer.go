// Package services provides the business logic sitting between the HTTP
// transport and the storage adapters: auto-categorization, smart alert
// generation and transaction orchestration.
package services

import (
	"strings"

	"mindcash/internal/core"
)

// categoryRule pairs a category with its keyword list. Matching is a
// case-insensitive substring search; the first rule that matches wins, so
// the order of the rule slices is part of the contract and must not change.
type categoryRule struct {
	category string
	keywords []string
}

var expenseRules = []categoryRule{
	{"Food", []string{
		"grocery", "supermarket", "restaurant", "lunch", "dinner",
		"snack", "bakery", "butcher", "market", "delivery",
	}},
	{"Transport", []string{
		"uber", "gas station", "fuel", "bus", "subway", "metro",
		"taxi", "parking", "toll", "rideshare",
	}},
	{"Housing", []string{
		"rent", "mortgage", "condo", "electricity", "water bill",
		"internet", "phone", "property tax",
	}},
	{"Entertainment", []string{
		"netflix", "cinema", "movie", "game", "spotify", "concert",
		"theater", "bar", "party",
	}},
	{"Health", []string{
		"pharmacy", "doctor", "hospital", "dentist", "exam",
		"medicine", "gym", "health plan",
	}},
	{"Shopping", []string{
		"clothes", "shoes", "shopping", "mall", "store", "amazon",
	}},
}

var incomeRules = []categoryRule{
	{"Salary", []string{"salary", "paycheck", "wage", "employer"}},
	{"Freelance", []string{"freelance", "gig", "consulting", "extra"}},
	{"Investments", []string{"investment", "dividend", "interest", "yield"}},
	{"Sales", []string{"sale", "sold", "product"}},
}

// Categorize classifies a free-text description into the fixed taxonomy for
// the given transaction kind, defaulting to "Other" when nothing matches.
// It is deterministic and advisory only: callers invoke it when the user
// left the category blank, and never override a user-supplied category.
func Categorize(description string, kind core.Kind) string {
	desc := strings.ToLower(description)

	rules := expenseRules
	if kind == core.Income {
		rules = incomeRules
	}

	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(desc, kw) {
				return rule.category
			}
		}
	}
	return "Other"
}
