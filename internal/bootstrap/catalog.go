// Package bootstrap seeds the default catalog: roles and their permission
// grants, course and job categories, loan products and crops. Every entry
// is matched by name, so seeding any number of times yields one copy.
package bootstrap

import (
	"ongon.org/internal/ledger"
	"ongon.org/internal/welfare"
)

// Category is a seeded top-level category.
type Category struct {
	Name        string
	Description string
}

// CourseCategories are the default course categories.
var CourseCategories = []Category{
	{"Technology", "Computer and technology courses"},
	{"Business", "Business and entrepreneurship"},
	{"Agriculture", "Farming and agricultural techniques"},
	{"Healthcare", "Health and medical education"},
	{"Life Skills", "Personal development and life skills"},
}

// JobCategories are the default job categories.
var JobCategories = []Category{
	{"Technology", "IT and software jobs"},
	{"Agriculture", "Farming and agricultural jobs"},
	{"Healthcare", "Medical and healthcare jobs"},
	{"Education", "Teaching and training jobs"},
	{"Business", "Business and finance jobs"},
}

// LoanProducts are the default microfinance products.
var LoanProducts = []welfare.LoanProduct{
	{
		Name:         "Micro Business Loan",
		Description:  "Small business startup loan",
		MinAmount:    ledger.FromTaka(5000),
		MaxAmount:    ledger.FromTaka(50000),
		InterestRate: 12,
		TenureMonths: 12,
		IsActive:     true,
	},
	{
		Name:         "Agriculture Loan",
		Description:  "Farming and crop financing",
		MinAmount:    ledger.FromTaka(10000),
		MaxAmount:    ledger.FromTaka(100000),
		InterestRate: 10,
		TenureMonths: 24,
		IsActive:     true,
	},
	{
		Name:         "Education Loan",
		Description:  "Educational expenses financing",
		MinAmount:    ledger.FromTaka(15000),
		MaxAmount:    ledger.FromTaka(200000),
		InterestRate: 8,
		TenureMonths: 36,
		IsActive:     true,
	},
	{
		Name:         "Women Entrepreneur Loan",
		Description:  "Special loan for women entrepreneurs",
		MinAmount:    ledger.FromTaka(5000),
		MaxAmount:    ledger.FromTaka(75000),
		InterestRate: 10,
		TenureMonths: 18,
		IsActive:     true,
	},
}

func days(n int) *int { return &n }

// Crops are the default crop reference entries.
var Crops = []welfare.Crop{
	{Name: "Rice", ScientificName: "Oryza sativa", Category: "cereal", GrowingSeason: "kharif", MaturityDays: days(120), WaterRequirements: "high"},
	{Name: "Wheat", ScientificName: "Triticum aestivum", Category: "cereal", GrowingSeason: "rabi", MaturityDays: days(110), WaterRequirements: "medium"},
	{Name: "Potato", ScientificName: "Solanum tuberosum", Category: "vegetable", GrowingSeason: "rabi", MaturityDays: days(90), WaterRequirements: "medium"},
	{Name: "Tomato", ScientificName: "Solanum lycopersicum", Category: "vegetable", GrowingSeason: "rabi", MaturityDays: days(75), WaterRequirements: "medium"},
}
