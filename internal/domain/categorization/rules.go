package categorization

import (
	"github.com/google/uuid"

	"github.com/rganapathy/upi-reconciler/internal/models"
)

// DefaultRules returns the built-in system rule set loaded at
// initialization. These are the single fallback categorization path for
// text no learned rule covers yet: brand patterns carry moderate
// confidence, generic keywords sit low enough that a sparse keyword hit
// stays under the confidence floor. System rules are never deleted or
// adjusted by learning.
func DefaultRules() []models.CategoryRule {
	build := func(name string, cat models.Category, confidence float64, patterns, keywords []string) models.CategoryRule {
		return models.CategoryRule{
			ID:         uuid.New(),
			Name:       name,
			Category:   cat,
			Patterns:   patterns,
			Keywords:   keywords,
			Confidence: confidence,
			CreatedBy:  models.RuleOriginSystem,
		}
	}

	return []models.CategoryRule{
		build("Food delivery & dining", models.CategoryFood, 0.75,
			[]string{"swiggy", "zomato", "dominos", "mcdonald", "kfc", "eatsure", "instamart"},
			[]string{"restaurant", "food", "dining", "cafe", "biryani", "pizza"}),
		build("Travel & transport", models.CategoryTravel, 0.75,
			[]string{"uber", "ola cabs", "olacabs", "irctc", "redbus", "rapido", "makemytrip", "indigo"},
			[]string{"travel", "cab", "taxi", "flight", "train", "metro", "fuel", "petrol"}),
		build("Utilities & bills", models.CategoryUtilities, 0.7,
			[]string{"airtel", "jio", "vodafone", "bescom", "tata power", "bsnl", "broadband"},
			[]string{"electricity", "recharge", "bill", "water", "postpaid", "prepaid", "dth"}),
		build("Shopping", models.CategoryShopping, 0.7,
			[]string{"amazon", "flipkart", "myntra", "ajio", "bigbasket", "dmart", "blinkit", "meesho"},
			[]string{"shopping", "store", "mart", "retail", "order", "fashion"}),
		build("Entertainment", models.CategoryEntertainment, 0.7,
			[]string{"netflix", "spotify", "bookmyshow", "hotstar", "prime video", "sony liv"},
			[]string{"movie", "cinema", "music", "subscription", "streaming", "tickets"}),
		build("Healthcare", models.CategoryHealthcare, 0.7,
			[]string{"apollo", "pharmeasy", "netmeds", "practo", "1mg", "medplus"},
			[]string{"pharmacy", "hospital", "clinic", "doctor", "medicine", "diagnostic"}),
		build("Education", models.CategoryEducation, 0.7,
			[]string{"udemy", "coursera", "byjus", "unacademy", "vedantu"},
			[]string{"course", "tuition", "school", "college", "exam", "books"}),
		build("Miscellaneous keywords", models.CategoryMisc, 0.55,
			nil,
			[]string{"transfer", "miscellaneous", "others"}),
	}
}
