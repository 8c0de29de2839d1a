package receipt

import "strings"

// Affixes stripped before alias lookup. OCR output regularly glues label
// fragments and app chrome onto the merchant line.
var (
	merchantPrefixes = []string{"to:", "to ", "paid to "}
	merchantAffixes  = []string{"online", "digital", "payments", "services"}
)

// merchantAliases collapses known merchant variants onto one canonical
// name. Matching is by substring against any alias, case-insensitive.
var merchantAliases = []struct {
	canonical string
	aliases   []string
}{
	{"Swiggy", []string{"swiggy", "bundl technologies"}},
	{"Zomato", []string{"zomato", "zomato media"}},
	{"Amazon", []string{"amazon", "amzn"}},
	{"Flipkart", []string{"flipkart", "fkrt"}},
	{"BigBasket", []string{"bigbasket", "big basket", "supermarket grocery"}},
	{"Uber", []string{"uber", "uber india"}},
	{"Ola", []string{"ola cabs", "ani technologies", "olacabs"}},
	{"IRCTC", []string{"irctc", "indian railway"}},
	{"Netflix", []string{"netflix"}},
	{"Airtel", []string{"airtel", "bharti airtel"}},
	{"Jio", []string{"jio", "reliance jio"}},
	{"DMart", []string{"dmart", "d mart", "avenue supermarts"}},
}

// NormalizeMerchant strips known affixes, title-cases the remainder and
// collapses known variants to a canonical name.
func NormalizeMerchant(raw string) string {
	cleaned := strings.TrimSpace(raw)

	lower := strings.ToLower(cleaned)
	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(lower, prefix) {
			cleaned = strings.TrimSpace(cleaned[len(prefix):])
			break
		}
	}

	// Drop stray affix words like "Online" or "Payments".
	words := strings.Fields(cleaned)
	kept := words[:0]
	for _, w := range words {
		if isAffixWord(strings.ToLower(w)) && len(words) > 1 {
			continue
		}
		kept = append(kept, w)
	}
	cleaned = strings.Join(kept, " ")
	if cleaned == "" {
		return ""
	}

	cleaned = titleCase(cleaned)

	lower = strings.ToLower(cleaned)
	for _, entry := range merchantAliases {
		for _, alias := range entry.aliases {
			if strings.Contains(lower, alias) {
				return entry.canonical
			}
		}
	}
	return cleaned
}

func isAffixWord(w string) bool {
	for _, affix := range merchantAffixes {
		if w == affix {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(string(word[0])) + strings.ToLower(word[1:])
		}
	}
	return strings.Join(words, " ")
}
