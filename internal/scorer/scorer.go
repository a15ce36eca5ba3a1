// Package scorer rates how well an analyzed tender matches an
// enterprise profile on a 0-100 scale. Four weighted criteria
// (sector, budget, location, experience) produce a base score that a
// keyword multiplier then adjusts.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"tenderwatch/db"
)

// Criterion weights, summing to 100.
const (
	weightSector     = 35
	weightBudget     = 30
	weightLocation   = 20
	weightExperience = 15
)

// sectorSynonyms groups related sector terms so that, say, an "IT"
// enterprise still matches a tender filed under "telecom".
var sectorSynonyms = map[string][]string{
	"agriculture":   {"fishing", "rural development", "livestock", "seed", "agropastoral"},
	"agrifood":      {"food processing", "agro-industry", "food"},
	"communication": {"media", "advertising", "press", "audiovisual"},
	"education":     {"training", "teaching", "academic", "school", "university"},
	"energy":        {"water", "electricity", "solar", "hydraulic", "sanitation", "hydrocarbon"},
	"environment":   {"forestry", "climate change", "reforestation", "ecology"},
	"consulting":    {"consultancy", "consultant", "audit", "expertise", "advisory"},
	"supplies":      {"equipment", "materials", "furniture", "procurement"},
	"governance":    {"public administration", "institutional", "decentralization"},
	"real estate":   {"urban planning", "land development", "zoning", "property"},
	"industry":      {"commerce", "factory", "manufacturing", "production"},
	"it":            {"telecommunications", "digital", "software", "ict", "computing"},
	"mining":        {"natural resources", "geology", "extraction", "minerals"},
	"qhse":          {"quality", "safety", "hse", "standards", "compliance"},
	"health":        {"paramedical", "medical", "pharmaceutical", "hospital", "healthcare"},
	"security":      {"protection", "surveillance", "guarding", "defense"},
	"services":      {"cleaning", "upkeep", "maintenance", "facility"},
	"tourism":       {"culture", "leisure", "hospitality", "heritage"},
	"transport":     {"logistics", "mobility", "transit", "vehicle", "road haulage"},
	"construction":  {"public works", "civil engineering", "building", "infrastructure", "roads"},
}

// Breakdown carries the per-criterion scores behind a final score,
// each on a 0-100 scale, plus the keyword multiplier applied.
type Breakdown struct {
	Sector     float64 `json:"sector"`
	Budget     float64 `json:"budget"`
	Location   float64 `json:"location"`
	Experience float64 `json:"experience"`
	KeywordAdj float64 `json:"keywordAdj"`
}

// Result is the outcome of scoring one tender against one enterprise.
type Result struct {
	Score       float64   `json:"score"`
	Details     Breakdown `json:"details"`
	Explanation string    `json:"explanation"`
}

// SectorScore measures sector affinity on a 0-1 scale: exact match,
// containment, shared synonym group, then textual similarity.
func SectorScore(enterpriseSector, tenderSector string) float64 {
	e := strings.ToLower(strings.TrimSpace(enterpriseSector))
	t := strings.ToLower(strings.TrimSpace(tenderSector))
	if e == "" || t == "" {
		return 0.0
	}
	if e == t {
		return 1.0
	}
	if strings.Contains(t, e) || strings.Contains(e, t) {
		return 0.9
	}
	for base, synonyms := range sectorSynonyms {
		terms := append([]string{base}, synonyms...)
		eMatch, tMatch := false, false
		for _, term := range terms {
			if strings.Contains(e, term) {
				eMatch = true
			}
			if strings.Contains(t, term) {
				tMatch = true
			}
		}
		if eMatch && tMatch {
			return 0.85
		}
	}
	sim := bigramSimilarity(e, t)
	if sim > 0.5 {
		return sim
	}
	return sim * 0.3
}

// BudgetScore measures fit of a tender budget against an enterprise
// range. Unknown budgets on either side score a neutral 0.5; out of
// range budgets take a proportional penalty floored at 0.1.
func BudgetScore(minBudget, maxBudget float64, estimated *float64) float64 {
	if estimated == nil || *estimated <= 0 {
		return 0.5
	}
	if minBudget <= 0 && maxBudget <= 0 {
		return 0.5
	}
	b := *estimated
	if minBudget <= b && b <= maxBudget {
		return 1.0
	}
	if maxBudget > 0 && b > maxBudget {
		return math.Max(0.1, maxBudget/b)
	}
	if minBudget > 0 && b < minBudget {
		return math.Max(0.1, b/minBudget)
	}
	return 0.5
}

// LocationScore measures geographic fit between an enterprise's
// intervention zones and a tender location.
func LocationScore(zones []string, tenderLocation *string) float64 {
	if len(zones) == 0 || tenderLocation == nil {
		return 0.5
	}
	location := strings.ToLower(strings.TrimSpace(*tenderLocation))
	if location == "" {
		return 0.5
	}
	for _, zone := range zones {
		if strings.Contains(location, zone) || strings.Contains(zone, location) {
			return 1.0
		}
	}
	locationWords := fields(location)
	for _, zone := range zones {
		for w := range fields(zone) {
			if locationWords[w] {
				return 0.7
			}
		}
	}
	return 0.2
}

// ExperienceScore maps years in business to a 0.2-1.0 ladder.
func ExperienceScore(years int) float64 {
	switch {
	case years >= 10:
		return 1.0
	case years >= 5:
		return 0.8
	case years >= 3:
		return 0.6
	case years >= 1:
		return 0.4
	}
	return 0.2
}

// KeywordMultiplier adjusts a base score by the enterprise keyword
// lists. Any excluded keyword present in the text zeroes the score;
// each specific keyword found adds a 10% bonus, capped at 30%.
func KeywordMultiplier(e *db.Enterprise, tenderText string) float64 {
	text := strings.ToLower(tenderText)
	adj := 1.0

	for _, kw := range splitKeywords(e.ExcludeKeywords) {
		if strings.Contains(text, kw) {
			return 0.0
		}
	}

	matches := 0
	for _, kw := range splitKeywords(e.SpecificKeywords) {
		if strings.Contains(text, kw) {
			matches++
		}
	}
	if matches > 0 {
		adj += math.Min(0.3, float64(matches)*0.1)
	}
	return adj
}

// Score computes the overall 0-100 match between an enterprise and an
// analyzed tender, preferring the tender's own fields and falling back
// to the values the analysis extracted.
func Score(e *db.Enterprise, t *db.Tender, a *db.Analysis) Result {
	tenderSector := ""
	if t.Sector != nil && *t.Sector != "" {
		tenderSector = *t.Sector
	} else if a != nil && a.ExtractedSector != nil {
		tenderSector = *a.ExtractedSector
	}

	tenderBudget := t.EstimatedBudget
	if (tenderBudget == nil || *tenderBudget <= 0) && a != nil {
		tenderBudget = a.ExtractedBudget
	}

	tenderLocation := t.Location
	if (tenderLocation == nil || *tenderLocation == "") && a != nil {
		tenderLocation = a.ExtractedLocation
	}

	tenderText := strings.ToLower(t.Text())

	sectorS := SectorScore(e.Sector, tenderSector)
	budgetS := BudgetScore(e.MinBudget, e.MaxBudget, tenderBudget)
	locationS := LocationScore(e.ZoneList(), tenderLocation)
	experienceS := ExperienceScore(e.ExperienceYears)

	base := sectorS*weightSector +
		budgetS*weightBudget +
		locationS*weightLocation +
		experienceS*weightExperience

	mult := KeywordMultiplier(e, tenderText)
	final := math.Min(100.0, round1(base*mult))

	parts := []string{
		fmt.Sprintf("Sector: %.0f%%", sectorS*100),
		fmt.Sprintf("Budget: %.0f%%", budgetS*100),
		fmt.Sprintf("Zone: %.0f%%", locationS*100),
	}
	if mult > 1.0 {
		parts = append(parts, fmt.Sprintf("Keyword bonus: +%.0f%%", (mult-1)*100))
	} else if mult == 0 {
		parts = append(parts, "Excluded: forbidden keyword found")
	}

	return Result{
		Score: final,
		Details: Breakdown{
			Sector:     round1(sectorS * 100),
			Budget:     round1(budgetS * 100),
			Location:   round1(locationS * 100),
			Experience: round1(experienceS * 100),
			KeywordAdj: mult,
		},
		Explanation: strings.Join(parts, " | "),
	}
}

func splitKeywords(raw *string) []string {
	if raw == nil {
		return nil
	}
	parts := strings.Split(*raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if kw := strings.ToLower(strings.TrimSpace(p)); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

func fields(s string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.Fields(s) {
		words[w] = true
	}
	return words
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// bigramSimilarity is the Sorensen-Dice coefficient over character
// bigrams, a cheap fuzzy match for short sector labels.
func bigramSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) < 2 || len(b) < 2 {
		return 0.0
	}
	bigrams := func(s string) map[string]int {
		m := map[string]int{}
		runes := []rune(s)
		for i := 0; i < len(runes)-1; i++ {
			m[string(runes[i:i+2])]++
		}
		return m
	}
	ba, bb := bigrams(a), bigrams(b)
	total := 0
	common := 0
	for g, n := range ba {
		total += n
		if k := bb[g]; k > 0 {
			if k < n {
				common += k
			} else {
				common += n
			}
		}
	}
	for _, n := range bb {
		total += n
	}
	if total == 0 {
		return 0.0
	}
	return 2 * float64(common) / float64(total)
}
