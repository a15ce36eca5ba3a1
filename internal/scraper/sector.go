package scraper

import "strings"

// Sector labels shared with the extraction taxonomy.
const (
	sectorAgriculture  = "Agriculture & Rural Development"
	sectorAgrifood     = "Agrifood & Processing"
	sectorMedia        = "Communication & Media"
	sectorEducation    = "Education & Training"
	sectorEnergy       = "Energy, Water & Utilities"
	sectorEnvironment  = "Environment & Climate"
	sectorConsulting   = "Consulting & Studies"
	sectorSupplies     = "Supplies & Equipment"
	sectorGovernance   = "Governance & Public Administration"
	sectorRealEstate   = "Real Estate & Urban Planning"
	sectorIndustry     = "Industry & Commerce"
	sectorIT           = "IT & Telecommunications"
	sectorMining       = "Mining & Natural Resources"
	sectorQSE          = "Quality, Safety & Environment"
	sectorHealth       = "Health & Medical"
	sectorSecurity     = "Security & Protection"
	sectorServices     = "General Services"
	sectorTourism      = "Tourism, Culture & Leisure"
	sectorTransport    = "Transport & Logistics"
	sectorConstruction = "Construction & Public Works"
)

// sectorKeywords maps title keywords to sectors. Order matters for
// ambiguous titles, so it is a slice rather than a map.
var sectorKeywords = []struct {
	keyword string
	sector  string
}{
	{"agri", sectorAgriculture},
	{"fishing", sectorAgriculture},
	{"livestock", sectorAgriculture},
	{"rural", sectorAgriculture},
	{"seed", sectorAgriculture},
	{"agrifood", sectorAgrifood},
	{"food processing", sectorAgrifood},
	{"communic", sectorMedia},
	{"media", sectorMedia},
	{"advertis", sectorMedia},
	{"press", sectorMedia},
	{"educat", sectorEducation},
	{"teach", sectorEducation},
	{"training", sectorEducation},
	{"universit", sectorEducation},
	{"school", sectorEducation},
	{"energ", sectorEnergy},
	{"electri", sectorEnergy},
	{"solar", sectorEnergy},
	{"water", sectorEnergy},
	{"hydraulic", sectorEnergy},
	{"sanitation", sectorEnergy},
	{"forest", sectorEnvironment},
	{"climate", sectorEnvironment},
	{"reforestation", sectorEnvironment},
	{"study", sectorConsulting},
	{"studies", sectorConsulting},
	{"consultanc", sectorConsulting},
	{"consultant", sectorConsulting},
	{"audit", sectorConsulting},
	{"suppl", sectorSupplies},
	{"equipment", sectorSupplies},
	{"material", sectorSupplies},
	{"furniture", sectorSupplies},
	{"governance", sectorGovernance},
	{"administrat", sectorGovernance},
	{"institution", sectorGovernance},
	{"real estate", sectorRealEstate},
	{"urban", sectorRealEstate},
	{"zoning", sectorRealEstate},
	{"industr", sectorIndustry},
	{"commerce", sectorIndustry},
	{"factory", sectorIndustry},
	{"software", sectorIT},
	{"telecom", sectorIT},
	{"digital", sectorIT},
	{"computing", sectorIT},
	{"mining", sectorMining},
	{"mineral", sectorMining},
	{"geolog", sectorMining},
	{"natural resources", sectorMining},
	{"quality", sectorQSE},
	{"hse", sectorQSE},
	{"health", sectorHealth},
	{"medic", sectorHealth},
	{"pharma", sectorHealth},
	{"hospital", sectorHealth},
	{"security", sectorSecurity},
	{"surveillance", sectorSecurity},
	{"guarding", sectorSecurity},
	{"defense", sectorSecurity},
	{"cleaning", sectorServices},
	{"upkeep", sectorServices},
	{"service", sectorServices},
	{"tourism", sectorTourism},
	{"culture", sectorTourism},
	{"hotel", sectorTourism},
	{"transport", sectorTransport},
	{"logistic", sectorTransport},
	{"vehicle", sectorTransport},
	{"works", sectorConstruction},
	{"construction", sectorConstruction},
	{"road", sectorConstruction},
	{"building", sectorConstruction},
	{"civil engineering", sectorConstruction},
	{"infrastructur", sectorConstruction},
}

// GuessSector infers a sector from a free-text title, falling back to
// the catch-all services category.
func GuessSector(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range sectorKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.sector
		}
	}
	return sectorServices
}

// categoryPaths maps sector categories to their listing page paths on
// the source portal.
var categoryPaths = map[string]string{
	sectorConstruction: "/category/tenders/construction-public-works/",
	sectorHealth:       "/category/tenders/health-medical/",
	sectorIT:           "/category/tenders/it-telecommunications/",
	sectorServices:     "/category/tenders/general-services/",
	sectorAgriculture:  "/category/tenders/agriculture-rural-development/",
	sectorEducation:    "/category/tenders/education-training/",
	sectorEnergy:       "/category/tenders/energy-water-utilities/",
	sectorTransport:    "/category/tenders/transport-logistics/",
	sectorSupplies:     "/category/tenders/supplies-equipment/",
	sectorConsulting:   "/category/tenders/consulting-studies/",
	sectorMining:       "/category/tenders/mining-natural-resources/",
}

// categoryHints matches enterprise sector text to listing categories.
var categoryHints = []struct {
	keyword  string
	category string
}{
	{"works", sectorConstruction},
	{"construction", sectorConstruction},
	{"building", sectorConstruction},
	{"civil", sectorConstruction},
	{"health", sectorHealth},
	{"medical", sectorHealth},
	{"pharma", sectorHealth},
	{"hospital", sectorHealth},
	{"information", sectorIT},
	{"software", sectorIT},
	{"telecom", sectorIT},
	{"digital", sectorIT},
	{"service", sectorServices},
	{"cleaning", sectorServices},
	{"maintenance", sectorServices},
	{"agri", sectorAgriculture},
	{"fishing", sectorAgriculture},
	{"livestock", sectorAgriculture},
	{"rural", sectorAgriculture},
	{"educat", sectorEducation},
	{"training", sectorEducation},
	{"school", sectorEducation},
	{"energ", sectorEnergy},
	{"electri", sectorEnergy},
	{"water", sectorEnergy},
	{"solar", sectorEnergy},
	{"environment", sectorEnergy},
	{"transport", sectorTransport},
	{"logistic", sectorTransport},
	{"vehicle", sectorTransport},
	{"suppl", sectorSupplies},
	{"equipment", sectorSupplies},
	{"material", sectorSupplies},
	{"stud", sectorConsulting},
	{"consult", sectorConsulting},
	{"audit", sectorConsulting},
	{"mining", sectorMining},
	{"mineral", sectorMining},
	{"geolog", sectorMining},
}

// CategoriesFor narrows the listing categories to those matching the
// registered enterprise sectors. With no match, every category is
// scraped.
func CategoriesFor(enterpriseSectors []string, baseURL string) map[string]string {
	base := strings.TrimSuffix(baseURL, "/")

	matched := map[string]string{}
	for _, sector := range enterpriseSectors {
		lower := strings.ToLower(sector)
		for _, hint := range categoryHints {
			if strings.Contains(lower, hint.keyword) {
				matched[hint.category] = base + categoryPaths[hint.category]
			}
		}
	}

	if len(matched) == 0 {
		for category, path := range categoryPaths {
			matched[category] = base + path
		}
	}
	return matched
}
