package datasource

import "sort"

// industryETF maps a Yahoo Finance industry to a representative sector ETF.
// An empty ticker means the industry is known but has no matching fund.
var industryETF = map[string]string{
	"Residential Construction":                 "XHB",
	"Specialty Chemicals":                      "XLB",
	"Credit Services":                          "XLF",
	"Financial Data & Stock Exchanges":         "IYG",
	"Electrical Equipment & Parts":             "XLI",
	"Computer Hardware":                        "XLK",
	"Farm & Heavy Construction Machinery":      "XLI",
	"Insurance Brokers":                        "IAK",
	"Software - Infrastructure":                "IGV",
	"Steel":                                    "SLX",
	"Semiconductors":                           "SMH",
	"Semiconductor Equipment & Materials":      "SMH",
	"Aerospace & Defense":                      "ITA",
	"REIT - Office":                            "IYR",
	"Capital Markets":                          "IAI",
	"Furnishings, Fixtures & Appliances":       "XLY",
	"Banks - Regional":                         "KRE",
	"Industrial Distribution":                  "FXR",
	"Specialty Industrial Machinery":           "XLI",
	"Medical Instruments & Supplies":           "IHI",
	"Railroads":                                "IYT",
	"Medical Devices":                          "IHI",
	"REIT - Residential":                       "REZ",
	"Conglomerates":                            "",
	"Electronic Components":                    "SOXX",
	"Packaged Foods":                           "XLP",
	"REIT - Specialty":                         "XLRE",
	"Insurance - Life":                         "IAK",
	"Software - Application":                   "IGV",
	"Asset Management":                         "XLF",
	"Communication Equipment":                  "XLK",
	"Internet Content & Information":           "XLC",
	"Oil & Gas Drilling":                       "OIH",
	"Electronics & Computer Distribution":      "XLK",
	"Thermal Coal":                             "",
	"Information Technology Services":          "XLK",
	"Airlines":                                 "JETS",
	"REIT - Mortgage":                          "REM",
	"Packaging & Containers":                   "XLB",
	"Auto Parts":                               "CARZ",
	"Food Distribution":                        "XLP",
	"Diagnostics & Research":                   "IHF",
	"Pharmaceutical Retailers":                 "XLP",
	"Telecom Services":                         "XLC",
	"Biotechnology":                            "IBB",
	"Drug Manufacturers - Specialty & Generic": "XPH",
	"Pollution & Treatment Controls":           "XLI",
	"Tobacco":                                  "XLP",
	"Restaurants":                              "PBJ",
}

// IndustryETF returns the sector ETF for industry. ok is false when the
// industry is unknown or has no fund.
func IndustryETF(industry string) (string, bool) {
	etf := industryETF[industry]
	return etf, etf != ""
}

// Industries lists every industry in the table, sorted.
func Industries() []string {
	out := make([]string, 0, len(industryETF))
	for k := range industryETF {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
