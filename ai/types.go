package ai

// DosageForms are the dosage forms a model may report for a drug. Anything
// else is reported verbatim and left for manual review.
var DosageForms = []string{
	"Brausetabletten",
	"Dragees",
	"Filmtabletten",
	"Granulat",
	"Hartkapseln",
	"Infusionslösung",
	"Injektionslösung",
	"Kapseln",
	"Lösung zum Einnehmen",
	"Nasenspray",
	"Pflaster",
	"Pulver",
	"Salbe",
	"Sirup",
	"Suppositorien",
	"Suspension",
	"Tabletten",
	"Tropfen",
	"Weichkapseln",
	"Creme",
	"Gel",
}
