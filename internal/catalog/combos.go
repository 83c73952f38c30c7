package catalog

import "storefront-service/internal/models"

// combos is the static offer configuration. Offer prices are final; the
// constituent lists are display-only.
var combos = []models.ComboOffer{
	{
		ID:            "combo1",
		Name:          "Starter Trio",
		Description:   "Three mild favourites to ease into the heat",
		OriginalPrice: 44.70,
		OfferPrice:    35.90,
		Discount:      20,
		Products:      []string{"Jalapeño Gold", "Smoky Chipotle", "Garden Habanero"},
		Image:         "combo-starter.jpg",
		HeatLevel:     2,
		Rating:        4.6,
		Badge:         "Bestseller",
		Origin:        "Mixed",
	},
	{
		ID:            "combo2",
		Name:          "Inferno Pack",
		Description:   "Ghost pepper, scorpion and reaper in one box",
		OriginalPrice: 59.70,
		OfferPrice:    44.90,
		Discount:      25,
		Products:      []string{"Ghost Rider", "Scorpion Sting", "Reaper's Kiss"},
		Image:         "combo-inferno.jpg",
		HeatLevel:     5,
		Rating:        4.8,
		Badge:         "Limited",
		Origin:        "Mixed",
	},
	{
		ID:            "combo3",
		Name:          "Swiss Collection",
		Description:   "Every sauce fermented and bottled in the Alps",
		OriginalPrice: 49.80,
		OfferPrice:    39.90,
		Discount:      20,
		Products:      []string{"Alpine Fire", "Matterhorn Heat", "Helvetia Blaze"},
		Image:         "combo-swiss.jpg",
		HeatLevel:     3,
		Rating:        4.7,
		Badge:         "Regional",
		Origin:        "Switzerland",
	},
}

// Combos returns the configured combo offers.
func Combos() []models.ComboOffer {
	out := make([]models.ComboOffer, len(combos))
	copy(out, combos)
	return out
}

// ComboByID looks up an offer by its string id.
func ComboByID(id string) (models.ComboOffer, bool) {
	for _, c := range combos {
		if c.ID == id {
			return c, true
		}
	}
	return models.ComboOffer{}, false
}
