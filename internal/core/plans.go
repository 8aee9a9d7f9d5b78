package core

// Plan icons are a closed set of identifiers; the presentation layer maps
// them to whatever renderer it uses.
const (
	IconCoin      PlanIcon = "coin"
	IconBriefcase PlanIcon = "briefcase"
	IconCrown     PlanIcon = "crown"
)

// CheckoutURL is the external payment page. The service only hands it to the
// client; it never calls it and receives no confirmation back.
const CheckoutURL = "https://pay.kiwify.com.br/1jxomi0"

type (
	PlanIcon string

	// PlanOffer describes a subscribable paid tier.
	PlanOffer struct {
		ID        Plan
		Name      string
		Price     Money
		Features  []string
		Highlight bool
		Icon      PlanIcon
	}
)

// SubscriptionPlans is the fixed catalog of paid tiers, in display order.
var SubscriptionPlans = []PlanOffer{
	{
		ID:    PlanEssencial,
		Name:  "Essencial",
		Price: Money{Cents: 990},
		Icon:  IconCoin,
		Features: []string{
			"Up to 50 transactions per month",
			"Basic dashboard with balance and expenses",
			"Simple reports and spending alerts",
		},
	},
	{
		ID:        PlanPro,
		Name:      "Pro",
		Price:     Money{Cents: 1990},
		Icon:      IconBriefcase,
		Highlight: true,
		Features: []string{
			"Unlimited transactions",
			"Full dashboard with charts",
			"Detailed monthly reports",
			"Savings goals and comparisons",
			"In-app chat support",
		},
	},
	{
		ID:    PlanPremium,
		Name:  "Premium",
		Price: Money{Cents: 3990},
		Icon:  IconCrown,
		Features: []string{
			"Everything in Pro plus CSV data export",
			"Advanced reports and automatic insights",
			"Early access to new features",
		},
	},
}

// PlanByID returns the offer for a paid tier, or false when the id is not a
// subscribable plan (trial is not in the catalog).
func PlanByID(id Plan) (PlanOffer, bool) {
	for _, p := range SubscriptionPlans {
		if p.ID == id {
			return p, true
		}
	}
	return PlanOffer{}, false
}
