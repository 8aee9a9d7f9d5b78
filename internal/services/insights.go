package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"mindcash/internal/core"
)

// insightTemplates is the curated rotation shown in the insights panel.
var insightTemplates = []struct {
	kind        core.InsightType
	title       string
	description string
	impact      core.Priority
	category    string
}{
	{
		kind:        core.InsightRecommendation,
		title:       "Cashback opportunity",
		description: "Using a cashback card at supermarkets could return about 45 per month.",
		impact:      core.PriorityMedium,
		category:    "Savings",
	},
	{
		kind:        core.InsightWarning,
		title:       "Seasonal spending detected",
		description: "Your entertainment spending rises about 40% on weekends. Consider a dedicated budget.",
		impact:      core.PriorityMedium,
		category:    "Planning",
	},
	{
		kind:        core.InsightOpportunity,
		title:       "Goal ahead of schedule",
		description: "At the current pace you will hit your emergency-fund goal two months early.",
		impact:      core.PriorityHigh,
		category:    "Goals",
	},
	{
		kind:        core.InsightPrediction,
		title:       "Projected savings",
		description: "Keeping the current pattern, you will save about 1200 more than planned this year.",
		impact:      core.PriorityHigh,
		category:    "Projection",
	},
}

// InsightGenerator hands out curated insights in a fixed rotation, so
// repeated requests cycle through the catalog deterministically.
type InsightGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	next int
}

func NewInsightGenerator() *InsightGenerator {
	return NewInsightGeneratorWithClock(time.Now)
}

func NewInsightGeneratorWithClock(now func() time.Time) *InsightGenerator {
	return &InsightGenerator{now: now}
}

// Next produces the next insight in the rotation.
func (g *InsightGenerator) Next() core.AIInsight {
	g.mu.Lock()
	defer g.mu.Unlock()

	tpl := insightTemplates[g.next%len(insightTemplates)]
	g.next++

	return core.AIInsight{
		ID:          uuid.NewString(),
		Type:        tpl.kind,
		Title:       tpl.title,
		Description: tpl.description,
		Impact:      tpl.impact,
		Category:    tpl.category,
		Timestamp:   g.now(),
		Actionable:  true,
	}
}
