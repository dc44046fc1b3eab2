package predict

import (
	"sort"
	"time"

	"github.com/sells-group/reorder-cli/internal/model"
)

// GroupBasket clusters candidate product names by identical expected
// date, ascending. All candidates participate, not only triggered
// ones: the grouping is a planning aid, separate from the trigger
// decision. An empty candidate list yields nil.
func GroupBasket(candidates []model.NudgeCandidate) []model.BasketGroup {
	if len(candidates) == 0 {
		return nil
	}

	byDate := make(map[time.Time][]string)
	for _, c := range candidates {
		d := dateOf(c.NextExpected)
		byDate[d] = append(byDate[d], c.ProductName)
	}

	groups := make([]model.BasketGroup, 0, len(byDate))
	for d, names := range byDate {
		groups = append(groups, model.BasketGroup{ExpectedDate: d, Products: names})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].ExpectedDate.Before(groups[j].ExpectedDate)
	})
	return groups
}
