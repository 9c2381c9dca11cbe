// AngelaMos | 2026
// plan.go

package payment

import (
	"github.com/shopspring/decimal"
)

type Plan struct {
	ID    string
	Coins int
	Price decimal.Decimal
}

// Plans is the allow-list of purchasable coin packs, priced in rupees.
var Plans = []Plan{
	{ID: "plan_10", Coins: 10, Price: decimal.NewFromInt(10)},
	{ID: "plan_20", Coins: 20, Price: decimal.NewFromInt(20)},
	{ID: "plan_50", Coins: 50, Price: decimal.NewFromInt(50)},
	{ID: "plan_100", Coins: 100, Price: decimal.NewFromInt(100)},
}

var paisePerRupee = decimal.NewFromInt(100)

// MatchPlan finds the plan with this id, accepting it only when the coin
// count and price the client sent agree with it.
func MatchPlan(id string, coins int, price decimal.Decimal) (Plan, bool) {
	for _, p := range Plans {
		if p.ID == id && p.Coins == coins && p.Price.Equal(price) {
			return p, true
		}
	}
	return Plan{}, false
}

func (p Plan) AmountPaise() int64 {
	return p.Price.Mul(paisePerRupee).Round(0).IntPart()
}
