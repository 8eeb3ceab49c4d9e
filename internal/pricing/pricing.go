package pricing

import (
	"github.com/Bahrichadha23/Pneushopp-sub000/internal/entity"
	"github.com/shopspring/decimal"
)

// Amounts are kept to the millime.
const places = 3

// Calculator computes order and purchase order amounts.
type Calculator struct {
	vatRate decimal.Decimal
}

// NewCalculator creates a Calculator applying vatRate (0.19 for 19%) to purchase totals.
func NewCalculator(vatRate float64) *Calculator {
	return &Calculator{vatRate: decimal.NewFromFloat(vatRate)}
}

func (c *Calculator) VATRate() decimal.Decimal {
	return c.vatRate
}

// LineTotal is unit price times quantity.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(places)
}

// PriceOrderLine snapshots the live product price into a new order line.
func PriceOrderLine(p *entity.Product, quantity int) entity.OrderLine {
	return entity.OrderLine{
		ProductID: p.ID,
		Reference: p.Reference,
		Name:      p.Name,
		Quantity:  quantity,
		UnitPrice: p.Price,
		LineTotal: LineTotal(p.Price, quantity),
	}
}

// OrderTotal sums line totals. Delivery cost is added once it is assigned.
func (c *Calculator) OrderTotal(lines []entity.OrderLine, deliveryCost *decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal)
	}
	if deliveryCost != nil {
		total = total.Add(*deliveryCost)
	}
	return total.Round(places)
}

// PurchaseTotals fills each line total and returns the HT and TTC amounts.
func (c *Calculator) PurchaseTotals(lines []entity.PurchaseOrderLine) (ht, ttc decimal.Decimal) {
	ht = decimal.Zero
	for i := range lines {
		lines[i].LineTotal = LineTotal(lines[i].UnitPrice, lines[i].Quantity)
		ht = ht.Add(lines[i].LineTotal)
	}
	ttc = ht.Mul(decimal.NewFromInt(1).Add(c.vatRate)).Round(places)
	return ht.Round(places), ttc
}
