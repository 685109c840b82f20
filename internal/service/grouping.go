package service

import (
	"math"
	"sort"

	"github.com/linemk/marketplace/internal/clients/courier"
	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/shopspring/decimal"
)

// VendorGroup — строки корзины одного продавца и габариты общей посылки
type VendorGroup struct {
	VendorID  int64
	Lines     []*models.CartLine
	Subtotal  decimal.Decimal
	WeightKg  float64
	LengthCm  float64
	BreadthCm float64
	HeightCm  float64
}

// GroupByVendor делит корзину по продавцам. Вес и высота суммируются с учётом количества
// (товары кладутся стопкой), длина и ширина берутся максимальные. Группы упорядочены по vendor id.
func GroupByVendor(lines []*models.CartLine) []*VendorGroup {
	byVendor := make(map[int64]*VendorGroup)
	for _, l := range lines {
		g, ok := byVendor[l.VendorID]
		if !ok {
			g = &VendorGroup{VendorID: l.VendorID, Subtotal: decimal.Zero}
			byVendor[l.VendorID] = g
		}
		qty := float64(l.Quantity)
		g.Lines = append(g.Lines, l)
		g.Subtotal = g.Subtotal.Add(l.Subtotal())
		g.WeightKg += l.WeightKg * qty
		g.HeightCm += l.HeightCm * qty
		g.LengthCm = math.Max(g.LengthCm, l.LengthCm)
		g.BreadthCm = math.Max(g.BreadthCm, l.BreadthCm)
	}

	groups := make([]*VendorGroup, 0, len(byVendor))
	for _, g := range byVendor {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].VendorID < groups[j].VendorID })
	return groups
}

// CheapestOption выбирает самый дешёвый вариант доставки; при равной цене — с меньшим сроком,
// затем с меньшим id курьера
func CheapestOption(opts []courier.Option) (courier.Option, bool) {
	if len(opts) == 0 {
		return courier.Option{}, false
	}
	best := opts[0]
	for _, o := range opts[1:] {
		switch c := o.TotalCharges.Cmp(best.TotalCharges); {
		case c < 0:
			best = o
		case c == 0 && o.TransitDays < best.TransitDays:
			best = o
		case c == 0 && o.TransitDays == best.TransitDays && o.CourierID < best.CourierID:
			best = o
		}
	}
	return best, true
}
