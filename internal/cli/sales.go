package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/stapos/stapos/internal/query"
	"github.com/stapos/stapos/internal/store"
)

type saleLine struct {
	product  store.Record
	quantity float64
}

// Sell records a sale: one sales row plus a sale_items row per line, and
// decrements each product's stock.
func (a *App) Sell(ctx context.Context) error {
	var lines []saleLine
	for {
		code, err := GetSimpleText(a.reader, "Barcode or product name (empty to finish)", os.Stdout)
		if err != nil {
			return err
		}
		if code == "" {
			break
		}

		product, err := a.findProduct(ctx, code)
		if err != nil {
			printlnFn("Error:", err)
			return err
		}
		if product == nil {
			printlnFn("No such product:", code)
			continue
		}

		qty, err := GetNumber(a.reader, "Quantity", os.Stdout)
		if err != nil {
			printlnFn("Error:", err)
			continue
		}
		lines = append(lines, saleLine{product: product, quantity: qty})
	}
	if len(lines) == 0 {
		printlnFn("Nothing to sell")
		return nil
	}

	var total float64
	for _, l := range lines {
		price, _ := l.product["price"].(float64)
		total += price * l.quantity
	}

	sale := store.Record{
		"sale_number": fmt.Sprintf("S-%s", time.Now().Format("20060102-150405")),
		"total":       total,
	}
	if a.session != nil {
		sale["user_id"] = a.session.User.ID()
	}
	sale, err := a.router.Insert(ctx, "sales", sale)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}

	for _, l := range lines {
		price, _ := l.product["price"].(float64)
		item := store.Record{
			"sale_id":      sale.ID(),
			"product_id":   l.product.ID(),
			"product_name": l.product["name"],
			"quantity":     l.quantity,
			"unit_price":   price,
			"subtotal":     price * l.quantity,
		}
		if _, err := a.router.Insert(ctx, "sale_items", item); err != nil {
			printlnFn("Error:", err)
			return err
		}

		if stock, ok := l.product["stock_quantity"].(float64); ok {
			patch := store.Record{"stock_quantity": stock - l.quantity}
			filters := []query.Filter{query.Eq("id", l.product.ID())}
			if err := a.router.Update(ctx, "products", patch, filters); err != nil {
				printlnFn("Error:", err)
				return err
			}
		}
	}

	printlnFn(fmt.Sprintf("Sale %v recorded, total %.2f", sale["sale_number"], total))
	return nil
}

func (a *App) findProduct(ctx context.Context, code string) (store.Record, error) {
	product, err := a.router.SelectOne(ctx, "products",
		query.Request{Filters: []query.Filter{query.Eq("barcode", code)}})
	if err != nil || product != nil {
		return product, err
	}
	return a.router.SelectOne(ctx, "products",
		query.Request{Filters: []query.Filter{query.Eq("name", code)}})
}

func (a *App) Sales(ctx context.Context) error {
	recs, err := a.router.Select(ctx, "sales",
		query.Request{OrderBy: "created_at", Descending: true})
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	if len(recs) == 0 {
		printlnFn("No sales")
		return nil
	}
	if len(recs) > 20 {
		recs = recs[:20]
	}
	for _, rec := range recs {
		printlnFn(fmt.Sprintf("%-20v %-26v total=%v", rec["sale_number"], rec["created_at"], rec["total"]))
	}
	return nil
}
