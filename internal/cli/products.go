package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/stapos/stapos/internal/query"
	"github.com/stapos/stapos/internal/store"
)

func (a *App) Products(ctx context.Context) error {
	recs, err := a.router.Select(ctx, "products", query.Request{OrderBy: "name"})
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	if len(recs) == 0 {
		printlnFn("No products")
		return nil
	}
	for _, rec := range recs {
		printlnFn(fmt.Sprintf("%-30v %-15v price=%-8v stock=%v",
			rec["name"], rec["barcode"], rec["price"], rec["stock_quantity"]))
	}
	return nil
}

func (a *App) AddProduct(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Product name", os.Stdout)
	if err != nil {
		return err
	}
	barcode, err := GetSimpleText(a.reader, "Barcode (optional)", os.Stdout)
	if err != nil {
		return err
	}
	price, err := GetNumber(a.reader, "Price", os.Stdout)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	stock, err := GetNumber(a.reader, "Stock quantity", os.Stdout)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}

	rec := store.Record{
		"name":           name,
		"price":          price,
		"stock_quantity": stock,
	}
	if barcode != "" {
		rec["barcode"] = barcode
	}
	out, err := a.router.Insert(ctx, "products", rec)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Added product", out.ID())
	return nil
}
