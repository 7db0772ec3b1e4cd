package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/stapos/stapos/internal/query"
	"github.com/stapos/stapos/internal/store"
)

func (a *App) Expenses(ctx context.Context) error {
	recs, err := a.router.Select(ctx, "expenses",
		query.Request{OrderBy: "created_at", Descending: true})
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	if len(recs) == 0 {
		printlnFn("No expenses")
		return nil
	}
	for _, rec := range recs {
		printlnFn(fmt.Sprintf("%-26v %-30v amount=%v", rec["created_at"], rec["description"], rec["amount"]))
	}
	return nil
}

func (a *App) AddExpense(ctx context.Context) error {
	description, err := GetSimpleText(a.reader, "Description", os.Stdout)
	if err != nil {
		return err
	}
	amount, err := GetNumber(a.reader, "Amount", os.Stdout)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}

	rec := store.Record{
		"description": description,
		"amount":      amount,
	}
	if a.session != nil {
		rec["user_id"] = a.session.User.ID()
	}
	if _, err := a.router.Insert(ctx, "expenses", rec); err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Expense recorded")
	return nil
}
