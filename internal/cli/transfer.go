package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/stapos/stapos/internal/store"
)

const defaultExportFile = "stapos-export.json"

// Export writes every collection to a JSON file, for backups or moving a
// standalone terminal to new hardware.
func (a *App) Export(ctx context.Context) error {
	path, err := GetSimpleText(a.reader, "Export file (default "+defaultExportFile+")", os.Stdout)
	if err != nil {
		return err
	}
	if path == "" {
		path = defaultExportFile
	}

	data, err := a.st.Export(ctx)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Exported to", path)
	return nil
}

// Import replaces the local collections with the contents of a JSON file
// produced by Export.
func (a *App) Import(ctx context.Context) error {
	path, err := GetSimpleText(a.reader, "Import file", os.Stdout)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		printlnFn("Error:", err)
		return err
	}
	var data map[string][]store.Record
	if err := json.Unmarshal(raw, &data); err != nil {
		printlnFn("Error:", err)
		return err
	}
	if err := a.st.Import(ctx, data); err != nil {
		printlnFn("Error:", err)
		return err
	}
	printlnFn("Imported from", path)
	return nil
}
