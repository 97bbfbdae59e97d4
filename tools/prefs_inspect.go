package main

import (
	"chatty/infrastructure/storage"
	"flag"
	"log"
	"log/slog"
	"os"
	"sort"

	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// Prints the preferences stored by the chat client.
func main() {
	dbPath := flag.String("db", ".chatty", "Path to the preference store")
	flag.Parse()

	db, err := storage.OpenReadOnlyDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	prefs, err := storage.NewPreferenceRepository(db, logs.GetLoggerFromLevel(slog.LevelError)).ListPreferences()
	if err != nil {
		log.Fatal(err)
	}

	keys := lo.Keys(prefs)
	sort.Strings(keys)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Value"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, k := range keys {
		table.Append([]string{k, prefs[k]})
	}
	table.Render()
}
