package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/bytedance/sonic"
	"github.com/dustin/go-humanize"
)

func (e *env) printJSON(v interface{}) error {
	data, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "%s\n", data)
	return err
}

// printEntries writes one line per entry: mode, size, modification time and name.
func (e *env) printEntries(entries []types.Entry) error {
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	for _, entry := range entries {
		size := "-"
		name := entry.Name
		if entry.IsDir() {
			name += "/"
		} else {
			size = humanize.IBytes(uint64(entry.Size))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			entry.ModeString, size, entry.ModifiedAt.Local().Format("2006-01-02 15:04"), name)
	}
	return tw.Flush()
}
