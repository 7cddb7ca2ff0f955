package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newOutlineCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "outline FILE",
		Short: "Print the heading outline of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, err := root.newProcessor(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := proc.Parse(data, filepath.Base(args[0]))
			if err != nil {
				return err
			}
			proc.Structure(doc)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(doc.Title)+" "+
				dimStyle.Render(fmt.Sprintf("(%s, %d pages, %d headings)", doc.Format, doc.PageCount, len(doc.Headings))))
			printOutline(out, outlineOf(doc))
			return nil
		},
	}
}
