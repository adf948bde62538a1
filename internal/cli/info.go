package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// infoCommand creates the info command.
func (c *CLI) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show AUR package details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.newApp()
			if err != nil {
				return err
			}

			pkg, err := app.aur.Info(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Println(StyleTitle.Render(pkg.Name) + " " + StyleHighlight.Render(pkg.Version))
			if pkg.Description != "" {
				printDetail("%s", pkg.Description)
			}
			printNewline()

			printKeyValue("URL", pkg.URL)
			printKeyValue("Maintainer", orNone(pkg.Maintainer))
			printKeyValue("Votes", fmt.Sprintf("%d", pkg.NumVotes))
			printKeyValue("Popularity", fmt.Sprintf("%.2f", pkg.Popularity))
			printKeyValue("Updated", time.Unix(pkg.LastModified, 0).Format("2006-01-02"))
			printKeyValue("Depends", orNone(strings.Join(pkg.Depends, " ")))
			printKeyValue("Make deps", orNone(strings.Join(pkg.MakeDepends, " ")))
			printKeyValue("License", orNone(strings.Join(pkg.License, " ")))

			if pkg.OutOfDate != nil {
				printNewline()
				printWarning("Flagged out of date on %s", time.Unix(*pkg.OutOfDate, 0).Format("2006-01-02"))
			}
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
