package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const banner = `
  ╦  ╦┌─┐┌┐┌┌─┐┌─┐  ╔╦╗╔═╗╦  ╦
  ╚╗╔╝├─┤│││├─┤│ │   ║║║╣ ╚╗╔╝
   ╚╝ ┴ ┴┘└┘┴ ┴└─┘  ═╩╝╚═╝ ╚╝
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "devserver",
		Short: "Browser-resident file-based router dev server",
		Long: `devserver emulates a file-based React meta-framework dev server:
pages/layouts/route-handlers resolution, JSX/TS module transform with
content-hash caching, a synthesized HTML shell wired for client-side
navigation, and an in-process sandbox for request handlers, all driven
from a single "serve" entry point.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Print(banner)
}

func success(format string, args ...any) {
	fmt.Printf("%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

func warn(format string, args ...any) {
	fmt.Printf("%s %s\n", color.YellowString("⚠"), fmt.Sprintf(format, args...))
}

func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("✗"), fmt.Sprintf(format, args...))
}
