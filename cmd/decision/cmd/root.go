package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	verbose     bool
	includeDirs []string
)

var rootCmd = &cobra.Command{
	Use:   "decision",
	Short: "Decision graph compiler, linker and virtual machine",
	Long: `decision compiles a node-graph sheet to bytecode, links it with
every sheet it includes, and runs the result on a stack-based virtual
machine.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringSliceVar(&includeDirs, "include-dir", nil, "additional search path for Include statements (repeatable)")
}
