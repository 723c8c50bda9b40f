package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spellang/spel/internal/expression"
	"github.com/spellang/spel/internal/style"
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse <expression>",
	Short: "Parse an expression and print its canonical form",
	Long: `Parse an expression without evaluating it and print the canonical
rendering of the tree, with every operator fully parenthesized. The
canonical form reparses to an identical tree.`,
	Example: `
  spel parse '1 + 2 * 3'          # (1 + (2 * 3))
  spel parse 'a.b(1).?[x > 2]'`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	source := args[0]
	expr, err := expression.Parse(source)
	if err != nil {
		printEvalFailure(cmd, source, err)
		return err
	}

	switch viper.GetString("output") {
	case "json":
		style.PrintJSON(cmd.OutOrStdout(), map[string]string{
			"source":    expr.Source(),
			"canonical": expr.StringAST(),
		})
	case "yaml":
		style.PrintYAML(cmd.OutOrStdout(), map[string]string{
			"source":    expr.Source(),
			"canonical": expr.StringAST(),
		})
	default:
		fmt.Fprintln(cmd.OutOrStdout(), expr.StringAST())
	}
	return nil
}
