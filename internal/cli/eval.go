package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Jeffail/gabs/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/spellang/spel/internal/evalcontext"
	"github.com/spellang/spel/internal/expression"
	"github.com/spellang/spel/internal/parser"
	"github.com/spellang/spel/internal/style"
)

var (
	dataFile       string
	dataInline     string
	varFlags       []string
	templateMode   bool
	allowUndefined bool
)

// evalCmd represents the eval command
var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate an expression",
	Long: `Evaluate an expression against a root object loaded from JSON or YAML.

The root object's properties are reachable by name, #variables come from
--var flags, and --template switches to #{...} string templating.`,
	Example: `
  spel eval '1 + 2 * 3'
  spel eval 'items.?[price < 100].![name]' --data inventory.json
  spel eval 'name + " (" + #suffix + ")"' --json '{"name": "box"}' --var suffix=v2
  spel eval --template 'Hello #{user.name}!' --data user.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&dataFile, "data", "d", "", "JSON or YAML file providing the root object")
	evalCmd.Flags().StringVar(&dataInline, "json", "", "inline JSON providing the root object")
	evalCmd.Flags().StringArrayVar(&varFlags, "var", nil, "expression variable as name=value (repeatable)")
	evalCmd.Flags().BoolVarP(&templateMode, "template", "t", false, "treat the input as a #{...} template")
	evalCmd.Flags().BoolVar(&allowUndefined, "allow-undefined", false, "undefined #variables evaluate to null")
}

func runEval(cmd *cobra.Command, args []string) error {
	source := args[0]

	root, err := loadRootObject()
	if err != nil {
		return err
	}

	ctx := evalcontext.NewStandardContext(root)
	for _, v := range varFlags {
		name, val, ok := strings.Cut(v, "=")
		if !ok {
			return fmt.Errorf("invalid --var %q, expected name=value", v)
		}
		ctx.SetVariable(name, parseScalar(val))
	}

	var result any
	if templateMode {
		result, err = expression.RenderTemplate(source, ctx)
	} else {
		var expr *expression.Expression
		expr, err = expression.ParseWithConfig(source, expression.Config{
			AllowUndefinedVariables: allowUndefined,
		})
		if err == nil {
			result, err = expr.ValueWithContext(ctx)
		}
	}
	if err != nil {
		printEvalFailure(cmd, source, err)
		return err
	}

	printResult(cmd, result)
	return nil
}

// loadRootObject builds the evaluation root from --data or --json. JSON goes
// through gabs so nested documents land as map[string]any/[]any; .yaml and
// .yml files decode the same shape through the YAML decoder.
func loadRootObject() (any, error) {
	if dataInline != "" {
		parsed, err := gabs.ParseJSON([]byte(dataInline))
		if err != nil {
			return nil, fmt.Errorf("parsing --json: %w", err)
		}
		return parsed.Data(), nil
	}
	if dataFile == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(dataFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dataFile, err)
	}
	if strings.HasSuffix(dataFile, ".yaml") || strings.HasSuffix(dataFile, ".yml") {
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", dataFile, err)
		}
		return doc, nil
	}
	parsed, err := gabs.ParseJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", dataFile, err)
	}
	return parsed.Data(), nil
}

// parseScalar interprets a --var value: numbers and booleans become typed
// values, everything else stays a string.
func parseScalar(s string) any {
	var doc any
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return s
	}
	switch doc.(type) {
	case int, float64, bool, nil:
		return doc
	}
	return s
}

func printResult(cmd *cobra.Command, result any) {
	switch viper.GetString("output") {
	case "json":
		style.PrintJSON(cmd.OutOrStdout(), map[string]any{"result": result})
	case "yaml":
		style.PrintYAML(cmd.OutOrStdout(), map[string]any{"result": result})
	default:
		fmt.Fprintln(cmd.OutOrStdout(), renderValue(result))
	}
}

func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

// printEvalFailure renders parse and evaluation errors with a caret at the
// failing position when one is known.
func printEvalFailure(cmd *cobra.Command, source string, err error) {
	if quiet {
		return
	}
	pos := -1
	var evalErr *evalcontext.EvalError
	var parseErr *parser.ParseError
	switch {
	case errors.As(err, &evalErr):
		pos = evalErr.Position
	case errors.As(err, &parseErr):
		pos = parseErr.Position
	}
	fmt.Fprintln(cmd.ErrOrStderr(), style.RenderExpressionError(source, pos, err.Error()))
}
