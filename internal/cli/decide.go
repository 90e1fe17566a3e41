package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"rgehrsitz/acrex/internal/preprocessor"
	"rgehrsitz/acrex/internal/rules"
	"rgehrsitz/acrex/internal/runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type decideOptions struct {
	temperature float64
	humidity    float64
	occupancy   string
	timeOfDay   string
	windowsOpen bool
	bare        bool
	factsFile   string
	facts       []string
	asJSON      bool
}

func newDecideCmd(root *rootOptions) *cobra.Command {
	opts := &decideOptions{}

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Decide the AC action for the given home conditions",
		Example: `  acrex decide --temperature 31 --humidity 75 --occupancy OCCUPIED
  acrex decide --bare --fact occupancy=EMPTY --fact temperature=25
  acrex decide --facts-file home.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rs, err := root.loadRules(cmd)
			if err != nil {
				return err
			}
			facts, err := opts.buildFacts(cmd)
			if err != nil {
				return err
			}

			action, ruleName := runtime.Select(facts, rs)

			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Rule   string       `json:"rule"`
					Action rules.Action `json:"action"`
				}{ruleName, action})
			}
			renderDecision(cmd.OutOrStdout(), ruleName, action)
			return nil
		},
	}

	// Defaults match the reference input form.
	f := cmd.Flags()
	f.Float64Var(&opts.temperature, "temperature", 22, "temperature in °C")
	f.Float64Var(&opts.humidity, "humidity", 46, "relative humidity in %")
	f.StringVar(&opts.occupancy, "occupancy", "OCCUPIED", "occupancy (OCCUPIED or EMPTY)")
	f.StringVar(&opts.timeOfDay, "time-of-day", "NIGHT", "time of day (MORNING, AFTERNOON, EVENING or NIGHT)")
	f.BoolVar(&opts.windowsOpen, "windows-open", false, "whether any window is open")
	f.BoolVar(&opts.bare, "bare", false, "only use facts that are given explicitly")
	f.StringVar(&opts.factsFile, "facts-file", "", "JSON or YAML file with a map of facts")
	f.StringArrayVar(&opts.facts, "fact", nil, "extra fact as name=value (repeatable, applied last)")
	f.BoolVar(&opts.asJSON, "json", false, "print the decision as JSON")

	return cmd
}

// buildFacts layers the standard inputs, the facts file and --fact pairs.
func (o *decideOptions) buildFacts(cmd *cobra.Command) (rules.Facts, error) {
	facts := rules.Facts{}
	flags := cmd.Flags()

	standard := []struct {
		flag  string
		fact  string
		value rules.Value
	}{
		{"temperature", "temperature", rules.Number(o.temperature)},
		{"humidity", "humidity", rules.Number(o.humidity)},
		{"occupancy", "occupancy", rules.String(strings.ToUpper(o.occupancy))},
		{"time-of-day", "time_of_day", rules.String(strings.ToUpper(o.timeOfDay))},
		{"windows-open", "windows_open", rules.Bool(o.windowsOpen)},
	}
	for _, s := range standard {
		if o.bare && !flags.Changed(s.flag) {
			continue
		}
		facts[s.fact] = s.value
	}

	if o.factsFile != "" {
		fromFile, err := readFactsFile(o.factsFile)
		if err != nil {
			return nil, err
		}
		for name, v := range fromFile {
			facts[name] = v
		}
	}

	for _, pair := range o.facts {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --fact %q: expected name=value", pair)
		}
		facts[name] = rules.ParseValue(raw)
	}

	return facts, nil
}

func readFactsFile(path string) (rules.Facts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read facts file %q: %w", path, err)
	}

	var raw map[string]interface{}
	switch preprocessor.FormatFromPath(path) {
	case preprocessor.FormatJSON:
		err = json.Unmarshal(data, &raw)
	default:
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse facts file %q: %w", path, err)
	}

	facts, err := rules.FactsFromMap(raw)
	if err != nil {
		return nil, fmt.Errorf("facts file %q: %w", path, err)
	}
	return facts, nil
}

func renderDecision(w io.Writer, ruleName string, action rules.Action) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, "AC Decision")

	ruleColor := color.New(color.FgGreen)
	if ruleName == runtime.DefaultRuleName {
		ruleColor = color.New(color.FgYellow)
	}
	fmt.Fprintf(w, "%s %s\n", bold.Sprint("Rule applied:"), ruleColor.Sprint(ruleName))
	fmt.Fprintf(w, "%s %s\n", bold.Sprint("AC Mode:"), modeColor(action.Mode).Sprint(action.Mode))
	fmt.Fprintf(w, "%s %s\n", bold.Sprint("Fan Speed:"), action.FanSpeed)
	fmt.Fprintf(w, "%s %s\n", bold.Sprint("Setpoint:"), action.SetpointString())
	fmt.Fprintf(w, "%s %s\n", bold.Sprint("Reason:"), action.Reason)
}

func modeColor(m rules.Mode) *color.Color {
	switch m {
	case rules.ModeCool:
		return color.New(color.FgCyan)
	case rules.ModeEco:
		return color.New(color.FgGreen)
	case rules.ModeSleep:
		return color.New(color.FgMagenta)
	default:
		return color.New(color.FgWhite)
	}
}
