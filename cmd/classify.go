package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/karma-hep/trigweight/weight"
	"github.com/karma-hep/trigweight/weight/period"
)

var (
	classifyPeriod string
	classifyFamily string
	classifyValue  float64
	classifyFired  []string
	stitchValue    float64
)

// classifyCmd weights a single observable value against one family
var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify an observable value into a trigger path and print its weight",
	Run: func(cmd *cobra.Command, args []string) {
		p, err := period.Load(classifyPeriod)
		if err != nil {
			logrus.Fatalf("Failed to load period %s: %v", classifyPeriod, err)
		}
		if err := printClassification(cmd.OutOrStdout(), p.Engine, classifyFamily, classifyValue, classifyFired); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// stitchCmd prints the stitching weight of a generator binning value
var stitchCmd = &cobra.Command{
	Use:   "stitch",
	Short: "Print the sample-stitching weight of a generator binning value",
	Run: func(cmd *cobra.Command, args []string) {
		p, err := period.Load(classifyPeriod)
		if err != nil {
			logrus.Fatalf("Failed to load period %s: %v", classifyPeriod, err)
		}
		if p.Engine.Stitching() == nil {
			logrus.Fatalf("Period %s has no stitching table", p.Name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "binning value %s -> weight %s\n",
			formatFloat(stitchValue), formatFloat(p.Engine.StitchingWeight(stitchValue)))
	},
}

// printClassification writes the owning path of value and its weight given
// the fired path names.
func printClassification(w io.Writer, e *weight.Engine, family string, value float64, fired []string) error {
	f, ok := e.Family(family)
	if !ok {
		return fmt.Errorf("unknown family %q", family)
	}
	var bits weight.DecisionBits
	for _, name := range fired {
		id, ok := e.Menu().Lookup(weight.BaseName(name))
		if !ok {
			return fmt.Errorf("fired path %q is not in the period menu", name)
		}
		bits = bits.With(id)
	}
	a := e.ComputeWeight(value, bits, f)
	if a.Path == weight.NoActivePath {
		fmt.Fprintf(w, "family %s: %s below lowest threshold -> no active path, weight 0\n", f.Name, formatFloat(value))
		return nil
	}
	fmt.Fprintf(w, "family %s: %s -> %s (fired=%t) weight %s\n",
		f.Name, formatFloat(value), e.Menu().Name(a.Path), a.Fired, formatFloat(a.Weight))
	return nil
}

func init() {
	classifyCmd.Flags().StringVar(&classifyPeriod, "period", period.Reference, "Run period: embedded name or path to a period YAML file")
	classifyCmd.Flags().StringVar(&classifyFamily, "family", defaultFamily, "Trigger family")
	classifyCmd.Flags().Float64Var(&classifyValue, "value", 0, "Observable value")
	classifyCmd.Flags().StringArrayVar(&classifyFired, "fired", nil, "Name of a fired path (can be repeated)")
	_ = classifyCmd.MarkFlagRequired("value")

	stitchCmd.Flags().StringVar(&classifyPeriod, "period", period.Reference, "Run period: embedded name or path to a period YAML file")
	stitchCmd.Flags().Float64Var(&stitchValue, "value", 0, "Generator binning value")
	_ = stitchCmd.MarkFlagRequired("value")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(stitchCmd)
}
