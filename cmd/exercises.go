package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/reptrack/internal/exercise"
	"github.com/spf13/cobra"
)

var exercisesCmd = &cobra.Command{
	Use:     "exercises",
	Aliases: []string{"list"},
	Short:   "List supported exercises and their thresholds",
	Run: func(cmd *cobra.Command, args []string) {
		listExercises(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(exercisesCmd)
}

func listExercises(out io.Writer) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "KEY\tNAME\tJOINT\tORDER\tARM\tFIRE\tKCAL/MIN\tKG/REP")
	fmt.Fprintln(w, "---\t----\t-----\t-----\t---\t----\t--------\t------")

	for _, v := range exercise.Variants() {
		weight := "-"
		if v.WeightPerRepKg > 0 {
			weight = fmt.Sprintf("%d", v.WeightPerRepKg)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%g\t%s\n",
			v.Key, v.Name, v.Joints.Joint, v.Polarity, v.ArmCondition(), v.FireCondition(), v.CaloriesPerMinute, weight)
	}
	w.Flush()
}
