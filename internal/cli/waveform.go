package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/edumarques81/wavequeue/internal/infra/waveform"
)

var (
	waveSpikes int
	waveKind   string
)

var waveformCmd = &cobra.Command{
	Use:   "waveform <file>",
	Short: "Print the amplitudes of an audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := waveform.ParseAmplitudeType(waveKind)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		wcfg := Config().Waveform
		proc := waveform.NewProcessor(waveform.Options{
			BucketsPerSecond: wcfg.BucketsPerSecond,
			Scale:            wcfg.Scale,
		})
		amps, err := proc.ProcessAudio(cmd.Context(), f)
		if err != nil {
			return err
		}

		values := amps
		if waveSpikes > 0 {
			values = waveform.Spikes(amps, waveSpikes, kind, wcfg.Scale)
		}

		out := cmd.OutOrStdout()
		if JSONOutput() {
			return printJSON(out, map[string]any{
				"file":       args[0],
				"buckets":    len(amps),
				"amplitudes": values,
			})
		}
		fmt.Fprintln(out, strings.Join(lo.Map(values, func(v int, _ int) string { return strconv.Itoa(v) }), " "))
		return nil
	},
}

func init() {
	waveformCmd.Flags().IntVarP(&waveSpikes, "spikes", "s", 0, "downsample to this many spikes")
	waveformCmd.Flags().StringVarP(&waveKind, "kind", "k", "max", "spike aggregation: avg, max or min")
	rootCmd.AddCommand(waveformCmd)
}
