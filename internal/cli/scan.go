package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edumarques81/wavequeue/internal/domain/player"
)

var (
	scanRefresh bool
	scanQuery   string
	scanLimit   int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the tracks in the library",
	Long: `List the tracks in the configured library. With --refresh the source is
rescanned and the snapshot cache rewritten first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := buildLibrary(Config())
		if err != nil {
			return err
		}
		defer st.close()

		ctx := cmd.Context()
		if scanRefresh {
			count, err := st.service.Refresh(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Scanned %d tracks\n", count)
		}

		var tracks []player.Track
		total := 0
		if scanQuery != "" || scanLimit > 0 {
			tracks, total, err = st.service.Search(ctx, scanQuery, 1, scanLimit)
		} else {
			tracks, err = st.service.ListTracks(ctx)
			total = len(tracks)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if JSONOutput() {
			return printJSON(out, map[string]any{"tracks": tracks, "total": total})
		}

		table := NewTableWriter(out, "ID", "ARTIST", "TITLE", "LENGTH", "ART")
		for _, t := range tracks {
			art := ""
			if t.ArtworkSource != "" {
				art = "yes"
			}
			table.Row(t.ID[:min(8, len(t.ID))], truncate(t.Artist, 24), truncate(t.Title, 40), formatMillis(t.DurationMillis), art)
		}
		table.Flush()
		if total > len(tracks) {
			fmt.Fprintf(out, "(%d of %d tracks)\n", len(tracks), total)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVarP(&scanRefresh, "refresh", "r", false, "rescan the source and rebuild the cache")
	scanCmd.Flags().StringVarP(&scanQuery, "query", "q", "", "only list tracks whose title or artist matches")
	scanCmd.Flags().IntVarP(&scanLimit, "limit", "n", 0, "maximum number of tracks to list")
	rootCmd.AddCommand(scanCmd)
}
