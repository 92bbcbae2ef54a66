package cmds

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	channelId string
	limit     int
)

func NewNowCLI() *cobra.Command {
	nowCmd := &cobra.Command{
		Use:   "now",
		Short: "下载节目单，并显示指定频道当前和后续的节目。",
		RunE: func(cmd *cobra.Command, args []string) error {
			guide := newGuide(nil)
			guide.TriggerUpdate(cmd.Context(), conf.URL)
			if status := guide.Status(); status.LastError != "" {
				return errors.New(status.LastError)
			}

			out := cmd.OutOrStdout()
			if prog, ok := guide.CurrentProgram(channelId); ok {
				fmt.Fprintf(out, "Now:  %s - %s  %s\n",
					prog.Start.Local().Format(time.DateTime), prog.Stop.Local().Format("15:04"), prog.Title)
			} else {
				fmt.Fprintf(out, "Now:  no program found for channel %s\n", channelId)
			}

			if limit <= 0 {
				limit = conf.UpcomingLimit
			}
			for _, prog := range guide.UpcomingPrograms(channelId, limit) {
				fmt.Fprintf(out, "Next: %s - %s  %s\n",
					prog.Start.Local().Format(time.DateTime), prog.Stop.Local().Format("15:04"), prog.Title)
			}

			if !guide.Index().IsEmpty() {
				if _, ok := guide.Index().Programs(channelId); !ok {
					if similar := guide.Index().FuzzyMatch(channelId); len(similar) > 0 {
						fmt.Fprintf(out, "Channel %s not found, similar channels: %v\n", channelId, similar)
					}
				}
			}
			return nil
		},
	}

	nowCmd.Flags().StringVarP(&channelId, "ch", "c", "", "频道Id，需与XMLTV中programme的channel属性一致。")
	nowCmd.Flags().IntVarP(&limit, "limit", "n", 0, "显示的后续节目数量。")

	// 必填参数
	_ = nowCmd.MarkFlagRequired("ch")

	return nowCmd
}
