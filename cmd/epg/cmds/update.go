package cmds

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewUpdateCLI() *cobra.Command {
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "下载并解析一次节目单，输出更新状态。",
		RunE: func(cmd *cobra.Command, args []string) error {
			guide := newGuide(nil)
			guide.TriggerUpdate(cmd.Context(), conf.URL)

			status := guide.Status()
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(&status); err != nil {
				zap.L().Error("Failed to write status.", zap.Error(err))
				return err
			}

			if status.LastError != "" {
				return errors.New(status.LastError)
			}
			return nil
		},
	}

	return updateCmd
}
