package cmds

import (
	"epg/internal/app/config"
	"epg/internal/app/epg"
	"epg/internal/app/metrics"
	"epg/internal/app/source"
	"epg/internal/pkg/logging"
	"epg/internal/pkg/util"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const logFileName = "epg.log"

var (
	cfgFile string

	conf *config.Config
)

func init() {
	cobra.OnInitialize(initConfig)
}

func NewRootCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "epg",
		Short:         "EPG节目单工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// 校验配置文件
			if err := conf.Validate(); err != nil {
				return err
			}
			return nil
		},
	}

	rootCmd.AddCommand(NewServeCLI())
	rootCmd.AddCommand(NewUpdateCLI())
	rootCmd.AddCommand(NewNowCLI())
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML配置文件的路径")

	return rootCmd
}

// initConfig 初始化配置文件和日志
func initConfig() {
	var err error
	var fPath string

	cfgHome, err := util.GetCurrentAbPathByExecutable()
	cobra.CheckErr(err)

	if cfgFile != "" {
		// 使用命令参数中的配置文件
		fPath = cfgFile
	} else {
		fPath = filepath.Join(cfgHome, "config.yml")

		// 写入缺省配置文件
		if _, err = os.Stat(fPath); os.IsNotExist(err) {
			err = config.CreateDefaultCfg(fPath, filepath.Join(cfgHome, logFileName))
			cobra.CheckErr(err)
		}
	}

	// 读取配置文件
	conf, err = config.Load(fPath)
	cobra.CheckErr(err)

	// 初始化日志
	logging.InitLogger(&conf.Log)
}

// newGuide 根据配置创建节目单
func newGuide(met *metrics.Metrics) *epg.Guide {
	fetcher := source.NewHTTPFetcher(&http.Client{
		Timeout: conf.Timeout,
	}, conf.Headers)

	opts := epg.Options{
		BatchSize:  conf.BatchSize,
		BatchDelay: conf.BatchDelay,
		MaxAge:     conf.MaxAge,
	}
	if met != nil {
		opts.Metrics = met
	}
	return epg.NewGuide(fetcher, source.GzipDecompressor{}, source.XMLParser{}, opts)
}
