package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string
var logger *zap.SugaredLogger
var outputDir string

var rootCmd = &cobra.Command{
	Use:   "wafprobe",
	Short: "Probe URLs for WAF/CDN edges and identify the vendor fronting them",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.SetConfigName(".wafprobe")
			viper.SetConfigType("yaml")
		}
		viper.SetDefault("output_dir", "./output")
		_ = viper.BindEnv("s3_bucket", "S3_BUCKET")
		_ = viper.BindEnv("local_mode", "LOCAL_MODE")

		_ = viper.ReadInConfig()
		outputDir = viper.GetString("output_dir")

		// init logger
		l, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l.Sugar()

		// Make outputDir absolute (for clarity in logs)
		if abs, err := filepath.Abs(outputDir); err == nil {
			outputDir = abs
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// config file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.wafprobe.yaml)")

	// add subcommands
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}
