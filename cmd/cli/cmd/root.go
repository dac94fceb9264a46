package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tmplctl",
	Short: "tmplctl is a command line tool for the tmplq render queue",
	Long: `tmplctl is the command-line interface for tmplq, a template render-job pipeline.

Templates are registered once and rendered asynchronously: submitting a job puts it
on a bounded queue, and a background dispatcher renders one job per tick and records
the result in a bounded history.

Common workflows:

  Register a template:
    tmplctl template create badge --body "[{{label}}] {{value|N/A}}"

  Submit a render job:
    tmplctl submit --template badge --params '{"label":"VIP"}'

  Check job status:
    tmplctl status 1

  Inspect recent completions and pipeline counters:
    tmplctl history
    tmplctl stats

  Tune the pipeline at runtime:
    tmplctl config set queue_capacity=100 processing_delay_ms.max=1000

Configuration:
  Set the API endpoint via a flag, environment variable or config file:
    TMPLQ_URL    API endpoint (default: http://localhost:6161)`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".tmplctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".tmplctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "TMPLQ_VARNAME"
	viper.SetEnvPrefix("TMPLQ")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newClient() *Client {
	return NewClient(viper.GetString("url"))
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tmplctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6161", "tmplq server URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
}
