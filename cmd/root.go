/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/tetraview/config"
	"github.com/notargets/tetraview/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	prof    interface{ Stop() }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tetraview",
	Short: "Upload surface meshes for tetrahedralization and view the result",
	Long: `
Reads STL, PLY and Gmsh surfaces, sends them to a tetrahedralization service in the
compact binary mesh format and installs the exploded volume mesh it returns
into a scene, optionally shown in a preview window.

tetraview upload part.stl --preview`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if prof != nil {
			prof.Stop()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tetraview.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("profile", "", "write a cpu or mem profile to the current directory")
	rootCmd.PersistentFlags().String("base-url", "", "tetrahedralization service URL, overrides the origin")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("server.base_url", rootCmd.PersistentFlags().Lookup("base-url"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if err := config.SetDefaults(viper.GetViper()); err != nil {
		logging.Default().Fatal("registering defaults", "err", err)
	}
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			logging.Default().Fatal("locating home directory", "err", err)
		}
		// Search config in home directory with name ".tetraview" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".tetraview")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		logging.Default().Debug("using config file", "path", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		logging.Default().Fatal("reading config", "path", cfgFile, "err", err)
	}
}

// setup decodes the configuration and applies the global flags before any
// command runs.
func setup(cmd *cobra.Command, args []string) (err error) {
	if cfg, err = config.FromViper(viper.GetViper()); err != nil {
		return err
	}
	if err = logging.SetLevel(cfg.Log.Level); err != nil {
		return err
	}
	mode, _ := cmd.Flags().GetString("profile")
	switch mode {
	case "":
	case "cpu":
		prof = profile.Start(profile.CPUProfile, profile.ProfilePath(filepath.Clean(".")), profile.Quiet)
	case "mem":
		prof = profile.Start(profile.MemProfile, profile.ProfilePath(filepath.Clean(".")), profile.Quiet)
	default:
		return fmt.Errorf("unknown profile mode %q, want cpu or mem", mode)
	}
	return nil
}
