package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zjrosen/classwind/internal/config"
	"github.com/zjrosen/classwind/internal/ranking"
)

func newInitCmd(st *state) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config and a starter ranking file",
		Long: `Write .classwind/config.yaml (or the file named by --config) with every
option and its default, and .classwind/classorder.yaml with a starter class
order. Existing files are left alone unless --force is given for the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			configPath := st.cfgFile
			if configPath == "" {
				configPath = config.LocalConfigPath()
			}
			if fileExists(configPath) && !force {
				fmt.Fprintf(out, "kept %s\n", configPath)
			} else {
				if err := config.WriteDefaultConfig(configPath); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %s\n", configPath)
			}

			rankingPath := filepath.Join(config.DirName, ranking.FileNames[0])
			wrote, err := ranking.WriteStarter(rankingPath)
			if err != nil {
				return err
			}
			if wrote {
				fmt.Fprintf(out, "wrote %s\n", rankingPath)
			} else {
				fmt.Fprintf(out, "kept %s\n", rankingPath)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
