// Package cli 实现 resumectl 命令行：生成空白简历模板、调用渲染服务生成 PDF。
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the resumectl command tree.
func NewRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "resumectl",
		Short:         "Create résumé documents with the rendering service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")

	logger := func(cmd *cobra.Command) *slog.Logger {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		return newLogger(cmd.ErrOrStderr(), level)
	}

	root.AddCommand(newInitCmd())
	root.AddCommand(newGenerateCmd(logger))
	return root
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
