package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"podvision/internal/view"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Show the current status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.FetchJobStatus(commandContextOf(cmd), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}
			v := view.New(view.Options{Out: cmd.OutOrStdout(), Downloader: client, Logger: ctx.loggerValue()})
			v.RenderJobStatus(status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var download bool
	var output string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "watch JOB_ID",
		Short: "Poll an existing job until it completes or fails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			jobs, err := ctx.newMonitor(client)
			if err != nil {
				return err
			}
			defer jobs.Stop()

			if err := jobs.Attach(strings.TrimSpace(args[0])); err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if asJSON {
				out = io.Discard
			}
			v := view.New(view.Options{
				Out:          out,
				Downloader:   client,
				Sink:         ctx.sinkFor(output),
				AutoDownload: download || strings.TrimSpace(output) != "",
				Logger:       ctx.loggerValue(),
			})
			snap, followErr := v.Follow(commandContextOf(cmd), jobs)
			if asJSON {
				if err := writeJSON(cmd, snap); err != nil {
					return err
				}
			}
			if followErr != nil {
				return followErr
			}
			return jobOutcomeError(snap)
		},
	}

	cmd.Flags().BoolVarP(&download, "download", "d", false, "Fetch the rendered video when the job completes")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Save the rendered video to this file or directory (implies --download)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the final job state as JSON")
	return cmd
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download JOB_ID",
		Short: "Open or save the rendered video of a completed job",
		Long: "Open the rendered video in the browser, or save it locally with --output.\n" +
			"When download.dir is configured the video is saved there by default.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			v := view.New(view.Options{
				Out:        cmd.OutOrStdout(),
				Downloader: client,
				Sink:       ctx.sinkFor(output),
				Logger:     ctx.loggerValue(),
			})
			_, err = v.Download(commandContextOf(cmd), strings.TrimSpace(args[0]))
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Save the video to this file or directory")
	return cmd
}
