package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"podvision/internal/api"
	"podvision/internal/avatar"
	"podvision/internal/monitor"
	"podvision/internal/upload"
	"podvision/internal/view"
)

type submitOptions struct {
	speakers []string
	noWait   bool
	download bool
	output   string
	json     bool
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var opts submitOptions

	cmd := &cobra.Command{
		Use:   "submit AUDIO",
		Short: "Upload an audio file and follow the rendering job",
		Long: "Upload an audio file with a speaker-to-avatar mapping, then poll the job until it\n" +
			"completes or fails. Use --speaker LABEL=MODEL to change individual assignments.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, ctx, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.speakers, "speaker", "s", nil, "Assign an avatar to a speaker (LABEL=MODEL); repeatable")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "Print the job id and exit without polling")
	cmd.Flags().BoolVarP(&opts.download, "download", "d", false, "Fetch the rendered video when the job completes")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Save the rendered video to this file or directory (implies --download)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the final job state as JSON")
	return cmd
}

func runSubmit(cmd *cobra.Command, ctx *commandContext, audioPath string, opts submitOptions) error {
	client, err := ctx.client()
	if err != nil {
		return err
	}
	logger := ctx.loggerValue()

	form := upload.NewForm(ctx.catalog(), ctx.defaultMapping(), logger)
	if err := form.SelectFile(audioPath); err != nil {
		return err
	}
	for _, assignment := range opts.speakers {
		label, model, err := avatar.ParseAssignment(assignment)
		if err != nil {
			return err
		}
		if err := form.SetAvatar(label, model); err != nil {
			return err
		}
	}

	jobs, err := ctx.newMonitor(client)
	if err != nil {
		return err
	}
	defer jobs.Stop()

	runCtx := commandContextOf(cmd)
	if opts.noWait {
		return submitNoWait(cmd, runCtx, form, jobs, opts.json)
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.json {
		out = io.Discard
	}
	v := view.New(view.Options{
		Out:          out,
		Downloader:   client,
		Sink:         ctx.sinkFor(opts.output),
		AutoDownload: opts.download || strings.TrimSpace(opts.output) != "",
		Logger:       logger,
	})

	snap, runErr := v.Run(runCtx, form, jobs, jobs)
	if opts.json && snap.State != monitor.Idle {
		if err := writeJSON(cmd, snap); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	return jobOutcomeError(snap)
}

func submitNoWait(cmd *cobra.Command, runCtx context.Context, form *upload.Form, jobs *monitor.Monitor, asJSON bool) error {
	var handle api.JobHandle
	err := form.Submit(runCtx, func(ctx context.Context, sub api.JobSubmission) error {
		h, err := jobs.Submit(ctx, sub)
		handle = h
		return err
	})
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd, handle)
	}
	fmt.Fprintln(cmd.OutOrStdout(), handle.JobID)
	return nil
}

// jobOutcomeError turns a non-successful terminal state into a command error
// so the process exits non-zero.
func jobOutcomeError(snap monitor.Snapshot) error {
	switch snap.State {
	case monitor.Failed:
		return fmt.Errorf("job %s failed", snap.JobID)
	case monitor.Errored:
		return fmt.Errorf("job %s: %s", snap.JobID, snap.Message)
	}
	return nil
}

// sinkFor picks where a downloaded artifact goes: an explicit --output, then
// download.dir from config, then the browser.
func (c *commandContext) sinkFor(output string) api.Sink {
	if output = strings.TrimSpace(output); output != "" {
		return api.FileSink{Path: output}
	}
	if c.config != nil && c.config.Download.Dir != "" {
		return api.FileSink{Dir: c.config.Download.Dir}
	}
	return api.BrowserSink{}
}
