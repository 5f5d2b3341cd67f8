package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/browser"

	"podvision/internal/logging"
	"podvision/internal/services"
	"podvision/internal/textutil"
)

// Artifact is an open download response.
type Artifact struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
	// Size is -1 when the server did not send a length.
	Size int64
}

// ArtifactSource resolves and opens job artifacts. *Client implements it.
type ArtifactSource interface {
	ArtifactURL(jobID string) string
	OpenArtifact(ctx context.Context, jobID string) (*Artifact, error)
}

// Sink delivers a job's artifact somewhere and reports where.
type Sink interface {
	Deliver(ctx context.Context, src ArtifactSource, jobID string) (string, error)
}

// DownloadArtifact hands the artifact of jobID to sink, defaulting to the
// browser. Callers should only invoke it once the job completed.
func (c *Client) DownloadArtifact(ctx context.Context, jobID string, sink Sink) (string, error) {
	if strings.TrimSpace(jobID) == "" {
		return "", services.Wrap(ErrValidation, "download artifact", "job id is required", nil)
	}
	if sink == nil {
		sink = BrowserSink{}
	}
	location, err := sink.Deliver(ctx, c, jobID)
	if err != nil {
		return "", err
	}
	c.logger.Info("artifact delivered",
		logging.String(logging.FieldJobID, jobID),
		logging.String("location", location),
	)
	return location, nil
}

// OpenArtifact issues GET /download/{jobID} and returns the open body. The
// caller must close Artifact.Body.
func (c *Client) OpenArtifact(ctx context.Context, jobID string) (*Artifact, error) {
	const op = "download artifact"
	var artifact *Artifact
	err := c.withRetry(ctx, op, func(ctx context.Context) error {
		req, err := c.newRequest(ctx, http.MethodGet, downloadPath+url.PathEscape(jobID), nil)
		if err != nil {
			return err
		}
		resp, err := c.do(req, op)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			defer drainAndClose(resp.Body)
			return newStatusError(op, resp)
		}
		artifact = &Artifact{
			Body:        resp.Body,
			Filename:    artifactFilename(resp.Header.Get("Content-Disposition"), jobID),
			ContentType: resp.Header.Get("Content-Type"),
			Size:        resp.ContentLength,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// DefaultArtifactName is the server's naming scheme for rendered output.
func DefaultArtifactName(jobID string) string {
	return "podcast_" + jobID + ".mp4"
}

func artifactFilename(disposition, jobID string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := textutil.SanitizeFileName(filepath.Base(strings.TrimSpace(params["filename"]))); name != "" {
				return name
			}
		}
	}
	return DefaultArtifactName(textutil.SanitizeFileName(jobID))
}

// BrowserSink opens the artifact URL with the user's browser, leaving the
// transfer to it.
type BrowserSink struct {
	// Open defaults to browser.OpenURL.
	Open func(url string) error
}

func (s BrowserSink) Deliver(_ context.Context, src ArtifactSource, jobID string) (string, error) {
	target := src.ArtifactURL(jobID)
	open := s.Open
	if open == nil {
		open = browser.OpenURL
	}
	if err := open(target); err != nil {
		return "", fmt.Errorf("open %s in browser: %w", target, err)
	}
	return target, nil
}

// FileSink streams the artifact to a local file. Path wins over Dir; a Path
// naming an existing directory behaves like Dir. The file appears atomically.
type FileSink struct {
	Path string
	Dir  string
	// Progress, when set, receives a writer that observes copied bytes.
	Progress func(total int64) io.Writer
}

func (s FileSink) Deliver(ctx context.Context, src ArtifactSource, jobID string) (string, error) {
	dir, name, err := s.target()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(ErrValidation, "download artifact", "create output directory", err)
	}
	if err := checkWritableDir(dir); err != nil {
		return "", services.Wrap(ErrValidation, "download artifact", fmt.Sprintf("output directory %s is not writable", dir), err)
	}

	artifact, err := src.OpenArtifact(ctx, jobID)
	if err != nil {
		return "", err
	}
	defer artifact.Body.Close()
	if name == "" {
		name = artifact.Filename
	}
	finalPath := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, ".podvision-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	var dst io.Writer = tmp
	if s.Progress != nil {
		if w := s.Progress(artifact.Size); w != nil {
			dst = io.MultiWriter(tmp, w)
		}
	}
	written, err := io.Copy(dst, artifact.Body)
	if err != nil {
		cleanup()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", services.Wrap(ErrTransport, "download artifact", "read body", err)
	}
	if artifact.Size > 0 && written != artifact.Size {
		cleanup()
		return "", services.Wrap(ErrTransport, "download artifact",
			fmt.Sprintf("short body: got %d of %d bytes", written, artifact.Size), nil)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", fmt.Errorf("sync download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close download: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("chmod download: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("move download into place: %w", err)
	}
	return finalPath, nil
}

// target returns the output directory and, when fixed by Path, the file name.
func (s FileSink) target() (string, string, error) {
	if p := strings.TrimSpace(s.Path); p != "" {
		info, err := os.Stat(p)
		switch {
		case err == nil && info.IsDir():
			return p, "", nil
		case err == nil || errors.Is(err, fs.ErrNotExist):
			if strings.HasSuffix(p, string(os.PathSeparator)) {
				return p, "", nil
			}
			return filepath.Dir(p), filepath.Base(p), nil
		default:
			return "", "", fmt.Errorf("stat output path: %w", err)
		}
	}
	dir := strings.TrimSpace(s.Dir)
	if dir == "" {
		dir = "."
	}
	return dir, "", nil
}
