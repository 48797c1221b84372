package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// errorResponse mirrors the server's JSON error body
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	RunID   string `json:"run_id"`
}

func main() {
	server := flag.String("server", "http://localhost:8000", "AIDEN server base URL")
	input := flag.String("in", "sample_audio.m4a", "recording to upload")
	output := flag.String("out", "reply.mp3", "where to save the spoken reply")
	timeout := flag.Duration("timeout", 3*time.Minute, "request timeout")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	started := time.Now()
	size, err := converse(ctx, *server, *input, *output)
	if err != nil {
		logger.Fatal("Conversation failed", zap.Error(err))
	}

	logger.Info("Reply saved",
		zap.String("path", *output),
		zap.String("size", humanize.Bytes(uint64(size))),
		zap.Duration("took", time.Since(started)))
}

// converse uploads the recording and writes the MP3 reply to out
func converse(ctx context.Context, server, in, out string) (int64, error) {
	f, err := os.Open(in)
	if err != nil {
		return 0, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("audio", filepath.Base(in))
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return 0, fmt.Errorf("failed to read recording: %w", err)
	}
	if err := mw.Close(); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/", body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return 0, fmt.Errorf("server returned %d %s (run %s): %s", resp.StatusCode, apiErr.Error, apiErr.RunID, apiErr.Message)
		}
		return 0, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(raw))
	}

	dst, err := os.Create(out)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", out, err)
	}
	n, err := io.Copy(dst, resp.Body)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(out)
		return 0, fmt.Errorf("failed to save reply: %w", err)
	}
	return n, nil
}
