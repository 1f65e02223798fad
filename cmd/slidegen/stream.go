package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"slidegraph/internal/domain/models/slide"
	"slidegraph/internal/handler/sse"
)

type streamOptions struct {
	*rootOptions
	Server string
	Parent string
}

func newStreamCommand(root *rootOptions) *cobra.Command {
	opt := &streamOptions{rootOptions: root, Server: "http://localhost:8080"}
	cmd := &cobra.Command{
		Use:   "stream <prompt>",
		Short: "Generate a slide through a running server",
		Long: `Generate a slide through a running server. Without --parent a new root
slide is created; with --parent the prompt branches from that slide.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opt.Run(cmd.Context(), strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&opt.Server, "server", opt.Server, "Server base URL")
	cmd.Flags().StringVar(&opt.Parent, "parent", "", "Branch from this slide ID")
	return cmd
}

func (o *streamOptions) Run(ctx context.Context, prompt string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	path := "/api/slides"
	if o.Parent != "" {
		path = "/api/slides/" + o.Parent + "/branch"
	}
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(o.Server, "/")+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return printStream(resp.Body, newPrinter(os.Stdout, o.Raw))
}

// printStream prints events until the stream ends or a terminal event arrives
func printStream(r io.Reader, out *printer) error {
	reader := sse.NewReader(r)
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("stream ended without a terminal event")
		}
		if err != nil {
			return err
		}
		if err := out.print(ev); err != nil {
			return err
		}
		if ev.IsTerminal() {
			if ev.Type == slide.EventError {
				return fmt.Errorf("generation failed: %s", ev.Message)
			}
			return nil
		}
	}
}
