// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command: send a prompt, print the answer.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/oggata/huggingface-jp-chat-demo/internal/config"
	"github.com/oggata/huggingface-jp-chat-demo/internal/hf"
	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
	"github.com/oggata/huggingface-jp-chat-demo/internal/prompt"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the shared glamour renderer for TTY output.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fall back to plain text when the renderer cannot initialize.
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown for terminal display. Returns the
// original content if rendering fails or the renderer is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayResponse renders markdown only when stdout is a TTY so piped
// output stays clean.
func displayResponse(response string) {
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(response))
		return
	}
	fmt.Println(response)
}

// =============================================================================
// ASK COMMAND
// =============================================================================

// HandleAsk answers a single question and exits. Streaming output is the
// default on a TTY; --no-stream or JSON mode collects the full response
// first.
func HandleAsk(args Args) {
	if args.Query == "" {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("質問を指定してください。"))
		fmt.Fprintln(os.Stderr, DimStyle.Render("  例: jpchat ask \"日本の首都は？\""))
		os.Exit(ExitUsage)
	}

	cfg := config.Global()
	client := newClientFromConfig(cfg)

	modelID, err := resolveModel(args, cfg)
	if err != nil {
		HandleErrorAndExit("ask", err, args.JSON)
	}

	params, err := generationParamsFromConfig("ask", cfg, args.Options)
	if err != nil {
		HandleErrorAndExit("ask", err, args.JSON)
	}

	built := prompt.Build(modelID, args.Query, nil)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()

	noStream := args.Options["no-stream"] == "true"
	streaming := !noStream && !args.JSON && IsStdoutTTY()

	start := time.Now()
	if streaming {
		err = askStreaming(ctx, client, modelID, built, params, args)
	} else {
		err = askBlocking(ctx, client, modelID, built, params, args, start)
	}
	if err != nil {
		HandleErrorAndExit("ask", err, args.JSON)
	}
}

// askStreaming prints tokens as they arrive, then shows a short summary
// line unless quiet mode is on.
func askStreaming(ctx context.Context, client *hf.Client, modelID, builtPrompt string, params hf.GenerationParams, args Args) error {
	if !args.Quiet {
		fmt.Println(DimStyle.Render(model.DisplayName(modelID)))
	}

	chunks, errs := client.StreamChan(ctx, modelID, builtPrompt, params)
	acc := hf.NewStreamAccumulator()

	for chunk := range chunks {
		acc.Add(chunk)
		if text := chunk.GetText(); text != "" {
			fmt.Print(text)
		}
	}
	fmt.Println()

	if err := <-errs; err != nil {
		return err
	}

	if !args.Quiet {
		stats := acc.GetStats()
		fmt.Println(DimStyle.Render(fmt.Sprintf("%d トークン / %s",
			stats.TokenCount, formatDuration(stats.TotalTime))))
	}
	return nil
}

// askBlocking collects the whole response before printing, for --no-stream,
// JSON mode, and piped output.
func askBlocking(ctx context.Context, client *hf.Client, modelID, builtPrompt string, params hf.GenerationParams, args Args, start time.Time) error {
	result, err := client.GenerateWithRetry(ctx, modelID, builtPrompt, params)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("ask", AskData{
			Model:      modelID,
			Response:   result.Text,
			DurationMs: time.Since(start).Milliseconds(),
			Tokens:     result.TokenCount,
		}).Print()
	}

	if !args.Quiet {
		fmt.Println(DimStyle.Render(model.DisplayName(modelID)))
	}
	displayResponse(result.Text)
	if !args.Quiet {
		fmt.Println(DimStyle.Render(fmt.Sprintf("%d トークン / %s",
			result.TokenCount, formatDuration(time.Since(start)))))
	}
	return nil
}
