// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - Web chat server command.
package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/oggata/huggingface-jp-chat-demo/internal/config"
	"github.com/oggata/huggingface-jp-chat-demo/internal/logging"
	"github.com/oggata/huggingface-jp-chat-demo/internal/server"
)

// HandleServe starts the localhost web chat server and blocks until
// shutdown.
func HandleServe(args Args) {
	cfg := config.Global()

	host, err := resolveServeHost(args.Options["host"], cfg.Server.Host)
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render(err.Error()))
		os.Exit(ExitUsage)
	}
	cfg.Server.Host = host
	if portStr := args.Options["port"]; portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			fmt.Fprintf(os.Stderr, "無効なポート番号です: %s\n", portStr)
			os.Exit(ExitUsage)
		}
		cfg.Server.Port = port
	}

	if !isLoopbackHost(cfg.Server.Host) && !args.Quiet {
		fmt.Fprintln(os.Stderr, WarningStyle.Render(
			"⚠ ループバック以外のアドレスで待ち受けます。このサーバーに認証はありません。"))
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		HandleErrorAndExit("serve", err, args.JSON)
	}
	defer logger.Sync()

	srv := server.New(cfg, newClientFromConfig(cfg), logger)

	if !args.Quiet {
		fmt.Println(TitleStyle.Render("jpchat web サーバー"))
		fmt.Printf("%s http://%s/ をブラウザで開いてください\n",
			SuccessStyle.Render("→"), srv.Addr())
		fmt.Println(DimStyle.Render("Ctrl+C で停止します。"))
	}

	if err := srv.Run(context.Background()); err != nil {
		HandleErrorAndExit("serve", err, args.JSON)
	}
}

// resolveServeHost decides the listen address. A non-loopback bind must be
// requested with --host on the command line so an edited config file alone
// cannot expose the unauthenticated server.
func resolveServeHost(flagHost, cfgHost string) (string, error) {
	host := cfgHost
	if flagHost != "" {
		host = flagHost
	}
	if isLoopbackHost(host) {
		return host, nil
	}
	if flagHost == "" {
		return "", fmt.Errorf("設定の host %q はループバックではありません。外部に公開する場合は --host を明示してください", host)
	}
	return host, nil
}

// isLoopbackHost reports whether the host names a loopback address.
func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
