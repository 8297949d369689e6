// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration inspection and editing command.
//
// Subcommands:
//   list (default)   全キーと現在値を表示
//   get <key>        値を表示
//   set <key> <val>  値を設定して保存
//   path             設定ファイルのパスを表示
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/oggata/huggingface-jp-chat-demo/internal/config"
)

// HandleConfig dispatches the config subcommands.
func HandleConfig(args Args) {
	var err error
	switch args.Subcommand {
	case "", "list", "ls":
		err = configList(args)
	case "get":
		err = configGet(args)
	case "set":
		err = configSet(args)
	case "path":
		err = configPath(args)
	default:
		fmt.Fprintf(os.Stderr, "不明なサブコマンドです: %s\n", args.Subcommand)
		fmt.Fprintln(os.Stderr, "jpchat help config で使い方を表示します。")
		os.Exit(ExitUsage)
	}

	if err != nil {
		HandleErrorAndExit("config", err, args.JSON)
	}
}

func configList(args Args) error {
	cfg := config.Global()

	if args.JSON {
		return NewJSONResponse("config", cfg.Redacted()).Print()
	}

	fmt.Println(TitleStyle.Render("設定"))
	fmt.Println(RenderSeparator())
	for _, key := range config.GetAllKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Printf("%s %s\n",
			RenderLabel(key, 28),
			ValueStyle.Render(formatConfigValue(key, value)))
	}
	fmt.Println(RenderSeparator())
	if path, err := config.ConfigPath(); err == nil {
		fmt.Println(DimStyle.Render("設定ファイル: " + path))
	}
	return nil
}

func configGet(args Args) error {
	key := args.Options["key"]
	if key == "" {
		return NewCommandError("config", "キーを指定してください (例: jpchat config get chat.model)", nil)
	}

	value, err := config.Global().Get(key)
	if err != nil {
		return NewCommandError("config", "不明なキーです: "+key, err)
	}

	if args.JSON {
		return NewJSONResponse("config", map[string]interface{}{key: value}).Print()
	}
	fmt.Println(formatConfigValue(key, value))
	return nil
}

func configSet(args Args) error {
	key := args.Options["key"]
	value := args.Options["value"]
	if key == "" || value == "" {
		return NewCommandError("config", "キーと値を指定してください (例: jpchat config set generation.temperature 0.9)", nil)
	}

	cfg := config.Global()
	if err := cfg.Set(key, value); err != nil {
		return NewCommandError("config", "設定に失敗しました: "+key, err)
	}

	// Clamp keeps slider-range fields inside their supported bounds.
	cfg.Clamp()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}

	if args.JSON {
		newValue, _ := cfg.Get(key)
		return NewJSONResponse("config", map[string]interface{}{key: newValue}).Print()
	}
	newValue, _ := cfg.Get(key)
	fmt.Printf("%s %s = %s\n",
		SuccessStyle.Render("✅"),
		key,
		formatConfigValue(key, newValue))
	return nil
}

func configPath(args Args) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("config", map[string]string{"path": path}).Print()
	}
	fmt.Println(path)
	return nil
}

// formatConfigValue renders a value for display, masking the token.
func formatConfigValue(key string, value interface{}) string {
	if strings.HasSuffix(key, ".token") {
		s, _ := value.(string)
		if s == "" {
			return "(未設定)"
		}
		return "[設定済み]"
	}
	return fmt.Sprintf("%v", value)
}
