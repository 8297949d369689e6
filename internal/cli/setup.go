// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - First-run setup wizard.
//
// The wizard walks through:
//   1. HuggingFace アクセストークンの入力と検証
//   2. トークンの保存 (設定ファイル or 環境変数の案内)
//   3. 既定モデルの選択
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/oggata/huggingface-jp-chat-demo/internal/config"
	"github.com/oggata/huggingface-jp-chat-demo/internal/hf"
	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
)

// HandleSetup runs the interactive first-run wizard.
func HandleSetup(args Args) {
	if err := RequiresTTY("setup"); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render(err.Error()))
		os.Exit(ExitUsage)
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("jpchat セットアップ"))
	fmt.Println(RenderSeparator())
	fmt.Println()

	cfg := config.Global()

	token, identity, err := setupToken(cfg)
	if err != nil {
		HandleErrorAndExit("setup", err, args.JSON)
	}

	if token != "" {
		if confirmPrompt("トークンを設定ファイルに保存しますか？ (保存しない場合は環境変数 HF_TOKEN を使用)", true) {
			cfg.API.Token = token
			if err := config.Save(cfg); err != nil {
				HandleErrorAndExit("setup", err, args.JSON)
			}
			if path, err := config.ConfigPath(); err == nil {
				fmt.Println(DimStyle.Render("  " + path + " に保存しました (権限 0600)"))
			}
		} else {
			fmt.Println(DimStyle.Render("  シェルの設定に次の行を追加してください:"))
			fmt.Println(DimStyle.Render("    export HF_TOKEN=" + maskToken(token)))
		}
		fmt.Println()
	}

	if err := setupDefaultModel(cfg); err != nil {
		HandleErrorAndExit("setup", err, args.JSON)
	}

	fmt.Println()
	fmt.Println(SuccessStyle.Render("セットアップが完了しました。"))
	if identity != nil {
		fmt.Printf("%s jpchat を実行すると %s としてチャットを開始できます。\n",
			DimStyle.Render("→"), identity.Name)
	} else {
		fmt.Println(DimStyle.Render("→ jpchat を実行するとチャットを開始できます。"))
	}
	fmt.Println()
}

// setupToken prompts for and verifies an access token. Returns the token
// and the verified identity; both may be empty if the user skips.
func setupToken(cfg *config.Config) (string, *hf.Identity, error) {
	fmt.Println(SectionStyle.Render("1. アクセストークン"))
	fmt.Println(DimStyle.Render("   https://huggingface.co/settings/tokens で Read 権限のトークンを作成できます。"))

	if cfg.API.Token != "" {
		client := newClientFromConfig(cfg)
		fmt.Printf("   現在のトークン: %s\n", client.TokenFingerprint())
		if !confirmPrompt("   新しいトークンを設定しますか？", false) {
			return "", nil, nil
		}
	}

	for attempt := 0; attempt < 3; attempt++ {
		token := promptSecure("   トークン (入力は表示されません)")
		if token == "" {
			fmt.Println(DimStyle.Render("   スキップしました。後から jpchat setup で設定できます。"))
			return "", nil, nil
		}

		if err := hf.ValidateTokenFormat(token); err != nil {
			fmt.Println(WarningStyle.Render("   ⚠ " + hf.UserMessage(err)))
			continue
		}
		if !hf.IsStandardTokenFormat(token) {
			fmt.Println(WarningStyle.Render("   ⚠ hf_ で始まる標準形式ではありませんが、そのまま使用します。"))
		}

		// Verify against the Hub before persisting anything.
		verify := newClientFromConfig(cfg)
		verify.SetToken(token)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
		identity, err := verify.WhoAmI(ctx)
		cancel()
		if err != nil {
			fmt.Println(ErrorStyle.Render("   ❌ " + hf.UserMessage(err)))
			continue
		}

		fmt.Printf("   %s %s として認証されました\n", SuccessStyle.Render("✅"), identity.Name)
		fmt.Println()
		return token, identity, nil
	}

	return "", nil, NewCommandError("setup", "トークンの検証に 3 回失敗しました", hf.ErrInvalidToken)
}

// setupDefaultModel lets the user pick the default model from the
// Japanese-focused subset.
func setupDefaultModel(cfg *config.Config) error {
	fmt.Println(SectionStyle.Render("2. 既定モデル"))

	models := model.JapaneseModels()
	for i, info := range models {
		marker := "  "
		if info.ID == cfg.Chat.Model {
			marker = HighlightStyle.Render("* ")
		}
		fmt.Printf("   %s%d. %s\n", marker, i+1, info.Name)
		fmt.Println(DimStyle.Render("        " + info.Description))
	}

	input := promptInput(fmt.Sprintf("   番号を選択してください [1-%d, Enter で現在値を維持]: ", len(models)))
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(models) {
		fmt.Println(WarningStyle.Render("   ⚠ 無効な選択です。現在の設定を維持します。"))
		return nil
	}

	cfg.Chat.Model = models[n-1].ID
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Printf("   %s 既定モデル: %s\n", SuccessStyle.Render("✅"), models[n-1].Name)
	return nil
}

// promptSecure reads sensitive input without echoing.
func promptSecure(prompt string) string {
	fmt.Print(prompt)
	if !strings.HasSuffix(prompt, ": ") {
		fmt.Print(": ")
	}

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// maskToken shows only the token prefix for display.
func maskToken(token string) string {
	if len(token) <= 6 {
		return "hf_..."
	}
	return token[:6] + "..."
}
