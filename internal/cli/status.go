// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Environment diagnostics command.
package cli

import (
	"context"
	"fmt"

	"github.com/oggata/huggingface-jp-chat-demo/internal/config"
	"github.com/oggata/huggingface-jp-chat-demo/internal/hf"
	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
)

// HandleStatus reports configuration, token, and model state in one
// place. Network checks are skipped when no token is configured.
func HandleStatus(args Args) {
	cfg := config.Global()
	client := newClientFromConfig(cfg)

	modelID := cfg.Chat.Model
	if modelID == "" {
		modelID = model.DefaultModelID
	}
	if args.Model != "" {
		if resolved, err := resolveModel(args, cfg); err == nil {
			modelID = resolved
		}
	}

	data := StatusData{
		Version:  Version,
		TokenSet: client.HasToken(),
		Model:    modelID,
	}
	if path, err := config.ConfigPath(); err == nil {
		data.ConfigPath = path
	}
	if dir, err := cfg.StorageDir(); err == nil {
		data.StorageDir = dir
	}

	if client.HasToken() {
		data.TokenFingerprint = client.TokenFingerprint()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
		defer cancel()

		valid := false
		if identity, err := client.WhoAmI(ctx); err == nil {
			valid = true
			data.Identity = identity.Name
		}
		data.TokenValid = &valid

		if status, err := client.ModelStatus(ctx, modelID); err != nil {
			data.ModelState = "不明"
		} else if status.IsReady() {
			data.ModelState = "準備完了"
		} else {
			data.ModelState = "読込中"
		}
	}

	if args.JSON {
		if err := NewJSONResponse("status", data).Print(); err != nil {
			HandleErrorAndExit("status", err, true)
		}
		return
	}

	fmt.Println(TitleStyle.Render("jpchat の状態"))
	fmt.Println(RenderSeparator())

	fmt.Printf("%s %s\n", RenderLabel("バージョン"), ValueStyle.Render(Version))
	fmt.Printf("%s %s\n", RenderLabel("設定ファイル"), ValueStyle.Render(data.ConfigPath))
	fmt.Printf("%s %s\n", RenderLabel("保存先"), ValueStyle.Render(data.StorageDir))

	if !data.TokenSet {
		fmt.Printf("%s %s\n", RenderLabel("トークン"), ErrorStyle.Render("未設定"))
		fmt.Println(DimStyle.Render("  jpchat setup でトークンを設定してください。"))
		fmt.Println(RenderSeparator())
		return
	}

	tokenLine := data.TokenFingerprint
	if data.TokenValid != nil && *data.TokenValid {
		tokenLine += " " + SuccessStyle.Render("(有効)")
		if data.Identity != "" {
			tokenLine += " " + DimStyle.Render("@"+data.Identity)
		}
	} else {
		tokenLine += " " + ErrorStyle.Render("(検証失敗)")
	}
	fmt.Printf("%s %s\n", RenderLabel("トークン"), tokenLine)

	fmt.Printf("%s %s\n", RenderLabel("モデル"), ValueStyle.Render(model.DisplayName(modelID)))
	fmt.Printf("%s %s\n", RenderLabel("モデル状態"), RenderStatus(data.ModelState))
	fmt.Println(RenderSeparator())

	if data.TokenValid != nil && !*data.TokenValid {
		DisplayError("status", hf.ErrInvalidToken, false)
	}
}
