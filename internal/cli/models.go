// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - Model catalog listing command.
package cli

import (
	"context"
	"fmt"

	"github.com/oggata/huggingface-jp-chat-demo/internal/config"
	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
	"github.com/oggata/huggingface-jp-chat-demo/internal/prompt"
)

// HandleModels lists the model catalog. --japanese and --pro filter the
// listing; --status additionally queries deployment state for each model.
func HandleModels(args Args) {
	japaneseOnly := args.Options["japanese"] == "true"
	proOnly := args.Options["pro"] == "true"
	withStatus := args.Options["status"] == "true"

	models := model.Models
	switch {
	case japaneseOnly:
		models = model.JapaneseModels()
	case proOnly:
		models = model.ProModels()
	}

	cfg := config.Global()
	active := cfg.Chat.Model
	if active == "" {
		active = model.DefaultModelID
	}

	var statuses map[string]string
	if withStatus {
		statuses = fetchModelStatuses(cfg, models)
	}

	if args.JSON {
		data := make([]ModelData, 0, len(models))
		for _, info := range models {
			entry := ModelData{
				ID:          info.ID,
				Name:        info.Name,
				Family:      prompt.Detect(info.ID).String(),
				Japanese:    info.Japanese,
				Pro:         info.Pro,
				Description: info.Description,
			}
			if statuses != nil {
				entry.Status = statuses[info.ID]
			}
			data = append(data, entry)
		}
		if err := NewJSONResponse("models", data).Print(); err != nil {
			HandleErrorAndExit("models", err, true)
		}
		return
	}

	fmt.Println(TitleStyle.Render("利用可能なモデル"))
	fmt.Println(RenderSeparator())

	for _, info := range models {
		marker := "  "
		if info.ID == active {
			marker = HighlightStyle.Render("* ")
		}

		line := fmt.Sprintf("%s%-50s %-18s %s", marker, info.ID, info.Name,
			DimStyle.Render(prompt.Detect(info.ID).String()))
		if badge := info.Badge(); badge != "" {
			line += " " + WarningStyle.Render("["+badge+"]")
		}
		if statuses != nil {
			line += "  " + RenderStatus(statuses[info.ID])
		}
		fmt.Println(line)
		if !args.Quiet && info.Description != "" {
			fmt.Println(DimStyle.Render("      " + info.Description))
		}
	}

	fmt.Println(RenderSeparator())
	fmt.Println(DimStyle.Render("* は現在の既定モデル。jpchat config set chat.model <id> で変更できます。"))
}

// fetchModelStatuses queries deployment state for each model. Failures
// degrade to an unknown state so the listing still renders.
func fetchModelStatuses(cfg *config.Config, models []model.ModelInfo) map[string]string {
	client := newClientFromConfig(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()

	statuses := make(map[string]string, len(models))
	for _, info := range models {
		status, err := client.ModelStatus(ctx, info.ID)
		switch {
		case err != nil:
			statuses[info.ID] = "不明"
		case status.IsReady():
			statuses[info.ID] = "準備完了"
		default:
			statuses[info.ID] = "読込中"
		}
	}
	return statuses
}
