// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
	"github.com/oggata/huggingface-jp-chat-demo/internal/storage"
	"github.com/oggata/huggingface-jp-chat-demo/internal/util"
)

// =============================================================================
// CONVERSATION EXPORT
// =============================================================================

// exportConversation writes the conversation to a file in the requested
// format and returns the path written. An empty path picks a timestamped
// name in the current directory.
func exportConversation(conv *model.Conversation, format, path string) (string, error) {
	stored := storage.FromConversation(conv)

	var data []byte
	ext := "md"
	switch format {
	case "md", "markdown":
		data = []byte(stored.Markdown())
	case "json":
		var err error
		data, err = json.MarshalIndent(stored, "", "  ")
		if err != nil {
			return "", fmt.Errorf("export: %w", err)
		}
		ext = "json"
	default:
		return "", fmt.Errorf("export: unsupported format %q", format)
	}

	if path == "" {
		path = fmt.Sprintf("jpchat-%s.%s", time.Now().Format("20060102-150405"), ext)
	}

	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return path, nil
}
