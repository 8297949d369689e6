// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Saved conversation management command.
//
// Subcommands:
//
//	list (default)      保存済み会話の一覧
//	show <id|番号>      会話の内容を表示
//	search <query>      会話を全文検索
//	export <id|番号>    会話を書き出し (--format md|json, -o FILE)
//	delete <id|番号>    会話を削除
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/oggata/huggingface-jp-chat-demo/internal/config"
	"github.com/oggata/huggingface-jp-chat-demo/internal/index"
	"github.com/oggata/huggingface-jp-chat-demo/internal/model"
	"github.com/oggata/huggingface-jp-chat-demo/internal/storage"
	"github.com/oggata/huggingface-jp-chat-demo/internal/util"
)

// HandleSessions dispatches the sessions subcommands.
func HandleSessions(args Args) {
	cfg := config.Global()
	dir, err := cfg.StorageDir()
	if err != nil {
		HandleErrorAndExit("sessions", err, args.JSON)
	}
	store, err := storage.NewStore(dir)
	if err != nil {
		HandleErrorAndExit("sessions", err, args.JSON)
	}
	store.MaxConversations = cfg.Storage.MaxConversations

	switch args.Subcommand {
	case "", "list", "ls":
		err = sessionsList(store, args)
	case "show":
		err = sessionsShow(store, args)
	case "search":
		err = sessionsSearch(store, args)
	case "export":
		err = sessionsExport(store, args)
	case "delete", "rm":
		err = sessionsDelete(store, args)
	default:
		fmt.Fprintf(os.Stderr, "不明なサブコマンドです: %s\n", args.Subcommand)
		fmt.Fprintln(os.Stderr, "jpchat help sessions で使い方を表示します。")
		os.Exit(ExitUsage)
	}

	if err != nil {
		HandleErrorAndExit("sessions", err, args.JSON)
	}
}

// resolveStoredConversation accepts either a conversation ID or a
// 1-based listing index.
func resolveStoredConversation(store *storage.Store, ref string) (*storage.StoredConversation, error) {
	if ref == "" {
		return nil, &NotFoundError{Resource: "会話", ID: "(未指定)"}
	}
	if n, err := strconv.Atoi(ref); err == nil {
		return store.LoadByIndex(n - 1)
	}
	return store.Load(ref)
}

func sessionsList(store *storage.Store, args Args) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	if args.JSON {
		data := make([]SessionData, 0, len(metas))
		for _, m := range metas {
			data = append(data, SessionData{
				ID:           m.ID,
				Title:        m.Title,
				Model:        m.Model,
				MessageCount: m.MessageCount,
				UpdatedAt:    m.UpdatedAt.Format(time.RFC3339),
				Preview:      m.Preview,
			})
		}
		return NewJSONResponse("sessions", data).Print()
	}

	if len(metas) == 0 {
		fmt.Println(DimStyle.Render("保存済みの会話はありません。"))
		return nil
	}

	fmt.Println(TitleStyle.Render("保存済みの会話"))
	fmt.Println(RenderSeparator())
	for i, m := range metas {
		fmt.Printf("%s %s  %s\n",
			HighlightStyle.Render(fmt.Sprintf("%2d.", i+1)),
			m.Title,
			DimStyle.Render(fmt.Sprintf("[%s]", m.ID)))
		fmt.Printf("     %s\n",
			DimStyle.Render(fmt.Sprintf("%s / %d 件 / %s",
				model.DisplayName(m.Model),
				m.MessageCount,
				m.UpdatedAt.Format("2006-01-02 15:04"))))
	}
	fmt.Println(RenderSeparator())
	fmt.Println(DimStyle.Render("jpchat sessions show <番号> で内容を表示できます。"))
	return nil
}

func sessionsShow(store *storage.Store, args Args) error {
	stored, err := resolveStoredConversation(store, args.Query)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("sessions", stored).Print()
	}

	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(stored.Markdown()))
		return nil
	}
	fmt.Print(stored.Markdown())
	return nil
}

func sessionsSearch(store *storage.Store, args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return NewCommandError("sessions", "検索語を指定してください", nil)
	}

	// The SQLite index gives snippets; fall back to a metadata scan if
	// the index cannot be opened.
	if hits, err := searchWithIndex(store, query); err == nil {
		return printSearchHits(hits, query, args)
	}

	metas, err := store.Search(query)
	if err != nil {
		return err
	}
	hits := make([]index.Hit, 0, len(metas))
	for _, m := range metas {
		hits = append(hits, index.Hit{
			ConvID:    m.ID,
			Title:     m.Title,
			Model:     m.Model,
			Snippet:   m.Preview,
			UpdatedAt: m.UpdatedAt,
		})
	}
	return printSearchHits(hits, query, args)
}

// searchWithIndex opens the search index, rebuilding it from the store
// on first use.
func searchWithIndex(store *storage.Store, query string) ([]index.Hit, error) {
	path, err := config.IndexPath()
	if err != nil {
		return nil, err
	}
	idx, err := index.Open(path)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	if convs, _, err := idx.Stats(); err == nil && convs == 0 {
		if err := idx.Rebuild(store); err != nil {
			return nil, err
		}
	}

	return idx.Search(query, 0)
}

func printSearchHits(hits []index.Hit, query string, args Args) error {
	if args.JSON {
		return NewJSONResponse("sessions", hits).Print()
	}

	if len(hits) == 0 {
		fmt.Printf("%s に一致する会話はありません。\n", query)
		return nil
	}

	fmt.Println(TitleStyle.Render(fmt.Sprintf("検索結果: %s", query)))
	fmt.Println(RenderSeparator())
	for _, h := range hits {
		fmt.Printf("%s  %s\n", h.Title, DimStyle.Render(fmt.Sprintf("[%s]", h.ConvID)))
		if h.Snippet != "" {
			fmt.Printf("   %s\n", DimStyle.Render(h.Snippet))
		}
	}
	return nil
}

func sessionsExport(store *storage.Store, args Args) error {
	stored, err := resolveStoredConversation(store, args.Query)
	if err != nil {
		return err
	}

	format := args.Options["format"]
	if format == "" {
		format = "md"
	}

	var content []byte
	var ext string
	switch format {
	case "md", "markdown":
		content = []byte(stored.Markdown())
		ext = "md"
	case "json":
		content, err = json.MarshalIndent(stored, "", "  ")
		if err != nil {
			return err
		}
		ext = "json"
	default:
		return NewCommandError("sessions", "未対応の形式です: "+format+" (md または json)", nil)
	}

	output := args.Options["output"]
	if output == "" {
		output = fmt.Sprintf("jpchat-%s.%s", stored.ID, ext)
	}
	if output == "-" {
		_, err = os.Stdout.Write(content)
		return err
	}

	if err := util.AtomicWriteFile(output, content, 0o644); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("sessions", map[string]string{
			"id":     stored.ID,
			"format": format,
			"path":   output,
		}).Print()
	}
	fmt.Printf("%s %s に書き出しました\n", SuccessStyle.Render("✅"), output)
	return nil
}

func sessionsDelete(store *storage.Store, args Args) error {
	stored, err := resolveStoredConversation(store, args.Query)
	if err != nil {
		return err
	}

	if !args.JSON && CanPrompt() {
		ok := confirmPrompt(fmt.Sprintf("%s を削除しますか？", stored.Title), false)
		if !ok {
			fmt.Println(DimStyle.Render("キャンセルしました。"))
			return nil
		}
	}

	if err := store.Delete(stored.ID); err != nil {
		return err
	}

	// Keep the search index consistent; a missing index is fine.
	if path, err := config.IndexPath(); err == nil {
		if idx, err := index.Open(path); err == nil {
			_ = idx.Remove(stored.ID)
			idx.Close()
		}
	}

	if args.JSON {
		return NewJSONResponse("sessions", map[string]string{"deleted": stored.ID}).Print()
	}
	fmt.Printf("%s 会話を削除しました [%s]\n", SuccessStyle.Render("✅"), stored.ID)
	return nil
}
