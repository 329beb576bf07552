package mcp

import "github.com/mark3labs/mcp-go/mcp"

var processToolDef = mcp.NewTool("vocab_process",
	mcp.WithDescription("Extract, translate and check study material for new English/Japanese flashcards. "+
		"Returns a reviewable result; nothing is stored until vocab_confirm."),
	mcp.WithString("content", mcp.Required(),
		mcp.Description("Text, CSV, HTML or JSON content. Images and XLSX must be base64 with encoding=base64.")),
	mcp.WithString("encoding", mcp.Enum("text", "base64"),
		mcp.Description("Content encoding (default: text)")),
	mcp.WithString("file_type", mcp.Enum("text", "csv", "xlsx", "html", "json", "image"),
		mcp.Description("Material type; detected from mime_type/filename when omitted")),
	mcp.WithString("mime_type", mcp.Description("MIME type of the material, e.g. image/png")),
	mcp.WithString("filename", mcp.Description("Original file name, used for type detection")),
	mcp.WithObject("options",
		mcp.Description("Pipeline switches; each defaults to true"),
		mcp.Properties(map[string]any{
			"autoTranslate":    map[string]any{"type": "boolean"},
			"autoCategorize":   map[string]any{"type": "boolean"},
			"generateHiragana": map[string]any{"type": "boolean"},
			"detectDuplicates": map[string]any{"type": "boolean"},
		})),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithOpenWorldHintAnnotation(true),
)

var confirmToolDef = mcp.NewTool("vocab_confirm",
	mcp.WithDescription("Commit reviewed vocabulary from vocab_process as flashcards. "+
		"Records still needing clarification are skipped."),
	mcp.WithArray("vocabulary", mcp.Required(),
		mcp.Description("The vocabulary array from vocab_process, optionally edited"),
		mcp.Items(map[string]any{"type": "object"})),
	mcp.WithObject("clarification_resolutions",
		mcp.Description("Chosen option per clarification term: {term: {japaneseKanji, hiragana, meaning}}"),
		mcp.AdditionalProperties(map[string]any{"type": "object"})),
	mcp.WithObject("duplicate_actions",
		mcp.Description("Action per English term: keep_both, skip or replace"),
		mcp.AdditionalProperties(map[string]any{
			"type": "string",
			"enum": []string{"keep_both", "skip", "replace"},
		})),
	mcp.WithDestructiveHintAnnotation(true),
)

var detectToolDef = mcp.NewTool("vocab_detect",
	mcp.WithDescription("Detect whether text is English, Japanese, mixed or unknown"),
	mcp.WithString("text", mcp.Required()),
	mcp.WithReadOnlyHintAnnotation(true),
)

var listToolDef = mcp.NewTool("flashcard_list",
	mcp.WithDescription("List stored flashcards, newest first"),
	mcp.WithString("category", mcp.Description("Only cards in this category")),
	mcp.WithNumber("limit", mcp.Description("Max items (default 50, max 500)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var countToolDef = mcp.NewTool("flashcard_count",
	mcp.WithDescription("Count stored flashcards"),
	mcp.WithReadOnlyHintAnnotation(true),
)

var clearToolDef = mcp.NewTool("flashcard_clear",
	mcp.WithDescription("Permanently delete every stored flashcard"),
	mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true")),
	mcp.WithDestructiveHintAnnotation(true),
)

var auditToolDef = mcp.NewTool("flashcard_audit",
	mcp.WithDescription("Find stored flashcards sharing an English front or a Japanese back"),
	mcp.WithReadOnlyHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("flashcard_export",
	mcp.WithDescription("Export stored flashcards to an XLSX workbook"),
	mcp.WithString("path", mcp.Description("Destination .xlsx (default: ~/.tango/exports/<category|all>-<timestamp>.xlsx)")),
	mcp.WithString("category", mcp.Description("Only cards in this category")),
)

var importToolDef = mcp.NewTool("flashcard_import",
	mcp.WithDescription("Bulk-import a JSON array of {english, japaneseKanji, hiragana, category} entries"),
	mcp.WithString("path", mcp.Required(), mcp.Description("Source .json file in an allowed directory")),
	mcp.WithBoolean("force", mcp.Description("Import even when the store is not empty")),
)

var uploadToolDef = mcp.NewTool("flashcard_upload",
	mcp.WithDescription("Store ready-made flashcards without running the pipeline. "+
		"Each card uses front/back or english/japaneseKanji/hiragana."),
	mcp.WithArray("cards", mcp.Required(), mcp.Items(map[string]any{"type": "object"})),
)
