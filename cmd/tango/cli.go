package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/extract"
	"github.com/hpungsan/tango/internal/mcp"
	"github.com/hpungsan/tango/internal/ops"
	"github.com/hpungsan/tango/internal/vocab"
	"github.com/hpungsan/tango/internal/web"
)

// newCLIApp creates the CLI application with all commands.
// deps is nil when only help or version output is needed.
func newCLIApp(deps *runtimeDeps) *cli.App {
	app := &cli.App{
		Name:    "tango",
		Usage:   "English/Japanese vocabulary to flashcards",
		Version: Version,
		Commands: []*cli.Command{
			processCmd(deps),
			confirmCmd(deps),
			detectCmd(),
			listCmd(deps),
			countCmd(deps),
			clearCmd(deps),
			auditCmd(deps),
			exportCmd(deps),
			importCmd(deps),
			uploadCmd(deps),
			serveCmd(deps),
			mcpCmd(deps),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// processCmd creates the process command.
func processCmd(deps *runtimeDeps) *cli.Command {
	return &cli.Command{
		Name:      "process",
		Usage:     "Extract, translate and reconcile vocabulary (reads a file or stdin); nothing is saved",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "File type: text|csv|xlsx|html|json|image (default: detected)"},
			&cli.StringFlag{Name: "mime", Usage: "MIME type of the content (used for detection and image calls)"},
			&cli.BoolFlag{Name: "no-translate", Usage: "Keep extracted terms untranslated"},
			&cli.BoolFlag{Name: "no-categorize", Usage: "Skip categorization"},
			&cli.BoolFlag{Name: "no-hiragana", Usage: "Skip reading generation"},
			&cli.BoolFlag{Name: "no-duplicates", Usage: "Skip the duplicate check against the store"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ProcessInput{
				FileType: extract.FileType(strings.ToLower(c.String("type"))),
				MimeType: c.String("mime"),
				Options: &vocab.UploadOptions{
					AutoTranslate:    !c.Bool("no-translate"),
					AutoCategorize:   !c.Bool("no-categorize"),
					GenerateHiragana: !c.Bool("no-hiragana"),
					DetectDuplicates: !c.Bool("no-duplicates"),
				},
			}

			if c.NArg() > 0 {
				path := c.Args().First()
				data, err := os.ReadFile(path)
				if err != nil {
					if os.IsNotExist(err) {
						return outputError(errors.NewFileNotFound(path))
					}
					return outputError(errors.NewInternal(err))
				}
				input.Content = data
				input.Filename = filepath.Base(path)
			} else {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("content must be a file argument or piped via stdin"))
				}
				data, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				input.Content = data
				if input.FileType == "" && input.MimeType == "" {
					input.FileType = extract.FileText
				}
			}

			result, err := deps.pipeline.Process(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(result)
		},
	}
}

// confirmCmd creates the confirm command.
func confirmCmd(deps *runtimeDeps) *cli.Command {
	return &cli.Command{
		Name:  "confirm",
		Usage: "Commit reviewed vocabulary (reads {vocabulary, clarificationResolutions, duplicateActions} from --file or stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "JSON file with the reviewed result"},
		},
		Action: func(c *cli.Context) error {
			data, err := readInput(c.String("file"))
			if err != nil {
				return outputError(err)
			}

			var input ops.ConfirmInput
			if err := json.Unmarshal(data, &input); err != nil {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid confirm payload: %v", err)))
			}
			if input.Vocabulary == nil {
				return outputError(errors.NewInvalidRequest("vocabulary is required"))
			}

			output, err := deps.pipeline.Confirm(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// detectCmd creates the detect command. It needs no store.
func detectCmd() *cli.Command {
	return &cli.Command{
		Name:      "detect",
		Usage:     "Classify text as en, ja, mixed or unknown",
		ArgsUsage: "[text]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "fast", Usage: "Use the short-cell heuristic (2-letter Latin runs)"},
		},
		Action: func(c *cli.Context) error {
			text := strings.Join(c.Args().Slice(), " ")
			if text == "" && stdinHasData() {
				data, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" {
				return outputError(errors.NewInvalidRequest("text is required"))
			}

			detect := extract.Detect
			if c.Bool("fast") {
				detect = extract.DetectFast
			}
			return outputJSON(map[string]any{"language": detect(text)})
		},
	}
}

// listCmd creates the list command.
func listCmd(deps *runtimeDeps) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored flashcards, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Filter by category"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, deps.pipeline.Store(), ops.ListInput{
				Category: c.String("category"),
				Limit:    c.Int("limit"),
				Offset:   c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// countCmd creates the count command.
func countCmd(deps *runtimeDeps) *cli.Command {
	return &cli.Command{
		Name:  "count",
		Usage: "Count stored flashcards",
		Action: func(c *cli.Context) error {
			output, err := ops.Count(c.Context, deps.pipeline.Store())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(deps *runtimeDeps) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete every stored flashcard",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm deletion"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return outputError(errors.NewInvalidRequest("clear deletes every flashcard; pass --yes to confirm"))
			}
			output, err := ops.Clear(c.Context, deps.pipeline.Store())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// auditCmd creates the audit command.
func auditCmd(deps *runtimeDeps) *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Report stored flashcards sharing a front or a Japanese side",
		Action: func(c *cli.Context) error {
			output, err := ops.Audit(c.Context, deps.pipeline.Store())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(deps *runtimeDeps) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export flashcards to an XLSX workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output path (default: ~/.tango/exports/<category|all>-<timestamp>.xlsx)"},
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Export only this category"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, deps.pipeline.Store(), deps.cfg, ops.ExportInput{
				Path:     c.String("path"),
				Category: c.String("category"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(deps *runtimeDeps) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Bulk-load a JSON vocabulary list ({english, japaneseKanji, hiragana, category} objects)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "JSON file path"},
			&cli.BoolFlag{Name: "force", Usage: "Import into a non-empty store, skipping stored duplicates"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, deps.pipeline.Store(), deps.cfg, ops.ImportInput{
				Path:  c.String("path"),
				Force: c.Bool("force"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// uploadCmd creates the upload command.
func uploadCmd(deps *runtimeDeps) *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "Store ready-made cards from a JSON array (reads --file or stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "JSON file with the cards"},
		},
		Action: func(c *cli.Context) error {
			data, err := readInput(c.String("file"))
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Upload(c.Context, deps.pipeline.Store(), data)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(deps *runtimeDeps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and review pages",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 3000, Usage: "Port"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(deps.pipeline, deps.cfg, deps.metrics, deps.log, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(srv, deps.log); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// mcpCmd creates the mcp command. Running without a subcommand on piped
// stdin does the same.
func mcpCmd(deps *runtimeDeps) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			if err := mcp.Run(deps.pipeline, deps.cfg, deps.log, Version); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if tErr := errors.As(err); tErr != nil {
		msg := fmt.Sprintf("[%s] %s", tErr.Code, tErr.Message)
		if tErr.Code != errors.ErrInternal {
			if extra := detailsSuffix(tErr.Details); extra != "" {
				msg += " " + extra
			}
		}
		return cli.Exit(msg, 1)
	}
	return cli.Exit(err.Error(), 1)
}

// detailsSuffix renders error details as compact JSON.
func detailsSuffix(details map[string]any) string {
	if len(details) == 0 {
		return ""
	}
	data, err := json.Marshal(details)
	if err != nil {
		return ""
	}
	return string(data)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}

// readInput reads path, or stdin when path is empty.
func readInput(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewFileNotFound(path)
			}
			return nil, errors.NewInternal(err)
		}
		return data, nil
	}
	if !stdinHasData() {
		return nil, errors.NewInvalidRequest("input must be given with --file or piped via stdin")
	}
	data, err := readStdin()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewInvalidRequest("input is empty")
	}
	return data, nil
}
