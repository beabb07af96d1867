package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/hpungsan/feedq/internal/errors"
	"github.com/hpungsan/feedq/internal/ops"
	"github.com/hpungsan/feedq/internal/web"
)

// maxStdinBytes bounds activity and object JSON read from stdin.
const maxStdinBytes = 1 << 20

// feedFlags address a feed; every feed command takes them.
func feedFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "group", Aliases: []string{"g"}, Required: true, Usage: "Feed group (e.g. user, timeline)"},
		&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Required: true, Usage: "Feed user id"},
	}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(deps ops.Deps) *cli.App {
	app := &cli.App{
		Name:    "feedq",
		Usage:   "Query and manage activity feeds",
		Version: Version,
		Commands: []*cli.Command{
			listCmd(deps),
			addCmd(deps),
			updateCmd(deps),
			removeCmd(deps),
			objectCmd(deps),
			kindCmd(deps),
			serveCmd(deps),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// listCmd creates the list command.
func listCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Read one page of a feed",
		Flags: append(feedFlags(),
			&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Usage: "1-based page number"},
			&cli.IntFlag{Name: "per", Usage: "Page size (defaults to default_page_size)"},
			&cli.StringFlag{Name: "id-lt", Usage: "Return the page of ids below this cursor"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Max results when not paging"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Results to skip when not paging"},
			&cli.StringSliceFlag{Name: "includes", Aliases: []string{"i"}, Usage: "Fields to enrich (actor, object, target)"},
			&cli.Int64SliceFlag{Name: "blocked", Usage: "User ids whose activities are hidden"},
			&cli.BoolFlag{Name: "sfw", Usage: "Request safe-for-work results"},
			&cli.StringFlag{Name: "ranking", Usage: "Ranking name (time)"},
			&cli.BoolFlag{Name: "mark-read-all", Usage: "Mark every group read (notification feeds)"},
			&cli.StringSliceFlag{Name: "mark-read", Usage: "Group ids to mark read"},
			&cli.BoolFlag{Name: "mark-seen-all", Usage: "Mark every group seen (notification feeds)"},
			&cli.StringSliceFlag{Name: "mark-seen", Usage: "Group ids to mark seen"},
			&cli.BoolFlag{Name: "markdown", Usage: "Add message_html rendered from message"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "Output format: json|yaml"},
		),
		Action: func(c *cli.Context) error {
			input := ops.ListFeedInput{
				Group:       c.String("group"),
				User:        c.String("user"),
				Page:        c.Int("page"),
				Per:         c.Int("per"),
				IDLT:        c.String("id-lt"),
				Limit:       c.Int("limit"),
				Offset:      c.Int("offset"),
				Includes:    c.StringSlice("includes"),
				Blocked:     c.Int64Slice("blocked"),
				SFW:         c.Bool("sfw"),
				Ranking:     c.String("ranking"),
				MarkReadAll: c.Bool("mark-read-all"),
				MarkRead:    c.StringSlice("mark-read"),
				MarkSeenAll: c.Bool("mark-seen-all"),
				MarkSeen:    c.StringSlice("mark-seen"),
			}
			if c.Bool("markdown") {
				input.Render = ops.RenderMarkdown
			}

			format := c.String("format")
			if format != "json" && format != "yaml" {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("unknown format %q (want json or yaml)", format)))
			}

			output, err := ops.ListFeed(c.Context, deps, input)
			if err != nil {
				return outputError(err)
			}

			if format == "yaml" {
				return outputYAML(output)
			}
			return outputJSON(output)
		},
	}
}

// addCmd creates the add command.
func addCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add an activity to a feed (reads activity JSON from stdin)",
		Flags: feedFlags(),
		Action: func(c *cli.Context) error {
			fields, err := readActivity()
			if err != nil {
				return outputError(err)
			}

			output, err := ops.AddActivity(c.Context, deps, ops.AddActivityInput{
				Group:    c.String("group"),
				User:     c.String("user"),
				Activity: fields,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// updateCmd creates the update command.
func updateCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Update an activity by foreign_id and time (reads activity JSON from stdin)",
		Flags: feedFlags(),
		Action: func(c *cli.Context) error {
			fields, err := readActivity()
			if err != nil {
				return outputError(err)
			}

			output, err := ops.UpdateActivity(c.Context, deps, ops.UpdateActivityInput{
				Group:    c.String("group"),
				User:     c.String("user"),
				Activity: fields,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// removeCmd creates the remove command.
func removeCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Remove an activity from a feed by foreign id",
		ArgsUsage: "<foreign_id>",
		Flags:     feedFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one foreign_id is required"))
			}

			output, err := ops.RemoveActivity(c.Context, deps, ops.RemoveActivityInput{
				Group:     c.String("group"),
				User:      c.String("user"),
				ForeignID: c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// objectCmd creates the object command.
func objectCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "object",
		Usage:     "Store the object a reference enriches to (reads object JSON from stdin)",
		ArgsUsage: "<type:id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one reference is required"))
			}

			var data map[string]any
			if stdinHasData() {
				text, err := readStdin(maxStdinBytes)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				if text != "" {
					if err := json.Unmarshal([]byte(text), &data); err != nil {
						return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid object JSON: %v", err)))
					}
				}
			}

			output, err := ops.PutObject(c.Context, deps, ops.PutObjectInput{
				Ref:  c.Args().First(),
				Data: data,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// kindCmd creates the kind command.
func kindCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "kind",
		Usage:     "Set how a feed groups its activities",
		ArgsUsage: "<flat|aggregated|notification>",
		Flags:     feedFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one kind is required"))
			}

			output, err := ops.SetFeedKind(c.Context, deps, ops.SetFeedKindInput{
				Group: c.String("group"),
				User:  c.String("user"),
				Kind:  c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(deps ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON API and /metrics over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to bind (overrides http_bind)"},
			&cli.IntFlag{Name: "port", Usage: "Port to listen on (overrides http_port)"},
		},
		Action: func(c *cli.Context) error {
			if deps.Config != nil {
				cfg := *deps.Config
				if c.IsSet("bind") {
					cfg.HTTPBind = c.String("bind")
				}
				if c.IsSet("port") {
					cfg.HTTPPort = c.Int("port")
				}
				deps.Config = &cfg
			}

			srv := web.NewServer(deps, Version)
			if err := web.Run(srv, deps.Logger); err != nil {
				return outputError(errors.NewInternal(err))
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

// outputYAML writes v to stdout as YAML. Values go through their JSON form
// first so custom marshalers and json tags shape the output.
func outputYAML(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// outputError formats error for CLI.
func outputError(err error) error {
	if fErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", fErr.Code, fErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// readActivity reads a JSON activity object from stdin.
func readActivity() (map[string]any, error) {
	if !stdinHasData() {
		return nil, errors.NewInvalidRequest("activity JSON must be piped via stdin")
	}
	text, err := readStdin(maxStdinBytes)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	if text == "" {
		return nil, errors.NewInvalidRequest("activity JSON is required")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid activity JSON: %v", err))
	}
	return fields, nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}
