package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bradboard/internal/app"
	"bradboard/internal/config"
	"bradboard/internal/domain"
	"bradboard/internal/export"
	"bradboard/internal/logging"
	"bradboard/internal/mcpserver"
	"bradboard/internal/repo"
	"bradboard/internal/server"
	"bradboard/internal/smartcreate"
)

var rootCmd = &cobra.Command{
	Use:   "bradboard",
	Short: "BradBoard project board",
	Long: `BradBoard keeps projects and their tickets, and can turn a paragraph of
free text into both through an LLM.
- Project: a titled container of work.
- Ticket: a work item in exactly one project, with status (open, in progress, done)
  and priority (1 low, 2 medium, 3 high).
- Smart create: describe the work in plain language; the model proposes
  create_project / create_ticket calls and they are applied in one transaction.
- Event log: every change is recorded, view it with 'bradboard log tail'.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("BRADBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory holding the database and bradboard.yml")
	flags.String("config", "", "config file (default <workspace>/bradboard.yml)")
	flags.Bool("json", false, "output JSON")
	flags.String("actor-id", "local-user", "actor identifier recorded on writes")
	flags.String("actor-name", "", "actor display name (defaults to the actor id)")
	flags.String("log-level", "", "log level override (debug, info, warn, error)")
	_ = viper.BindPFlag("database.workspace", flags.Lookup("workspace"))
	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("json", flags.Lookup("json"))
	_ = viper.BindPFlag("actor-id", flags.Lookup("actor-id"))
	_ = viper.BindPFlag("actor-name", flags.Lookup("actor-name"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(ticketCmd())
	rootCmd.AddCommand(smartCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				cfg := a.Config
				if addr == "" {
					addr = cfg.Server.Addr
				}
				handler, err := server.New(server.Config{
					Engine:      a.Engine,
					SmartCreate: a.SmartCreate,
					BasePath:    cfg.Server.BasePath,
					CORSOrigins: cfg.Server.CORSOrigins,
					Auth: server.AuthConfig{
						Authenticator: a.Authenticator,
						Provider:      a.Provider,
						JWTSecret:     cfg.Identity.JWTSecret,
						DevLogin:      cfg.Identity.DevLogin,
					},
					Logger: a.Logger.Named("http"),
				})
				if err != nil {
					return err
				}
				if a.Authenticator == nil {
					a.Logger.Warn("no identity configured: every authenticated route will answer 401")
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					a.Logger.Info("serving", zap.String("addr", addr), zap.String("base_path", cfg.Server.BasePath))
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
				fmt.Fprintf(os.Stderr, "Serving BradBoard API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n",
					addr, cfg.Server.BasePath, cfg.Server.BasePath)
				return g.Wait()
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve Model Context Protocol over stdio",
		Long:  "Exposes create_project, create_ticket, smart_create, list_projects and list_tickets to an MCP client. Writes are attributed to --actor-id.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actor, err := ensureActor(ctx, a)
				if err != nil {
					return err
				}
				srv, err := mcpserver.New(a.Engine, a.SmartCreate, actor, a.Logger.Named("mcp"))
				if err != nil {
					return err
				}
				return srv.Run(ctx)
			})
		},
	}
	return cmd
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUpdateCmd())
	prj.AddCommand(projectDeleteCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, total, err := a.Engine.ListProjects(ctx, page, size)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"projects": items, "total": total})
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Title", "Created By", "Created At"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Title, p.CreatedByName, p.CreatedAt})
				}
				tw.AppendFooter(table.Row{"", "", "Total", total})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 50, "page size (max 100)")
	return cmd
}

func projectCreateCmd() *cobra.Command {
	var in domain.ProjectCreate
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actor, err := ensureActor(ctx, a)
				if err != nil {
					return err
				}
				p, err := a.Engine.CreateProject(ctx, in, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "project title")
	cmd.Flags().StringVar(&in.Description, "description", "", "project description")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p, err := a.Engine.GetProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func projectUpdateCmd() *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd domain.ProjectUpdate
			if cmd.Flags().Changed("title") {
				upd.Title = &title
			}
			if cmd.Flags().Changed("description") {
				upd.Description = &description
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actor, err := ensureActor(ctx, a)
				if err != nil {
					return err
				}
				p, err := a.Engine.UpdateProject(ctx, args[0], upd, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and its tickets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actor, err := ensureActor(ctx, a)
				if err != nil {
					return err
				}
				if err := a.Engine.DeleteProject(ctx, args[0], actor); err != nil {
					return err
				}
				return printMessage("Project deleted successfully")
			})
		},
	}
	return cmd
}

func ticketCmd() *cobra.Command {
	t := &cobra.Command{Use: "ticket", Short: "Manage tickets"}
	t.AddCommand(ticketListCmd())
	t.AddCommand(ticketCreateCmd())
	t.AddCommand(ticketShowCmd())
	t.AddCommand(ticketUpdateCmd())
	t.AddCommand(ticketDeleteCmd())
	return t
}

// ticketFilterFlags binds the shared list/export filters onto cmd.
type ticketFilterFlags struct {
	projectIDs []string
	statuses   []string
	priorities []int
	assignees  []string
	creators   []string
	search     string
}

func (f *ticketFilterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.projectIDs, "project", nil, "project id filter (repeatable)")
	cmd.Flags().StringSliceVar(&f.statuses, "status", nil, "status filter (repeatable)")
	cmd.Flags().IntSliceVar(&f.priorities, "priority", nil, "priority filter 1-3 (repeatable)")
	cmd.Flags().StringSliceVar(&f.assignees, "assigned-to", nil, "assignee id filter (repeatable)")
	cmd.Flags().StringSliceVar(&f.creators, "created-by", nil, "creator id filter (repeatable)")
	cmd.Flags().StringVar(&f.search, "search", "", "match title or description")
}

func (f *ticketFilterFlags) filters() repo.TicketFilters {
	out := repo.TicketFilters{
		ProjectIDs:    f.projectIDs,
		AssignedToIDs: f.assignees,
		CreatedByIDs:  f.creators,
		Search:        strings.TrimSpace(f.search),
	}
	for _, s := range f.statuses {
		out.Statuses = append(out.Statuses, domain.Status(s))
	}
	for _, p := range f.priorities {
		out.Priorities = append(out.Priorities, domain.Priority(p))
	}
	return out
}

func ticketListCmd() *cobra.Command {
	var ff ticketFilterFlags
	var page, size int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := ff.filters()
			f.Page, f.Size = page, size
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, total, err := a.Engine.ListTickets(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"tickets": items, "total": total})
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Title", "Project", "Status", "Priority", "Assignee"})
				for _, t := range items {
					assignee := ""
					if t.AssignedToName != nil {
						assignee = *t.AssignedToName
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.ProjectTitle, t.Status, t.Priority.Name(), assignee})
				}
				tw.AppendFooter(table.Row{"", "", "", "", "Total", total})
				tw.Render()
				return nil
			})
		},
	}
	ff.bind(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", 50, "page size (max 100)")
	return cmd
}

func ticketCreateCmd() *cobra.Command {
	var in domain.TicketCreate
	var status string
	var priority int
	var assigneeID, assigneeName string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Status = domain.Status(status)
			in.Priority = domain.Priority(priority)
			if cmd.Flags().Changed("assignee-id") {
				in.AssignedToID = &assigneeID
			}
			if cmd.Flags().Changed("assignee-name") {
				in.AssignedToName = &assigneeName
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actor, err := ensureActor(ctx, a)
				if err != nil {
					return err
				}
				t, err := a.Engine.CreateTicket(ctx, in, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "ticket title")
	cmd.Flags().StringVar(&in.Description, "description", "", "ticket description")
	cmd.Flags().StringVar(&in.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&status, "status", "", "status (open, in progress, done; default open)")
	cmd.Flags().IntVar(&priority, "priority", 0, "priority 1-3 (default 2)")
	cmd.Flags().StringVar(&assigneeID, "assignee-id", "", "assignee user id")
	cmd.Flags().StringVar(&assigneeName, "assignee-name", "", "assignee display name")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func ticketShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				t, err := a.Engine.GetTicket(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func ticketUpdateCmd() *cobra.Command {
	var title, description, projectID, status, assigneeID, assigneeName string
	var priority int
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd domain.TicketUpdate
			flags := cmd.Flags()
			if flags.Changed("title") {
				upd.Title = &title
			}
			if flags.Changed("description") {
				upd.Description = &description
			}
			if flags.Changed("project") {
				upd.ProjectID = &projectID
			}
			if flags.Changed("status") {
				st := domain.Status(status)
				upd.Status = &st
			}
			if flags.Changed("priority") {
				p := domain.Priority(priority)
				upd.Priority = &p
			}
			if flags.Changed("assignee-id") {
				upd.AssignedToID = &assigneeID
			}
			if flags.Changed("assignee-name") {
				upd.AssignedToName = &assigneeName
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actor, err := ensureActor(ctx, a)
				if err != nil {
					return err
				}
				t, err := a.Engine.UpdateTicket(ctx, args[0], upd, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&projectID, "project", "", "move to project id")
	cmd.Flags().StringVar(&status, "status", "", "status (open, in progress, done)")
	cmd.Flags().IntVar(&priority, "priority", 0, "priority 1-3")
	cmd.Flags().StringVar(&assigneeID, "assignee-id", "", "assignee user id (empty clears)")
	cmd.Flags().StringVar(&assigneeName, "assignee-name", "", "assignee display name (empty clears)")
	return cmd
}

func ticketDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actor, err := ensureActor(ctx, a)
				if err != nil {
					return err
				}
				if err := a.Engine.DeleteTicket(ctx, args[0], actor); err != nil {
					return err
				}
				return printMessage("Ticket deleted successfully")
			})
		},
	}
	return cmd
}

func smartCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "smart <text>",
		Short: "Create projects and tickets from free text",
		Long:  "Sends the text to the configured model and applies the proposed create_project / create_ticket calls in one transaction. Pass '-' to read the text from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := args[0]
			if text == "-" {
				b, err := readAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = b
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				actor, err := ensureActor(ctx, a)
				if err != nil {
					return err
				}
				res, err := a.SmartCreate.ProcessText(ctx, smartcreate.Request{Text: text, HintProjectID: projectID, Actor: actor})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Println(res.Message)
				tw := newTable()
				tw.AppendHeader(table.Row{"Kind", "ID", "Title", "Project"})
				for _, p := range res.CreatedProjects {
					tw.AppendRow(table.Row{"project", p.ID, p.Title, ""})
				}
				for _, t := range res.CreatedTickets {
					tw.AppendRow(table.Row{"ticket", t.ID, t.Title, t.ProjectID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "existing project to prefer for new tickets")
	return cmd
}

func exportCmd() *cobra.Command {
	exp := &cobra.Command{Use: "export", Short: "Export data"}
	var ff ticketFilterFlags
	var out string
	csvCmd := &cobra.Command{
		Use:   "csv",
		Short: "Export tickets as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.ExportTickets(ctx, ff.filters())
				if err != nil {
					return err
				}
				if out == "-" {
					return export.TicketsCSV(os.Stdout, items)
				}
				if out == "" {
					out = export.TicketsFilename
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := export.TicketsCSV(f, items); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "wrote %d tickets to %s\n", len(items), out)
				return nil
			})
		},
	}
	ff.bind(csvCmd)
	csvCmd.Flags().StringVarP(&out, "out", "o", "", "output file, '-' for stdout (default "+export.TicketsFilename+")")
	exp.AddCommand(csvCmd)
	return exp
}

func userCmd() *cobra.Command {
	u := &cobra.Command{Use: "user", Short: "Inspect users"}
	u.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List known users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				users, err := a.Engine.ListUsers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Name", "Email"})
				for _, usr := range users {
					tw.AppendRow(table.Row{usr.ID, usr.Name, usr.Email})
				}
				tw.Render()
				return nil
			})
		},
	})
	return u
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Event log"}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var projectID, evtType string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				events, err := a.Engine.Repo.LatestEvents(ctx, n, projectID, evtType)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Time", "Type", "Entity", "Actor"})
				for _, ev := range events {
					entity := ev.EntityKind
					if ev.EntityID != nil {
						entity += " " + *ev.EntityID
					}
					tw.AppendRow(table.Row{ev.ID, ev.TS, ev.Type, entity, ev.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&projectID, "project", "", "project id filter")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config lives in <workspace>/bradboard.yml. BRADBOARD_* environment variables (e.g. BRADBOARD_LLM_API_KEY) and <workspace>/.env override it.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default bradboard.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			masked := *cfg
			masked.LLM.APIKey = mask(masked.LLM.APIKey)
			masked.Identity.AnonKey = mask(masked.Identity.AnonKey)
			masked.Identity.JWTSecret = mask(masked.Identity.JWTSecret)
			return printJSONOrTable(masked)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := loadConfig()
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

// --- helpers ---

func configPath() string {
	if p := viper.GetString("config"); p != "" {
		return p
	}
	return config.Path(viper.GetString("database.workspace"))
}

func loadConfig() (*config.Config, error) {
	workspace := viper.GetString("database.workspace")
	if err := config.LoadDotEnv(filepath.Join(workspace, ".env")); err != nil {
		return nil, err
	}
	return config.Load(configPath(), viper.GetViper())
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// ensureActor records the CLI actor as a user so its writes resolve like any
// signed-in user's.
func ensureActor(ctx context.Context, a *app.App) (domain.Actor, error) {
	actor := domain.Actor{
		ID:   strings.TrimSpace(viper.GetString("actor-id")),
		Name: strings.TrimSpace(viper.GetString("actor-name")),
	}
	if actor.ID == "" {
		return actor, errors.New("--actor-id is required")
	}
	if actor.Name == "" {
		actor.Name = actor.ID
	}
	if err := a.Engine.EnsureUser(ctx, domain.User{ID: actor.ID, Name: actor.Name}); err != nil {
		return actor, err
	}
	return actor, nil
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	return tw
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printMessage(msg string) error {
	if viper.GetBool("json") {
		return printJSON(map[string]string{"message": msg})
	}
	fmt.Println(msg)
	return nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func readAll(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}
