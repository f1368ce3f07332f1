package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"inkwell/app/config"
	"inkwell/app/dbtool"
	"inkwell/app/mail"
	"inkwell/app/models"
	"inkwell/app/ratelimit"
	"inkwell/app/repositories"
	"inkwell/app/routes"
	"inkwell/app/seed"
	"inkwell/app/services"
	"inkwell/app/telemetry"
	"inkwell/app/views"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/acme/autocert"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

var exit = os.Exit

func main() {
	exit(RealMain(os.Args[1:], os.Stdin, os.Stdout))
}

// RealMain runs the CLI with args and returns the process exit code.
func RealMain(args []string, in io.Reader, out io.Writer) int {
	root := newRootCmd(in, out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "inkwell",
		Short:         "A small publishing blog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)

	root.AddCommand(
		newServeCmd(),
		newMailerCmd(),
		newDBCmd(in, out),
		newSeedCmd(),
		newPostCmd(in, out),
		newCommentCmd(out),
		newTagCmd(out),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(out, "inkwell version %s\n", version)
			},
		},
	)
	return root
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the blog web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides ADDR)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	transport, closeTransport, err := newTransport(cfg)
	if err != nil {
		return err
	}
	defer closeTransport()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	renderer, err := views.Load()
	if err != nil {
		return err
	}
	metrics := telemetry.NewMetrics()

	deps := routes.Deps{
		Store:      store,
		Transport:  transport,
		Renderer:   renderer,
		Metrics:    metrics,
		BaseURL:    cfg.BaseURL,
		MailFrom:   cfg.MailFrom,
		RateLimit:  cfg.RateLimit,
		RateWindow: cfg.RateWindow,
		TrustProxy: cfg.TrustProxy,
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		deps.Limiter = ratelimit.New(rdb, metrics)
		log.Printf("Rate limiting submissions to %d per %s", cfg.RateLimit, cfg.RateWindow)
	}

	srv := routes.NewServer(cfg.Addr, routes.NewRouter(deps))
	listen := srv.ListenAndServe
	if cfg.AutocertDomain != "" {
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.AutocertDomain),
			Cache:      autocert.DirCache(cfg.AutocertCache),
		}
		srv.Addr = ":https"
		srv.TLSConfig = &tls.Config{GetCertificate: m.GetCertificate, MinVersion: tls.VersionTLS12}
		go func() {
			if err := http.ListenAndServe(":http", m.HTTPHandler(nil)); err != nil {
				log.Printf("ACME challenge server: %v", err)
			}
		}()
		listen = func() error { return srv.ListenAndServeTLS("", "") }
		log.Printf("Serving %s with certificates from Let's Encrypt", cfg.AutocertDomain)
	}

	log.Printf("Starting inkwell on %s (store=%s, mail=%s)", srv.Addr, cfg.StoreDriver, cfg.MailTransport)
	return runServer(ctx, srv, listen)
}

// runServer runs listen until it fails or ctx is cancelled, then shuts the
// server down gracefully.
func runServer(ctx context.Context, srv *http.Server, listen func() error) error {
	errCh := make(chan error, 1)
	go func() { errCh <- listen() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openStore(cfg *config.Config) (*repositories.Store, error) {
	if cfg.StoreDriver == config.DriverPostgres {
		return repositories.OpenPostgres(cfg.DatabaseURL, cfg.AutoMigrate)
	}
	return repositories.OpenBadger(cfg.BadgerPath)
}

func newTransport(cfg *config.Config) (mail.Transport, func() error, error) {
	noop := func() error { return nil }
	switch cfg.MailTransport {
	case config.MailSMTP:
		return mail.NewSMTPTransport(cfg.SMTP), noop, nil
	case config.MailKafka:
		t := mail.NewOutboxTransport(mail.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		return t, t.Close, nil
	case config.MailConsole:
		return mail.NewConsoleTransport(os.Stdout), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown mail transport %q", cfg.MailTransport)
	}
}

func newMailerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mailer",
		Short: "Deliver queued e-mails from the Kafka outbox over SMTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reader := mail.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic)
			return mail.NewConsumer(reader, mail.NewSMTPTransport(cfg.SMTP)).Run(ctx)
		},
	}
}

func newDBCmd(in io.Reader, out io.Writer) *cobra.Command {
	var backupDir string
	tool := func() (*dbtool.Tool, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		if cfg.StoreDriver != config.DriverBadger {
			return nil, fmt.Errorf("db commands manage the badger store, STORE_DRIVER is %s", cfg.StoreDriver)
		}
		return dbtool.New(cfg.BadgerPath, backupDir, in, out), nil
	}

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Maintain the badger database",
	}
	cmd.PersistentFlags().StringVar(&backupDir, "backup-dir", "data/backups", "directory for backups")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Initialize a new empty database",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				t, err := tool()
				if err != nil {
					return err
				}
				return t.Init()
			},
		},
		&cobra.Command{
			Use:   "clean",
			Short: "Delete the database",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				t, err := tool()
				if err != nil {
					return err
				}
				return t.Clean()
			},
		},
		&cobra.Command{
			Use:   "backup",
			Short: "Create a backup of the database",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				t, err := tool()
				if err != nil {
					return err
				}
				_, err = t.Backup()
				return err
			},
		},
		&cobra.Command{
			Use:   "restore <file>",
			Short: "Restore the database from a backup",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				t, err := tool()
				if err != nil {
					return err
				}
				return t.Restore(args[0])
			},
		},
	)
	return cmd
}

func newSeedCmd() *cobra.Command {
	var opts seed.Options
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the store with fake posts and comments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *repositories.Store) error {
				_, err := seed.New(store).Run(opts)
				return err
			})
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.Posts, "posts", 20, "number of posts")
	f.IntVar(&opts.Tags, "tags", 8, "size of the tag pool")
	f.IntVar(&opts.CommentsPerPost, "comments", 4, "maximum comments per post")
	f.Int64Var(&opts.Seed, "seed", 0, "random seed, 0 for a random one")
	return cmd
}

// postFlags holds the parsed flags for post add.
type postFlags struct {
	title   string
	slug    string
	body    string
	author  string
	status  string
	publish string
	tags    string
}

func newPostCmd(in io.Reader, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Author posts",
	}

	var flags postFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			np, err := flags.newPost(in)
			if err != nil {
				return err
			}
			return withStore(func(store *repositories.Store) error {
				return addPost(services.NewPostService(store), np, out)
			})
		},
	}
	f := add.Flags()
	f.StringVar(&flags.title, "title", "", "post title")
	f.StringVar(&flags.slug, "slug", "", "URL slug, derived from the title when empty")
	f.StringVar(&flags.body, "body", "", "post body in markdown, - reads stdin")
	f.StringVar(&flags.author, "author", "admin", "author username")
	f.StringVar(&flags.status, "status", string(models.StatusDraft), "draft or published")
	f.StringVar(&flags.publish, "publish", "", "publish time, RFC 3339 or YYYY-MM-DD (default now)")
	f.StringVar(&flags.tags, "tags", "", "comma separated tag names")
	_ = add.MarkFlagRequired("title")
	_ = add.MarkFlagRequired("body")

	status := &cobra.Command{
		Use:   "status <id> <draft|published>",
		Short: "Publish or withdraw a post",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(func(store *repositories.Store) error {
				p, err := services.NewPostService(store).SetStatus(id, models.Status(args[1]))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Post %d is now %s\n", p.ID, p.Status)
				return nil
			})
		},
	}

	cmd.AddCommand(add, status)
	return cmd
}

// newCommentCmd moderates comments: hidden comments stay stored but are no
// longer shown or counted.
func newCommentCmd(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Moderate comments",
	}
	for _, action := range []struct {
		name   string
		short  string
		active bool
	}{
		{"show", "Show a hidden comment", true},
		{"hide", "Hide a comment", false},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   action.name + " <id>",
			Short: action.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withStore(func(store *repositories.Store) error {
					c, err := services.NewCommentService(store).SetActive(id, action.active)
					if err != nil {
						return err
					}
					state := "hidden"
					if c.Active {
						state = "shown"
					}
					fmt.Fprintf(out, "Comment %d on post %d is now %s\n", c.ID, c.PostID, state)
					return nil
				})
			},
		})
	}
	return cmd
}

func newTagCmd(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Inspect tags",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *repositories.Store) error {
				tags, err := services.NewPostService(store).Tags()
				if err != nil {
					return err
				}
				if len(tags) == 0 {
					fmt.Fprintln(out, "No tags yet.")
					return nil
				}
				for _, t := range tags {
					fmt.Fprintf(out, "%s\t%s\n", t.Slug, t.Name)
				}
				return nil
			})
		},
	})
	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(fn func(*repositories.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// newPost converts the flags into authoring input. A body of "-" is read
// from stdin.
func (f postFlags) newPost(stdin io.Reader) (services.NewPost, error) {
	in := services.NewPost{
		Title:  f.title,
		Slug:   f.slug,
		Body:   f.body,
		Author: f.author,
		Status: models.Status(f.status),
	}
	if f.body == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return in, fmt.Errorf("read body: %w", err)
		}
		in.Body = string(b)
	}
	if f.publish != "" {
		t, err := parsePublish(f.publish)
		if err != nil {
			return in, err
		}
		in.Publish = t
	}
	for _, name := range strings.Split(f.tags, ",") {
		if name = strings.TrimSpace(name); name != "" {
			in.Tags = append(in.Tags, name)
		}
	}
	return in, nil
}

func parsePublish(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid publish time %q", s)
	}
	return t, nil
}

func addPost(posts *services.PostService, in services.NewPost, out io.Writer) error {
	p, err := posts.CreatePost(in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Created post %d at %s (%s)\n", p.ID, p.AbsoluteURL(), p.Status)
	return nil
}
