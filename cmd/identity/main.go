// Command identity is a CLI client for the user identity subsystem: it wires
// the remote record service, the local cache and the session controller the
// same way the portal application does.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gamehub/identity/internal/config"
	"github.com/gamehub/identity/internal/credential"
	"github.com/gamehub/identity/internal/errs"
	"github.com/gamehub/identity/internal/model"
	"github.com/gamehub/identity/internal/record/fallback"
	"github.com/gamehub/identity/internal/record/local"
	"github.com/gamehub/identity/internal/record/remote"
	"github.com/gamehub/identity/internal/reconcile"
	"github.com/gamehub/identity/internal/service"
	"github.com/gamehub/identity/internal/session"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: identity <command> [flags]

commands:
  whoami                      show the current session
  login    -u USER -p PASS    sign in
  logout                      sign out
  guest                       start a guest session
  promote  -u USER -p PASS    convert the current guest into a regular account
  register -u USER -p PASS [-email E] [-tier T]
  list                        list accounts (admin view)
  stats                       account statistics
  rm       -id ID             delete an account
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg := config.Load()
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if cfg.SessionSignKey == "" {
		fmt.Fprintln(os.Stderr, "IDENTITY_SESSION_KEY is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users, cleanup, err := build(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := run(ctx, users, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// build assembles the full stack: remote-first record store with local-cache
// fallback, one-time legacy import, durable session pointer, facade.
func build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*service.Users, func(), error) {
	db, err := local.Open(ctx, cfg.LocalCachePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open local cache: %w", err)
	}
	cleanup := func() { _ = db.Close() }

	localStore := local.New(db)
	remoteStore := remote.NewStore(cfg.RemoteBaseURL, remote.WithTimeout(cfg.RemoteTimeout))

	opts := []fallback.Option{fallback.WithLogger(logger)}
	if !cfg.FallbackEnabled {
		opts = append(opts, fallback.WithoutFallback())
	}
	if !cfg.MirrorWrites {
		opts = append(opts, fallback.WithoutMirroring())
	}
	store := fallback.New(remoteStore, localStore, opts...)

	if err := reconcile.NewImporter(store, localStore, logger).Run(ctx); err != nil {
		logger.Warn("legacy import failed; will retry next start", zap.Error(err))
	}

	var ptr session.PointerStore = session.NewSQLitePointer(db)
	if cfg.SessionBackend == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ptr = session.NewRedisPointer(rdb, "identity:current")
	}

	verify := credential.ByName(cfg.CredentialScheme)
	sess := session.NewController(store, verify, ptr, []byte(cfg.SessionSignKey),
		session.WithPollInterval(cfg.SessionPoll),
		session.WithLogger(logger),
	)

	users := service.New(store, sess, verify, service.Bootstrap{
		Username:   cfg.BootstrapUsername,
		Email:      cfg.BootstrapEmail,
		Credential: cfg.BootstrapCredential,
	}, service.WithLogger(logger))

	if _, err := users.Initialize(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return users, func() { users.Close(); cleanup() }, nil
}

func run(ctx context.Context, users *service.Users, cmd string, args []string) error {
	switch cmd {
	case "whoami":
		printAccount(users.CurrentAccount())
		return nil

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		a, err := users.Login(ctx, *u, *p)
		if errors.Is(err, errs.ErrLoginFailed) {
			return errors.New("login failed")
		}
		if err != nil {
			return err
		}
		printAccount(a)
		return nil

	case "logout":
		return users.Logout(ctx)

	case "guest":
		a, err := users.CreateGuest(ctx)
		if err != nil {
			return err
		}
		printAccount(a)
		return nil

	case "promote":
		fs := flag.NewFlagSet("promote", flag.ExitOnError)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		a, err := users.PromoteGuestToRegular(ctx, *u, *p)
		if err != nil {
			return err
		}
		printAccount(a)
		return nil

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		email := fs.String("email", "", "email")
		tier := fs.String("tier", string(model.TierRegular), "tier")
		_ = fs.Parse(args)
		a, err := users.CreateAccount(ctx, *u, *email, *p, model.Tier(*tier))
		if err != nil {
			return err
		}
		printAccount(a)
		return nil

	case "list":
		all, err := users.ListAccounts(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tTIER\tACTIVE\tCREATED")
		for _, a := range all {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n",
				a.ID, a.Username, a.Tier, a.IsActive, a.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()

	case "stats":
		st, err := users.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("total=%d active=%d admins=%d superAdmins=%d regulars=%d guests=%d\n",
			st.Total, st.Active, st.Admins, st.SuperAdmins, st.Regulars, st.Guests)
		return nil

	case "rm":
		fs := flag.NewFlagSet("rm", flag.ExitOnError)
		id := fs.String("id", "", "account id")
		_ = fs.Parse(args)
		deleted, err := users.DeleteAccount(ctx, *id)
		if err != nil {
			return err
		}
		if !deleted {
			return errors.New("no such account")
		}
		return nil

	default:
		usage()
		return nil
	}
}

func printAccount(a *model.Account) {
	if a == nil {
		fmt.Println("anonymous")
		return
	}
	fmt.Printf("%s (%s) tier=%s active=%v\n", a.DisplayName(), a.ID, a.Tier, a.IsActive)
}
