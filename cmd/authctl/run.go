package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/activitymap"
	"github.com/goliatone/go-auth-client/policy"
	"github.com/goliatone/go-auth-client/remote"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
)

const usage = `usage: authctl [flags] <command> [args]

commands:
  login -email <email> [-password <password>]
  logout
  whoami
  refresh
  status
  roles
  policies
  can <resource> <action>
`

type options struct {
	verbose bool
}

type app struct {
	cfg        authclient.Config
	controller *authclient.Controller
	admin      *policy.Administration
	stdout     io.Writer
	stderr     io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := authclient.LoadConfig()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	fs := flag.NewFlagSet("authctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	fs.StringVar(&cfg.IdentityURL, "identity-url", cfg.IdentityURL, "identity endpoint base url")
	fs.StringVar(&cfg.PolicyURL, "policy-url", cfg.PolicyURL, "policy endpoint base url (defaults to identity url)")
	fs.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "session store: memory, bolt or sqlite")
	fs.StringVar(&cfg.StorePath, "store-path", cfg.StorePath, "session store file")
	fs.StringVar(&cfg.Namespace, "namespace", cfg.Namespace, "session key namespace")
	fs.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "request timeout")
	cliOpts := options{}
	fs.BoolVar(&cliOpts.verbose, "v", false, "log session activity")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	logger := glog.NewLogger(
		glog.WithName("authctl"),
		glog.WithLoggerTypePretty(),
		glog.WithAddSource(false),
	)

	store, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Error("failed to close session store", "error", err)
		}
	}()

	a, err := newApp(cfg, cliOpts, store, logger, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	return a.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
}

func newApp(cfg authclient.Config, o options, store authclient.SessionStore, logger authclient.Logger, stdout, stderr io.Writer) (*app, error) {
	identity, err := remote.NewIdentityClient(cfg.IdentityURL,
		remote.WithTimeout(cfg.HTTPTimeout),
		remote.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	opts := append(cfg.ControllerOptions(), authclient.WithLogger(logger))
	if o.verbose {
		opts = append(opts, authclient.WithActivitySink(activitySink(logger)))
	}
	controller := authclient.NewController(identity, store, opts...)

	policies, err := remote.NewPolicyClient(cfg.GetPolicyURL(),
		remote.WithTimeout(cfg.HTTPTimeout),
		remote.WithLogger(logger),
		remote.WithTokenSource(controller),
	)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:        cfg,
		controller: controller,
		admin:      policy.NewAdministration(policies, controller, policy.WithLogger(logger)),
		stdout:     stdout,
		stderr:     stderr,
	}, nil
}

// activitySink logs flattened session activity.
func activitySink(logger authclient.Logger) authclient.ActivitySink {
	return activitymap.Sink(func(entry activitymap.Entry) {
		logger.Info("session activity",
			"verb", entry.Verb,
			"actor", entry.Actor,
			"channel", entry.Channel,
			"from", entry.FromState,
			"to", entry.ToState,
			"details", entry.Details,
			"at", entry.At,
		)
	}, activitymap.WithChannel("cli"))
}

func (a *app) dispatch(ctx context.Context, command string, args []string) int {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "refresh":
		return a.refresh(ctx)
	case "status":
		return a.status()
	case "roles":
		return a.roles(ctx)
	case "policies":
		return a.policies(ctx)
	case "can":
		return a.can(ctx, args)
	default:
		fmt.Fprintf(a.stderr, "unknown command %q\n%s", command, usage)
		return 2
	}
}

func (a *app) login(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("AUTHCLIENT_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	res := a.controller.Login(ctx, authclient.Credentials{
		Email:    strings.TrimSpace(*email),
		Password: *password,
	})
	if !res.OK() {
		return a.fail(res.Kind, res.Message)
	}
	return a.render(map[string]any{
		"message": res.Message,
		"user":    res.Value,
	})
}

func (a *app) logout(ctx context.Context) int {
	res := a.controller.Logout(ctx)
	return a.render(map[string]any{
		"message":      res.Message,
		"acknowledged": res.Value,
	})
}

// restore settles a persisted session before commands that need one.
func (a *app) restore(ctx context.Context) (*authclient.User, bool) {
	if user, ok := a.controller.User(); ok {
		return user, true
	}
	res := a.controller.RestoreSession(ctx)
	if !res.OK() {
		a.fail(res.Kind, res.Message)
		return nil, false
	}
	return res.Value, true
}

func (a *app) whoami(ctx context.Context) int {
	user, ok := a.restore(ctx)
	if !ok {
		return 1
	}
	return a.render(user)
}

func (a *app) refresh(ctx context.Context) int {
	if _, ok := a.restore(ctx); !ok {
		return 1
	}
	res := a.controller.RefreshAccessToken(ctx)
	if !res.OK() {
		return a.fail(res.Kind, res.Message)
	}
	out := map[string]any{"message": res.Message}
	if exp, ok := authclient.TokenExpiry(res.Value); ok {
		out["expires_at"] = exp
	}
	return a.render(out)
}

func (a *app) status() int {
	snap := a.controller.Snapshot()
	out := map[string]any{
		"state":      snap.State,
		"has_tokens": snap.HasTokens(),
		"store":      a.cfg.StoreDriver,
	}
	if exp, ok := authclient.TokenExpiry(snap.AccessToken); ok {
		out["access_expires_at"] = exp
	}
	return a.render(out)
}

func (a *app) roles(ctx context.Context) int {
	if _, ok := a.restore(ctx); !ok {
		return 1
	}
	roles, err := a.admin.Roles(ctx)
	if err != nil {
		return a.fail(authclient.KindOf(err), err.Error())
	}
	return a.render(roles)
}

func (a *app) policies(ctx context.Context) int {
	if _, ok := a.restore(ctx); !ok {
		return 1
	}
	policies, err := a.admin.Policies(ctx)
	if err != nil {
		return a.fail(authclient.KindOf(err), err.Error())
	}
	return a.render(policies)
}

func (a *app) can(ctx context.Context, args []string) int {
	if len(args) != 2 {
		fmt.Fprint(a.stderr, usage)
		return 2
	}
	user, ok := a.restore(ctx)
	if !ok {
		return 1
	}
	permissions, err := a.admin.Permissions(ctx, user.RoleNames())
	if err != nil {
		return a.fail(authclient.KindOf(err), err.Error())
	}

	resource, action := args[0], args[1]
	out := map[string]any{
		"resource": strings.ToUpper(resource),
		"action":   strings.ToUpper(action),
		"decision": permissions.Can(resource, action),
	}
	if conditions := permissions.Conditions(resource, action); len(conditions) > 0 {
		out["conditions"] = conditions
	}
	return a.render(out)
}

func (a *app) render(v any) int {
	fmt.Fprintln(a.stdout, print.MaybePrettyJSON(v))
	return 0
}

func (a *app) fail(kind authclient.ErrorKind, message string) int {
	fmt.Fprintln(a.stderr, print.MaybePrettyJSON(map[string]any{
		"kind":    kind,
		"message": message,
	}))
	return 1
}
