// Command portal is a terminal client for the self-exclusion registry. It
// drives the same session core the browser portals embed: hydrate, validate,
// route, and listen for notifications.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"portalcore/internal/api"
	"portalcore/internal/device"
	"portalcore/internal/platform/config"
	"portalcore/internal/platform/logger"
	"portalcore/internal/platform/metrics"
	"portalcore/internal/realtime"
	"portalcore/internal/retry"
	"portalcore/internal/routing"
	"portalcore/internal/session"
	"portalcore/internal/session/validator"
	"portalcore/internal/storage"
)

const usage = `usage: portal <command>

commands:
  login <email> <password>   sign in and persist the session
  status                     validate the session and print the routing verdict
  listen                     validate, then stream notifications until interrupted
  device                     print this device's identity
  trust                      mark this device trusted for the current run
  logout                     clear the session
`

type app struct {
	cfg      config.Client
	store    *session.Store
	devices  *device.Store
	client   *api.Client
	validate *validator.Validator
	realtime realtime.Options
}

func newApp() *app {
	cfg := config.ClientFromEnv()
	log := logger.New()
	m := metrics.New(prometheus.DefaultRegisterer)

	durable, persistent := storage.Open(cfg.StorageDir)
	if !persistent {
		log.Warn("durable storage unavailable, session will not survive restarts")
	}

	store := session.NewStore(durable, log)
	store.Hydrate()

	env := device.Environment{Type: "desktop", OS: runtime.GOOS, Browser: "cli"}
	if ua := os.Getenv("PORTAL_USER_AGENT"); ua != "" {
		env = device.EnvironmentFromUserAgent(ua)
	}
	devices := device.NewStore(durable, env, log)

	policy := retry.Default()
	policy.MaxRetries = cfg.RetryMaxRetries
	policy.BaseDelay = cfg.RetryBaseDelay

	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, policy, log, m)

	return &app{
		cfg:      cfg,
		store:    store,
		devices:  devices,
		client:   client,
		validate: validator.New(store, client, log, m),
		realtime: realtime.Options{
			URL:               cfg.RealtimeURL,
			ReconnectInterval: cfg.ReconnectInterval,
			Logger:            log,
			Metrics:           m,
		},
	}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := newApp()

	var err error
	switch os.Args[1] {
	case "login":
		err = a.login(ctx, os.Args[2:])
	case "status":
		err = a.status(ctx)
	case "listen":
		err = a.listen(ctx)
	case "device":
		err = a.device()
	case "trust":
		err = a.trust()
	case "logout":
		a.store.Logout()
		fmt.Println("signed out")
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("login needs <email> <password>")
	}
	d := a.devices.Identify()

	res, err := a.client.Login(ctx, args[0], args[1], d.Name)
	if err != nil {
		return err
	}
	a.store.SetTokens(res.Access, res.Refresh)
	a.store.SetUser(res.User)

	fmt.Printf("signed in as %s (%s)\n", res.User.Email, res.User.Role)
	fmt.Printf("portal: %s\n", routing.Home(res.User.Role))
	return nil
}

func (a *app) status(ctx context.Context) error {
	res := a.validate.Validate(ctx)
	if res.ValidationError != "" {
		fmt.Println(res.ValidationError)
	}

	decision := routing.Resolve(a.routingSession(res))
	switch decision.Kind {
	case routing.Redirect:
		fmt.Printf("route: %s\n", decision.Location)
	default:
		fmt.Printf("route: %s\n", decision.Kind)
	}
	return nil
}

func (a *app) listen(ctx context.Context) error {
	res := a.validate.Validate(ctx)
	if !res.IsAuthenticated {
		if res.ValidationError != "" {
			return fmt.Errorf("%s", res.ValidationError)
		}
		return fmt.Errorf("not signed in")
	}

	opts := a.realtime
	opts.RequestHeader = http.Header{"Authorization": {"Bearer " + a.store.AccessToken()}}
	opts.OnMessage = func(msg realtime.Message) {
		fmt.Printf("[%s] %s %s\n", msg.Timestamp, msg.Type, string(msg.Data))
	}
	opts.OnDisconnect = func() { fmt.Println("disconnected, reconnecting...") }

	channel := realtime.New(opts)
	defer channel.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Dial failures are recovered by the manager's reconnect timer.
		_ = channel.Connect(ctx)
		<-ctx.Done()
		return nil
	})
	fmt.Println("listening for notifications, ctrl-c to stop")
	return g.Wait()
}

func (a *app) device() error {
	d := a.devices.Identify()
	fmt.Printf("name: %s\ntype: %s\nos: %s\nbrowser: %s\ntrusted: %v\n", d.Name, d.Type, d.OS, d.Browser, d.Trusted)
	return nil
}

func (a *app) trust() error {
	d := a.devices.Identify()
	if err := a.devices.Trust(d.Name); err != nil {
		return err
	}
	fmt.Printf("device %s marked trusted\n", d.Name)
	return nil
}

func (a *app) routingSession(res validator.Result) routing.Session {
	s := routing.Session{
		Validating:    res.IsValidating,
		Authenticated: res.IsAuthenticated,
	}
	if user := a.store.Snapshot().User; user != nil {
		s.Role = user.Role
	}
	return s
}
