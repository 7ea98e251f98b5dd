package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openhrms/fieldlink/config"
	"github.com/openhrms/fieldlink/internal/bootstrap"
	apperrors "github.com/openhrms/fieldlink/internal/errors"
	"github.com/openhrms/fieldlink/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx      context.Context
	Logger   *slog.Logger
	Config   config.AppConfig
	Services *bootstrap.Services
}

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(ctx, "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	services, err := buildServices(cfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "wire services", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal wiring failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:      ctx,
		Logger:   logger,
		Config:   cfg,
		Services: services,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(ctx, "command failed", "command", cmdName, "error", runErr, "code", apperrors.GetCode(runErr))
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func buildServices(cfg config.AppConfig, logger *slog.Logger) (*bootstrap.Services, error) {
	client, err := bootstrap.BuildAPIClient(cfg.API)
	if err != nil {
		return nil, err
	}
	sessions, err := bootstrap.BuildSessionService(bootstrap.SessionConfig{App: cfg, Logger: logger}, client)
	if err != nil {
		return nil, err
	}
	return bootstrap.BuildServices(cfg, logger, client, sessions), nil
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Sign in through the browser and persist the session",
			run:         runLogin,
		},
		"logout": {
			name:        "logout",
			description: "Revoke the access token and clear the stored session",
			run:         runLogout,
		},
		"whoami": {
			name:        "whoami",
			description: "Show the signed-in user",
			run:         runWhoami,
		},
		"villages": {
			name:        "villages",
			description: "Search the village master list",
			run:         runVillages,
		},
		"leave-types": {
			name:        "leave-types",
			description: "List leave types",
			run:         runLeaveTypes,
		},
		"leave-balance": {
			name:        "leave-balance",
			description: "Show an employee's remaining balance for a leave type",
			run:         runLeaveBalance,
		},
		"shift-types": {
			name:        "shift-types",
			description: "List shift types",
			run:         runShiftTypes,
		},
		"holidays": {
			name:        "holidays",
			description: "List the holidays of a holiday list",
			run:         runHolidays,
		},
		"attendance": {
			name:        "attendance",
			description: "Show an employee's attendance calendar for a month",
			run:         runAttendance,
		},
		"reasons": {
			name:        "reasons",
			description: "List attendance-request reasons",
			run:         runReasons,
		},
		"checkin": {
			name:        "checkin",
			description: "Submit a geotagged check-in or check-out",
			run:         runCheckin,
		},
		"checkin-log": {
			name:        "checkin-log",
			description: "Show an employee's check-ins for one day",
			run:         runCheckinLog,
		},
		"sync": {
			name:        "sync",
			description: "Prefetch all master data for offline use",
			run:         runSync,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: fieldlink <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	all := commands()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := all[name]
		if err := writef(os.Stdout, "  %-16s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

// ensureSession restores the stored session and fails when it settles
// unauthenticated.
func ensureSession(ctx *commandContext) error {
	state, err := ctx.Services.Session.Boot(ctx.Ctx)
	if err != nil {
		return err
	}
	if !state.Authenticated {
		return fmt.Errorf("not signed in; run `fieldlink login` first")
	}
	return nil
}

func runLogin(ctx *commandContext, _ []string) error {
	state, err := ctx.Services.Session.Boot(ctx.Ctx)
	if err != nil {
		return err
	}
	if !state.Authenticated {
		state, err = ctx.Services.Session.Login(ctx.Ctx)
		if err != nil {
			return err
		}
	}
	name := state.AccessToken[:min(8, len(state.AccessToken))] + "…"
	if state.Profile != nil {
		name = state.Profile.DisplayName
	}
	return writef(os.Stdout, "Signed in as %s\n", name)
}

func runLogout(ctx *commandContext, _ []string) error {
	if _, err := ctx.Services.Session.Boot(ctx.Ctx); err != nil {
		return err
	}
	if _, err := ctx.Services.Session.Logout(ctx.Ctx); err != nil {
		return err
	}
	return writef(os.Stdout, "Signed out\n")
}

func runWhoami(ctx *commandContext, _ []string) error {
	if err := ensureSession(ctx); err != nil {
		return err
	}
	state := ctx.Services.Session.Snapshot()
	if state.Profile == nil {
		return writef(os.Stdout, "Signed in (profile unavailable)\n")
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(w, "User\t%s\n", state.Profile.UserID); err != nil {
		return err
	}
	if err := writef(w, "Name\t%s\n", state.Profile.DisplayName); err != nil {
		return err
	}
	return w.Flush()
}

func runVillages(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("villages", flag.ContinueOnError)
	pages := fs.Int("pages", 1, "number of result pages to fetch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.Join(fs.Args(), " ")

	if err := ensureSession(ctx); err != nil {
		return err
	}

	villages := ctx.Services.Villages
	villages.SetQuery(ctx.Ctx, query)
	results := awaitVillages(villages)
	for page := 1; page < *pages && results.HasMore; page++ {
		villages.LoadMore(ctx.Ctx)
		results = villages.Results()
	}
	if results.Err != nil {
		return results.Err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "ID\tVILLAGE"); err != nil {
		return err
	}
	for _, v := range results.Villages {
		if err := writef(w, "%s\t%s\n", v.Name, v.VillageName); err != nil {
			return err
		}
	}
	if results.HasMore {
		if err := writeln(w, "…\t(more available)"); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runLeaveTypes(ctx *commandContext, _ []string) error {
	if err := ensureSession(ctx); err != nil {
		return err
	}
	types, err := ctx.Services.Resources.LeaveTypes(ctx.Ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "LEAVE TYPE\tMAX ALLOWED"); err != nil {
		return err
	}
	for _, lt := range types {
		if err := writef(w, "%s\t%d\n", lt.Name, lt.MaxLeavesAllowed); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runLeaveBalance(ctx *commandContext, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: fieldlink leave-balance <employee> <leave type>")
	}
	if err := ensureSession(ctx); err != nil {
		return err
	}
	balance, err := ctx.Services.Resources.LeaveBalance(ctx.Ctx, args[0], strings.Join(args[1:], " "), time.Now())
	if err != nil {
		return err
	}
	return writef(os.Stdout, "%.1f\n", balance)
}

func runShiftTypes(ctx *commandContext, _ []string) error {
	if err := ensureSession(ctx); err != nil {
		return err
	}
	shifts, err := ctx.Services.Resources.ShiftTypes(ctx.Ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "SHIFT\tSTART\tEND"); err != nil {
		return err
	}
	for _, s := range shifts {
		if err := writef(w, "%s\t%s\t%s\n", s.Name, s.StartTime, s.EndTime); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runHolidays(ctx *commandContext, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: fieldlink holidays <holiday list>")
	}
	if err := ensureSession(ctx); err != nil {
		return err
	}
	holidays, err := ctx.Services.Resources.Holidays(ctx.Ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "DATE\tDESCRIPTION"); err != nil {
		return err
	}
	for _, h := range holidays {
		if h.WeeklyOff == 1 {
			continue
		}
		if err := writef(w, "%s\t%s\n", h.HolidayDate, h.Description); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runAttendance(ctx *commandContext, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: fieldlink attendance <employee> <YYYY-MM>")
	}
	month, err := time.Parse("2006-01", args[1])
	if err != nil {
		return fmt.Errorf("invalid month %q: %w", args[1], err)
	}
	if err := ensureSession(ctx); err != nil {
		return err
	}
	cal, err := ctx.Services.Resources.MonthlyAttendance(ctx.Ctx, args[0], month.Month(), month.Year())
	if err != nil {
		return err
	}

	days := make([]string, 0, len(cal))
	for day := range cal {
		days = append(days, day)
	}
	sort.Strings(days)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "DATE\tSTATUS"); err != nil {
		return err
	}
	for _, day := range days {
		if err := writef(w, "%s\t%s\n", day, cal[day]); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runReasons(ctx *commandContext, _ []string) error {
	if err := ensureSession(ctx); err != nil {
		return err
	}
	reasons, err := ctx.Services.Resources.ReasonOptions(ctx.Ctx)
	if err != nil {
		return err
	}
	for _, r := range reasons {
		if err := writef(os.Stdout, "%s\n", r); err != nil {
			return err
		}
	}
	return nil
}

// awaitVillages polls until the debounced search settles.
func awaitVillages(villages *service.VillageSearcher) service.VillageResults {
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if r := villages.Results(); !r.Loading {
			return r
		}
		time.Sleep(20 * time.Millisecond)
	}
	return villages.Results()
}

func runCheckin(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("checkin", flag.ContinueOnError)
	logType := fs.String("type", "IN", "log type: IN or OUT")
	lat := fs.Float64("lat", 0, "latitude of the check-in location")
	lon := fs.Float64("lon", 0, "longitude of the check-in location")
	device := fs.String("device", "", "device identifier")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: fieldlink checkin [flags] <employee>")
	}

	if err := ensureSession(ctx); err != nil {
		return err
	}
	name, err := ctx.Services.Checkins.Submit(ctx.Ctx, service.CheckinInput{
		Employee:  fs.Arg(0),
		LogType:   strings.ToUpper(*logType),
		Latitude:  *lat,
		Longitude: *lon,
		DeviceID:  *device,
	})
	if err != nil {
		return err
	}
	return writef(os.Stdout, "Recorded %s\n", name)
}

func runCheckinLog(ctx *commandContext, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: fieldlink checkin-log <employee> [YYYY-MM-DD]")
	}
	day := time.Now()
	if len(args) > 1 {
		parsed, err := time.Parse("2006-01-02", args[1])
		if err != nil {
			return fmt.Errorf("invalid day %q: %w", args[1], err)
		}
		day = parsed
	}
	if err := ensureSession(ctx); err != nil {
		return err
	}
	entries, err := ctx.Services.Checkins.DayLog(ctx.Ctx, args[0], day)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "TIME\tTYPE"); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writef(w, "%s\t%s\n", e.Time, e.LogType); err != nil {
			return err
		}
	}
	return w.Flush()
}

// runSync warms all master-data caches concurrently.
func runSync(ctx *commandContext, _ []string) error {
	if err := ensureSession(ctx); err != nil {
		return err
	}

	resources := ctx.Services.Resources
	g, gctx := errgroup.WithContext(ctx.Ctx)
	g.Go(func() error {
		_, err := resources.RefreshLeaveTypes(gctx)
		return err
	})
	g.Go(func() error {
		_, err := resources.RefreshShiftTypes(gctx)
		return err
	})
	g.Go(func() error {
		_, err := resources.ReasonOptions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return writef(os.Stdout, "Master data synced\n")
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, line string) error {
	_, err := fmt.Fprintln(w, line)
	return err
}
