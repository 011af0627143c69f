package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/csvio"
	"github.com/noah-isme/timetable-api/internal/engine"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

type generateOptions struct {
	courses   string
	rooms     string
	faculty   string
	overrides string
	strategy  string
	out       string
	asJSON    bool
	fallback  bool
	noB2B     bool
	timeout   time.Duration
	logLevel  string
}

type tokenOptions struct {
	user string
	role string
	ttl  time.Duration
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "timetable-cli",
		Short:        "Timetable allocation from CSV snapshots",
		SilenceUsage: true,
	}
	root.AddCommand(newGenerateCmd(), newCatalogCmd(), newTokenCmd())
	return root
}

func newGenerateCmd() *cobra.Command {
	opts := generateOptions{strategy: engine.StrategyGreedy, fallback: true, timeout: 2 * time.Minute, logLevel: "warn"}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "generate a timetable and write its placements as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.courses, "courses", "", "courses CSV (course_id,component,...)")
	flags.StringVar(&opts.rooms, "rooms", "", "rooms CSV (room_id,capacity,room_type); default rooms when empty")
	flags.StringVar(&opts.faculty, "faculty", "", "faculty CSV (faculty_id,name,max_teaching_days,allow_back_to_back)")
	flags.StringVar(&opts.overrides, "overrides", "", "overrides CSV (course_id,component,day,time,force)")
	flags.StringVarP(&opts.strategy, "strategy", "s", opts.strategy, "greedy or optimizer")
	flags.StringVarP(&opts.out, "out", "o", "", "output file; stdout when empty")
	flags.BoolVar(&opts.asJSON, "json", false, "write the full result as JSON instead of CSV")
	flags.BoolVar(&opts.fallback, "fallback", opts.fallback, "retry with greedy when the optimizer finds nothing")
	flags.BoolVar(&opts.noB2B, "forbid-back-to-back", false, "forbid adjacent slots for faculty that disallow it")
	flags.DurationVarP(&opts.timeout, "time", "t", opts.timeout, "time limit for the run")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level")
	_ = cmd.MarkFlagRequired("courses")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "list the slot catalog with overlap groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printCatalog(cmd.OutOrStdout(), engine.DefaultCatalog())
		},
	}
}

func newTokenCmd() *cobra.Command {
	opts := tokenOptions{role: string(models.RoleScheduler), ttl: time.Hour}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "issue an access token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
			signed, err := tokens.Issue(opts.user, models.UserRole(strings.ToUpper(opts.role)), opts.ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), signed)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.user, "user", "", "user id carried in the token")
	cmd.Flags().StringVar(&opts.role, "role", opts.role, "SUPERADMIN, ADMIN, SCHEDULER or VIEWER")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", opts.ttl, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runGenerate(ctx context.Context, opts generateOptions, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logr, err := logger.New(&config.Config{Env: config.EnvDevelopment, Log: config.LogConfig{Level: opts.logLevel, Format: "console"}})
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	input, err := loadInput(opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	result, err := solve(ctx, opts.strategy, engine.Options{Logger: logr, ForbidBackToBack: opts.noB2B}, input)
	if err != nil {
		return err
	}
	if result.Status == engine.StatusNoResult && opts.fallback && !strings.EqualFold(opts.strategy, engine.StrategyGreedy) {
		logr.Warn("optimizer found no schedule, retrying with greedy", zap.String("message", result.Message))
		result, err = solve(ctx, engine.StrategyGreedy, engine.Options{Logger: logr}, input)
		if err != nil {
			return err
		}
	}

	if violations := engine.Verify(input.Catalog, result.Schedule); len(violations) > 0 {
		return fmt.Errorf("schedule failed verification: %v", violations[0])
	}

	fmt.Fprintf(stderr, "%s: %s (%d/%d placed, %d defaulted)\n",
		result.Report.Strategy, result.Status, result.Report.Placed, result.Report.Total, result.Report.Defaulted)
	for _, m := range result.Missing {
		fmt.Fprintf(stderr, "  missing %s\n", m)
	}
	if sum := result.Report.Summary; sum.Meetings > 0 {
		fmt.Fprintf(stderr, "  %d meetings, %d early, %d late\n", sum.Meetings, sum.Early, sum.Late)
	}

	if err := writeResult(opts, result, stdout); err != nil {
		return err
	}
	if !result.Status.Usable() {
		return fmt.Errorf("no usable schedule: %s", result.Message)
	}
	return nil
}

func loadInput(opts generateOptions) (engine.Input, error) {
	input := engine.Input{Catalog: engine.DefaultCatalog()}

	courses, err := csvio.LoadFile(opts.courses, csvio.ReadCourses)
	if err != nil {
		return input, err
	}
	input.Courses = courses

	if opts.rooms != "" {
		if input.Rooms, err = csvio.LoadFile(opts.rooms, csvio.ReadRooms); err != nil {
			return input, err
		}
	}
	if len(input.Rooms) == 0 {
		input.Rooms = service.DefaultRooms()
	}
	if opts.faculty != "" {
		if input.Faculty, err = csvio.LoadFile(opts.faculty, csvio.ReadFaculty); err != nil {
			return input, err
		}
	}
	if opts.overrides != "" {
		if input.Overrides, err = csvio.LoadFile(opts.overrides, csvio.ReadOverrides); err != nil {
			return input, err
		}
	}
	input.Groups = lo.Uniq(lo.FilterMap(courses, func(c models.CourseComponent, _ int) (string, bool) {
		return c.StudentGroup, c.StudentGroup != ""
	}))
	return input, nil
}

func solve(ctx context.Context, name string, opts engine.Options, input engine.Input) (*engine.Result, error) {
	strategy, err := engine.NewStrategy(name, opts)
	if err != nil {
		return nil, err
	}
	return strategy.Solve(ctx, input)
}

func writeResult(opts generateOptions, result *engine.Result, stdout io.Writer) error {
	out := stdout
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("create %s: %w", opts.out, err)
		}
		defer f.Close()
		out = f
	}
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if !result.Status.Usable() {
		return nil
	}
	return csvio.WritePlacements(out, result.Schedule)
}

func printCatalog(out io.Writer, catalog *engine.Catalog) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tDAYS\tTIME\tGROUP\tCOMPONENTS\tCONFLICTS")
	for _, slot := range catalog.Slots() {
		kinds := lo.Map(slot.Kinds, func(k models.ComponentKind, _ int) string { return string(k) })
		conflicts := "-"
		if reach := slot.Conflicts(); len(reach) > 0 {
			conflicts = strings.Join(reach, ",")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", slot.ID, strings.Join(slot.Days, "/"), slot.Label(), slot.Group, strings.Join(kinds, ","), conflicts)
	}
	return w.Flush()
}
