package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"registrar/internal/codec"
	"registrar/internal/config"
	"registrar/internal/fixtures"
	"registrar/internal/logger"
	"registrar/internal/repository/sqlstore"
	"registrar/internal/service"
	"registrar/internal/session"
)

const usage = `usage: registrar [flags] <command> [args]

commands:
  seed [-file path]               load the sample school, or a YAML/JSON document
  export [-format yaml|json]      write every stored entity to stdout
  roster <course>                 list the students of a course
  courses <professor>             list the courses of a professor
  enroll <student> <course>       enroll a student in a course
  drop <student> <course>         remove a student from a course
  cap-credits -above N -credits M set the credits of every course above N to M
`

func main() {
	// Command line flags
	configPath := flag.String("config", "", "config file path (default: search)")
	envFile := flag.String("env", ".env", "dotenv file loaded before reading config")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	var (
		cfg  *config.Config
		path string
		err  error
	)
	if *configPath != "" {
		cfg, path, err = config.LoadFromPath(*configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Configure(logger.Config{
		Level:  logger.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
	})
	if path != "" {
		log.Debug().Str("path", path).Msg("config loaded")
	}
	log.Debug().Msg(cfg.Summary())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, flag.Args(), os.Stdout); err != nil {
		log.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

// run executes one command against the configured database
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("missing command")
	}

	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:      cfg.Database.Driver,
		DSN:         cfg.Database.DSN,
		BusyTimeout: cfg.Database.BusyTimeout.Duration(),
	}, logger.Component(log, "sqlstore"))
	if err != nil {
		return err
	}
	defer store.Close()

	factory := session.NewFactory(store, session.WithLogger(logger.Component(log, "session")))

	events := make(chan service.Event, 16)
	bus := service.NewEventBus()
	bus.Subscribe(events)
	defer drainEvents(events, logger.Component(log, "events"))

	svc := service.NewRegistrarService(factory, bus)
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "seed":
		fset := flag.NewFlagSet("seed", flag.ContinueOnError)
		file := fset.String("file", "", "school document to load instead of the sample")
		if err := fset.Parse(rest); err != nil {
			return err
		}
		return seed(ctx, svc, factory, *file, out)

	case "export":
		fset := flag.NewFlagSet("export", flag.ContinueOnError)
		format := fset.String("format", "yaml", "output format: yaml or json")
		if err := fset.Parse(rest); err != nil {
			return err
		}
		c, err := codec.ForFormat(*format)
		if err != nil {
			return err
		}
		return svc.ExportSchool(ctx, c, out)

	case "roster":
		if len(rest) != 1 {
			return fmt.Errorf("roster takes a course name")
		}
		students, err := svc.Roster(ctx, rest[0])
		if err != nil {
			return err
		}
		for _, st := range students {
			fmt.Fprintf(out, "%s\t%s\n", st.Name, st.Email)
		}
		return nil

	case "courses":
		if len(rest) != 1 {
			return fmt.Errorf("courses takes a professor name")
		}
		courses, err := svc.CoursesOf(ctx, rest[0])
		if err != nil {
			return err
		}
		for _, c := range courses {
			fmt.Fprintf(out, "%s\t%g\n", c.Name, c.Credits)
		}
		return nil

	case "enroll", "drop":
		if len(rest) != 2 {
			return fmt.Errorf("%s takes a student and a course name", cmd)
		}
		if cmd == "enroll" {
			return svc.Enroll(ctx, rest[0], rest[1])
		}
		return svc.Drop(ctx, rest[0], rest[1])

	case "cap-credits":
		fset := flag.NewFlagSet("cap-credits", flag.ContinueOnError)
		above := fset.Float64("above", 0, "courses with more credits than this are changed")
		credits := fset.Float64("credits", 0, "new credit value")
		if err := fset.Parse(rest); err != nil {
			return err
		}
		n, err := svc.CapCredits(ctx, *above, *credits)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d courses updated\n", n)
		return nil
	}

	return fmt.Errorf("unknown command %q", cmd)
}

func seed(ctx context.Context, svc *service.RegistrarService, factory *session.Factory, file string, out io.Writer) error {
	if file == "" {
		school, err := fixtures.Load()
		if err != nil {
			return err
		}
		if err := fixtures.Seed(ctx, factory, school); err != nil {
			return err
		}
		fmt.Fprintf(out, "seeded %d professors, %d courses, %d students\n",
			len(school.Professors), len(school.Courses), len(school.Students))
		return nil
	}

	c, err := codec.ForFormat(strings.TrimPrefix(filepath.Ext(file), "."))
	if err != nil {
		return err
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := svc.ImportSchool(ctx, c, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "imported %d professors, %d courses, %d students\n",
		result.Professors, result.Courses, result.Students)
	return nil
}

// drainEvents logs the events published by the command
func drainEvents(events chan service.Event, log zerolog.Logger) {
	for {
		select {
		case ev := <-events:
			log.Info().Str("type", string(ev.Type)).Interface("payload", ev.Payload).Msg("event")
		default:
			return
		}
	}
}
