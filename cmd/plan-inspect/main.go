package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/flagext"
	"gopkg.in/yaml.v2"

	"github.com/grafana/sqlengine/pkg/engine"
	"github.com/grafana/sqlengine/pkg/engine/plandesc"
)

// inspectCommand prints plans before and after optimization.
type inspectCommand struct {
	configFile *string
	user       *string
	properties *map[string]string
	verbose    *bool
	files      *[]string
}

func (cmd *inspectCommand) run(_ *kingpin.ParseContext) error {
	cfg, err := loadConfig(*cmd.configFile)
	if err != nil {
		return err
	}

	logger := level.NewFilter(log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr)), level.AllowInfo())
	if *cmd.verbose {
		logger = level.NewFilter(log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr)), level.AllowDebug())
	}

	e, err := engine.New(engine.Params{Logger: logger, Config: cfg})
	if err != nil {
		return err
	}

	for _, name := range *cmd.files {
		if err := cmd.inspect(e, name); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (cmd *inspectCommand) inspect(e *engine.Engine, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	p, err := plandesc.Decode(f)
	if err != nil {
		return err
	}
	optimized, err := p.Optimize(e, *cmd.user, *cmd.properties)
	if err != nil {
		return fmt.Errorf("failed to optimize plan: %w", err)
	}

	bold := color.New(color.Bold)
	bold.Printf("%s\n", name)
	color.New(color.FgCyan).Println("Plan:")
	fmt.Print(indent(p.String()))
	if !p.Changed(optimized) {
		color.New(color.FgYellow).Println("Optimized plan: unchanged")
		return nil
	}
	color.New(color.FgGreen).Println("Optimized plan:")
	fmt.Print(indent(optimized.String()))
	return nil
}

func indent(s string) string {
	lines := strings.SplitAfter(s, "\n")
	var sb strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		sb.WriteString("\t")
		sb.WriteString(line)
	}
	return sb.String()
}

// loadConfig returns the engine config with flag defaults, overridden by
// the YAML file at path if path is set.
func loadConfig(path string) (engine.Config, error) {
	var cfg engine.Config
	flagext.DefaultValues(&cfg)
	if path == "" {
		return cfg, nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func addInspectCommand(app *kingpin.Application) {
	cmd := &inspectCommand{}
	inspect := app.Command("inspect", "Print a plan described in YAML before and after optimization.").Default().Action(cmd.run)
	cmd.configFile = inspect.Flag("config.file", "Engine configuration file in YAML.").String()
	cmd.user = inspect.Flag("user", "User of the session the plan is optimized for.").Default("plan-inspect").String()
	cmd.properties = inspect.Flag("session", "Session property, as KEY=VALUE. Can be repeated.").StringMap()
	cmd.verbose = inspect.Flag("verbose", "Log optimizer passes.").Short('v').Bool()
	cmd.files = inspect.Arg("file", "The plan descriptions to inspect.").Required().ExistingFiles()
}

func main() {
	app := kingpin.New("plan-inspect", "A command-line tool to inspect the optimization of SQL plans.")
	app.HelpFlag.Short('h')
	addInspectCommand(app)

	if _, err := app.Parse(os.Args[1:]); err != nil {
		exitWithErr(err)
	}
}

func exitWithErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
