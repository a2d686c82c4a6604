package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/starford/glamcal/internal"
	"github.com/starford/glamcal/internal/auth"
	pkgconfig "github.com/starford/glamcal/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	loaded, err := pkgconfig.LoadOrDefault(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !loaded {
		slog.Info("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func exportICS(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if path := cmd.String("out"); path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}

	return internal.ExportICS(ctx, out, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func hashToken(_ context.Context, _ *cli.Command) error {
	token, err := readToken()
	if err != nil {
		return err
	}
	hash, err := auth.Hash(token)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

// readToken prompts twice on a terminal, or reads one line from piped stdin.
func readToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read token: %w", err)
		}
		token := strings.TrimRight(line, "\r\n")
		if token == "" {
			return "", errors.New("empty token")
		}
		return token, nil
	}

	fmt.Fprint(os.Stderr, "API token: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if len(first) == 0 {
		return "", errors.New("empty token")
	}
	fmt.Fprint(os.Stderr, "Repeat token: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("tokens do not match")
	}
	return string(first), nil
}

func main() {
	cmd := &cli.Command{
		Name:    "glamcal",
		Usage:   "Appointment calendar for a single-chair salon with closed-day scheduling",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, file watcher and backup scheduler",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the scheduling tools to an MCP client over stdio",
				Action: serveMCP,
			},
			{
				Name:   "export-ics",
				Usage:  "Write appointments and closed days as an iCalendar file",
				Action: exportICS,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output file, - for stdout",
						Value:   "-",
					},
				},
			},
			{
				Name:   "hash-token",
				Usage:  "Hash an API token for auth.mode=hash",
				Action: hashToken,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
