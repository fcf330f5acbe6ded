// Package launcher — CLI, который пишет временный env-файл и запускает сервер дашборда.
package launcher

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/xela07ax/cylestio-dashboard/internal/infra"
	"go.uber.org/zap"
)

const (
	CommandStart = "start"
	CommandHelp  = "help"

	// DefaultServerBin — бинарь сервера дашборда (cmd/console), ищется рядом с лаунчером.
	DefaultServerBin = "console"
	ServerBinVar     = "DASHBOARD_SERVER_BIN"
)

// Options — итоговые параметры запуска после флагов, ENV и дефолтов.
type Options struct {
	Port       int
	APIURL     string
	EnvFile    string
	ServerBin  string
	ServerArgs []string
}

// Launcher держит все внешние зависимости, чтобы тесты могли их подменить.
type Launcher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Getenv  func(string) string
	Environ func() []string

	// Notify подписывает канал на сигналы завершения
	Notify func(c chan<- os.Signal)
	Stop   func(c chan<- os.Signal)

	Logger *zap.Logger
}

// New собирает лаунчер поверх реального процесса.
func New(logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Getenv:  os.Getenv,
		Environ: os.Environ,
		Notify: func(c chan<- os.Signal) {
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		},
		Stop:   signal.Stop,
		Logger: logger.Named("launcher"),
	}
}

// Run разбирает аргументы и возвращает код выхода процесса.
func (l *Launcher) Run(args []string) int {
	cmd, rest := splitCommand(args)

	switch cmd {
	case CommandHelp, "--help", "-h":
		l.usage(l.Stdout)
		return 0
	case CommandStart:
	default:
		fmt.Fprintf(l.Stderr, "Unknown command: %s\n\n", cmd)
		l.usage(l.Stderr)
		return 1
	}

	opts, err := l.parseStart(rest)
	if errors.Is(err, pflag.ErrHelp) {
		l.usage(l.Stdout)
		return 0
	}
	if err != nil {
		fmt.Fprintf(l.Stderr, "Error: %v\n\n", err)
		l.usage(l.Stderr)
		return 1
	}
	return l.Start(opts)
}

// splitCommand: первый позиционный аргумент — команда, по умолчанию start.
func splitCommand(args []string) (string, []string) {
	if len(args) == 0 {
		return CommandStart, nil
	}
	first := args[0]
	if first == "--help" || first == "-h" || !strings.HasPrefix(first, "-") {
		return first, args[1:]
	}
	return CommandStart, args
}

func (l *Launcher) parseStart(args []string) (Options, error) {
	fs := pflag.NewFlagSet(CommandStart, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	port := fs.IntP("port", "p", l.defaultPort(), "port for the dashboard server")
	apiURL := fs.String("api-url", l.defaultAPIURL(), "backend API base URL")
	envFile := fs.String("env-file", l.envOr(infra.EnvFileVar, infra.DefaultEnvFile), "transient environment file")
	serverBin := fs.String("server-bin", l.envOr(ServerBinVar, defaultServerBin()), "dashboard server binary")

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	if *port <= 0 || *port > 65535 {
		return Options{}, fmt.Errorf("invalid port %d", *port)
	}
	if strings.TrimSpace(*apiURL) == "" {
		return Options{}, errors.New("api url must not be empty")
	}

	return Options{
		Port:       *port,
		APIURL:     strings.TrimRight(strings.TrimSpace(*apiURL), "/"),
		EnvFile:    *envFile,
		ServerBin:  *serverBin,
		ServerArgs: fs.Args(),
	}, nil
}

func (l *Launcher) defaultPort() int {
	if v, err := strconv.Atoi(strings.TrimSpace(l.Getenv("PORT"))); err == nil && v > 0 {
		return v
	}
	return infra.DefaultPort
}

func (l *Launcher) defaultAPIURL() string {
	for _, name := range []string{"API_SERVER_URL", "CYLESTIO_SERVER_URL"} {
		if v := strings.TrimSpace(l.Getenv(name)); v != "" {
			return v
		}
	}
	return infra.DefaultServerURL
}

func (l *Launcher) envOr(name, def string) string {
	if v := strings.TrimSpace(l.Getenv(name)); v != "" {
		return v
	}
	return def
}

// defaultServerBin ищет сервер рядом с исполняемым файлом лаунчера.
func defaultServerBin() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultServerBin
	}
	candidate := filepath.Join(filepath.Dir(exe), DefaultServerBin)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return DefaultServerBin
}

// Start пишет env-файл, запускает сервер и ждет его завершения.
// Сигналы пересылаются дочернему процессу, env-файл удаляется в любом случае.
func (l *Launcher) Start(opts Options) int {
	// 1. Временный env-файл
	env := map[string]string{
		"API_SERVER_URL":      opts.APIURL,
		"CYLESTIO_SERVER_URL": opts.APIURL,
		"PORT":                strconv.Itoa(opts.Port),
	}
	if err := godotenv.Write(env, opts.EnvFile); err != nil {
		l.Logger.Error("failed to write env file", zap.String("path", opts.EnvFile), zap.Error(err))
		return 1
	}
	defer l.removeEnvFile(opts.EnvFile)

	// 2. Дочерний процесс
	cmd := exec.Command(opts.ServerBin, opts.ServerArgs...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = l.Stdin, l.Stdout, l.Stderr
	cmd.Env = append(l.Environ(),
		"PORT="+strconv.Itoa(opts.Port),
		"API_SERVER_URL="+opts.APIURL,
		infra.EnvFileVar+"="+opts.EnvFile,
	)

	// Подписываемся до старта, чтобы не потерять ранний Ctrl+C
	sigCh := make(chan os.Signal, 1)
	l.Notify(sigCh)
	defer l.Stop(sigCh)

	if err := cmd.Start(); err != nil {
		l.Logger.Error("failed to start dashboard server", zap.String("bin", opts.ServerBin), zap.Error(err))
		return 1
	}
	l.Logger.Info("dashboard server started",
		zap.Int("pid", cmd.Process.Pid),
		zap.Int("port", opts.Port),
		zap.String("api_url", opts.APIURL))

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	// 3. Ждем завершения, пересылая сигналы
	interrupted := false
	for {
		select {
		case sig := <-sigCh:
			interrupted = true
			l.Logger.Info("forwarding signal to dashboard server", zap.String("signal", sig.String()))
			if err := cmd.Process.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
				l.Logger.Warn("signal forward failed", zap.Error(err))
			}
		case err := <-done:
			return exitCode(err, interrupted)
		}
	}
}

// exitCode переводит результат Wait в код выхода лаунчера.
// Смерть от пересланного сигнала — это штатная остановка.
func exitCode(err error, interrupted bool) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		if interrupted {
			return 0
		}
	}
	return 1
}

func (l *Launcher) removeEnvFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		l.Logger.Warn("failed to remove env file", zap.String("path", path), zap.Error(err))
	}
}

func (l *Launcher) usage(w io.Writer) {
	fmt.Fprint(w, `Cylestio Monitoring Dashboard

Usage:
  cylestio-dashboard [command] [options]

Commands:
  start         Start the dashboard server (default)
  help          Show this help message

Options:
  -p, --port <port>       Port for the dashboard server (default: 3000, env: PORT)
      --api-url <url>     Backend API base URL (default: http://localhost:8000,
                          env: API_SERVER_URL or CYLESTIO_SERVER_URL)
      --env-file <path>   Transient environment file (default: .env.local)
      --server-bin <path> Dashboard server binary (env: DASHBOARD_SERVER_BIN)
  -h, --help              Show this help message

Examples:
  cylestio-dashboard
  cylestio-dashboard start --port 8080 --api-url http://api.example.com
`)
}
